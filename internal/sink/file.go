package sink

import (
	"errors"
	"fmt"
	"io"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/port"
)

// PartSuffix is appended to a destination while it is being written
const PartSuffix = ".part"

// FileSink writes the body into <dest>.part and renames it onto dest once
// complete
type FileSink struct {
	fs        port.FileSystem
	dest      string
	part      string
	resumable bool

	file    port.WritableFile
	written int64
}

// NewFile creates a sink writing to dest
func NewFile(fs port.FileSystem, dest string, resumable bool) *FileSink {
	return &FileSink{
		fs:        fs,
		dest:      dest,
		part:      dest + PartSuffix,
		resumable: resumable,
	}
}

// Path returns the final destination
func (s *FileSink) Path() string {
	return s.dest
}

// PartPath returns the in-progress file
func (s *FileSink) PartPath() string {
	return s.part
}

// Open locks the part file. A resumable sink keeps existing content.
func (s *FileSink) Open() (int64, error) {
	if s.file != nil {
		return s.written, nil
	}

	f, err := s.fs.OpenExclusive(s.part, !s.resumable)
	if err != nil {
		return 0, err
	}
	s.file = f

	s.written = 0
	if s.resumable {
		size, err := s.fs.Size(s.part)
		if err != nil {
			f.Close()
			s.file = nil
			return 0, fmt.Errorf("failed to stat part file: %w", err)
		}
		s.written = size
	}
	return s.written, nil
}

// Begin truncates the part file to offset
func (s *FileSink) Begin(offset int64) error {
	if s.file == nil {
		if _, err := s.Open(); err != nil {
			return err
		}
	}
	if offset > s.written {
		return fmt.Errorf("%w: offset %d beyond %d written bytes", domain.ErrInvalidInput, offset, s.written)
	}
	if err := s.file.Truncate(offset); err != nil {
		return fmt.Errorf("failed to truncate part file: %w", err)
	}
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek part file: %w", err)
	}
	s.written = offset
	return nil
}

// Consume writes one chunk
func (s *FileSink) Consume(chunk []byte) error {
	n, err := s.file.Write(chunk)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write part file: %w", err)
	}
	return nil
}

// Offset returns the bytes written to the part file
func (s *FileSink) Offset() int64 {
	return s.written
}

// Contents opens the part file, or the destination once finalized
func (s *FileSink) Contents() (io.ReadCloser, error) {
	if s.file == nil {
		return s.fs.Open(s.dest)
	}
	return s.fs.Open(s.part)
}

// Finalize syncs and closes the part file and renames it onto the destination
func (s *FileSink) Finalize(Meta) (domain.Payload, error) {
	if s.file == nil {
		return domain.Payload{}, fmt.Errorf("%w: file sink is not open", domain.ErrWrite)
	}

	f := s.file
	s.file = nil

	if err := f.Sync(); err != nil {
		f.Close()
		return domain.Payload{}, fmt.Errorf("failed to sync part file: %w", err)
	}
	if err := f.Close(); err != nil {
		return domain.Payload{}, fmt.Errorf("failed to close part file: %w", err)
	}
	if err := s.fs.Rename(s.part, s.dest); err != nil {
		return domain.Payload{}, err
	}
	return domain.Payload{}, nil
}

// Abort closes the part file and removes it unless it can be resumed
func (s *FileSink) Abort() error {
	if s.file == nil {
		return nil
	}

	f := s.file
	s.file = nil

	if s.resumable && s.written > 0 {
		var syncErr error
		if err := f.Sync(); err != nil {
			syncErr = fmt.Errorf("failed to sync kept part file %s: %w", s.part, err)
		}
		return errors.Join(syncErr, f.Close())
	}
	closeErr := f.Close()
	if err := s.fs.Remove(s.part); err != nil {
		return err
	}
	return closeErr
}
