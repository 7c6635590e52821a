package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vertextoedge/wget-fetch/internal/port"
)

// PartSuffix marks files CleanOldPartFiles may remove
const PartSuffix = ".part"

// Manager handles local filesystem operations
type Manager struct{}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager() *Manager {
	return &Manager{}
}

// lockedFile is an *os.File holding an advisory write lock
type lockedFile struct {
	*os.File
}

// Close releases the lock and closes the file
func (f *lockedFile) Close() error {
	unlockErr := unlock(f.File)
	if err := f.File.Close(); err != nil {
		return err
	}
	return unlockErr
}

// OpenExclusive opens path for exclusive write
func (m *Manager) OpenExclusive(path string, truncate bool) (port.WritableFile, error) {
	if err := m.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("failed to create parent dir: %w", err)
	}

	// Open without O_TRUNC so a locked file held by someone else is left intact
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	if err := lock(f); err != nil {
		f.Close()
		return nil, err
	}

	if truncate {
		if err := f.Truncate(0); err != nil {
			unlock(f)
			f.Close()
			return nil, fmt.Errorf("failed to truncate file: %w", err)
		}
	} else if _, err := f.Seek(0, io.SeekEnd); err != nil {
		unlock(f)
		f.Close()
		return nil, fmt.Errorf("failed to seek file: %w", err)
	}

	return &lockedFile{File: f}, nil
}

// Open opens path for reading
func (m *Manager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Size returns the size of a file
func (m *Manager) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes a file
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Rename moves from onto to
func (m *Manager) Rename(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// EnsureDir ensures the directory for a file path exists
func (m *Manager) EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0755)
}

// CleanOldPartFiles removes part files older than the specified duration
func (m *Manager) CleanOldPartFiles(root string, olderThan time.Duration) (int, error) {
	count := 0
	threshold := time.Now().Add(-olderThan)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, PartSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if removeErr := os.Remove(path); removeErr == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}
