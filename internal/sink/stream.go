package sink

import (
	"errors"
	"hash"
	"io"
	"iter"
	"net/http"
	"sync"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/service/verify"
)

// ChunkSize is the read size used for chunked consumption
const ChunkSize = 32 * 1024

// StreamConfig configures a live stream
type StreamConfig struct {
	// Attempt tags verification errors raised at EOF
	Attempt int

	// Expected is the declared size, or -1 when unknown
	Expected int64

	Header   http.Header
	Verifier *verify.Verifier

	// OnChunk is called after every delivered chunk
	OnChunk func(n int)

	// Classify turns a body read error into a TransferError
	Classify func(err error) error

	// OnClose runs once when the stream is closed
	OnClose func()
}

// Stream hands a live response body to the caller. Size, checksum and ETag
// are verified when the body reaches EOF; a mismatch is returned in place of
// io.EOF. A Stream cannot be restarted.
type Stream struct {
	body     io.ReadCloser
	cfg      StreamConfig
	hash     hash.Hash
	received int64
	err      error
	once     sync.Once
}

// NewStream wraps body
func NewStream(body io.ReadCloser, cfg StreamConfig) *Stream {
	return &Stream{
		body: body,
		cfg:  cfg,
		hash: cfg.Verifier.NewHash(),
	}
}

// Read implements io.Reader
func (s *Stream) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	n, err := s.body.Read(p)
	if n > 0 {
		s.received += int64(n)
		if s.hash != nil {
			s.hash.Write(p[:n])
		}
		if s.cfg.OnChunk != nil {
			s.cfg.OnChunk(n)
		}
	}

	switch {
	case err == io.EOF:
		s.err = io.EOF
		if verr := s.verify(); verr != nil {
			s.err = verr
		}
	case err != nil:
		s.err = err
		if s.cfg.Classify != nil {
			s.err = s.cfg.Classify(err)
		}
	}
	return n, s.err
}

// Close releases the body
func (s *Stream) Close() error {
	err := s.body.Close()
	s.once.Do(func() {
		if s.cfg.OnClose != nil {
			s.cfg.OnClose()
		}
	})
	return err
}

func (s *Stream) verify() error {
	v := s.cfg.Verifier
	if err := v.Size(s.received, s.cfg.Expected); err != nil {
		return domain.NewTransferError(domain.KindSizeMismatch, s.cfg.Attempt, err)
	}
	if s.hash != nil {
		if err := v.Digest(s.hash); err != nil {
			return domain.NewTransferError(domain.KindChecksumMismatch, s.cfg.Attempt, err)
		}
	}
	if err := v.ETag(s.cfg.Header); err != nil {
		return domain.NewTransferError(domain.KindChecksumMismatch, s.cfg.Attempt, err)
	}
	return nil
}

// Chunks returns a lazy sequence of the chunks read from r. The sequence ends
// at EOF; a read error is yielded once and ends it. Each chunk is a fresh
// slice the caller may keep.
func Chunks(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, ChunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}
