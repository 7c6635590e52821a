// Package sink implements the consumers of a response body: a file on disk,
// an in-memory buffer decoded on completion, or a live stream.
package sink

import (
	"io"
	"net/http"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/port"
)

// Meta describes the response a sink finished consuming
type Meta struct {
	StatusCode int
	Header     http.Header
}

// Sink consumes a response body chunk by chunk across one or more attempts
type Sink interface {
	// Open acquires the destination. It returns the number of bytes already
	// held from an earlier run that a resumed transfer may build on.
	Open() (int64, error)

	// Begin positions the sink at offset before an attempt delivers chunks.
	// Offset zero discards everything consumed so far.
	Begin(offset int64) error

	// Consume appends one chunk in arrival order
	Consume(chunk []byte) error

	// Offset returns the number of bytes currently held
	Offset() int64

	// Contents returns a reader over the bytes consumed so far
	Contents() (io.ReadCloser, error)

	// Finalize completes the sink and returns its payload
	Finalize(meta Meta) (domain.Payload, error)

	// Abort releases the sink after a terminal failure
	Abort() error
}

// New returns the sink for a buffered or file target.
// Stream targets are served by NewStream instead.
func New(target domain.Target, fs port.FileSystem, resumable bool) Sink {
	if target.IsFile() {
		return NewFile(fs, target.Path, resumable)
	}
	return NewBuffer(target.Kind)
}
