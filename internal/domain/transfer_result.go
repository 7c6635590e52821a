package domain

import (
	"io"
	"net/http"
)

// Payload is the consumed body of a non-file fetch. Exactly one field is set,
// matching the sink kind.
type Payload struct {
	Bytes  []byte
	Text   string
	Data   any
	Stream io.ReadCloser
}

// TransferResult represents the result of a successful fetch
type TransferResult struct {
	// Target is the resolved destination
	Target Target

	// Path is the local path where the file was saved (file targets only)
	Path string

	// Payload holds the consumed body for in-memory and stream targets
	Payload Payload

	// BytesWritten is the total bytes delivered, including resumed bytes
	BytesWritten int64

	// ExpectedBytes is the declared size, or -1 when unknown
	ExpectedBytes int64

	// SizeMatch is true when the size is unknown or equals BytesWritten
	SizeMatch bool

	// StatusCode of the final response
	StatusCode int

	// Headers of the final response, preserving multi-value headers
	Headers map[string][]string

	// Attempts is the number of attempts used
	Attempts int

	// ResumedFrom is the byte offset the final attempt started at
	ResumedFrom int64

	// DryRun is set when no I/O was performed
	DryRun bool
}

// HasExpectedBytes reports whether a size was declared
func (r *TransferResult) HasExpectedBytes() bool {
	return r.ExpectedBytes >= 0
}

// CloneHeader copies an http.Header into a plain multi-value map
func CloneHeader(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}
