package domain

import (
	"strings"
	"time"
)

// SinkKind selects how a response body is consumed
type SinkKind int

const (
	// SinkFile saves the body to a path on disk
	SinkFile SinkKind = iota
	// SinkBytes buffers the raw body
	SinkBytes
	// SinkText buffers and decodes the body using the declared charset
	SinkText
	// SinkDecodedText buffers and decodes the body using a sniffed charset
	SinkDecodedText
	// SinkStructured buffers and parses the body as JSON or YAML
	SinkStructured
	// SinkStream hands the live body back to the caller
	SinkStream
)

var sinkKindNames = map[SinkKind]string{
	SinkFile:        "download",
	SinkBytes:       "bytes",
	SinkText:        "text",
	SinkDecodedText: "decoded-text",
	SinkStructured:  "structured",
	SinkStream:      "stream",
}

// String returns the canonical name of the sink kind
func (k SinkKind) String() string {
	if name, ok := sinkKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Buffered reports whether the kind accumulates the body in memory
func (k SinkKind) Buffered() bool {
	switch k {
	case SinkBytes, SinkText, SinkDecodedText, SinkStructured:
		return true
	}
	return false
}

// ParseSinkKind maps a sink name onto a SinkKind.
// Both canonical names and the legacy body action names are accepted.
func ParseSinkKind(name string) (SinkKind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "download", "file":
		return SinkFile, true
	case "array", "buffer", "blob", "bytes", "raw-bytes":
		return SinkBytes, true
	case "text":
		return SinkText, true
	case "converted", "decoded-text":
		return SinkDecodedText, true
	case "json", "structured":
		return SinkStructured, true
	case "stream", "live-stream":
		return SinkStream, true
	}
	return 0, false
}

// Checksum is an expected digest of the transferred bytes
type Checksum struct {
	// Algorithm is one of sha256, sha1, sha512, md5, blake3, blake2b
	Algorithm string

	// Expected is the hex-encoded digest
	Expected string
}

// RequestOptions configures a single logical fetch
type RequestOptions struct {
	// Action selects the sink kind when the options are passed as the action.
	// Nil means live-stream.
	Action *SinkKind

	// DryRun resolves the destination only, with no network or disk I/O
	DryRun bool

	// Timeout is the per-attempt deadline. Zero disables it.
	Timeout time.Duration

	// MaxRetries is the maximum number of attempts. Values below 1 mean 1.
	MaxRetries int

	// RangeResume enables byte-range resumption of file downloads
	RangeResume bool

	// Headers are added to every outbound request
	Headers map[string]string

	// RetryServerErrors makes 5xx and 429 responses recoverable. It has no
	// effect on SinkStream targets: their error responses are returned at
	// once, with the error body as the Result's Payload.Stream, which the
	// caller must close.
	RetryServerErrors bool

	// Checksum, when set, is verified against the written bytes
	Checksum *Checksum

	// ExpectedETag, when set, must match the response ETag
	ExpectedETag string

	// Progress enables throttled progress log lines
	Progress bool

	// OnProgress is called after every chunk with the running totals.
	// expected is -1 when the size is unknown.
	OnProgress func(received, expected int64)

	// MaxBytesPerSecond caps the body read rate. Zero disables it.
	MaxBytesPerSecond int64
}

// Attempts returns the effective attempt budget
func (o RequestOptions) Attempts() int {
	if o.MaxRetries < 1 {
		return 1
	}
	return o.MaxRetries
}

// Target is the resolved destination of a fetch: a file path or a sink kind
type Target struct {
	Kind SinkKind

	// Path is set only when Kind is SinkFile
	Path string
}

// IsFile reports whether the target writes to disk
func (t Target) IsFile() bool {
	return t.Kind == SinkFile
}

// FetchRequest is an immutable description of one logical fetch
type FetchRequest struct {
	SourceURL string
	Target    Target
	Options   RequestOptions
}

// Resumable reports whether retries may continue from bytes already on disk
func (r FetchRequest) Resumable() bool {
	return r.Target.IsFile() && r.Options.RangeResume
}
