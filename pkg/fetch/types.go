package fetch

import (
	"io"
	"iter"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/port"
	"github.com/vertextoedge/wget-fetch/internal/sink"
)

type (
	TransferResult = domain.TransferResult
	TransferError  = domain.TransferError
	RequestOptions = domain.RequestOptions
	Checksum       = domain.Checksum
	Payload        = domain.Payload
	SinkKind       = domain.SinkKind
	ErrorKind      = domain.ErrorKind
	Action         = domain.Action
	Target         = domain.Target

	// Transport issues the outbound GET requests
	Transport = port.Transport
	// FileSystem backs file downloads
	FileSystem = port.FileSystem
	// TransferStore is the cross-run resume journal
	TransferStore = port.TransferStore
)

const (
	SinkFile        = domain.SinkFile
	SinkBytes       = domain.SinkBytes
	SinkText        = domain.SinkText
	SinkDecodedText = domain.SinkDecodedText
	SinkStructured  = domain.SinkStructured
	SinkStream      = domain.SinkStream
)

const (
	KindNetwork          = domain.KindNetwork
	KindTimeout          = domain.KindTimeout
	KindHTTPStatus       = domain.KindHTTPStatus
	KindWrite            = domain.KindWrite
	KindSizeMismatch     = domain.KindSizeMismatch
	KindChecksumMismatch = domain.KindChecksumMismatch
	KindCancelled        = domain.KindCancelled
	KindDecode           = domain.KindDecode
)

var (
	ErrNetwork           = domain.ErrNetwork
	ErrTimeout           = domain.ErrTimeout
	ErrHTTPStatus        = domain.ErrHTTPStatus
	ErrWrite             = domain.ErrWrite
	ErrSizeMismatch      = domain.ErrSizeMismatch
	ErrChecksumMismatch  = domain.ErrChecksumMismatch
	ErrCancelled         = domain.ErrCancelled
	ErrDecode            = domain.ErrDecode
	ErrInvalidInput      = domain.ErrInvalidInput
	ErrUnknownAlgorithm  = domain.ErrUnknownAlgorithm
	ErrDestinationLocked = domain.ErrDestinationLocked
)

// Path saves the body to path; a trailing separator names a directory
func Path(path string) Action { return domain.PathAction(path) }

// Sink consumes the body with the given sink kind
func Sink(kind SinkKind) Action { return domain.SinkAction(kind) }

// Options passes request options as the action. They replace the options
// argument of Fetch, and their Action field picks the sink (live stream if nil).
func Options(opts RequestOptions) Action { return domain.OptionsAction(opts) }

// ParseAction treats s as a sink name when it is one, and as a path otherwise
func ParseAction(s string) Action { return domain.ParseAction(s) }

// ParseSinkKind maps a sink name such as "json" or "buffer" onto a SinkKind
func ParseSinkKind(name string) (SinkKind, bool) { return domain.ParseSinkKind(name) }

// DefaultRequestOptions returns three attempts with range resumption enabled
func DefaultRequestOptions() RequestOptions {
	return RequestOptions{MaxRetries: 3, RangeResume: true}
}

// Chunks reads a live stream as a sequence of chunks
func Chunks(r io.Reader) iter.Seq2[[]byte, error] { return sink.Chunks(r) }

// KindOf returns the kind of a TransferError anywhere in err's chain
func KindOf(err error) (ErrorKind, bool) { return domain.KindOf(err) }

// ResultOf returns the result attached to a failed transfer, if any
func ResultOf(err error) *TransferResult { return domain.ResultOf(err) }
