package domain

import (
	"errors"
	"fmt"
)

// Transfer error sentinels, one per ErrorKind
var (
	ErrNetwork          = errors.New("network failure")
	ErrTimeout          = errors.New("timeout")
	ErrHTTPStatus       = errors.New("unexpected http status")
	ErrWrite            = errors.New("write failure")
	ErrSizeMismatch     = errors.New("size mismatch")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrCancelled        = errors.New("cancelled")
	ErrDecode           = errors.New("decode failure")
)

// Common domain errors
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownAlgorithm  = errors.New("unknown checksum algorithm")
	ErrDestinationLocked = errors.New("destination is locked by another writer")
)

// ErrorKind tags a TransferError
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindTimeout
	KindHTTPStatus
	KindWrite
	KindSizeMismatch
	KindChecksumMismatch
	KindCancelled
	KindDecode
)

var kindSentinels = map[ErrorKind]error{
	KindNetwork:          ErrNetwork,
	KindTimeout:          ErrTimeout,
	KindHTTPStatus:       ErrHTTPStatus,
	KindWrite:            ErrWrite,
	KindSizeMismatch:     ErrSizeMismatch,
	KindChecksumMismatch: ErrChecksumMismatch,
	KindCancelled:        ErrCancelled,
	KindDecode:           ErrDecode,
}

// String returns the sentinel message for the kind
func (k ErrorKind) String() string {
	if s, ok := kindSentinels[k]; ok {
		return s.Error()
	}
	return "unknown"
}

// TransferError is the typed failure of a fetch.
// Result is set when bytes were fully delivered but verification failed,
// or when a live stream carries an error body.
type TransferError struct {
	Kind       ErrorKind
	StatusCode int
	Attempt    int
	Err        error
	Result     *TransferResult
}

// NewTransferError creates a TransferError of the given kind
func NewTransferError(kind ErrorKind, attempt int, err error) *TransferError {
	return &TransferError{Kind: kind, Attempt: attempt, Err: err}
}

// Error returns the error message
func (e *TransferError) Error() string {
	msg := e.Kind.String()
	if e.Kind == KindHTTPStatus {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	msg = fmt.Sprintf("attempt %d: %s", e.Attempt, msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind
func (e *TransferError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of a TransferError anywhere in the chain
func KindOf(err error) (ErrorKind, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// IsRetryable reports whether the error kind may be retried by policy.
// HTTP status errors are retryable only when serverErrors is set and the
// status is 5xx or 429.
func IsRetryable(err error, serverErrors bool) bool {
	var te *TransferError
	if !errors.As(err, &te) {
		return false
	}
	switch te.Kind {
	case KindNetwork, KindTimeout, KindWrite:
		return true
	case KindHTTPStatus:
		return serverErrors && (te.StatusCode >= 500 || te.StatusCode == 429)
	}
	return false
}

// ResultOf returns the TransferResult attached to a TransferError, if any
func ResultOf(err error) *TransferResult {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Result
	}
	return nil
}
