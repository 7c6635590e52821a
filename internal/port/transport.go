package port

import (
	"context"
	"io"
	"net/http"
)

// NoRange marks a request without a byte-range header
const NoRange int64 = -1

// Request is an outbound fetch request
type Request struct {
	URL    string
	Header http.Header

	// RangeStart requests bytes from this offset onward. NoRange disables it.
	RangeStart int64

	// IfRange is the validator sent with a range request, if known
	IfRange string
}

// Response is the transport's answer to a Request
type Response struct {
	StatusCode int
	Header     http.Header

	// ContentLength is -1 when unknown
	ContentLength int64

	Body io.ReadCloser
}

// Transport issues HTTP(S) requests
type Transport interface {
	// Do sends req. The response body must be closed by the caller.
	// Cancelling ctx aborts the request at the transport layer.
	Do(ctx context.Context, req *Request) (*Response, error)
}
