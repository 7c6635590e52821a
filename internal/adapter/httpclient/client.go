package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/wget-fetch/internal/port"
	"github.com/vertextoedge/wget-fetch/internal/util/httpheader"
)

// DefaultUserAgent is sent when no User-Agent header is configured
const DefaultUserAgent = "wget-fetch/1.0"

// Options configures the HTTP transport
type Options struct {
	// UserAgent is sent unless the request sets its own. Empty uses DefaultUserAgent.
	UserAgent string

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16
	MaxIdleConnsPerHost int

	// RequestsPerSecond throttles outbound requests. Zero disables it.
	RequestsPerSecond int

	// Burst is the throttle bucket size. Defaults to RequestsPerSecond.
	Burst int
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() Options {
	return Options{
		UserAgent:           DefaultUserAgent,
		MaxIdleConnsPerHost: 16,
	}
}

// Client implements port.Transport over net/http
type Client struct {
	client    *http.Client
	userAgent string
}

// Ensure Client implements port.Transport
var _ port.Transport = (*Client)(nil)

// New creates a new HTTP transport
func New(opts Options, logger *zap.Logger) (*Client, error) {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 16
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		// Byte offsets must refer to the representation on the wire
		DisableCompression: true,
	}

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = opts.RequestsPerSecond
		}
		throttled, err := NewThrottle(opts.RequestsPerSecond, burst, logger, rt)
		if err != nil {
			return nil, err
		}
		rt = throttled
	}

	return &Client{
		// No client timeout: deadlines come from the request context
		client:    &http.Client{Transport: rt},
		userAgent: opts.UserAgent,
	}, nil
}

// NewWithHTTPClient wraps an existing http.Client. Its transport settings,
// including compression, are used as is.
func NewWithHTTPClient(client *http.Client, userAgent string) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{client: client, userAgent: userAgent}
}

// Do sends a GET request for req
func (c *Client) Do(ctx context.Context, req *port.Request) (*port.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	if req.RangeStart > 0 {
		httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", req.RangeStart))
		// Weak validators are not allowed in If-Range
		if req.IfRange != "" && !httpheader.IsWeakETag(req.IfRange) {
			httpReq.Header.Set("If-Range", req.IfRange)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	return &port.Response{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}
