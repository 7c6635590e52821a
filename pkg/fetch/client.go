package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/wget-fetch/internal/adapter/filesystem"
	"github.com/vertextoedge/wget-fetch/internal/adapter/httpclient"
	"github.com/vertextoedge/wget-fetch/internal/adapter/sqlite"
	"github.com/vertextoedge/wget-fetch/internal/domain/service"
	"github.com/vertextoedge/wget-fetch/internal/service/fetcher"
	"github.com/vertextoedge/wget-fetch/internal/service/transfer"
)

// Client fetches URLs. It is safe for concurrent use; fetches into the same
// destination exclude each other through the file lock.
type Client struct {
	fetcher   *fetcher.Fetcher
	store     TransferStore
	ownsStore bool
	logger    *zap.Logger
}

type settings struct {
	logger           *zap.Logger
	httpClient       *http.Client
	transport        Transport
	fs               FileSystem
	store            TransferStore
	journalPath      string
	backoff          fetcher.Backoff
	userAgent        string
	rps              int
	burst            int
	progressInterval time.Duration
}

// Option configures a Client
type Option func(*settings)

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithHTTPClient sends requests through c. Ignored when WithTransport is set.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithTransport replaces the HTTP transport entirely
func WithTransport(t Transport) Option {
	return func(s *settings) { s.transport = t }
}

// WithFileSystem replaces the local filesystem
func WithFileSystem(fs FileSystem) Option {
	return func(s *settings) { s.fs = fs }
}

// WithJournal opens a SQLite resume journal at path, closed by Client.Close
func WithJournal(path string) Option {
	return func(s *settings) { s.journalPath = path }
}

// WithStore uses an already open resume journal. The caller keeps ownership.
func WithStore(store TransferStore) Option {
	return func(s *settings) { s.store = store }
}

// WithBackoff sets the delay before the second attempt and its cap
func WithBackoff(base, max time.Duration) Option {
	return func(s *settings) { s.backoff = fetcher.Backoff{Base: base, Max: max} }
}

// WithUserAgent sets the default User-Agent header
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.userAgent = ua }
}

// WithThrottle limits outbound requests to rps per second
func WithThrottle(rps, burst int) Option {
	return func(s *settings) {
		s.rps = rps
		s.burst = burst
	}
}

// WithProgressInterval sets the minimum gap between progress log lines
func WithProgressInterval(d time.Duration) Option {
	return func(s *settings) { s.progressInterval = d }
}

// New creates a Client
func New(optFns ...Option) (*Client, error) {
	var s settings
	for _, fn := range optFns {
		fn(&s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.store != nil && s.journalPath != "" {
		return nil, errors.New("fetch: WithStore and WithJournal are mutually exclusive")
	}

	transport := s.transport
	if transport == nil {
		if s.httpClient != nil {
			transport = httpclient.NewWithHTTPClient(s.httpClient, s.userAgent)
		} else {
			opts := httpclient.DefaultOptions()
			if s.userAgent != "" {
				opts.UserAgent = s.userAgent
			}
			opts.RequestsPerSecond = s.rps
			opts.Burst = s.burst
			c, err := httpclient.New(opts, s.logger)
			if err != nil {
				return nil, fmt.Errorf("fetch: failed to create http client: %w", err)
			}
			transport = c
		}
	}

	fs := s.fs
	if fs == nil {
		fs = filesystem.NewManager()
	}

	c := &Client{store: s.store, logger: s.logger}
	if s.journalPath != "" {
		store, err := sqlite.Open(s.journalPath)
		if err != nil {
			return nil, fmt.Errorf("fetch: failed to open journal: %w", err)
		}
		c.store = store
		c.ownsStore = true
	}

	engine := transfer.NewEngine(transport, s.logger, s.progressInterval)
	c.fetcher = fetcher.New(engine, fs, c.store, s.logger, s.backoff)
	return c, nil
}

// Fetch retrieves url. action selects the destination; see the package doc.
func (c *Client) Fetch(ctx context.Context, url string, action Action, opts RequestOptions) (*TransferResult, error) {
	return c.fetcher.Fetch(ctx, service.Resolve(url, action, opts))
}

// Resolve returns the destination Fetch would use, without any I/O
func Resolve(url string, action Action, opts RequestOptions) Target {
	return service.Resolve(url, action, opts).Target
}

// Close releases the journal opened by WithJournal
func (c *Client) Close() error {
	if c.ownsStore && c.store != nil {
		return c.store.Close()
	}
	return nil
}

var defaultClient = sync.OnceValues(func() (*Client, error) {
	return New()
})

// Fetch retrieves url with a shared default Client
func Fetch(ctx context.Context, url string, action Action, opts RequestOptions) (*TransferResult, error) {
	c, err := defaultClient()
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, url, action, opts)
}
