package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/port"
	"github.com/vertextoedge/wget-fetch/internal/service/verify"
	"github.com/vertextoedge/wget-fetch/internal/sink"
	"github.com/vertextoedge/wget-fetch/internal/util/httpheader"
)

// Engine drives single fetch attempts
type Engine struct {
	transport        port.Transport
	logger           *zap.Logger
	progressInterval time.Duration
}

// NewEngine creates a new Engine
func NewEngine(transport port.Transport, logger *zap.Logger, progressInterval time.Duration) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if progressInterval <= 0 {
		progressInterval = 5 * time.Second
	}
	return &Engine{
		transport:        transport,
		logger:           logger,
		progressInterval: progressInterval,
	}
}

// Attempt is the input of one engine run
type Attempt struct {
	Number int

	// Offset is the number of bytes already held by the sink to resume from.
	// Zero requests the whole body.
	Offset int64

	// IfRange validates a resumed range against the earlier representation
	IfRange string

	// Sink consumes the body of file and buffered targets. Nil for streams.
	Sink sink.Sink

	Verifier *verify.Verifier

	// Release is called exactly once: when Run returns, or when a stream
	// handed to the caller is closed
	Release func()
}

// Outcome describes a response. It is returned whenever a response arrived,
// even alongside an error.
type Outcome struct {
	State       *domain.TransferState
	StatusCode  int
	Header      http.Header
	ResumedFrom int64

	// Stream is set for stream targets on success
	Stream *sink.Stream
}

// Run performs one attempt of req
func (e *Engine) Run(ctx context.Context, req domain.FetchRequest, a Attempt) (*Outcome, error) {
	release := onceFunc(a.Release)
	handedOff := false
	defer func() {
		if !handedOff {
			release()
		}
	}()

	logger := e.logger.With(
		zap.String("url", req.SourceURL),
		zap.Int("attempt", a.Number))

	resp, offset, err := e.send(ctx, req, a, logger)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		State:       domain.NewTransferState(a.Number, offset),
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ResumedFrom: offset,
	}

	if resp.StatusCode >= 400 {
		te := domain.NewTransferError(domain.KindHTTPStatus, a.Number,
			fmt.Errorf("%s %s", req.SourceURL, http.StatusText(resp.StatusCode)))
		te.StatusCode = resp.StatusCode
		if req.Target.Kind == domain.SinkStream {
			// The caller may want to read the error body
			handedOff = true
			te.Result = &domain.TransferResult{
				Target:        req.Target,
				Payload:       domain.Payload{Stream: &releasingBody{ReadCloser: resp.Body, release: release}},
				ExpectedBytes: resp.ContentLength,
				SizeMatch:     true,
				StatusCode:    resp.StatusCode,
				Headers:       domain.CloneHeader(resp.Header),
				Attempts:      a.Number,
			}
			return out, te
		}
		resp.Body.Close()
		return out, te
	}

	if resp.ContentLength >= 0 {
		out.State.BytesExpected = offset + resp.ContentLength
	}

	progress := newProgress(logger, req.Options, e.progressInterval)

	if req.Target.Kind == domain.SinkStream {
		handedOff = true
		out.Stream = sink.NewStream(resp.Body, sink.StreamConfig{
			Attempt:  a.Number,
			Expected: out.State.BytesExpected,
			Header:   resp.Header,
			Verifier: a.Verifier,
			OnChunk: func(n int) {
				out.State.Add(n)
				progress.update(out.State)
			},
			Classify: func(err error) error { return classify(ctx, a.Number, err) },
			OnClose:  release,
		})
		return out, nil
	}

	defer resp.Body.Close()

	if err := a.Sink.Begin(offset); err != nil {
		return out, domain.NewTransferError(domain.KindWrite, a.Number, err)
	}

	if err := e.copy(ctx, resp.Body, a, out.State, req.Options, progress); err != nil {
		return out, err
	}

	progress.done(out.State)
	logger.Debug("attempt body complete",
		zap.Int64("received", out.State.BytesReceived),
		zap.Int64("expected", out.State.BytesExpected),
		zap.Int64("resumed_from", offset))

	return out, nil
}

// send issues the request and settles the offset the body starts at
func (e *Engine) send(ctx context.Context, req domain.FetchRequest, a Attempt, logger *zap.Logger) (*port.Response, int64, error) {
	offset := int64(0)
	if req.Resumable() && a.Offset > 0 {
		offset = a.Offset
	}

	resp, err := e.do(ctx, req, offset, a.IfRange)
	if err != nil {
		return nil, 0, classify(ctx, a.Number, err)
	}
	if offset == 0 {
		return resp, 0, nil
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, _, _, perr := httpheader.ParseContentRange(resp.Header.Get("Content-Range"))
		if perr == nil && start == offset {
			logger.Info("resuming transfer", zap.Int64("offset", offset))
			return resp, offset, nil
		}
		logger.Warn("server returned an unexpected range, restarting",
			zap.Int64("offset", offset),
			zap.String("content_range", resp.Header.Get("Content-Range")))
	case http.StatusRequestedRangeNotSatisfiable:
		logger.Warn("range not satisfiable, restarting", zap.Int64("offset", offset))
	default:
		// Range ignored or the validator changed: the body is the full representation
		if resp.StatusCode < 400 {
			logger.Info("server ignored range request, restarting", zap.Int64("offset", offset))
			return resp, 0, nil
		}
		return resp, offset, nil
	}

	resp.Body.Close()
	resp, err = e.do(ctx, req, 0, "")
	if err != nil {
		return nil, 0, classify(ctx, a.Number, err)
	}
	return resp, 0, nil
}

func (e *Engine) do(ctx context.Context, req domain.FetchRequest, offset int64, ifRange string) (*port.Response, error) {
	header := make(http.Header, len(req.Options.Headers))
	for k, v := range req.Options.Headers {
		header.Set(k, v)
	}

	preq := &port.Request{
		URL:        req.SourceURL,
		Header:     header,
		RangeStart: port.NoRange,
	}
	if offset > 0 {
		preq.RangeStart = offset
		preq.IfRange = ifRange
	}
	return e.transport.Do(ctx, preq)
}

// copy streams body chunks into the sink
func (e *Engine) copy(ctx context.Context, body io.Reader, a Attempt, state *domain.TransferState, opts domain.RequestOptions, progress *progress) error {
	size := sink.ChunkSize
	var limiter *rate.Limiter
	if opts.MaxBytesPerSecond > 0 {
		if opts.MaxBytesPerSecond < int64(size) {
			size = int(opts.MaxBytesPerSecond)
		}
		limiter = rate.NewLimiter(rate.Limit(opts.MaxBytesPerSecond), size)
	}

	buf := make([]byte, size)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if limiter != nil {
				if err := limiter.WaitN(ctx, n); err != nil {
					return classifyWait(ctx, a.Number, err)
				}
			}
			if err := a.Sink.Consume(buf[:n]); err != nil {
				return domain.NewTransferError(domain.KindWrite, a.Number, err)
			}
			state.Add(n)
			progress.update(state)
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return classify(ctx, a.Number, rerr)
		}
	}
}

// releasingBody runs release once when closed
type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}

func onceFunc(f func()) func() {
	if f == nil {
		return func() {}
	}
	return sync.OnceFunc(f)
}
