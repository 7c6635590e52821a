package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/port"
	"github.com/vertextoedge/wget-fetch/internal/service/transfer"
	"github.com/vertextoedge/wget-fetch/internal/service/verify"
	"github.com/vertextoedge/wget-fetch/internal/sink"
)

// Backoff bounds the delay between attempts: base × 2^(n−1), capped at Max
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff is used when a zero Backoff is given
var DefaultBackoff = Backoff{Base: 500 * time.Millisecond, Max: 30 * time.Second}

// Fetcher runs a fetch request through retries, resumption and verification
type Fetcher struct {
	engine  *transfer.Engine
	fs      port.FileSystem
	journal port.TransferStore
	logger  *zap.Logger
	backoff Backoff
}

// New creates a Fetcher. journal may be nil to disable cross-run resumption.
func New(
	engine *transfer.Engine,
	fs port.FileSystem,
	journal port.TransferStore,
	logger *zap.Logger,
	bo Backoff,
) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bo.Base <= 0 {
		bo.Base = DefaultBackoff.Base
	}
	if bo.Max < bo.Base {
		bo.Max = max(DefaultBackoff.Max, bo.Base)
	}
	return &Fetcher{
		engine:  engine,
		fs:      fs,
		journal: journal,
		logger:  logger,
		backoff: bo,
	}
}

// Fetch executes req. A dry run returns the resolved destination without I/O.
func (f *Fetcher) Fetch(ctx context.Context, req domain.FetchRequest) (*domain.TransferResult, error) {
	if req.Options.DryRun {
		return dryRunResult(req), nil
	}

	verifier, err := verify.New(req.Options)
	if err != nil {
		return nil, err
	}

	r := &run{
		f:        f,
		req:      req,
		verifier: verifier,
		state:    StateIdle,
		expected: -1,
		logger: f.logger.With(
			zap.String("url", req.SourceURL),
			zap.String("target", req.Target.Kind.String())),
	}
	if req.Target.IsFile() {
		r.logger = r.logger.With(zap.String("path", req.Target.Path))
	}
	return r.execute(ctx)
}

func dryRunResult(req domain.FetchRequest) *domain.TransferResult {
	return &domain.TransferResult{
		Target:        req.Target,
		Path:          req.Target.Path,
		ExpectedBytes: -1,
		SizeMatch:     true,
		DryRun:        true,
	}
}

// run is the single-owner state of one logical fetch
type run struct {
	f        *Fetcher
	req      domain.FetchRequest
	verifier *verify.Verifier
	logger   *zap.Logger

	state    State
	attempt  int
	sink     sink.Sink
	offset   int64
	expected int64
	etag     string
	lastErr  error
}

func (r *run) transition(to State) {
	if !CanTransition(r.state, to) {
		r.logger.Error("invalid state transition",
			zap.Stringer("from", r.state),
			zap.Stringer("to", to))
	}
	r.logger.Debug("state transition",
		zap.Stringer("from", r.state),
		zap.Stringer("to", to),
		zap.Int("attempt", r.attempt))
	r.state = to
}

func (r *run) execute(ctx context.Context) (*domain.TransferResult, error) {
	if err := r.open(ctx); err != nil {
		r.transition(StateFailedTerminal)
		return nil, err
	}

	bo := r.newBackOff()
	budget := r.req.Options.Attempts()

	for {
		r.attempt++
		r.transition(StateAttempting)

		out, err := r.attemptOnce(ctx)
		if err == nil {
			r.transition(StateSucceeded)
			return r.complete(ctx, out)
		}
		r.lastErr = err

		if !r.recoverable(err) || r.attempt >= budget {
			r.transition(StateFailedTerminal)
			r.logger.Debug("fetch failed", zap.Int("attempt", r.attempt), zap.Error(err))
			r.abort(ctx)
			return nil, err
		}

		r.transition(StateFailedRecoverable)
		r.carryForward(ctx)

		delay := bo.NextBackOff()
		r.logger.Warn("attempt failed, retrying",
			zap.Int("attempt", r.attempt),
			zap.Int("max_attempts", budget),
			zap.Duration("backoff", delay),
			zap.Int64("resume_offset", r.offset),
			zap.Error(err))

		if err := sleep(ctx, delay); err != nil {
			r.transition(StateFailedTerminal)
			r.abort(ctx)
			return nil, r.interrupted(ctx, err)
		}
	}
}

// open acquires the sink and, for resumable files, the journal state
func (r *run) open(ctx context.Context) error {
	if r.req.Target.Kind == domain.SinkStream {
		return nil
	}

	r.sink = sink.New(r.req.Target, r.f.fs, r.req.Resumable())
	offset, err := r.sink.Open()
	if err != nil {
		return domain.NewTransferError(domain.KindWrite, 1, err)
	}
	r.offset = offset

	if !r.req.Resumable() || r.f.journal == nil {
		return nil
	}

	rec, err := r.f.journal.Get(ctx, r.req.SourceURL, r.req.Target.Path)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		r.logger.Warn("failed to read resume journal", zap.Error(err))
	case offset > 0:
		r.etag = rec.ETag
		r.logger.Info("found partial transfer",
			zap.Int64("offset", offset),
			zap.Int64("journal_offset", rec.Offset),
			zap.String("etag", rec.ETag))
	}
	return nil
}

func (r *run) attemptOnce(ctx context.Context) (*transfer.Outcome, error) {
	actx, cancel := ctx, context.CancelFunc(func() {})
	if r.req.Options.Timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, r.req.Options.Timeout)
	}

	out, err := r.f.engine.Run(actx, r.req, transfer.Attempt{
		Number:   r.attempt,
		Offset:   r.offset,
		IfRange:  r.etag,
		Sink:     r.sink,
		Verifier: r.verifier,
		Release:  cancel,
	})
	if out != nil {
		r.expected = out.State.BytesExpected
		if etag := out.Header.Get("ETag"); etag != "" {
			r.etag = etag
		}
	}
	return out, err
}

// recoverable applies the retry policy. A cancelled caller is never retried.
func (r *run) recoverable(err error) bool {
	if kind, _ := domain.KindOf(err); kind == domain.KindCancelled {
		return false
	}
	// A handed-out error stream cannot be retried
	if res := domain.ResultOf(err); res != nil && res.Payload.Stream != nil {
		return false
	}
	return domain.IsRetryable(err, r.req.Options.RetryServerErrors)
}

// carryForward settles the offset of the next attempt and journals it
func (r *run) carryForward(ctx context.Context) {
	if r.sink == nil || !r.req.Resumable() {
		r.offset = 0
		return
	}
	r.offset = r.sink.Offset()
	r.saveJournal(ctx)
}

func (r *run) complete(ctx context.Context, out *transfer.Outcome) (*domain.TransferResult, error) {
	result := &domain.TransferResult{
		Target:        r.req.Target,
		Path:          r.req.Target.Path,
		BytesWritten:  out.State.BytesReceived,
		ExpectedBytes: out.State.BytesExpected,
		SizeMatch:     out.State.SizeMatch(),
		StatusCode:    out.StatusCode,
		Headers:       domain.CloneHeader(out.Header),
		Attempts:      r.attempt,
		ResumedFrom:   out.ResumedFrom,
	}

	if out.Stream != nil {
		result.Payload.Stream = out.Stream
		r.logger.Debug("stream handed to caller", zap.Int64("expected", result.ExpectedBytes))
		return result, nil
	}

	verr := r.verify(out, result)

	payload, ferr := r.sink.Finalize(sink.Meta{StatusCode: out.StatusCode, Header: out.Header})
	result.Payload = payload
	if r.req.Target.IsFile() {
		r.deleteJournal(ctx)
	}

	if verr != nil {
		r.logger.Warn("verification failed", zap.Error(verr))
		te := domain.NewTransferError(verify.Kind(verr), r.attempt, verr)
		te.Result = result
		return nil, te
	}
	if ferr != nil {
		kind := domain.KindWrite
		if errors.Is(ferr, domain.ErrDecode) {
			kind = domain.KindDecode
		}
		te := domain.NewTransferError(kind, r.attempt, ferr)
		if kind == domain.KindDecode {
			te.Result = result
		}
		return nil, te
	}

	fields := []zap.Field{
		zap.String("size", humanize.Bytes(uint64(result.BytesWritten))),
		zap.Int("attempts", r.attempt),
		zap.Int64("resumed_from", result.ResumedFrom),
	}
	if !result.HasExpectedBytes() {
		fields = append(fields, zap.Bool("size_unknown", true))
	}
	r.logger.Info("fetch completed", fields...)
	return result, nil
}

// verify checks size, checksum and ETag over the consumed bytes
func (r *run) verify(out *transfer.Outcome, result *domain.TransferResult) error {
	if err := r.verifier.Size(result.BytesWritten, result.ExpectedBytes); err != nil {
		return err
	}
	if r.verifier.HasChecksum() {
		rc, err := r.sink.Contents()
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrChecksumMismatch, err)
		}
		defer rc.Close()
		if err := r.verifier.Content(rc); err != nil {
			return err
		}
	}
	return r.verifier.ETag(out.Header)
}

// abort releases the sink after a terminal failure and journals a
// resumable part file
func (r *run) abort(ctx context.Context) {
	if r.sink == nil {
		return
	}
	if r.req.Resumable() {
		r.offset = r.sink.Offset()
	}
	if err := r.sink.Abort(); err != nil {
		r.logger.Warn("failed to abort sink", zap.Error(err))
	}
	if !r.req.Target.IsFile() {
		return
	}
	if r.req.Resumable() && r.offset > 0 {
		r.saveJournal(context.WithoutCancel(ctx))
		r.logger.Info("partial file kept for resumption", zap.Int64("offset", r.offset))
		return
	}
	r.deleteJournal(context.WithoutCancel(ctx))
}

func (r *run) saveJournal(ctx context.Context) {
	if r.f.journal == nil {
		return
	}
	fileSink, ok := r.sink.(*sink.FileSink)
	if !ok {
		return
	}
	rec := &domain.ResumeRecord{
		URL:           r.req.SourceURL,
		Path:          r.req.Target.Path,
		PartPath:      fileSink.PartPath(),
		Offset:        r.offset,
		ETag:          r.etag,
		ExpectedBytes: r.expected,
	}
	if err := r.f.journal.Save(ctx, rec); err != nil {
		r.logger.Warn("failed to save resume journal", zap.Error(err))
	}
}

func (r *run) deleteJournal(ctx context.Context) {
	if r.f.journal == nil {
		return
	}
	if err := r.f.journal.Delete(ctx, r.req.SourceURL, r.req.Target.Path); err != nil {
		r.logger.Warn("failed to delete resume journal entry", zap.Error(err))
	}
}

// interrupted converts a context error raised between attempts
func (r *run) interrupted(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewTransferError(domain.KindTimeout, r.attempt, errors.Join(err, r.lastErr))
	}
	return domain.NewTransferError(domain.KindCancelled, r.attempt, err)
}

func (r *run) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.f.backoff.Base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = r.f.backoff.Max
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
