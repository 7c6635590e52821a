package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
)

// throttle is an http.RoundTripper restricting outbound calls with a
// token bucket
type throttle struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	next    http.RoundTripper
	logger  *zap.Logger
}

// NewThrottle returns an http.RoundTripper that throttles outbound requests.
// A nil logger disables the exhaustion log lines.
func NewThrottle(rps, burst int, logger *zap.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}

	return &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logger:  logger,
	}, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.logger != nil && !t.limiter.Allow() {
		start := time.Now()
		t.logger.Debug("throttle tokens exhausted",
			zap.Int("rate", t.rps),
			zap.Int("burst", t.burst),
			zap.String("host", r.URL.Host))
		defer func() {
			t.logger.Debug("throttle wait complete", zap.Duration("waited", time.Since(start)))
		}()
	}

	if err := t.limiter.Wait(ctx); err != nil {
		// Surface the context error so callers can classify it
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	return t.next.RoundTrip(r)
}
