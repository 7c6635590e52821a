package ratelimiter

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits at most one event per interval and is safe for concurrent
// use. A non-positive interval admits every event.
type Limiter struct {
	interval time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
}

// New creates a limiter admitting one event per interval
func New(interval time.Duration) *Limiter {
	l := &Limiter{
		interval: interval,
		now:      time.Now,
	}
	if interval > 0 {
		l.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return l
}

// Allow reports whether an event may happen now, recording it if so
func (l *Limiter) Allow() bool {
	if l.limiter == nil {
		return true
	}
	return l.limiter.AllowN(l.now(), 1)
}
