package transfer

import (
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/util/ratelimiter"
)

// progress reports transfer progress to the caller callback on every chunk
// and to the log at most once per interval
type progress struct {
	logger   *zap.Logger
	limiter  *ratelimiter.Limiter
	enabled  bool
	callback func(received, expected int64)
	start    time.Time
}

func newProgress(logger *zap.Logger, opts domain.RequestOptions, interval time.Duration) *progress {
	return &progress{
		logger:   logger,
		limiter:  ratelimiter.New(interval),
		enabled:  opts.Progress,
		callback: opts.OnProgress,
		start:    time.Now(),
	}
}

func (p *progress) update(s *domain.TransferState) {
	if p.callback != nil {
		p.callback(s.BytesReceived, s.BytesExpected)
	}
	if p.enabled && p.limiter.Allow() {
		p.log("download progress", s)
	}
}

func (p *progress) done(s *domain.TransferState) {
	if p.enabled {
		p.log("download finished", s)
	}
}

func (p *progress) log(msg string, s *domain.TransferState) {
	fields := []zap.Field{
		zap.String("received", humanize.Bytes(uint64(s.BytesReceived))),
		zap.Duration("elapsed", time.Since(p.start).Round(time.Millisecond)),
	}
	if s.BytesExpected > 0 {
		fields = append(fields,
			zap.String("total", humanize.Bytes(uint64(s.BytesExpected))),
			zap.String("percent", humanize.FormatFloat("#.#", float64(s.BytesReceived)*100/float64(s.BytesExpected))))
	}
	p.logger.Info(msg, fields...)
}
