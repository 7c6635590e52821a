package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/wget-fetch/internal/port"
)

// Config contains maintenance service configuration
type Config struct {
	// PartMaxAge is the age after which an untouched partial transfer is dropped
	PartMaxAge time.Duration

	// Interval is how often Start prunes
	Interval time.Duration

	// SweepDir, when set, is also scanned for orphaned part files that have
	// no journal record
	SweepDir string
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		PartMaxAge: 24 * time.Hour,
		Interval:   time.Hour,
	}
}

// Service prunes stale partial transfers from the resume journal and disk
type Service struct {
	config  *Config
	journal port.TransferStore
	fs      port.FileSystem
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service
func New(cfg *Config, journal port.TransferStore, fs port.FileSystem, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.PartMaxAge == 0 {
		cfg.PartMaxAge = 24 * time.Hour
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		config:  cfg,
		journal: journal,
		fs:      fs,
		logger:  logger,
	}
}

// Prune removes journal records not updated within olderThan together with
// their part files, then sweeps orphaned part files. Returns the number of
// transfers dropped.
func (s *Service) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	records, err := s.journal.ListOlderThan(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale transfers: %w", err)
	}

	pruned := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		if err := s.fs.Remove(rec.PartPath); err != nil {
			s.logger.Warn("failed to remove part file",
				zap.String("path", rec.PartPath),
				zap.Error(err))
			continue
		}
		if err := s.journal.Delete(ctx, rec.URL, rec.Path); err != nil {
			return pruned, fmt.Errorf("failed to delete journal record: %w", err)
		}
		s.logger.Debug("pruned stale transfer",
			zap.String("url", rec.URL),
			zap.String("path", rec.Path),
			zap.Int64("offset", rec.Offset))
		pruned++
	}

	if s.config.SweepDir != "" {
		count, err := s.fs.CleanOldPartFiles(s.config.SweepDir, olderThan)
		if err != nil {
			return pruned, fmt.Errorf("failed to sweep part files: %w", err)
		}
		pruned += count
	}

	return pruned, nil
}

// Start prunes periodically until ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("maintenance service started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("part_max_age", s.config.PartMaxAge))

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	s.prune(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *Service) prune(ctx context.Context) {
	count, err := s.Prune(ctx, s.config.PartMaxAge)
	if err != nil && ctx.Err() == nil {
		s.logger.Error("failed to prune stale transfers", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("pruned stale transfers", zap.Int("count", count))
	}
}
