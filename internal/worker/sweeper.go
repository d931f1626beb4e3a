// Package worker holds background jobs that run alongside the HTTP server
// or as standalone binaries.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold/internal/scheduler"
)

// Releaser is the engine operation the sweeper drives.
type Releaser interface {
	ReleaseExpired(ctx context.Context) (int64, error)
}

// SweeperConfig contains configuration for the expiry sweeper.
type SweeperConfig struct {
	// Interval is the time between sweeps.
	Interval time.Duration
	// Timeout bounds a single sweep.
	Timeout time.Duration
}

// DefaultSweeperConfig returns default configuration.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: time.Minute, Timeout: 30 * time.Second}
}

// SweeperStats is a snapshot of sweeper activity.
type SweeperStats struct {
	Running       bool      `json:"running"`
	Interval      string    `json:"interval"`
	Runs          int64     `json:"runs"`
	TotalReleased int64     `json:"total_released"`
	LastReleased  int64     `json:"last_released"`
	LastRunAt     time.Time `json:"last_run_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// Sweeper returns lapsed holds to available on a fixed period.  Sweeps
// are idempotent, so several sweepers (or a sweeper and the cron binary)
// may run against the same store.
type Sweeper struct {
	releaser Releaser
	cfg      SweeperConfig
	log      *zap.Logger
	runner   *scheduler.Runner

	mu    sync.Mutex
	stats SweeperStats
}

// NewSweeper creates a sweeper.  Zero config fields take defaults.
func NewSweeper(r Releaser, cfg SweeperConfig, log *zap.Logger) *Sweeper {
	if r == nil {
		panic("nil releaser passed to NewSweeper")
	}
	def := DefaultSweeperConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sweeper{releaser: r, cfg: cfg, log: log}
	s.runner = scheduler.New("expiry-sweep", cfg.Interval, func(ctx context.Context) {
		_, _ = s.RunOnce(ctx)
	}, scheduler.Immediately(), scheduler.WithLogger(log))
	return s
}

// Start launches periodic sweeping.
func (s *Sweeper) Start(ctx context.Context) error {
	return s.runner.Start(ctx)
}

// Stop halts sweeping and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.runner.Stop()
}

// RunOnce performs one sweep and records it in the stats.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	n, err := s.releaser.ReleaseExpired(ctx)

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastRunAt = start.UTC()
	s.stats.LastReleased = n
	s.stats.TotalReleased += n
	s.stats.LastError = ""
	if err != nil {
		s.stats.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired holds released", zap.Int64("released", n), zap.Duration("took", time.Since(start)))
	}
	return n, nil
}

// Stats returns a copy of the current statistics.
func (s *Sweeper) Stats() SweeperStats {
	s.mu.Lock()
	st := s.stats
	s.mu.Unlock()
	st.Running = s.runner.Running()
	st.Interval = s.cfg.Interval.String()
	return st
}
