// Package scheduler runs the periodic deadline sweep independently of
// request traffic. All state writes inside the sweep go through the
// state machine's compare-and-set path, so running concurrently with
// user-initiated calls is safe.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"auditflow/internal/model"
)

// SweepFunc executes one deadline sweep. AuditService.RunScheduledChecks
// satisfies it.
type SweepFunc func(ctx context.Context) (*model.SweepResult, error)

// Sweeper triggers the deadline sweep on a fixed interval.
type Sweeper struct {
	run      SweepFunc
	interval time.Duration
	logger   *slog.Logger
}

// New builds a Sweeper.
func New(run SweepFunc, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{run: run, interval: interval, logger: logger}
}

// Start blocks until ctx is cancelled, sweeping once per interval.
// Callers usually launch it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	res, err := s.run(ctx)
	if err != nil {
		s.logger.Error("deadline sweep failed", "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}
	// Per-audit failures demand operator attention, so they log at error
	// level even though the run itself completed.
	if res.Failures > 0 {
		s.logger.Error("deadline sweep completed with failures",
			"transitions", res.TransitionsCount, "failures", res.Failures,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}
	s.logger.Info("deadline sweep completed",
		"transitions", res.TransitionsCount,
		"duration_ms", time.Since(start).Milliseconds())
}
