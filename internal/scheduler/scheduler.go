// Package scheduler runs the periodic background tasks: the
// reminder/no-show sweep and the room token rotation.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper runs one reminder/no-show pass.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Rotator replaces expired room tokens.
type Rotator interface {
	RotateExpired(ctx context.Context) error
}

// Scheduler drives the background tasks on a fixed interval.
type Scheduler struct {
	sweeper  Sweeper
	rotator  Rotator
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

func New(sweeper Sweeper, rotator Rotator, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		sweeper:  sweeper,
		rotator:  rotator,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background loop. It returns immediately; call
// Stop (or cancel the context) to terminate.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting background scheduler", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop terminates the background loop.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping background scheduler")
	close(s.stopChan)
}

func (s *Scheduler) run(ctx context.Context) {
	// First pass right away so a restart does not delay overdue work
	// by a full interval.
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			s.logger.Info("background tasks stopped")
			return
		case <-ctx.Done():
			s.logger.Info("background tasks cancelled")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
	}
	if err := s.rotator.RotateExpired(ctx); err != nil {
		s.logger.Error("token rotation failed", zap.Error(err))
	}
}
