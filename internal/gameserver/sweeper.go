package gameserver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpirySweeper is the part of CombatHandler the Sweeper drives.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically drops expired pending actions. It implements
// server.Service.
//
// Invariant: at most one sweep runs at a time.
type Sweeper struct {
	target   ExpirySweeper
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper returns a Sweeper that sweeps target every interval.
//
// Precondition: interval must be > 0.
func NewSweeper(target ExpirySweeper, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		panic("gameserver.NewSweeper: interval must be > 0")
	}
	return &Sweeper{target: target, interval: interval, logger: logger, now: time.Now}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
// It blocks for the lifetime of the loop.
func (s *Sweeper) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass immediately.
func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.target.SweepExpired(ctx, s.now())
	if err != nil {
		s.logger.Warn("sweeping expired pending actions", zap.Error(err))
	}
	if n > 0 {
		s.logger.Debug("sweep complete", zap.Int("dropped", n))
	}
}

// Stop ends the loop and waits for it to exit or for ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
