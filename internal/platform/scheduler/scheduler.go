// Package scheduler runs a background job on a fixed interval. The
// queue-wait alerter uses it to scan for patients waiting past the
// configured threshold.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler invokes a tick function on a fixed interval until stopped.
// A panic inside a tick is recovered and logged; the loop keeps running.
type Scheduler struct {
	name     string
	interval time.Duration
	tickFn   func(context.Context)
	log      zerolog.Logger

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler. The first tick fires immediately on Start.
func New(name string, interval time.Duration, tickFn func(context.Context), log zerolog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if tickFn == nil {
		return nil, errors.New("tickFn must not be nil")
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		tickFn:   tickFn,
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the tick loop. It returns false if already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info().Str("job", s.name).Dur("interval", s.interval).Msg("scheduler started")

		s.safeTick(ctx)

		for {
			select {
			case <-ctx.Done():
				s.log.Info().Str("job", s.name).Msg("scheduler stopping")
				return
			case <-ticker.C:
				s.safeTick(ctx)
			}
		}
	}()

	return true
}

// Stop cancels the loop and waits for the current tick to finish. It
// returns false if the scheduler was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	s.log.Info().Str("job", s.name).Msg("scheduler stopped")
	return true
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("job", s.name).Interface("panic", r).Msg("scheduler tick panic recovered")
		}
	}()

	start := time.Now()
	s.tickFn(ctx)
	s.log.Debug().Str("job", s.name).Dur("duration", time.Since(start)).Msg("scheduler tick completed")
}
