// Package scheduler drives per-network ticks (spec.md §4.3): a per-network
// cron expression fires ticks, two ticks for the same network never
// overlap (the later one is dropped, not queued), and distinct networks
// tick concurrently.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	logger "github.com/rs/zerolog/log"
)

var log = logger.With().Str("component", "scheduler").Logger()

// Scheduler wraps a robfig/cron runner with one overlap guard per
// registered network.
type Scheduler struct {
	cron *cron.Cron

	mu  sync.Mutex
	ctx context.Context
}

// New returns a Scheduler.
func New() *Scheduler {
	return &Scheduler{cron: cron.New(), ctx: context.Background()}
}

// Register schedules fn to run on cronExpr for networkSlug. If a previous
// invocation for this network is still running when the next tick fires,
// the new tick is dropped.
func (s *Scheduler) Register(networkSlug, cronExpr string, fn func(ctx context.Context)) error {
	var running int32
	_, err := s.cron.AddFunc(cronExpr, func() {
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			log.Warn().Str("network", networkSlug).Msg("previous tick still running, dropping this one")
			return
		}
		defer atomic.StoreInt32(&running, 0)

		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling network %q with cron %q: %w", networkSlug, cronExpr, err)
	}
	return nil
}

// Start begins dispatching ticks. ctx is handed to every fired tick and
// canceled ticks observe it the same way any context-aware call would;
// Stop still waits for in-flight ticks to return on their own.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// IntervalMS derives a cron expression's steady-state tick period in
// milliseconds by measuring the gap between its next two firings from now.
// Used to compute a network's effective max_past_blocks default
// (spec.md §3) without requiring operators to also state the interval.
func IntervalMS(cronExpr string) int64 {
	sched, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return 0
	}
	now := time.Now()
	first := sched.Next(now)
	second := sched.Next(first)
	return second.Sub(first).Milliseconds()
}

// Stop halts future ticks and blocks until every in-flight tick returns or
// shutdownCtx is canceled, whichever comes first (spec.md §5).
func (s *Scheduler) Stop(shutdownCtx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-shutdownCtx.Done():
		return shutdownCtx.Err()
	}
}
