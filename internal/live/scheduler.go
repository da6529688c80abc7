// Package live repeats a weather fetch on a fixed interval until cancelled.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"nimbus/internal/logger"
	"nimbus/weather"
)

// DefaultInterval is used when no interval is configured
const DefaultInterval = 5 * time.Minute

// FetchFunc performs one fetch
type FetchFunc func(ctx context.Context) (*weather.Report, error)

// EmitFunc receives the outcome of each tick. Exactly one of report and err is non-nil.
type EmitFunc func(report *weather.Report, err error)

// Scheduler runs a fetch immediately and then once per interval. Ticks never
// overlap: a tick that outlasts the interval delays the next one.
type Scheduler struct {
	interval time.Duration

	// TickTimeout bounds a single tick. Zero leaves timing to the fetch itself.
	TickTimeout time.Duration
}

// New creates a scheduler. A non-positive interval selects DefaultInterval.
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval}
}

// Interval returns the effective tick interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run blocks until ctx is cancelled. Failed ticks are emitted and the loop
// continues. A tick already in progress when ctx is cancelled runs to
// completion and Run waits for it before returning.
func (s *Scheduler) Run(ctx context.Context, fetch FetchFunc, emit EmitFunc) error {
	if fetch == nil || emit == nil {
		return fmt.Errorf("live mode needs both a fetch and an emit function")
	}
	if ctx.Err() != nil {
		return nil
	}

	var (
		mu       sync.Mutex
		stopped  bool
		inflight sync.WaitGroup
	)

	tick := func() {
		mu.Lock()
		if stopped || ctx.Err() != nil {
			mu.Unlock()
			return
		}
		inflight.Add(1)
		mu.Unlock()
		defer inflight.Done()

		s.runTick(ctx, fetch, emit)
	}

	cron := gocron.NewScheduler(time.Local)
	cron.SingletonModeAll()
	if _, err := cron.Every(s.interval).StartImmediately().Do(tick); err != nil {
		return fmt.Errorf("failed to schedule live updates: %w", err)
	}

	logger.Info("Live mode started, refreshing every %s", s.interval)
	cron.StartAsync()

	<-ctx.Done()

	mu.Lock()
	stopped = true
	mu.Unlock()

	cron.Stop()
	inflight.Wait()

	logger.Info("Live mode stopped")
	return nil
}

func (s *Scheduler) runTick(ctx context.Context, fetch FetchFunc, emit EmitFunc) {
	runID := uuid.NewString()

	// Cancellation only stops future ticks
	tickCtx := context.WithoutCancel(ctx)
	if s.TickTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(tickCtx, s.TickTimeout)
		defer cancel()
	}

	complete := logger.LogOperationStart("live_tick", map[string]any{"run_id": runID})
	report, err := fetch(tickCtx)
	complete(err)

	if err == nil && report == nil {
		err = fmt.Errorf("fetch returned no report")
	}
	if err != nil {
		emit(nil, err)
		return
	}
	emit(report, nil)
}
