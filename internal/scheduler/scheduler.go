package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dykwon/marketfeed/internal/fetch"
	"github.com/dykwon/marketfeed/internal/model"
	"github.com/dykwon/marketfeed/internal/report"
	"github.com/dykwon/marketfeed/internal/timeutil"
)

// State is the scheduler's lifecycle state.
type State int32

const (
	Idle State = iota
	Armed
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Clock abstracts wall-clock access so retry and trigger timing are
// testable without real time passing.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config holds scheduler configuration.
type Config struct {
	Offset       time.Duration // delay after the minute boundary (default: 2s)
	MaxRetries   int           // transient retries per task per cycle (default: 3)
	BackoffBase  time.Duration // first retry delay (default: 1s)
	BackoffCap   time.Duration // backoff ceiling (default: 8s)
	Grace        time.Duration // draining window for stragglers (default: 10s)
	FetchTimeout time.Duration // per-attempt network timeout (default: 10s)
	BufferSize   int           // snapshot channel capacity (default: 64)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Offset:       2 * time.Second,
		MaxRetries:   3,
		BackoffBase:  time.Second,
		BackoffCap:   8 * time.Second,
		Grace:        10 * time.Second,
		FetchTimeout: 10 * time.Second,
		BufferSize:   64,
	}
}

// Scheduler runs synchronized fetch cycles over a fixed subscription
// set.
type Scheduler struct {
	cfg      Config
	subs     []model.Subscription
	registry *fetch.Registry
	failures report.Sink
	norm     *timeutil.Normalizer
	clock    Clock
	logger   *slog.Logger

	out   chan model.Snapshot
	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock injects a clock. Tests use this to drive retries and
// triggers without real time.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New creates a Scheduler. The subscription set is fixed for the
// scheduler's lifetime.
func New(cfg Config, subs []model.Subscription, registry *fetch.Registry, failures report.Sink, norm *timeutil.Normalizer, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if failures == nil {
		failures = report.NewLogSink(logger)
	}
	s := &Scheduler{
		cfg:      cfg,
		subs:     subs,
		registry: registry,
		failures: failures,
		norm:     norm,
		clock:    realClock{},
		logger:   logger,
		out:      make(chan model.Snapshot, cfg.BufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshots returns the channel successful snapshots are delivered on,
// in completion order. The channel closes after Stop.
func (s *Scheduler) Snapshots() <-chan model.Snapshot {
	return s.out
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start verifies every subscription has a fetcher and begins arming
// cycles.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, sub := range s.subs {
		if _, err := s.registry.For(sub); err != nil {
			return err
		}
	}
	if len(s.subs) == 0 {
		return errors.New("no subscriptions registered")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started",
		"subscriptions", len(s.subs),
		"offset", s.cfg.Offset,
		"max_retries", s.cfg.MaxRetries,
	)
	return nil
}

// Stop requests shutdown: no new cycles are armed and the current
// cycle is waited out, bounded by ctx. The snapshot channel closes
// only once every in-flight task has settled, which may be after the
// bound; a straggler completing late must never hit a closed channel.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.state.Store(int32(Stopped))
		close(s.out)
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// nextTrigger computes the next cycle trigger after now: the upcoming
// minute boundary plus the configured offset.
func nextTrigger(now time.Time, offset time.Duration) time.Time {
	return timeutil.FloorToMinute(now).Add(time.Minute + offset)
}

// run is the main cycle loop. It is strictly sequential: a new cycle
// never arms until the previous one has fully drained, which also
// serializes tasks per subscription across cycles.
func (s *Scheduler) run() {
	defer s.wg.Done()

	var lastCycle time.Time
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		s.state.Store(int32(Armed))

		now := s.norm.ToCanonical(s.clock.Now())
		trigger := nextTrigger(now, s.cfg.Offset)
		cycle := timeutil.FloorToMinute(trigger)

		if n := missedCycles(lastCycle, cycle); n > 0 {
			s.logger.Warn("cycles skipped after overrun",
				"skipped", n,
				"last_cycle", lastCycle,
				"next_cycle", cycle,
			)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-s.clock.After(trigger.Sub(now)):
		}

		s.runCycle(cycle)
		lastCycle = cycle
		s.state.Store(int32(Idle))
	}
}

// missedCycles reports how many minute cycles fell between two
// consecutively armed cycles. A cycle that drains past its successor's
// trigger re-arms further out; those minutes are lost and must be
// surfaced rather than passed over quietly.
func missedCycles(prev, next time.Time) int {
	if prev.IsZero() {
		return 0
	}
	d := next.Sub(prev)
	if d <= time.Minute {
		return 0
	}
	return int(d/time.Minute) - 1
}

// runCycle launches every subscription's task concurrently and waits
// them out: normally until the next trigger, then a bounded grace
// window, after which stragglers are abandoned.
func (s *Scheduler) runCycle(cycle time.Time) {
	s.state.Store(int32(Running))
	start := s.clock.Now()

	cycleCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// Retries must finish before the next trigger; tasks past it are
	// abandoned for this cycle.
	deadline := cycle.Add(time.Minute + s.cfg.Offset)

	var delivered, failed atomic.Int64
	var cycleWG sync.WaitGroup

	for _, sub := range s.subs {
		cycleWG.Add(1)
		go func(sub model.Subscription) {
			defer cycleWG.Done()
			if s.runTask(cycleCtx, sub, cycle, deadline) {
				delivered.Add(1)
			} else {
				failed.Add(1)
			}
		}(sub)
	}

	done := make(chan struct{})
	go func() {
		cycleWG.Wait()
		close(done)
	}()

	now := s.norm.ToCanonical(s.clock.Now())
	select {
	case <-done:
	case <-s.ctx.Done():
		cancel()
		<-done
	case <-s.clock.After(deadline.Sub(now)):
		s.state.Store(int32(Draining))
		select {
		case <-done:
		case <-s.clock.After(s.cfg.Grace):
			cancel()
			<-done
		}
	}

	s.logger.Info("cycle complete",
		"cycle_id", uuid.New(),
		"cycle", cycle,
		"subscriptions", len(s.subs),
		"delivered", delivered.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)
}

// runTask performs one subscription's fetch for one cycle, applying
// the bounded retry policy. Returns true if a snapshot was delivered.
// Exactly one failure record is emitted for a cycle that produced no
// snapshot.
func (s *Scheduler) runTask(ctx context.Context, sub model.Subscription, cycle, deadline time.Time) bool {
	fetcher, err := s.registry.For(sub)
	if err != nil {
		s.failures.Report(report.NewRecord(sub.ID(), cycle, report.ClassPermanent, 0, err))
		return false
	}

	backoff := s.cfg.BackoffBase
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxRetries+1; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
		snap, err := fetcher.Fetch(attemptCtx, sub)
		cancel()

		if err == nil {
			select {
			case s.out <- snap:
				return true
			case <-ctx.Done():
				s.failures.Report(report.NewRecord(sub.ID(), cycle, report.ClassExhausted, attempt, ctx.Err()))
				return false
			}
		}
		lastErr = err

		var fe *fetch.Error
		if errors.As(err, &fe) && !fe.Transient() {
			s.failures.Report(report.NewRecord(sub.ID(), cycle, report.ClassPermanent, attempt, err))
			return false
		}

		if attempt == s.cfg.MaxRetries+1 {
			break
		}

		// Never sleep past the cycle deadline.
		remaining := deadline.Sub(s.norm.ToCanonical(s.clock.Now()))
		if backoff >= remaining {
			s.failures.Report(report.NewRecord(sub.ID(), cycle, report.ClassExhausted, attempt, lastErr))
			return false
		}

		s.logger.Debug("retrying fetch",
			"subscription", sub.ID(),
			"attempt", attempt,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			s.failures.Report(report.NewRecord(sub.ID(), cycle, report.ClassExhausted, attempt, ctx.Err()))
			return false
		case <-s.clock.After(backoff):
		}

		backoff *= 2
		if backoff > s.cfg.BackoffCap {
			backoff = s.cfg.BackoffCap
		}
	}

	s.failures.Report(report.NewRecord(sub.ID(), cycle, report.ClassExhausted, s.cfg.MaxRetries+1, lastErr))
	return false
}
