package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/metrics"
)

// DefaultInterval is the time between scheduled passes.
const DefaultInterval = 12 * time.Hour

// Status is a snapshot of the scheduler.
type Status struct {
	Running bool       `json:"isTimerRunning"`
	LastRun *time.Time `json:"lastRun"`
}

// Scheduler runs diagnostics periodically. At most one timer is active; the
// process holds a single Scheduler.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSchedulerLogger sets the logger that receives pass reports.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(runner Runner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		interval: DefaultInterval,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the time between scheduled passes.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start replaces any running timer, runs one pass immediately in the
// background and then one per interval.
func (s *Scheduler) Start(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	s.logger.Info("starting network diagnostics timer", slog.Duration("interval", s.interval))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.loop(ctx, apiKey, done)
}

// Stop cancels the timer and waits for its goroutine to exit. Stopping a
// stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("network diagnostics timer stopped")
}

// Status reports whether a timer is active and when the last scheduled pass
// completed.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.cancel != nil}
	if !s.lastRun.IsZero() {
		t := s.lastRun
		st.LastRun = &t
	}
	return st
}

// RunOnce runs a single pass synchronously. It does not affect Status.
func (s *Scheduler) RunOnce(ctx context.Context, apiKey string) domain.NetworkDiagnostics {
	return s.runner.Run(ctx, apiKey)
}

func (s *Scheduler) loop(ctx context.Context, apiKey string, done chan struct{}) {
	defer close(done)

	s.pass(ctx, apiKey)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pass(ctx, apiKey)
		}
	}
}

// pass never propagates a failure: panics and errors end up in the log.
func (s *Scheduler) pass(ctx context.Context, apiKey string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled diagnostics failed", slog.String("error", fmt.Sprint(r)))
		}
	}()

	s.logger.Info("running scheduled network diagnostics")
	start := s.now()
	diag := s.runner.Run(ctx, apiKey)
	if ctx.Err() != nil {
		return
	}
	finished := s.now()

	s.mu.Lock()
	s.lastRun = finished
	s.mu.Unlock()

	metrics.SetDiagnostics(diag.Overall, finished)
	s.logger.Info("scheduled diagnostics report",
		slog.Bool("overall", diag.Overall),
		slog.Time("run_at", finished),
		slog.Duration("duration", finished.Sub(start)),
		slog.String("report", FormatReport(diag)),
	)
}
