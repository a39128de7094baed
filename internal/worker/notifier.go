// Package worker runs the delivery loop: a fixed-period tick that pulls due
// reminders from the repository, pushes them through the configured sender
// and records the outcome.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/pkazakov/reminderd/internal/model"
)

// DefaultMaxAttempts bounds delivery retries when the configured strategy
// does not set one.
const DefaultMaxAttempts = 3

type notificationRepository interface {
	GetDue(ctx context.Context, asOf time.Time) ([]model.Notification, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
}

// Sender delivers a rendered message to a subject. Implementations must
// bound the call with their own timeout; a timed-out send counts as a
// failed attempt like any other error.
type Sender interface {
	Send(to string, msg string) error
}

// Scheduler periodically discovers due notifications and drives them to
// delivery with a bounded per-notification retry budget.
//
// Retry counters live in memory only: a process restart resets the budget.
type Scheduler struct {
	repo     notificationRepository
	sender   Sender
	interval time.Duration
	strategy retry.Strategy
	loc      *time.Location
	now      func() time.Time
	metrics  *metrics

	mu     sync.Mutex // guards the run loop lifecycle
	cancel context.CancelFunc
	done   chan struct{}

	// attempts and abandoned are touched only by the single run loop
	// (or by a direct tick in tests), never concurrently.
	attempts  map[uuid.UUID]int
	abandoned map[uuid.UUID]struct{}
}

type metrics struct {
	mDue       prometheus.Counter
	mDelivered prometheus.Counter
	mFailed    prometheus.Counter
	mAbandoned prometheus.Counter
	mTickErr   prometheus.Counter
	mTickDur   prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		mDue: f.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_due_fetched_total", Help: "Due notifications fetched from the store",
		}),
		mDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_delivered_total", Help: "Notifications delivered and marked in the store",
		}),
		mFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_delivery_failures_total", Help: "Failed delivery attempts",
		}),
		mAbandoned: f.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_abandoned_total", Help: "Notifications abandoned after exhausting retries",
		}),
		mTickErr: f.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_tick_errors_total", Help: "Ticks aborted by a store error",
		}),
		mTickDur: f.NewHistogram(prometheus.HistogramOpts{
			Name: "scheduler_tick_duration_seconds", Help: "Scheduler tick duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// NewScheduler creates a delivery scheduler. The strategy's Attempts field
// is the per-notification retry budget; the delay between attempts is the
// tick interval itself.
func NewScheduler(
	repo notificationRepository,
	sender Sender,
	interval time.Duration,
	strategy retry.Strategy,
	loc *time.Location,
	reg prometheus.Registerer,
) *Scheduler {
	if strategy.Attempts <= 0 {
		strategy.Attempts = DefaultMaxAttempts
	}

	return &Scheduler{
		repo:      repo,
		sender:    sender,
		interval:  interval,
		strategy:  strategy,
		loc:       loc,
		now:       time.Now,
		metrics:   newMetrics(reg),
		attempts:  make(map[uuid.UUID]int),
		abandoned: make(map[uuid.UUID]struct{}),
	}
}

// Start begins ticking in a background goroutine, running one tick
// immediately so reminders overdue across a restart go out without waiting
// a full interval. Calling Start while already running stops the previous
// loop first, so two loops never tick concurrently.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(ctx, done)
}

// Stop halts ticking. It returns only after the run loop has exited; a tick
// already in progress completes to its natural outcome. Safe to call when
// not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done

	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	zlog.Logger.Info().Dur("interval", s.interval).Msg("delivery scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("delivery scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one due-check-and-deliver cycle. A store error aborts the whole
// cycle; the next tick retries from scratch. A single notification's
// failure never blocks the rest of the batch.
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()

	due, err := s.repo.GetDue(ctx, s.now())
	if err != nil {
		s.metrics.mTickErr.Inc()
		zlog.Logger.Error().Err(err).Msg("failed to query due notifications")
		return
	}

	s.metrics.mDue.Add(float64(len(due)))

	for _, n := range due {
		if _, ok := s.abandoned[n.ID]; ok {
			continue
		}

		s.deliver(ctx, n)
	}

	s.metrics.mTickDur.Observe(time.Since(start).Seconds())
}

func (s *Scheduler) deliver(ctx context.Context, n model.Notification) {
	if err := s.sender.Send(n.Subject, renderMessage(n, s.loc)); err != nil {
		s.metrics.mFailed.Inc()
		s.attempts[n.ID]++

		if s.attempts[n.ID] >= s.strategy.Attempts {
			delete(s.attempts, n.ID)
			s.abandoned[n.ID] = struct{}{}
			s.metrics.mAbandoned.Inc()
			zlog.Logger.Warn().
				Err(err).
				Str("id", n.ID.String()).
				Int("attempts", s.strategy.Attempts).
				Msg("giving up on notification delivery")
			return
		}

		zlog.Logger.Error().
			Err(err).
			Str("id", n.ID.String()).
			Int("attempt", s.attempts[n.ID]).
			Msg("failed to deliver notification, will retry next tick")
		return
	}

	if err := s.repo.MarkDelivered(ctx, n.ID); err != nil {
		// The message went out but the outcome is not recorded; the next
		// tick re-selects the record. At-least-once is the contract.
		zlog.Logger.Error().Err(err).Str("id", n.ID.String()).Msg("failed to mark notification delivered")
		return
	}

	delete(s.attempts, n.ID)
	s.metrics.mDelivered.Inc()
	zlog.Logger.Info().Str("id", n.ID.String()).Str("subject", n.Subject).Msg("notification delivered")
}

// renderMessage substitutes the reminder text into the fixed delivery
// template.
func renderMessage(n model.Notification, loc *time.Location) string {
	return fmt.Sprintf(
		"🔔 Reminder: %s\n⏰ Scheduled for: %s",
		n.Text, n.DueAt.In(loc).Format("02.01.2006 15:04"),
	)
}
