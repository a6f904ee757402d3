// ABOUTME: Unique-work scheduler for outbox jobs: de-duplicated by key,
// ABOUTME: retried with exponential backoff and jitter, bounded attempts.
package outbox

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Result is a job's outcome: done, worth retrying, or permanently failed.
type Result int

const (
	// Success: the work is done; do not reschedule.
	Success Result = iota
	// Retry: transient failure; reschedule with backoff.
	Retry
	// Failure: permanent failure; drop the job and log it.
	Failure
)

// Job is one unit of outbox work. Jobs with equal keys are the same work:
// enqueueing a key already in flight is a no-op.
type Job interface {
	Key() string
	Run(ctx context.Context) Result
}

// Scheduler runs jobs with unique-work semantics. Each enqueued key gets
// its own goroutine that runs the job to completion, retrying transient
// failures with exponential backoff up to a bounded attempt count. Jobs
// are never cancelled mid-run; Shutdown waits for in-flight runs.
type Scheduler struct {
	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
	logger *log.Logger

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxAttempts bounds retries per job.
func WithMaxAttempts(n int) SchedulerOption {
	return func(s *Scheduler) { s.maxAttempts = n }
}

// WithBackoff sets the base and ceiling delays.
func WithBackoff(base, max time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.baseDelay = base; s.maxDelay = max }
}

// withSleeper substitutes the delay function in tests.
func withSleeper(f func(ctx context.Context, d time.Duration) error) SchedulerOption {
	return func(s *Scheduler) { s.sleep = f }
}

// NewScheduler builds a scheduler with sane retry defaults.
func NewScheduler(logger *log.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		active:      make(map[string]struct{}),
		logger:      logger,
		maxAttempts: 5,
		baseDelay:   2 * time.Second,
		maxDelay:    5 * time.Minute,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue schedules a job after an optional initial delay. Returns false
// when the same key is already in flight (the work is deduplicated).
func (s *Scheduler) Enqueue(ctx context.Context, job Job, initialDelay time.Duration) bool {
	s.mu.Lock()
	if _, inFlight := s.active[job.Key()]; inFlight {
		s.mu.Unlock()
		s.logger.Debug("job already in flight", "key", job.Key())
		return false
	}
	s.active[job.Key()] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.active, job.Key())
			s.mu.Unlock()
		}()
		s.run(ctx, job, initialDelay)
	}()
	return true
}

// Wait blocks until every in-flight job finishes.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, job Job, initialDelay time.Duration) {
	if initialDelay > 0 {
		if err := s.sleep(ctx, initialDelay); err != nil {
			return
		}
	}
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		switch job.Run(ctx) {
		case Success:
			s.logger.Debug("job succeeded", "key", job.Key(), "attempt", attempt)
			return
		case Failure:
			s.logger.Error("job failed permanently", "key", job.Key(), "attempt", attempt)
			return
		case Retry:
			if attempt == s.maxAttempts {
				s.logger.Warn("job exhausted retries", "key", job.Key(), "attempts", attempt)
				return
			}
			delay := backoff(s.baseDelay, s.maxDelay, attempt)
			s.logger.Debug("job retrying", "key", job.Key(), "attempt", attempt, "delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				return
			}
		}
	}
}

// backoff returns the exponential delay for an attempt with random jitter
// of up to 25% either way.
func backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := base * time.Duration(1<<uint(attempt))
	if delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2)) - delay/4
	return delay + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
