// ABOUTME: Scheduler tests: unique-work dedup, bounded backoff retries
// ABOUTME: and the backoff curve itself.
package outbox

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedJob struct {
	key     string
	results []Result
	runs    int32
	block   chan struct{} // optional: hold the job in flight
}

func (j *scriptedJob) Key() string { return j.key }

func (j *scriptedJob) Run(ctx context.Context) Result {
	n := atomic.AddInt32(&j.runs, 1)
	if j.block != nil {
		<-j.block
	}
	if int(n) > len(j.results) {
		return Success
	}
	return j.results[n-1]
}

func instantSleeper() (SchedulerOption, *[]time.Duration) {
	var mu sync.Mutex
	var delays []time.Duration
	opt := withSleeper(func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return nil
	})
	return opt, &delays
}

func TestEnqueueDeduplicatesInFlightKeys(t *testing.T) {
	s := NewScheduler(nil)
	job := &scriptedJob{key: "k", results: []Result{Success}, block: make(chan struct{})}

	require.True(t, s.Enqueue(context.Background(), job, 0))
	assert.False(t, s.Enqueue(context.Background(), job, 0), "same key in flight must dedupe")

	close(job.block)
	s.Wait()
	assert.EqualValues(t, 1, job.runs)

	// Once finished the key can be enqueued again.
	done := &scriptedJob{key: "k", results: []Result{Success}}
	assert.True(t, s.Enqueue(context.Background(), done, 0))
	s.Wait()
}

func TestRetryBacksOffThenSucceeds(t *testing.T) {
	sleeper, delays := instantSleeper()
	s := NewScheduler(nil, sleeper, WithBackoff(time.Second, time.Minute))
	job := &scriptedJob{key: "k", results: []Result{Retry, Retry, Success}}

	s.Enqueue(context.Background(), job, 0)
	s.Wait()

	assert.EqualValues(t, 3, job.runs)
	require.Len(t, *delays, 2)
	// Jitter is ±25%, so each delay stays within those bounds.
	assert.InDelta(t, float64(2*time.Second), float64((*delays)[0]), float64(time.Second)/2)
	assert.InDelta(t, float64(4*time.Second), float64((*delays)[1]), float64(time.Second))
}

func TestRetriesAreBounded(t *testing.T) {
	sleeper, _ := instantSleeper()
	s := NewScheduler(nil, sleeper, WithMaxAttempts(3))
	job := &scriptedJob{key: "k", results: []Result{Retry, Retry, Retry, Retry}}

	s.Enqueue(context.Background(), job, 0)
	s.Wait()

	assert.EqualValues(t, 3, job.runs, "job must stop at the attempt ceiling")
}

func TestPermanentFailureStopsImmediately(t *testing.T) {
	sleeper, delays := instantSleeper()
	s := NewScheduler(nil, sleeper)
	job := &scriptedJob{key: "k", results: []Result{Failure, Success}}

	s.Enqueue(context.Background(), job, 0)
	s.Wait()

	assert.EqualValues(t, 1, job.runs)
	assert.Empty(t, *delays)
}

func TestInitialDelayIsHonored(t *testing.T) {
	sleeper, delays := instantSleeper()
	s := NewScheduler(nil, sleeper)
	job := &scriptedJob{key: "k", results: []Result{Success}}

	s.Enqueue(context.Background(), job, 10*time.Second)
	s.Wait()

	require.Len(t, *delays, 1)
	assert.Equal(t, 10*time.Second, (*delays)[0])
}

func TestBackoffCurve(t *testing.T) {
	base, max := time.Second, 30*time.Second
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoff(base, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		// Never beyond the ceiling plus its jitter margin.
		assert.LessOrEqual(t, d, max+max/4)
	}
	assert.Equal(t, time.Duration(0), backoff(base, max, 0))
}
