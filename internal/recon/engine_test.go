// ABOUTME: Reconciliation tests: snapshot-first emission, staleness-driven
// ABOUTME: refresh, forced full-history fetch, failure keeps stale data.
package recon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/sensing/internal/timeseries"
)

// fakeKind is an in-memory Kind over plain int64 timestamps.
type fakeKind struct {
	mu       sync.Mutex
	rows     []int64
	remote   map[string][]int64
	fetched  []string
	fetchErr error
}

func (k *fakeKind) Local(from, to int64) ([]int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []int64
	for _, ts := range k.rows {
		if ts >= from && ts <= to {
			out = append(out, ts)
		}
	}
	return out, nil
}

func (k *fakeKind) LatestTimestamp() (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var latest int64
	for _, ts := range k.rows {
		if ts > latest {
			latest = ts
		}
	}
	return latest, nil
}

func (k *fakeKind) Fetch(ctx context.Context, month string) ([]int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.fetchErr != nil {
		return nil, k.fetchErr
	}
	k.fetched = append(k.fetched, month)
	return k.remote[month], nil
}

func (k *fakeKind) Merge(rows []int64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.rows = append(k.rows, rows...)
	return nil
}

func collect(ch <-chan State[[]int64]) []State[[]int64] {
	var out []State[[]int64]
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func TestReadServesFreshSnapshotWithoutRefresh(t *testing.T) {
	now := time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC)
	kind := &fakeKind{rows: []int64{now.Add(-time.Hour).Unix()}}
	e := NewEngine(nil, WithClock(timeseries.Fixed(now)))

	states := collect(Read(context.Background(), e, kind, Query{From: 0, To: now.Unix(), Identified: true}))

	require.Len(t, states, 1, "fresh data must not trigger a refresh")
	assert.Equal(t, Available, states[0].Kind)
	assert.Len(t, states[0].Data, 1)
	assert.Empty(t, kind.fetched)
}

func TestReadRefreshesStaleDataAndReEmits(t *testing.T) {
	now := time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-5 * time.Hour).Unix()
	kind := &fakeKind{
		rows:   []int64{stale},
		remote: map[string][]int64{"2023-11": {now.Add(-time.Hour).Unix()}},
	}
	e := NewEngine(nil, WithClock(timeseries.Fixed(now)))

	states := collect(Read(context.Background(), e, kind, Query{From: 0, To: now.Unix(), Identified: true}))

	require.Len(t, states, 2, "stale data must be served first, then refreshed")
	assert.Len(t, states[0].Data, 1)
	assert.Len(t, states[1].Data, 2)
	// 60-day window from mid-November reaches back into September.
	assert.Contains(t, kind.fetched, "2023-09")
	assert.Contains(t, kind.fetched, "2023-11")
	assert.NotContains(t, kind.fetched, "2023-08")
}

func TestForcedRefreshFetchesFullHistory(t *testing.T) {
	now := time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC)
	kind := &fakeKind{rows: []int64{now.Add(-time.Minute).Unix()}, remote: map[string][]int64{}}
	e := NewEngine(nil, WithClock(timeseries.Fixed(now)))

	collect(Read(context.Background(), e, kind, Query{From: 0, To: now.Unix(), Force: true, Identified: true}))

	assert.Contains(t, kind.fetched, "1970-01", "forced refresh reaches the epoch")
	assert.Contains(t, kind.fetched, "2023-11")
}

func TestEmptyStoreRefreshesOnlyWithIdentity(t *testing.T) {
	now := time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC)
	e := NewEngine(nil, WithClock(timeseries.Fixed(now)))

	anonymous := &fakeKind{}
	states := collect(Read(context.Background(), e, anonymous, Query{From: 0, To: now.Unix()}))
	require.Len(t, states, 1)
	assert.Empty(t, anonymous.fetched, "no identity means no session to fetch with")

	identified := &fakeKind{remote: map[string][]int64{"2023-11": {now.Unix()}}}
	states = collect(Read(context.Background(), e, identified, Query{From: 0, To: now.Unix(), Identified: true}))
	require.Len(t, states, 2)
	assert.NotEmpty(t, identified.fetched)
}

func TestFailedRefreshKeepsLastKnownGood(t *testing.T) {
	now := time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-24 * time.Hour).Unix()
	kind := &fakeKind{rows: []int64{stale}, fetchErr: errors.New("network down")}
	e := NewEngine(nil, WithClock(timeseries.Fixed(now)))

	states := collect(Read(context.Background(), e, kind, Query{From: 0, To: now.Unix(), Identified: true}))

	require.Len(t, states, 1, "failed refresh must not emit a new snapshot")
	assert.Equal(t, Available, states[0].Kind)
	assert.Equal(t, []int64{stale}, states[0].Data)
}

func TestMonthPages(t *testing.T) {
	from := time.Date(2023, 9, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 11, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2023-09", "2023-10", "2023-11"}, monthPages(from, to))

	same := time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2023-11"}, monthPages(same, same))
}

func TestMergeChunking(t *testing.T) {
	rows := make([]int64, 1201)
	got := chunks(rows, 500)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 500)
	assert.Len(t, got[2], 201)
	assert.Nil(t, chunks([]int64{}, 500))
}

func TestUnreadySessionSkipsRefresh(t *testing.T) {
	now := time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-48 * time.Hour).Unix()
	kind := &fakeKind{rows: []int64{stale}}
	e := NewEngine(nil, WithClock(timeseries.Fixed(now)), WithReadiness(NewReadiness()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	states := collect(Read(ctx, e, kind, Query{From: 0, To: now.Unix(), Identified: true}))

	require.Len(t, states, 1, "gated refresh must keep the stale snapshot")
	assert.Empty(t, kind.fetched)
}

func TestSignaledSessionAllowsRefresh(t *testing.T) {
	now := time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-48 * time.Hour).Unix()
	kind := &fakeKind{rows: []int64{stale}}
	r := NewReadiness()
	r.Signal()
	e := NewEngine(nil, WithClock(timeseries.Fixed(now)), WithReadiness(r))

	states := collect(Read(context.Background(), e, kind, Query{From: 0, To: now.Unix(), Identified: true}))

	require.Len(t, states, 2)
	assert.NotEmpty(t, kind.fetched)
}

func TestReadinessLatch(t *testing.T) {
	r := NewReadiness()
	assert.False(t, r.Ready())

	err := r.Wait(context.Background(), 20*time.Millisecond)
	assert.Error(t, err, "unsignaled latch must time out, not block")

	r.Signal()
	r.Signal() // idempotent
	assert.True(t, r.Ready())
	assert.NoError(t, r.Wait(context.Background(), time.Second))
}
