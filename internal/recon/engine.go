// ABOUTME: Stale-while-revalidate reconciliation: emit the local snapshot,
// ABOUTME: refresh from the remote when warranted, merge, emit again.
package recon

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/sensing/internal/timeseries"
)

const (
	// defaultStaleness is how old the newest local row may be before a
	// read triggers a refresh.
	defaultStaleness = 3 * time.Hour
	// defaultFetchWindow bounds an ordinary refresh; forced refreshes go
	// back to the epoch.
	defaultFetchWindow = 60 * 24 * time.Hour
	// mergeChunk bounds one upsert transaction during a merge.
	mergeChunk = 500
	// fetchConcurrency bounds parallel month-page fetches.
	fetchConcurrency = 4
	// readyTimeout bounds how long a refresh waits on the session gate.
	readyTimeout = 10 * time.Second
)

// Kind describes one reconciled data kind: how to read its local snapshot,
// judge its freshness, fetch a remote month page and merge rows back in.
type Kind[T any] interface {
	// Local returns the stored rows for [from, to].
	Local(from, to int64) ([]T, error)
	// LatestTimestamp returns the newest stored row's timestamp, 0 when
	// the kind has no rows yet.
	LatestTimestamp() (int64, error)
	// Fetch retrieves one remote month page ("2006-01").
	Fetch(ctx context.Context, month string) ([]T, error)
	// Merge upserts fetched rows into the store.
	Merge(rows []T) error
}

// Query bounds one reconciliation read.
type Query struct {
	From, To int64
	// Force refreshes regardless of staleness and widens the fetch to the
	// full history.
	Force bool
	// Identified gates empty-store refreshes: with no identity there is
	// no session to fetch with, so an empty store stays empty quietly.
	Identified bool
	// Sample means the caller supplies its own demo/sample identity and
	// does not wait on the session readiness gate.
	Sample bool
}

// Engine drives reconciliation reads. One engine serves all kinds; each
// read runs independently with its own bounded fetch group.
type Engine struct {
	logger      *log.Logger
	clock       timeseries.Clock
	staleness   time.Duration
	fetchWindow time.Duration
	ready       *Readiness
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStaleness overrides the refresh threshold.
func WithStaleness(d time.Duration) EngineOption {
	return func(e *Engine) { e.staleness = d }
}

// WithClock substitutes the time source, mainly for tests.
func WithClock(c timeseries.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithFetchWindow overrides how far back an ordinary refresh reaches.
func WithFetchWindow(d time.Duration) EngineOption {
	return func(e *Engine) { e.fetchWindow = d }
}

// WithReadiness gates refreshes behind the session readiness latch.
// Local snapshots always serve immediately; only the remote fetch waits.
func WithReadiness(r *Readiness) EngineOption {
	return func(e *Engine) { e.ready = r }
}

// NewEngine builds an engine with the default staleness and fetch window.
func NewEngine(logger *log.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		logger:      logger,
		clock:       timeseries.System(),
		staleness:   defaultStaleness,
		fetchWindow: defaultFetchWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Read performs one stale-while-revalidate pass and emits snapshots on the
// returned channel: the current local rows immediately, then a refreshed
// snapshot if a refresh ran. The channel closes when the read completes. A
// failed refresh keeps the last emitted snapshot rather than surfacing an
// error; an abandoned reader never blocks the read (sends are dropped once
// ctx is done).
func Read[T any](ctx context.Context, e *Engine, kind Kind[T], q Query) <-chan State[[]T] {
	out := make(chan State[[]T], 2)
	go func() {
		defer close(out)

		local, err := kind.Local(q.From, q.To)
		if err != nil {
			e.logger.Error("local read failed", "err", err)
			emit(ctx, out, UnavailableState[[]T]())
			return
		}
		emit(ctx, out, AvailableState(local))

		refresh, epoch := shouldRefresh(e, kind, q, len(local))
		if !refresh {
			return
		}
		if e.ready != nil && !q.Sample {
			if err := e.ready.Wait(ctx, readyTimeout); err != nil {
				e.logger.Warn("session not ready, serving stale data", "err", err)
				return
			}
		}
		if err := runRefresh(ctx, e, kind, epoch); err != nil {
			// Keep the last known good snapshot.
			e.logger.Warn("refresh failed, serving stale data", "err", err)
			return
		}
		refreshed, err := kind.Local(q.From, q.To)
		if err != nil {
			e.logger.Error("post-refresh read failed", "err", err)
			return
		}
		emit(ctx, out, AvailableState(refreshed))
	}()
	return out
}

// shouldRefresh decides whether a remote fetch is warranted and whether it
// should reach back to the epoch.
func shouldRefresh[T any](e *Engine, kind Kind[T], q Query, localCount int) (refresh, epoch bool) {
	if q.Force {
		return true, true
	}
	if localCount == 0 {
		// Nothing cached: refresh only if a session can exist at all.
		return q.Identified, false
	}
	latest, err := kind.LatestTimestamp()
	if err != nil {
		e.logger.Warn("staleness check failed", "err", err)
		return false, false
	}
	age := e.clock.Now().Sub(time.Unix(latest, 0))
	return age > e.staleness, false
}

// refresh fetches month pages covering the window and merges them in
// bounded chunks. Pages fetch concurrently; merges serialize through the
// store's own transaction boundary.
func runRefresh[T any](ctx context.Context, e *Engine, kind Kind[T], epoch bool) error {
	now := e.clock.Now()
	from := now.Add(-e.fetchWindow)
	if epoch {
		from = time.Unix(0, 0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, month := range monthPages(from, now) {
		month := month
		g.Go(func() error {
			rows, err := kind.Fetch(ctx, month)
			if err != nil {
				return err
			}
			for _, chunk := range chunks(rows, mergeChunk) {
				if err := kind.Merge(chunk); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// monthPages lists the "2006-01" pages covering [from, to], oldest first.
func monthPages(from, to time.Time) []string {
	from, to = from.UTC(), to.UTC()
	var pages []string
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		pages = append(pages, cursor.Format("2006-01"))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return pages
}

func chunks[T any](rows []T, size int) [][]T {
	if len(rows) == 0 {
		return nil
	}
	var out [][]T
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

func emit[T any](ctx context.Context, out chan<- State[T], s State[T]) {
	select {
	case out <- s:
	case <-ctx.Done():
	}
}
