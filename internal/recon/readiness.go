// ABOUTME: One-shot readiness latch gating refreshes on the first
// ABOUTME: successful session resolution. Waiters time out, never hang.
package recon

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Readiness is a one-shot latch. The owner signals it once the first
// session resolution succeeds; refreshes wait on it with a bounded timeout
// so they never fire before a participation identity exists.
type Readiness struct {
	once sync.Once
	ch   chan struct{}
}

// NewReadiness builds an unsignaled latch.
func NewReadiness() *Readiness {
	return &Readiness{ch: make(chan struct{})}
}

// Signal marks the system ready. Safe to call more than once.
func (r *Readiness) Signal() {
	r.once.Do(func() { close(r.ch) })
}

// Ready reports whether the latch was signaled, without blocking.
func (r *Readiness) Ready() bool {
	select {
	case <-r.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the latch is signaled, the context is done, or the
// timeout elapses.
func (r *Readiness) Wait(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("not ready after %s", timeout)
	}
}
