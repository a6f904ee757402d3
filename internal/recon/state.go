// ABOUTME: The tagged-union view state emitted by reconciliation reads.
// ABOUTME: One generic type replaces per-kind loading/available wrappers.
package recon

// StateKind discriminates a State.
type StateKind int

const (
	// Loading: no snapshot yet, a read is in progress.
	Loading StateKind = iota
	// Available: Data holds the latest local snapshot.
	Available
	// Unavailable: the store has no rows and a refresh was impossible.
	Unavailable
)

// State is the view of one data kind at a point in time. Reads emit a
// sequence of these: at least one snapshot immediately, and a second one
// after a refresh lands.
type State[T any] struct {
	Kind StateKind
	Data T
}

// LoadingState returns the in-progress marker.
func LoadingState[T any]() State[T] {
	return State[T]{Kind: Loading}
}

// AvailableState wraps a snapshot.
func AvailableState[T any](data T) State[T] {
	return State[T]{Kind: Available, Data: data}
}

// UnavailableState marks a kind with no data and no way to get it.
func UnavailableState[T any]() State[T] {
	return State[T]{Kind: Unavailable}
}
