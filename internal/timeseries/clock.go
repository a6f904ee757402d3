// ABOUTME: Clock abstraction so "today" is injectable in tests.
// ABOUTME: Production code uses the system clock singleton.
package timeseries

import "time"

// Clock supplies the current instant. The gap filler and reset-hour
// selection are pure functions of a Clock plus stored data.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the real clock.
func System() Clock { return systemClock{} }

// Fixed returns a Clock pinned to t.
func Fixed(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }
