// ABOUTME: Sleep summary model: one sleep episode with its interruptions.
// ABOUTME: Interruption slices are parallel arrays and must stay equal length.
package models

import (
	"fmt"
	"time"
)

// SleepSummaryRecord describes one sleep episode as resolved by the remote
// service: when sleep started and ended, and every interruption in between.
// InterruptionStarts, InterruptionEnds and InterruptionTaps are parallel
// arrays; Validate enforces the equal-length invariant.
type SleepSummaryRecord struct {
	ID        string
	Timestamp int64 // unix seconds, the episode's logical day

	SleepStart int64 // unix millis
	SleepEnd   int64 // unix millis

	InterruptionStarts []int64
	InterruptionEnds   []int64
	InterruptionTaps   []int64

	TimezoneID string
}

// Validate checks the parallel-array invariant.
func (s *SleepSummaryRecord) Validate() error {
	if len(s.InterruptionStarts) != len(s.InterruptionEnds) ||
		len(s.InterruptionStarts) != len(s.InterruptionTaps) {
		return fmt.Errorf("sleep summary %s: interruption arrays mismatch (%d starts, %d ends, %d taps)",
			s.ID, len(s.InterruptionStarts), len(s.InterruptionEnds), len(s.InterruptionTaps))
	}
	return nil
}

// Duration returns the length of the episode.
func (s *SleepSummaryRecord) Duration() time.Duration {
	return time.Duration(s.SleepEnd-s.SleepStart) * time.Millisecond
}
