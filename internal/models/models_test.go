// ABOUTME: Tests for entity model invariants and constructors.
// ABOUTME: Covers sleep parallel arrays, journal defaults, test payloads.
package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSleepSummaryValidate(t *testing.T) {
	s := &SleepSummaryRecord{
		ID:                 "ep1",
		InterruptionStarts: []int64{1, 2},
		InterruptionEnds:   []int64{3, 4},
		InterruptionTaps:   []int64{5, 6},
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate failed on balanced arrays: %v", err)
	}

	s.InterruptionTaps = []int64{5}
	if err := s.Validate(); err == nil {
		t.Fatal("Validate accepted mismatched interruption arrays")
	}
}

func TestNewJournalEntry(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	e := NewJournalEntry("slept badly", "device-1", now)

	if e.Sync != SyncPending {
		t.Errorf("new entry sync = %d, want pending", e.Sync)
	}
	if e.Deleted != 0 {
		t.Errorf("new entry deleted = %d, want 0", e.Deleted)
	}
	if e.CreatedAt != now.UnixMilli() || e.ModifiedAt != now.UnixMilli() {
		t.Errorf("timestamps not taken from clock: %d/%d", e.CreatedAt, e.ModifiedAt)
	}
	if e.ID == "" {
		t.Error("entry id not generated")
	}
}

func TestMetricRecordID(t *testing.T) {
	a := NewMetricRecord(MetricSleepScore, 1700000000, 80.5, "Europe/Zurich", 2)
	b := NewMetricRecord(MetricSleepScore, 1700000000, 91.0, "Europe/Zurich", 2)
	if a.ID != b.ID {
		t.Errorf("same (code, timestamp) produced different ids: %s vs %s", a.ID, b.ID)
	}
	c := NewMetricRecord(MetricCognitiveFitness, 1700000000, 80.5, "Europe/Zurich", 2)
	if a.ID == c.ID {
		t.Error("different codes produced the same id")
	}
}

func TestNewCognitiveTestResult(t *testing.T) {
	payload := ReactionTimeResult{
		LatenciesMillis: []int64{250, 310, 280},
		Lapses:          1,
	}
	r, err := NewCognitiveTestResult(TestReactionTime, payload, 1700000000000, "2023-11-14T22:13:20")
	if err != nil {
		t.Fatalf("NewCognitiveTestResult: %v", err)
	}
	if r.Sync != SyncPending {
		t.Errorf("result sync = %d, want pending", r.Sync)
	}

	var back ReactionTimeResult
	if err := json.Unmarshal([]byte(r.Result), &back); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if back.Lapses != 1 || len(back.LatenciesMillis) != 3 {
		t.Errorf("payload round-trip mismatch: %+v", back)
	}
}
