// ABOUTME: Cognitive test result model with discriminated JSON payloads.
// ABOUTME: One row per completed mini-game session, pushed by the outbox.
package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CognitiveTestType discriminates the ResultJSON payload.
type CognitiveTestType string

const (
	// TestReactionTime is the psychomotor vigilance task: a series of
	// stimulus/response latencies.
	TestReactionTime CognitiveTestType = "pvt"
	// TestSpatialMemory is the dot-memory grid recall task.
	TestSpatialMemory CognitiveTestType = "dot_memory"
)

// CognitiveTestResult is one completed session. The UI mini-games produce
// these; the store only persists and pushes them.
type CognitiveTestResult struct {
	ID        string
	TestType  CognitiveTestType
	Result    string // payload JSON keyed by TestType
	Timestamp int64  // unix millis
	LocalTime string // wall-clock time at the device, ISO 8601
	Sync      int
}

// ReactionTimeResult is the payload for TestReactionTime.
type ReactionTimeResult struct {
	LatenciesMillis []int64 `json:"latencies_ms"`
	Lapses          int     `json:"lapses"`
	FalseStarts     int     `json:"false_starts"`
}

// SpatialMemoryResult is the payload for TestSpatialMemory.
type SpatialMemoryResult struct {
	GridSize    int   `json:"grid_size"`
	Rounds      int   `json:"rounds"`
	CorrectDots []int `json:"correct_dots"`
	DurationsMs []int `json:"durations_ms"`
}

// NewCognitiveTestResult marshals the payload and stamps a fresh id.
func NewCognitiveTestResult(testType CognitiveTestType, payload any, ts int64, localTime string) (*CognitiveTestResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", testType, err)
	}
	return &CognitiveTestResult{
		ID:        uuid.New().String(),
		TestType:  testType,
		Result:    string(raw),
		Timestamp: ts,
		LocalTime: localTime,
		Sync:      SyncPending,
	}, nil
}
