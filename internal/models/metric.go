// ABOUTME: Metric and trend record models plus the behavioral metric catalog.
// ABOUTME: Records mirror the remote service's 24-hour-window score rows.
package models

import (
	"fmt"
	"time"
)

// MetricCode identifies a behavioral metric series on the remote service.
type MetricCode string

const (
	// Scores computed server-side over rolling 24-hour windows.
	MetricCognitiveFitness MetricCode = "003-001-001-003"
	MetricSleepScore       MetricCode = "003-001-001-002"
	MetricSocialEngagement MetricCode = "003-001-001-004"

	// Raw behavioral measures.
	MetricTypingSpeed MetricCode = "001-003-002-001"
	MetricSleepLength MetricCode = "001-002-001-002"
	MetricSocialTaps  MetricCode = "001-005-005-011"

	// String-valued series (JSON payload in ValueText).
	MetricScreenTimeAggregate MetricCode = "002-001-001-001"
)

// AllMetricCodes lists every numeric and string metric the store caches.
var AllMetricCodes = []MetricCode{
	MetricCognitiveFitness, MetricSleepScore, MetricSocialEngagement,
	MetricTypingSpeed, MetricSleepLength, MetricSocialTaps,
	MetricScreenTimeAggregate,
}

// IsStringValued reports whether the metric stores its observation as text
// rather than a float (e.g. the screen-time aggregate JSON blob).
func (c MetricCode) IsStringValued() bool {
	return c == MetricScreenTimeAggregate
}

// MetricRecord is one observation in a rolling 24-hour window. The remote
// service precomputes the same logical day for every possible UTC offset and
// tags each row with the offset it was computed for (ResetHour); devices
// select only rows whose ResetHour matches their local raw offset.
type MetricRecord struct {
	// ID is the concatenation of the unix timestamp and the metric code,
	// so re-fetching overlapping ranges dedupes naturally on upsert.
	ID        string
	Code      MetricCode
	Timestamp int64 // unix seconds
	Value     float64
	ValueText string // set instead of Value for string-valued metrics
	Timezone  string // IANA zone id, e.g. Europe/Zurich
	ResetHour int    // raw UTC offset the 24h window was computed for

	ConfidenceLow  *float64
	ConfidenceHigh *float64
	Confidence     *float64
}

// NewMetricRecord builds a numeric record with the deterministic id.
func NewMetricRecord(code MetricCode, ts int64, value float64, tz string, resetHour int) *MetricRecord {
	return &MetricRecord{
		ID:        MetricRecordID(code, ts),
		Code:      code,
		Timestamp: ts,
		Value:     value,
		Timezone:  tz,
		ResetHour: resetHour,
	}
}

// MetricRecordID derives the natural key for a (timestamp, code) pair.
func MetricRecordID(code MetricCode, ts int64) string {
	return fmt.Sprintf("%d%s", ts, code)
}

// Time returns the observation instant.
func (m *MetricRecord) Time() time.Time {
	return time.Unix(m.Timestamp, 0)
}

// TrendWindow is one of the three lookback windows a trend is computed over.
type TrendWindow string

const (
	Trend2Weeks TrendWindow = "2w"
	Trend6Weeks TrendWindow = "6w"
	Trend1Year  TrendWindow = "1y"
)

// TrendPoint carries the derived statistics for a single lookback window.
type TrendPoint struct {
	Difference   float64
	Statistic    float64
	Significance float64
}

// TrendRecord is the derived-statistics counterpart of MetricRecord, with
// one point per lookback window. Same upsert key semantics as MetricRecord.
type TrendRecord struct {
	ID        string
	Code      MetricCode
	Timestamp int64 // unix seconds
	Timezone  string
	ResetHour int

	ShortTerm  TrendPoint // 2 weeks
	MediumTerm TrendPoint // 6 weeks
	LongTerm   TrendPoint // 1 year
}

// NewTrendRecord builds a trend record with the deterministic id.
func NewTrendRecord(code MetricCode, ts int64, tz string, resetHour int) *TrendRecord {
	return &TrendRecord{
		ID:        MetricRecordID(code, ts),
		Code:      code,
		Timestamp: ts,
		Timezone:  tz,
		ResetHour: resetHour,
	}
}
