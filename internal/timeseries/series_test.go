// ABOUTME: Tests for gap filling, averaging and reset-hour selection.
// ABOUTME: Uses a fixed clock so "today" is deterministic.
package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/harperreed/sensing/internal/models"
)

var today = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func TestFillMissingDaysEmptySeries(t *testing.T) {
	clock := Fixed(today)

	filled := Series{}.FillMissingDays(8, clock)

	if filled.Len() != 8 {
		t.Fatalf("filled length = %d, want 8", filled.Len())
	}
	first := filled.Timestamps[0]
	last := filled.Timestamps[filled.Len()-1]
	if days := daysBetween(first, last); days != 7 {
		t.Errorf("window spans %d days, want 7", days)
	}
	if !sameDay(last, today) {
		t.Errorf("window ends %v, want today %v", last, today)
	}
	for i, v := range filled.Values {
		if !math.IsNaN(v) {
			t.Errorf("point %d = %v, want NaN placeholder", i, v)
		}
	}
}

func TestFillMissingDaysSingleObservation(t *testing.T) {
	clock := Fixed(today)
	obs := today.AddDate(0, 0, -3)

	s := New([]float64{42.5}, []time.Time{obs}, nil, nil, nil)
	filled := s.FillMissingDays(8, clock)

	if filled.Len() != 11 {
		t.Fatalf("filled length = %d, want 11", filled.Len())
	}
	first := filled.Timestamps[0]
	last := filled.Timestamps[filled.Len()-1]
	if days := daysBetween(first, last); days != 10 {
		t.Errorf("window spans %d days, want 10", days)
	}
	if !sameDay(last, today) {
		t.Errorf("window ends %v, want today %v", last, today)
	}

	sum := 0.0
	for _, v := range filled.Values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	if sum != 42.5 {
		t.Errorf("sum of real observations = %v, want 42.5", sum)
	}

	// The genuine observation keeps its original timestamp.
	found := false
	for i, ts := range filled.Timestamps {
		if ts.Equal(obs) && filled.Values[i] == 42.5 {
			found = true
		}
	}
	if !found {
		t.Error("original observation was mutated by gap filling")
	}
}

func TestFillMissingDaysPreservesGaps(t *testing.T) {
	clock := Fixed(today)
	ts := []time.Time{
		today.AddDate(0, 0, -5),
		today.AddDate(0, 0, -1), // 3-day hole in between
	}
	s := New([]float64{1, 2}, ts, nil, nil, nil)

	filled := s.FillMissingDays(2, clock)

	real := filled.DropNA()
	if real.Len() != 2 {
		t.Fatalf("real observations after fill = %d, want 2", real.Len())
	}
	if !sameDay(filled.Timestamps[filled.Len()-1], today) {
		t.Error("filled series does not end today")
	}
	// 2 rewind placeholders before the first obs may not both appear as the
	// window begins rewindDays before it; the gap itself must be 3 NaNs.
	nan := 0
	for _, v := range filled.Values {
		if math.IsNaN(v) {
			nan++
		}
	}
	if nan != filled.Len()-2 {
		t.Errorf("NaN count = %d, want %d", nan, filled.Len()-2)
	}
}

func TestWeeklyAverages(t *testing.T) {
	// Monday 2025-06-02 through Sunday 2025-06-08, then Monday 2025-06-09.
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	var values []float64
	var stamps []time.Time
	for i := 0; i < 7; i++ {
		values = append(values, float64(i)) // avg 3
		stamps = append(stamps, base.AddDate(0, 0, i))
	}
	values = append(values, 10, math.NaN())
	stamps = append(stamps, base.AddDate(0, 0, 7), base.AddDate(0, 0, 8))

	weekly := New(values, stamps, nil, nil, nil).WeeklyAverages()

	if weekly.Len() != 2 {
		t.Fatalf("weekly buckets = %d, want 2", weekly.Len())
	}
	if weekly.Values[0] != 3 {
		t.Errorf("first week average = %v, want 3", weekly.Values[0])
	}
	if weekly.Values[1] != 10 {
		t.Errorf("second week average = %v, want 10 (NaN excluded)", weekly.Values[1])
	}
}

func TestMonthlyAveragesSkipsPlaceholders(t *testing.T) {
	stamps := []time.Time{
		time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	monthly := New([]float64{2, math.NaN(), 8}, stamps, nil, nil, nil).MonthlyAverages()

	if monthly.Len() != 2 {
		t.Fatalf("monthly buckets = %d, want 2", monthly.Len())
	}
	if monthly.Values[0] != 2 || monthly.Values[1] != 8 {
		t.Errorf("monthly averages = %v, want [2 8]", monthly.Values)
	}
}

func TestSelectTodayByResetHour(t *testing.T) {
	rows := []*models.MetricRecord{
		{ID: "a", Code: models.MetricSleepScore, Timestamp: 1000, ResetHour: 2, Value: 70},
		{ID: "b", Code: models.MetricSleepScore, Timestamp: 2000, ResetHour: 5, Value: 80},
		{ID: "c", Code: models.MetricSleepScore, Timestamp: 1500, ResetHour: 2, Value: 75},
	}

	got := SelectToday(rows, 2)
	if got == nil || got.ID != "c" {
		t.Fatalf("SelectToday(+2) = %+v, want row c (latest with reset 2)", got)
	}

	// Never the fresher row computed for a different offset.
	if got.ResetHour != 2 {
		t.Errorf("selected reset hour %d, want 2", got.ResetHour)
	}

	if SelectToday(rows, 9) != nil {
		t.Error("SelectToday returned a row for an offset with no data")
	}
}

func TestTakeDropLastAndDropNA(t *testing.T) {
	stamps := []time.Time{
		today.AddDate(0, 0, -2), today.AddDate(0, 0, -1), today,
	}
	s := New([]float64{1, math.NaN(), 3}, stamps, nil, nil, nil)

	if got := s.TakeLast(2); got.Len() != 2 || got.Values[1] != 3 {
		t.Errorf("TakeLast(2) = %v", got.Values)
	}
	if got := s.DropLast(1); got.Len() != 2 || got.Values[0] != 1 {
		t.Errorf("DropLast(1) = %v", got.Values)
	}
	if got := s.DropNA(); got.Len() != 2 {
		t.Errorf("DropNA len = %d, want 2", got.Len())
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
