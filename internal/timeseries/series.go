// ABOUTME: Daily time series with NaN placeholders: gap filling, weekly and
// ABOUTME: monthly averages, and slicing helpers over parallel arrays.
package timeseries

import (
	"math"
	"sort"
	"time"

	"github.com/harperreed/sensing/internal/models"
)

// Series is a timestamp-sorted daily series. Values, CILow, CIHigh and
// Confidence are parallel to Timestamps; missing observations are NaN.
type Series struct {
	Values     []float64
	Timestamps []time.Time
	CILow      []float64
	CIHigh     []float64
	Confidence []float64
}

// New builds a Series and sorts it by timestamp, keeping the parallel
// arrays aligned.
func New(values []float64, timestamps []time.Time, ciLow, ciHigh, confidence []float64) Series {
	s := Series{
		Values:     values,
		Timestamps: timestamps,
		CILow:      ciLow,
		CIHigh:     ciHigh,
		Confidence: confidence,
	}
	idx := make([]int, len(timestamps))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return timestamps[idx[a]].Before(timestamps[idx[b]])
	})
	out := makeSeries(len(idx))
	for pos, i := range idx {
		out.Timestamps[pos] = s.Timestamps[i]
		out.Values[pos] = at(s.Values, i)
		out.CILow[pos] = at(s.CILow, i)
		out.CIHigh[pos] = at(s.CIHigh, i)
		out.Confidence[pos] = at(s.Confidence, i)
	}
	return out
}

// FromMetricRecords assembles a Series from store rows, using each row's own
// timezone for its timestamp.
func FromMetricRecords(recs []*models.MetricRecord) Series {
	values := make([]float64, len(recs))
	timestamps := make([]time.Time, len(recs))
	ciLow := make([]float64, len(recs))
	ciHigh := make([]float64, len(recs))
	confidence := make([]float64, len(recs))
	for i, r := range recs {
		values[i] = r.Value
		timestamps[i] = inZone(time.Unix(r.Timestamp, 0), r.Timezone)
		ciLow[i] = deref(r.ConfidenceLow)
		ciHigh[i] = deref(r.ConfidenceHigh)
		confidence[i] = deref(r.Confidence)
	}
	return New(values, timestamps, ciLow, ciHigh, confidence)
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Timestamps) }

// FillMissingDays produces a dense daily series ending "today" per clock.
// Gaps between observations become NaN points; the window is extended into
// the past so it begins at least rewindDays-1 days before the first
// observation (or before today when the series is empty), and extended
// forward so it always ends today. Genuine observations keep their original
// timestamps and values.
func (s Series) FillMissingDays(rewindDays int, clock Clock) Series {
	out := makeSeries(0)
	today := clock.Now()

	prev := today.AddDate(0, 0, -rewindDays)
	if s.Len() > 0 {
		prev = s.Timestamps[0].AddDate(0, 0, -rewindDays)
	}

	if s.Len() == 0 {
		missing := daysBetween(prev, today) - 1
		for j := 0; j < missing; j++ {
			out.appendNaN(dayFloor(prev).AddDate(0, 0, j+1))
		}
	}

	for i := range s.Values {
		missing := daysBetween(prev, s.Timestamps[i]) - 1
		for j := 0; j < missing; j++ {
			out.appendNaN(dayFloor(prev).AddDate(0, 0, j+1))
		}
		out.append(s.Timestamps[i], s.Values[i], at(s.CILow, i), at(s.CIHigh, i), at(s.Confidence, i))
		prev = s.Timestamps[i]
	}

	// Pad forward to today.
	if out.Len() > 0 {
		last := out.Timestamps[out.Len()-1]
		future := daysBetween(last, today)
		for j := 0; j < future; j++ {
			out.appendNaN(dayFloor(last).AddDate(0, 0, j+1))
		}
	}

	return out
}

// WeeklyAverages partitions the series into calendar weeks (Monday start)
// and averages the non-NaN values per bucket, one point per week.
func (s Series) WeeklyAverages() Series {
	return s.bucketAverages(weekFloor)
}

// MonthlyAverages averages non-NaN values per calendar month.
func (s Series) MonthlyAverages() Series {
	return s.bucketAverages(monthFloor)
}

// TakeLast returns the last n points, or the whole series if shorter.
func (s Series) TakeLast(n int) Series {
	if n >= s.Len() {
		return s
	}
	return s.slice(s.Len()-n, s.Len())
}

// DropLast returns the series without its last n points.
func (s Series) DropLast(n int) Series {
	if n >= s.Len() {
		return makeSeries(0)
	}
	return s.slice(0, s.Len()-n)
}

// DropNA removes all placeholder points.
func (s Series) DropNA() Series {
	out := makeSeries(0)
	for i, v := range s.Values {
		if !math.IsNaN(v) {
			out.append(s.Timestamps[i], v, at(s.CILow, i), at(s.CIHigh, i), at(s.Confidence, i))
		}
	}
	return out
}

// Between keeps points whose timestamps fall in [from, to].
func (s Series) Between(from, to time.Time) Series {
	out := makeSeries(0)
	for i, ts := range s.Timestamps {
		if !ts.Before(from) && !ts.After(to) {
			out.append(ts, at(s.Values, i), at(s.CILow, i), at(s.CIHigh, i), at(s.Confidence, i))
		}
	}
	return out
}

func (s Series) bucketAverages(floor func(time.Time) time.Time) Series {
	type bucket struct {
		key        time.Time
		sum, ciL   float64
		ciH, conf  float64
		n, nL      int
		nH, nC     int
	}
	var order []time.Time
	buckets := map[time.Time]*bucket{}
	for i, ts := range s.Timestamps {
		key := floor(ts)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key}
			buckets[key] = b
			order = append(order, key)
		}
		accumulate(&b.sum, &b.n, at(s.Values, i))
		accumulate(&b.ciL, &b.nL, at(s.CILow, i))
		accumulate(&b.ciH, &b.nH, at(s.CIHigh, i))
		accumulate(&b.conf, &b.nC, at(s.Confidence, i))
	}
	sort.Slice(order, func(a, b int) bool { return order[a].Before(order[b]) })

	out := makeSeries(0)
	for _, key := range order {
		b := buckets[key]
		out.append(key, avg(b.sum, b.n), avg(b.ciL, b.nL), avg(b.ciH, b.nH), avg(b.conf, b.nC))
	}
	return out
}

func (s Series) slice(from, to int) Series {
	return Series{
		Values:     s.Values[from:to],
		Timestamps: s.Timestamps[from:to],
		CILow:      s.CILow[from:to],
		CIHigh:     s.CIHigh[from:to],
		Confidence: s.Confidence[from:to],
	}
}

func (s *Series) append(ts time.Time, v, ciL, ciH, conf float64) {
	s.Timestamps = append(s.Timestamps, ts)
	s.Values = append(s.Values, v)
	s.CILow = append(s.CILow, ciL)
	s.CIHigh = append(s.CIHigh, ciH)
	s.Confidence = append(s.Confidence, conf)
}

func (s *Series) appendNaN(ts time.Time) {
	s.append(ts, math.NaN(), math.NaN(), math.NaN(), math.NaN())
}

func makeSeries(n int) Series {
	return Series{
		Values:     make([]float64, n),
		Timestamps: make([]time.Time, n),
		CILow:      make([]float64, n),
		CIHigh:     make([]float64, n),
		Confidence: make([]float64, n),
	}
}

func accumulate(sum *float64, n *int, v float64) {
	if !math.IsNaN(v) {
		*sum += v
		*n++
	}
}

func avg(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return math.NaN()
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// dayFloor truncates to local midnight in t's location.
func dayFloor(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// weekFloor truncates to the Monday of t's calendar week.
func weekFloor(t time.Time) time.Time {
	d := dayFloor(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDate(0, 0, -offset)
}

// monthFloor truncates to the first day of t's month.
func monthFloor(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from a to b, DST-safe: dates are
// compared in UTC after flooring in their own locations.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}

func inZone(t time.Time, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return t
	}
	return t.In(loc)
}
