// ABOUTME: Reset-hour window selection: pick the precomputed 24h-window row
// ABOUTME: matching the caller's current raw UTC offset.
package timeseries

import (
	"github.com/harperreed/sensing/internal/models"
)

// CurrentResetHour returns the device's raw UTC offset in whole hours per
// the given clock. This is the reset hour a device must select rows by.
func CurrentResetHour(clock Clock) int {
	_, offsetSeconds := clock.Now().Zone()
	return offsetSeconds / 3600
}

// SelectToday returns the authoritative "today" row for a caller whose raw
// UTC offset is resetHour: the most recent record computed for that exact
// offset. The backend emits the same logical day once per possible offset,
// so simply taking the newest row regardless of reset hour would hand back
// a statistic for the wrong calendar day.
func SelectToday(records []*models.MetricRecord, resetHour int) *models.MetricRecord {
	var latest *models.MetricRecord
	for _, r := range records {
		if r.ResetHour != resetHour {
			continue
		}
		if latest == nil || r.Timestamp > latest.Timestamp {
			latest = r
		}
	}
	return latest
}

// FilterByResetHour keeps only records computed for the given offset,
// preserving order.
func FilterByResetHour(records []*models.MetricRecord, resetHour int) []*models.MetricRecord {
	var out []*models.MetricRecord
	for _, r := range records {
		if r.ResetHour == resetHour {
			out = append(out, r)
		}
	}
	return out
}
