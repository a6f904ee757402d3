// ABOUTME: Sleep summary CRUD for the SQLite store.
// ABOUTME: Interruption arrays are persisted as JSON text columns.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/harperreed/sensing/internal/models"
)

// UpsertSleepSummaries inserts or replaces resolved sleep episodes in one
// transaction. Rows failing the parallel-array invariant are rejected.
func (s *Store) UpsertSleepSummaries(records []*models.SleepSummaryRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("upsert sleep summaries: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO sleep_summaries
			(id, timestamp, sleep_start, sleep_end, int_starts, int_ends, int_taps, timezone_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert sleep summaries: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			_ = tx.Rollback()
			return err
		}
		starts, _ := json.Marshal(rec.InterruptionStarts)
		ends, _ := json.Marshal(rec.InterruptionEnds)
		taps, _ := json.Marshal(rec.InterruptionTaps)
		_, err := stmt.Exec(rec.ID, rec.Timestamp, rec.SleepStart, rec.SleepEnd,
			string(starts), string(ends), string(taps), rec.TimezoneID)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert sleep summary %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// SleepSummariesBetween returns episodes with timestamp in [from, to],
// newest first.
func (s *Store) SleepSummariesBetween(from, to int64) ([]*models.SleepSummaryRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, sleep_start, sleep_end, int_starts, int_ends, int_taps, timezone_id
		FROM sleep_summaries
		WHERE timestamp BETWEEN ? AND ?
		ORDER BY timestamp DESC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query sleep summaries: %w", err)
	}
	defer rows.Close()

	var out []*models.SleepSummaryRecord
	for rows.Next() {
		var rec models.SleepSummaryRecord
		var starts, ends, taps string
		err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.SleepStart, &rec.SleepEnd,
			&starts, &ends, &taps, &rec.TimezoneID)
		if err != nil {
			return nil, fmt.Errorf("scan sleep summary: %w", err)
		}
		if err := json.Unmarshal([]byte(starts), &rec.InterruptionStarts); err != nil {
			return nil, fmt.Errorf("decode interruptions for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(ends), &rec.InterruptionEnds); err != nil {
			return nil, fmt.Errorf("decode interruptions for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(taps), &rec.InterruptionTaps); err != nil {
			return nil, fmt.Errorf("decode interruptions for %s: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// LatestSleepTimestamp returns the newest stored episode timestamp, or 0.
func (s *Store) LatestSleepTimestamp() (int64, error) {
	var ts int64
	err := s.db.QueryRow(`SELECT COALESCE(MAX(timestamp), 0) FROM sleep_summaries`).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("latest sleep timestamp: %w", err)
	}
	return ts, nil
}
