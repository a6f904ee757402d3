// ABOUTME: Metric and trend CRUD for the SQLite store.
// ABOUTME: Upserts use REPLACE-on-conflict keyed by the natural id.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/harperreed/sensing/internal/models"
)

// UpsertMetrics inserts or replaces a batch of metric rows in one
// transaction. Repeated fetches of overlapping time ranges dedupe on the
// (timestamp, code) natural key.
func (s *Store) UpsertMetrics(records []*models.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("upsert metrics: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO metrics
			(id, code, timestamp, value, value_text, timezone, reset_hour, ci_low, ci_high, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert metrics: %w", err)
	}
	defer stmt.Close()

	for _, m := range records {
		_, err := stmt.Exec(m.ID, string(m.Code), m.Timestamp, m.Value, m.ValueText,
			m.Timezone, m.ResetHour, m.ConfidenceLow, m.ConfidenceHigh, m.Confidence)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert metric %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// MetricsBetween returns rows for a code with timestamp in [from, to],
// newest first.
func (s *Store) MetricsBetween(code models.MetricCode, from, to int64) ([]*models.MetricRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, code, timestamp, value, value_text, timezone, reset_hour, ci_low, ci_high, confidence
		FROM metrics
		WHERE code = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp DESC
	`, string(code), from, to)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()
	return scanMetrics(rows)
}

// LatestMetricTimestamp returns the newest stored timestamp for a code, or
// 0 when the store has no rows for it.
func (s *Store) LatestMetricTimestamp(code models.MetricCode) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(timestamp) FROM metrics WHERE code = ?`, string(code),
	).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("latest metric timestamp: %w", err)
	}
	return ts.Int64, nil
}

// UpsertTrends inserts or replaces derived trend rows in one transaction.
func (s *Store) UpsertTrends(records []*models.TrendRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("upsert trends: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trends
			(id, code, timestamp, timezone, reset_hour,
			 diff_2w, stat_2w, sign_2w, diff_6w, stat_6w, sign_6w, diff_1y, stat_1y, sign_1y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert trends: %w", err)
	}
	defer stmt.Close()

	for _, t := range records {
		_, err := stmt.Exec(t.ID, string(t.Code), t.Timestamp, t.Timezone, t.ResetHour,
			t.ShortTerm.Difference, t.ShortTerm.Statistic, t.ShortTerm.Significance,
			t.MediumTerm.Difference, t.MediumTerm.Statistic, t.MediumTerm.Significance,
			t.LongTerm.Difference, t.LongTerm.Statistic, t.LongTerm.Significance)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert trend %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// TrendsBetween returns trend rows for a code in [from, to], newest first.
func (s *Store) TrendsBetween(code models.MetricCode, from, to int64) ([]*models.TrendRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, code, timestamp, timezone, reset_hour,
		       diff_2w, stat_2w, sign_2w, diff_6w, stat_6w, sign_6w, diff_1y, stat_1y, sign_1y
		FROM trends
		WHERE code = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp DESC
	`, string(code), from, to)
	if err != nil {
		return nil, fmt.Errorf("query trends: %w", err)
	}
	defer rows.Close()

	var out []*models.TrendRecord
	for rows.Next() {
		var t models.TrendRecord
		var code string
		err := rows.Scan(&t.ID, &code, &t.Timestamp, &t.Timezone, &t.ResetHour,
			&t.ShortTerm.Difference, &t.ShortTerm.Statistic, &t.ShortTerm.Significance,
			&t.MediumTerm.Difference, &t.MediumTerm.Statistic, &t.MediumTerm.Significance,
			&t.LongTerm.Difference, &t.LongTerm.Statistic, &t.LongTerm.Significance)
		if err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		t.Code = models.MetricCode(code)
		out = append(out, &t)
	}
	return out, rows.Err()
}

// LatestTrendTimestamp returns the newest stored trend timestamp for a code.
func (s *Store) LatestTrendTimestamp(code models.MetricCode) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(timestamp) FROM trends WHERE code = ?`, string(code),
	).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("latest trend timestamp: %w", err)
	}
	return ts.Int64, nil
}

func scanMetrics(rows *sql.Rows) ([]*models.MetricRecord, error) {
	var out []*models.MetricRecord
	for rows.Next() {
		var m models.MetricRecord
		var code string
		var ciLow, ciHigh, conf sql.NullFloat64
		err := rows.Scan(&m.ID, &code, &m.Timestamp, &m.Value, &m.ValueText,
			&m.Timezone, &m.ResetHour, &ciLow, &ciHigh, &conf)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		m.Code = models.MetricCode(code)
		if ciLow.Valid {
			m.ConfidenceLow = &ciLow.Float64
		}
		if ciHigh.Valid {
			m.ConfidenceHigh = &ciHigh.Float64
		}
		if conf.Valid {
			m.Confidence = &conf.Float64
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
