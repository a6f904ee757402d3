// ABOUTME: Raw telemetry CRUD: tap sessions, device health batches, activity
// ABOUTME: transitions, the app-code catalog and hourly tap aggregates.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/harperreed/sensing/internal/models"
)

// InsertTapSession queues one interaction session for batch push.
func (s *Store) InsertTapSession(r *models.TapSessionRecord) error {
	res, err := s.db.Exec(`
		INSERT INTO tap_sessions
			(taps, start, stop, orientations, app_ids, taps_total, length, timezone, in_charge, sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Taps, r.Start, r.Stop, r.Orientations, r.AppIDs, r.TapsTotal, r.Length, r.Timezone, r.InCharge, r.Sync)
	if err != nil {
		return fmt.Errorf("insert tap session: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// PendingTapSessions returns queued sessions, oldest first, capped at limit
// so a single push batch stays bounded. limit <= 0 means no cap.
func (s *Store) PendingTapSessions(limit int) ([]*models.TapSessionRecord, error) {
	query := `
		SELECT id, taps, start, stop, orientations, app_ids, taps_total, length, timezone, in_charge, sync
		FROM tap_sessions
		WHERE sync = 0
		ORDER BY start ASC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("query tap sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.TapSessionRecord
	for rows.Next() {
		var r models.TapSessionRecord
		err := rows.Scan(&r.ID, &r.Taps, &r.Start, &r.Stop, &r.Orientations, &r.AppIDs,
			&r.TapsTotal, &r.Length, &r.Timezone, &r.InCharge, &r.Sync)
		if err != nil {
			return nil, fmt.Errorf("scan tap session: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// MarkTapSessionsSynced flips the markers for sessions confirmed by their
// start instant, the natural key the remote echoes back.
func (s *Store) MarkTapSessionsSynced(starts []int64) error {
	if len(starts) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("mark tap sessions synced: %w", err)
	}
	for _, start := range starts {
		_, err := tx.Exec(`UPDATE tap_sessions SET sync = ? WHERE start = ?`, models.SyncConfirmed, start)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark tap session %d synced: %w", start, err)
		}
	}
	return tx.Commit()
}

// DeleteTapSessions drops sessions the remote rejected, keyed by start.
func (s *Store) DeleteTapSessions(starts []int64) error {
	if len(starts) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete tap sessions: %w", err)
	}
	for _, start := range starts {
		if _, err := tx.Exec(`DELETE FROM tap_sessions WHERE start = ?`, start); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete tap session %d: %w", start, err)
		}
	}
	return tx.Commit()
}

// InsertDeviceHealth queues one vitals batch for push.
func (s *Store) InsertDeviceHealth(r *models.DeviceHealthRecord) error {
	res, err := s.db.Exec(`
		INSERT INTO device_health (timestamps, charge, events, start, stop, sync)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Timestamps, r.Charge, r.Events, r.Start, r.Stop, r.Sync)
	if err != nil {
		return fmt.Errorf("insert device health: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// PendingDeviceHealth returns queued vitals batches, oldest first.
func (s *Store) PendingDeviceHealth() ([]*models.DeviceHealthRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamps, charge, events, start, stop, sync
		FROM device_health
		WHERE sync = 0
		ORDER BY start ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query device health: %w", err)
	}
	defer rows.Close()

	var out []*models.DeviceHealthRecord
	for rows.Next() {
		var r models.DeviceHealthRecord
		if err := rows.Scan(&r.ID, &r.Timestamps, &r.Charge, &r.Events, &r.Start, &r.Stop, &r.Sync); err != nil {
			return nil, fmt.Errorf("scan device health: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// MarkDeviceHealthSynced flips markers for batches confirmed by start.
func (s *Store) MarkDeviceHealthSynced(starts []int64) error {
	if len(starts) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("mark device health synced: %w", err)
	}
	for _, start := range starts {
		_, err := tx.Exec(`UPDATE device_health SET sync = ? WHERE start = ?`, models.SyncConfirmed, start)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark device health %d synced: %w", start, err)
		}
	}
	return tx.Commit()
}

// InsertActivityTransition queues one detected activity change.
func (s *Store) InsertActivityTransition(r *models.ActivityTransitionRecord) error {
	res, err := s.db.Exec(`
		INSERT INTO activity_transitions (timestamp, action, transition, sync)
		VALUES (?, ?, ?, ?)
	`, r.Timestamp, r.Action, r.Transition, r.Sync)
	if err != nil {
		return fmt.Errorf("insert activity transition: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// PendingActivityTransitions returns queued transitions, oldest first.
func (s *Store) PendingActivityTransitions() ([]*models.ActivityTransitionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, action, transition, sync
		FROM activity_transitions
		WHERE sync = 0
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query activity transitions: %w", err)
	}
	defer rows.Close()

	var out []*models.ActivityTransitionRecord
	for rows.Next() {
		var r models.ActivityTransitionRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Action, &r.Transition, &r.Sync); err != nil {
			return nil, fmt.Errorf("scan activity transition: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// MarkActivityTransitionsSynced flips markers for confirmed timestamps.
func (s *Store) MarkActivityTransitionsSynced(timestamps []int64) error {
	if len(timestamps) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("mark activity transitions synced: %w", err)
	}
	for _, ts := range timestamps {
		_, err := tx.Exec(`UPDATE activity_transitions SET sync = ? WHERE timestamp = ?`, models.SyncConfirmed, ts)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark activity transition %d synced: %w", ts, err)
		}
	}
	return tx.Commit()
}

// EnsureAppCode returns the numeric code for an app name, inserting a new
// unsynced row the first time the name is seen.
func (s *Store) EnsureAppCode(name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM app_codes WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup app code %q: %w", name, err)
	}
	res, err := s.db.Exec(`INSERT INTO app_codes (name, sync) VALUES (?, 0)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert app code %q: %w", name, err)
	}
	id, _ = res.LastInsertId()
	return id, nil
}

// PendingAppCodes returns catalog rows not yet pushed.
func (s *Store) PendingAppCodes() ([]*models.AppCode, error) {
	rows, err := s.db.Query(`SELECT id, name, sync FROM app_codes WHERE sync = 0 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query app codes: %w", err)
	}
	defer rows.Close()

	var out []*models.AppCode
	for rows.Next() {
		var r models.AppCode
		if err := rows.Scan(&r.ID, &r.Name, &r.Sync); err != nil {
			return nil, fmt.Errorf("scan app code: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// MarkAppCodesSynced flips markers for confirmed catalog ids.
func (s *Store) MarkAppCodesSynced(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("mark app codes synced: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(`UPDATE app_codes SET sync = ? WHERE id = ?`, models.SyncConfirmed, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark app code %d synced: %w", id, err)
		}
	}
	return tx.Commit()
}

// RecordHourlyTaps accumulates a tap count and running speed into the hour
// bucket for a local date ("yyyy-MM-dd").
func (s *Store) RecordHourlyTaps(date string, hour int, taps int64, speed float64) error {
	var id, existing int64
	var oldSpeed float64
	err := s.db.QueryRow(`
		SELECT id, num_taps, speed FROM hourly_taps WHERE date_tap = ? AND hour = ?
	`, date, hour).Scan(&id, &existing, &oldSpeed)
	if err == sql.ErrNoRows {
		_, err := s.db.Exec(`
			INSERT INTO hourly_taps (date_tap, hour, num_taps, speed) VALUES (?, ?, ?, ?)
		`, date, hour, taps, speed)
		if err != nil {
			return fmt.Errorf("insert hourly taps: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup hourly taps: %w", err)
	}
	// Weighted running average keyed by tap counts.
	total := existing + taps
	merged := speed
	if total > 0 {
		merged = (oldSpeed*float64(existing) + speed*float64(taps)) / float64(total)
	}
	_, err = s.db.Exec(`UPDATE hourly_taps SET num_taps = ?, speed = ? WHERE id = ?`, total, merged, id)
	if err != nil {
		return fmt.Errorf("update hourly taps: %w", err)
	}
	return nil
}

// HourlyTapsForDate returns the per-hour aggregates for a local date.
func (s *Store) HourlyTapsForDate(date string) (map[int]int64, map[int]float64, error) {
	rows, err := s.db.Query(`SELECT hour, num_taps, speed FROM hourly_taps WHERE date_tap = ?`, date)
	if err != nil {
		return nil, nil, fmt.Errorf("query hourly taps: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	speeds := make(map[int]float64)
	for rows.Next() {
		var hour int
		var taps int64
		var speed float64
		if err := rows.Scan(&hour, &taps, &speed); err != nil {
			return nil, nil, fmt.Errorf("scan hourly taps: %w", err)
		}
		counts[hour] = taps
		speeds[hour] = speed
	}
	return counts, speeds, rows.Err()
}

// PruneHourlyTaps drops aggregates for dates before the cutoff date string.
func (s *Store) PruneHourlyTaps(before string) error {
	_, err := s.db.Exec(`DELETE FROM hourly_taps WHERE date_tap < ?`, before)
	if err != nil {
		return fmt.Errorf("prune hourly taps: %w", err)
	}
	return nil
}
