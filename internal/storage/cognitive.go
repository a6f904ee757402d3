// ABOUTME: Cognitive test result CRUD.
// ABOUTME: Results queue with a sync marker; confirmed pushes flip it.
package storage

import (
	"fmt"

	"github.com/harperreed/sensing/internal/models"
)

// InsertCognitiveTestResult queues a completed mini-game session for push.
func (s *Store) InsertCognitiveTestResult(r *models.CognitiveTestResult) error {
	_, err := s.db.Exec(`
		INSERT INTO cognitive_test_results (id, test_type, results, timestamp, local_time, sync)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, string(r.TestType), r.Result, r.Timestamp, r.LocalTime, r.Sync)
	if err != nil {
		return fmt.Errorf("insert cognitive test result %s: %w", r.ID, err)
	}
	return nil
}

// PendingCognitiveTestResults returns queued results, oldest first.
func (s *Store) PendingCognitiveTestResults() ([]*models.CognitiveTestResult, error) {
	rows, err := s.db.Query(`
		SELECT id, test_type, results, timestamp, local_time, sync
		FROM cognitive_test_results
		WHERE sync = 0
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query cognitive test results: %w", err)
	}
	defer rows.Close()

	var out []*models.CognitiveTestResult
	for rows.Next() {
		var r models.CognitiveTestResult
		var tt string
		if err := rows.Scan(&r.ID, &tt, &r.Result, &r.Timestamp, &r.LocalTime, &r.Sync); err != nil {
			return nil, fmt.Errorf("scan cognitive test result: %w", err)
		}
		r.TestType = models.CognitiveTestType(tt)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// MarkCognitiveTestResultsSynced flips the markers for confirmed ids.
func (s *Store) MarkCognitiveTestResultsSynced(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("mark cognitive results synced: %w", err)
	}
	for _, id := range ids {
		_, err := tx.Exec(`UPDATE cognitive_test_results SET sync = ? WHERE id = ?`, models.SyncConfirmed, id)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark cognitive result %s synced: %w", id, err)
		}
	}
	return tx.Commit()
}

// DeleteCognitiveTestResults drops rows the remote rejected as invalid.
func (s *Store) DeleteCognitiveTestResults(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete cognitive results: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM cognitive_test_results WHERE id = ?`, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete cognitive result %s: %w", id, err)
		}
	}
	return tx.Commit()
}
