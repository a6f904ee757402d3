// ABOUTME: Cohort cache CRUD.
// ABOUTME: Cohorts are written on enrollment and participation refresh.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/harperreed/sensing/internal/models"
)

// UpsertCohort caches a cohort the device enrolled in or refreshed.
func (s *Store) UpsertCohort(c *models.Cohort) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO cohorts
			(id, privacy_policy, title, data_pattern, gps_resolution, can_withdraw,
			 sync_on_screen_off, perimeter_check, perm_app_id, perm_draw_over,
			 perm_location, perm_contact, enable_cognitive_test)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.PrivacyPolicy, c.Title, c.DataPattern, c.GPSResolution, boolToInt(c.CanWithdraw),
		boolToInt(c.SyncOnScreenOff), boolToInt(c.PerimeterCheck), boolToInt(c.PermAppID),
		boolToInt(c.PermDrawOver), boolToInt(c.PermLocation), boolToInt(c.PermContact),
		boolToInt(c.EnableCognitiveTest))
	if err != nil {
		return fmt.Errorf("upsert cohort %s: %w", c.ID, err)
	}
	return nil
}

// Cohort returns one cached cohort by id, or nil when absent.
func (s *Store) Cohort(id string) (*models.Cohort, error) {
	row := s.db.QueryRow(`
		SELECT id, privacy_policy, title, data_pattern, gps_resolution, can_withdraw,
		       sync_on_screen_off, perimeter_check, perm_app_id, perm_draw_over,
		       perm_location, perm_contact, enable_cognitive_test
		FROM cohorts WHERE id = ?
	`, id)
	c, err := scanCohort(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cohort %s: %w", id, err)
	}
	return c, nil
}

// Cohorts returns every cached cohort.
func (s *Store) Cohorts() ([]*models.Cohort, error) {
	rows, err := s.db.Query(`
		SELECT id, privacy_policy, title, data_pattern, gps_resolution, can_withdraw,
		       sync_on_screen_off, perimeter_check, perm_app_id, perm_draw_over,
		       perm_location, perm_contact, enable_cognitive_test
		FROM cohorts ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("query cohorts: %w", err)
	}
	defer rows.Close()

	var out []*models.Cohort
	for rows.Next() {
		c, err := scanCohort(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan cohort: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCohort removes a cohort after withdrawal, along with its cached
// questionnaire catalog.
func (s *Store) DeleteCohort(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete cohort: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM questionnaires WHERE cohort_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete cohort %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM cohorts WHERE id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete cohort %s: %w", id, err)
	}
	return tx.Commit()
}

func scanCohort(scan func(...any) error) (*models.Cohort, error) {
	var c models.Cohort
	var privacy, title, pattern sql.NullString
	var canWithdraw, screenOff, perimeter, appID, drawOver, location, contact, cogTest sql.NullInt64
	err := scan(&c.ID, &privacy, &title, &pattern, &c.GPSResolution, &canWithdraw,
		&screenOff, &perimeter, &appID, &drawOver, &location, &contact, &cogTest)
	if err != nil {
		return nil, err
	}
	c.PrivacyPolicy = privacy.String
	c.Title = title.String
	c.DataPattern = pattern.String
	c.CanWithdraw = canWithdraw.Int64 != 0
	c.SyncOnScreenOff = screenOff.Int64 != 0
	c.PerimeterCheck = perimeter.Int64 != 0
	c.PermAppID = appID.Int64 != 0
	c.PermDrawOver = drawOver.Int64 != 0
	c.PermLocation = location.Int64 != 0
	c.PermContact = contact.Int64 != 0
	c.EnableCognitiveTest = cogTest.Int64 != 0
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
