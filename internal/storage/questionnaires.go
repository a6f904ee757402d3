// ABOUTME: Questionnaire catalog and pending-response CRUD.
// ABOUTME: Responses are rows-until-pushed: confirmed pushes delete them.
package storage

import (
	"fmt"

	"github.com/harperreed/sensing/internal/models"
)

// ReplaceQuestionnaires swaps the cached catalog for one cohort. Catalogs
// from other cohorts are untouched.
func (s *Store) ReplaceQuestionnaires(cohortID string, qs []*models.Questionnaire) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace questionnaires: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM questionnaires WHERE cohort_id = ?`, cohortID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("replace questionnaires: %w", err)
	}
	for _, q := range qs {
		_, err := tx.Exec(`
			INSERT INTO questionnaires (id, name, description, code, cohort_id, body, completion_minutes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, q.ID, q.Name, q.Description, q.Code, q.CohortID, q.Body, q.CompletionMinutes)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert questionnaire %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// Questionnaires returns the cached catalog across all cohorts.
func (s *Store) Questionnaires() ([]*models.Questionnaire, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, code, cohort_id, body, completion_minutes
		FROM questionnaires ORDER BY cohort_id, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query questionnaires: %w", err)
	}
	defer rows.Close()

	var out []*models.Questionnaire
	for rows.Next() {
		var q models.Questionnaire
		err := rows.Scan(&q.ID, &q.Name, &q.Description, &q.Code, &q.CohortID, &q.Body, &q.CompletionMinutes)
		if err != nil {
			return nil, fmt.Errorf("scan questionnaire: %w", err)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

// InsertQuestionnaireResponse queues a completed response for push.
func (s *Store) InsertQuestionnaireResponse(r *models.QuestionnaireResponse) error {
	res, err := s.db.Exec(`
		INSERT INTO questionnaire_responses (full_id, name, code, created, response)
		VALUES (?, ?, ?, ?, ?)
	`, r.FullID, r.Name, r.Code, r.CreatedAt, r.Response)
	if err != nil {
		return fmt.Errorf("insert questionnaire response: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// PendingQuestionnaireResponses returns all queued responses, oldest first.
func (s *Store) PendingQuestionnaireResponses() ([]*models.QuestionnaireResponse, error) {
	rows, err := s.db.Query(`
		SELECT id, full_id, name, code, created, response
		FROM questionnaire_responses ORDER BY created ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query questionnaire responses: %w", err)
	}
	defer rows.Close()

	var out []*models.QuestionnaireResponse
	for rows.Next() {
		var r models.QuestionnaireResponse
		if err := rows.Scan(&r.ID, &r.FullID, &r.Name, &r.Code, &r.CreatedAt, &r.Response); err != nil {
			return nil, fmt.Errorf("scan questionnaire response: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// DeleteQuestionnaireResponse removes a response after a confirmed push.
func (s *Store) DeleteQuestionnaireResponse(id int64) error {
	_, err := s.db.Exec(`DELETE FROM questionnaire_responses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete questionnaire response %d: %w", id, err)
	}
	return nil
}
