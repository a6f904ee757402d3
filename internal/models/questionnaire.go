// ABOUTME: Questionnaire catalog and response models.
// ABOUTME: Responses are fire-and-forget: deleted locally once pushed.
package models

import "fmt"

// Questionnaire is one questionnaire definition cached from a cohort.
type Questionnaire struct {
	ID          string // fullID, studyID:questionnaireID
	Name        string
	Description string
	Code        string
	CohortID    string
	Body        string // question definitions, opaque JSON

	// CompletionMinutes is the server's estimate of how long the
	// questionnaire takes, for display before starting it.
	CompletionMinutes int
}

// QuestionnaireFullID builds the composite id used by the remote service.
func QuestionnaireFullID(cohortID, questionnaireID string) string {
	return fmt.Sprintf("%s:%s", cohortID, questionnaireID)
}

// QuestionnaireResponse is a completed questionnaire awaiting push. The row
// itself is the pending marker: it exists locally only until the outbox
// confirms delivery, then it is deleted (no soft-delete, no sync flag).
type QuestionnaireResponse struct {
	ID        int64 // local autoincrement
	FullID    string
	Name      string
	Code      string
	CreatedAt int64  // unix millis
	Response  string // answers, opaque JSON
}
