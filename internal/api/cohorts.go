// ABOUTME: Cohort endpoints: participations, enrollment, withdrawal and
// ABOUTME: the per-cohort questionnaire catalog.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/harperreed/sensing/internal/models"
)

type cohortDTO struct {
	ID                  string `json:"id"`
	PrivacyPolicy       string `json:"privacyPolicy"`
	Title               string `json:"title"`
	DataPattern         string `json:"dataPattern"`
	GPSResolution       int    `json:"gpsResolution"`
	CanWithdraw         bool   `json:"canWithdraw"`
	SyncOnScreenOff     bool   `json:"syncOnScreenOff"`
	PerimeterCheck      bool   `json:"perimeterCheck"`
	PermAppID           bool   `json:"permAppId"`
	PermDrawOver        bool   `json:"permDrawOver"`
	PermLocation        bool   `json:"permLocation"`
	PermContact         bool   `json:"permContact"`
	EnableCognitiveTest bool   `json:"enableCognitiveTest"`
}

func (d cohortDTO) toModel() *models.Cohort {
	return &models.Cohort{
		ID:                  d.ID,
		PrivacyPolicy:       d.PrivacyPolicy,
		Title:               d.Title,
		DataPattern:         d.DataPattern,
		GPSResolution:       d.GPSResolution,
		CanWithdraw:         d.CanWithdraw,
		SyncOnScreenOff:     d.SyncOnScreenOff,
		PerimeterCheck:      d.PerimeterCheck,
		PermAppID:           d.PermAppID,
		PermDrawOver:        d.PermDrawOver,
		PermLocation:        d.PermLocation,
		PermContact:         d.PermContact,
		EnableCognitiveTest: d.EnableCognitiveTest,
	}
}

type participationDTO struct {
	ID     string    `json:"id"`
	Cohort cohortDTO `json:"cohort"`
}

// Participations returns the identity's enrollment records, each carrying
// the server-side participation id and the cohort definition.
func (c *Client) Participations(ctx context.Context, identityID string) ([]*models.Participation, error) {
	path := fmt.Sprintf("/v1/identities/%s/participations", identityID)
	var dtos []participationDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &dtos, requestOpts{}); err != nil {
		return nil, err
	}
	out := make([]*models.Participation, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, &models.Participation{ID: d.ID, Cohort: d.Cohort.toModel()})
	}
	return out, nil
}

// Cohort fetches one cohort's definition.
func (c *Client) Cohort(ctx context.Context, cohortID string) (*models.Cohort, error) {
	path := fmt.Sprintf("/v1/cohorts/%s", cohortID)
	var dto cohortDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &dto, requestOpts{}); err != nil {
		return nil, err
	}
	return dto.toModel(), nil
}

// SignUp enrolls the identity in a cohort. 409 means already enrolled and
// callers treat it as success.
func (c *Client) SignUp(ctx context.Context, cohortID, identityID string) (*models.Cohort, error) {
	path := fmt.Sprintf("/v1/cohorts/%s/participants", cohortID)
	body := map[string]string{"identityId": identityID}
	var dto cohortDTO
	if err := c.do(ctx, http.MethodPost, path, body, &dto, requestOpts{}); err != nil {
		return nil, err
	}
	return dto.toModel(), nil
}

// Withdraw leaves a cohort. A 404 means the enrollment was already gone.
func (c *Client) Withdraw(ctx context.Context, cohortID, identityID string) error {
	path := fmt.Sprintf("/v1/cohorts/%s/participants/%s", cohortID, identityID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, requestOpts{})
}

type questionnaireDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Code              string `json:"code"`
	Body              string `json:"body"`
	CompletionMinutes int    `json:"completionMinutes"`
}

// Questionnaires fetches a cohort's questionnaire catalog. IDs come back
// scoped to the cohort with the composite fullID.
func (c *Client) Questionnaires(ctx context.Context, cohortID string) ([]*models.Questionnaire, error) {
	path := fmt.Sprintf("/v1/cohorts/%s/questionnaires", cohortID)
	var dtos []questionnaireDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &dtos, requestOpts{}); err != nil {
		return nil, err
	}
	out := make([]*models.Questionnaire, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, &models.Questionnaire{
			ID:                models.QuestionnaireFullID(cohortID, d.ID),
			Name:              d.Name,
			Description:       d.Description,
			Code:              d.Code,
			CohortID:          cohortID,
			Body:              d.Body,
			CompletionMinutes: d.CompletionMinutes,
		})
	}
	return out, nil
}
