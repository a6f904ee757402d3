// ABOUTME: Write endpoints the outbox workers submit through: journal CRUD,
// ABOUTME: questionnaire responses, cognitive results, telemetry batches.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/harperreed/sensing/internal/models"
)

// JournalEntryPayload is the wire shape of one journal entry with its
// event links inlined.
type JournalEntryPayload struct {
	ID       string                `json:"id"`
	Note     string                `json:"note"`
	DeviceID string                `json:"deviceId"`
	Created  int64                 `json:"created"`
	Modified int64                 `json:"modified"`
	OldID    string                `json:"oldId,omitempty"`
	Events   []JournalEventRating  `json:"events,omitempty"`
}

// JournalEventRating links an entry to an event kind on the wire.
type JournalEventRating struct {
	EventID string `json:"eventId"`
	Rating  int    `json:"rating"`
}

// PushJournalEntries submits a batch of entries. Partial rejections come
// back as an *Error whose Details name the invalid ids.
func (c *Client) PushJournalEntries(ctx context.Context, entries []JournalEntryPayload) error {
	return c.do(ctx, http.MethodPost, "/v1/journal/entries", entries, nil, requestOpts{})
}

// DeleteJournalEntry confirms an entry deletion remotely. A 404 means the
// entry never reached the server; callers treat it as success.
func (c *Client) DeleteJournalEntry(ctx context.Context, id string) error {
	path := fmt.Sprintf("/v1/journal/entries/%s", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, requestOpts{})
}

type journalEventDTO struct {
	ID         string `json:"id"`
	PublicName string `json:"publicName"`
	IconName   string `json:"iconName"`
	Created    string `json:"created"`
	Modified   string `json:"modified"`
}

// JournalEvents fetches the predefined event-kind catalog.
func (c *Client) JournalEvents(ctx context.Context) ([]*models.JournalEvent, error) {
	var dtos []journalEventDTO
	if err := c.do(ctx, http.MethodGet, "/v1/journal/events", nil, &dtos, requestOpts{}); err != nil {
		return nil, err
	}
	out := make([]*models.JournalEvent, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, &models.JournalEvent{
			ID: d.ID, PublicName: d.PublicName, IconName: d.IconName,
			CreatedAt: d.Created, ModifiedAt: d.Modified,
		})
	}
	return out, nil
}

// QuestionnaireResponsePayload is the wire shape of one completed
// questionnaire.
type QuestionnaireResponsePayload struct {
	FullID   string `json:"fullId"`
	Name     string `json:"name,omitempty"`
	Code     string `json:"code,omitempty"`
	Created  int64  `json:"created"`
	Response string `json:"response"`
}

// PushQuestionnaireResponse submits one completed questionnaire.
func (c *Client) PushQuestionnaireResponse(ctx context.Context, r QuestionnaireResponsePayload) error {
	return c.do(ctx, http.MethodPost, "/v1/questionnaires/responses", r, nil, requestOpts{})
}

// CognitiveResultPayload is the wire shape of one mini-game session.
type CognitiveResultPayload struct {
	ID        string `json:"id"`
	TestType  string `json:"testType"`
	Results   string `json:"results"`
	Timestamp int64  `json:"timestamp"`
	LocalTime string `json:"localTime"`
}

// PushCognitiveResults submits completed test sessions as a batch.
func (c *Client) PushCognitiveResults(ctx context.Context, results []CognitiveResultPayload) error {
	return c.do(ctx, http.MethodPost, "/v1/cognitive-tests", results, nil, requestOpts{})
}

// TapSessionPayload is the wire shape of one interaction session.
type TapSessionPayload struct {
	Taps         string `json:"taps"`
	Start        int64  `json:"start"`
	Stop         int64  `json:"stop"`
	Orientations string `json:"orientations"`
	AppIDs       string `json:"appIds"`
	TapsTotal    int64  `json:"tapsTotal"`
	Length       int64  `json:"length"`
	Timezone     string `json:"timezone"`
	InCharge     int    `json:"inCharge"`
}

// PushTapSessions submits a bounded batch of interaction sessions.
func (c *Client) PushTapSessions(ctx context.Context, sessions []TapSessionPayload) error {
	return c.do(ctx, http.MethodPost, "/v1/telemetry/taps", sessions, nil, requestOpts{})
}

// DeviceHealthPayload is the wire shape of one vitals batch.
type DeviceHealthPayload struct {
	Timestamps string `json:"timestamps"`
	Charge     string `json:"charge"`
	Events     string `json:"events"`
	Start      int64  `json:"start"`
	Stop       int64  `json:"stop"`
}

// PushDeviceHealth submits device vitals batches.
func (c *Client) PushDeviceHealth(ctx context.Context, batches []DeviceHealthPayload) error {
	return c.do(ctx, http.MethodPost, "/v1/telemetry/device-health", batches, nil, requestOpts{})
}

// ActivityTransitionPayload is the wire shape of one activity change.
type ActivityTransitionPayload struct {
	Timestamp  int64  `json:"timestamp"`
	Action     string `json:"action"`
	Transition string `json:"transition"`
}

// PushActivityTransitions submits detected activity changes.
func (c *Client) PushActivityTransitions(ctx context.Context, transitions []ActivityTransitionPayload) error {
	return c.do(ctx, http.MethodPost, "/v1/telemetry/activity", transitions, nil, requestOpts{})
}

// AppCodePayload maps an app name to its local numeric code.
type AppCodePayload struct {
	Code int64  `json:"code"`
	Name string `json:"name"`
}

// PushAppCodes submits new app-code catalog rows.
func (c *Client) PushAppCodes(ctx context.Context, codes []AppCodePayload) error {
	return c.do(ctx, http.MethodPost, "/v1/telemetry/app-codes", codes, nil, requestOpts{})
}

// HourlyStatsPayload is one day's per-hour typing aggregate.
type HourlyStatsPayload struct {
	Date   string          `json:"date"`
	Hours  map[int]int64   `json:"hours"`
	Speeds map[int]float64 `json:"speeds"`
}

// PushHourlyStats submits per-hour tap aggregates for one local date.
func (c *Client) PushHourlyStats(ctx context.Context, stats HourlyStatsPayload) error {
	return c.do(ctx, http.MethodPost, "/v1/telemetry/hourly-stats", stats, nil, requestOpts{})
}
