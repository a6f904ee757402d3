// ABOUTME: Outbox jobs for user-authored records: journal pushes, two-phase
// ABOUTME: journal deletes, questionnaire responses, cognitive results.
package outbox

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/harperreed/sensing/internal/api"
	"github.com/harperreed/sensing/internal/storage"
)

// classify maps a push error to a job result. Server-side and transport
// failures retry; contract violations and validation errors cannot be
// fixed by retrying.
func classify(err error) Result {
	if err == nil {
		return Success
	}
	if errors.Is(err, api.ErrMissingBody) {
		return Failure
	}
	if apiErr := api.AsError(err); apiErr != nil {
		switch {
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return Retry
		case apiErr.StatusCode == http.StatusUnauthorized,
			apiErr.StatusCode == http.StatusForbidden,
			apiErr.StatusCode == http.StatusTooManyRequests:
			// The session may repair itself before the next attempt.
			return Retry
		default:
			return Failure
		}
	}
	// Transport error: connectivity comes and goes.
	return Retry
}

// JournalPushJob pushes pending live journal entries as one batch. Invalid
// entries named by a partial rejection are purged locally so the next
// attempt resubmits exactly the remainder.
type JournalPushJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *JournalPushJob) Key() string { return "journal-push" }

func (j *JournalPushJob) Run(ctx context.Context) Result {
	pending, err := j.Store.PendingJournalEntries()
	if err != nil {
		j.Logger.Error("read pending journal entries", "err", err)
		return Retry
	}
	if len(pending) == 0 {
		return Success
	}

	payloads := make([]api.JournalEntryPayload, 0, len(pending))
	for _, e := range pending {
		events, err := j.Store.EventsForEntry(e.ID)
		if err != nil {
			j.Logger.Error("read entry events", "entry", e.ID, "err", err)
			return Retry
		}
		p := api.JournalEntryPayload{
			ID: e.ID, Note: e.Note, DeviceID: e.DeviceID,
			Created: e.CreatedAt, Modified: e.ModifiedAt, OldID: e.OldID,
		}
		for _, ev := range events {
			p.Events = append(p.Events, api.JournalEventRating{EventID: ev.EventID, Rating: ev.Rating})
		}
		payloads = append(payloads, p)
	}

	err = j.Client.PushJournalEntries(ctx, payloads)
	if apiErr := api.AsError(err); apiErr != nil && apiErr.PartialRejection() {
		rejected := make(map[string]bool, len(apiErr.Details.InvalidRecords))
		for _, rec := range apiErr.Details.InvalidRecords {
			rejected[rec.ID] = true
			if purgeErr := j.Store.PurgeJournalEntry(rec.ID); purgeErr != nil {
				j.Logger.Error("purge rejected entry", "entry", rec.ID, "err", purgeErr)
				return Retry
			}
			j.Logger.Warn("server rejected journal entry, dropped locally", "entry", rec.ID)
		}
		remaining := 0
		for _, e := range pending {
			if !rejected[e.ID] {
				remaining++
			}
		}
		if remaining == 0 {
			return Success
		}
		return Retry
	}
	if result := classify(err); result != Success {
		return result
	}

	for _, e := range pending {
		if err := j.Store.MarkJournalEntrySynced(e.ID); err != nil {
			j.Logger.Error("mark entry synced", "entry", e.ID, "err", err)
			return Retry
		}
	}
	return Success
}

// JournalDeleteJob is the second phase of a journal deletion: confirm each
// soft-deleted entry remotely, then purge the local row. A 404 means the
// entry never reached the server, which is the same outcome.
type JournalDeleteJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *JournalDeleteJob) Key() string { return "journal-delete" }

func (j *JournalDeleteJob) Run(ctx context.Context) Result {
	pending, err := j.Store.PendingJournalDeletes()
	if err != nil {
		j.Logger.Error("read pending journal deletes", "err", err)
		return Retry
	}

	result := Success
	for _, e := range pending {
		err := j.Client.DeleteJournalEntry(ctx, e.ID)
		if err != nil && !api.IsNotFound(err) {
			if r := classify(err); r != Success {
				j.Logger.Warn("delete confirmation failed", "entry", e.ID, "err", err)
				if r == Retry {
					result = Retry
				}
				continue
			}
		}
		if err := j.Store.PurgeJournalEntry(e.ID); err != nil {
			j.Logger.Error("purge confirmed delete", "entry", e.ID, "err", err)
			result = Retry
		}
	}
	return result
}

// JournalEventsRefreshJob refreshes the cached event-kind catalog.
type JournalEventsRefreshJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *JournalEventsRefreshJob) Key() string { return "journal-events-refresh" }

func (j *JournalEventsRefreshJob) Run(ctx context.Context) Result {
	events, err := j.Client.JournalEvents(ctx)
	if result := classify(err); result != Success {
		return result
	}
	if err := j.Store.ReplaceJournalEvents(events); err != nil {
		j.Logger.Error("replace journal events", "err", err)
		return Retry
	}
	return Success
}

// QuestionnaireJob pushes queued responses one by one. A confirmed push
// deletes the local row; a validation rejection also deletes it, since
// resubmitting the same answers cannot succeed.
type QuestionnaireJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *QuestionnaireJob) Key() string { return "questionnaire-push" }

func (j *QuestionnaireJob) Run(ctx context.Context) Result {
	pending, err := j.Store.PendingQuestionnaireResponses()
	if err != nil {
		j.Logger.Error("read pending responses", "err", err)
		return Retry
	}

	result := Success
	for _, r := range pending {
		err := j.Client.PushQuestionnaireResponse(ctx, api.QuestionnaireResponsePayload{
			FullID: r.FullID, Name: r.Name, Code: r.Code,
			Created: r.CreatedAt, Response: r.Response,
		})
		switch classify(err) {
		case Success:
			if err := j.Store.DeleteQuestionnaireResponse(r.ID); err != nil {
				j.Logger.Error("delete pushed response", "id", r.ID, "err", err)
				result = Retry
			}
		case Failure:
			j.Logger.Warn("server rejected response, dropping", "id", r.ID, "err", err)
			if err := j.Store.DeleteQuestionnaireResponse(r.ID); err != nil {
				result = Retry
			}
		case Retry:
			result = Retry
		}
	}
	return result
}

// CognitiveJob pushes completed mini-game sessions as one batch with
// partial-rejection excision by id.
type CognitiveJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *CognitiveJob) Key() string { return "cognitive-push" }

func (j *CognitiveJob) Run(ctx context.Context) Result {
	pending, err := j.Store.PendingCognitiveTestResults()
	if err != nil {
		j.Logger.Error("read pending cognitive results", "err", err)
		return Retry
	}
	if len(pending) == 0 {
		return Success
	}

	payloads := make([]api.CognitiveResultPayload, 0, len(pending))
	for _, r := range pending {
		payloads = append(payloads, api.CognitiveResultPayload{
			ID: r.ID, TestType: string(r.TestType), Results: r.Result,
			Timestamp: r.Timestamp, LocalTime: r.LocalTime,
		})
	}

	err = j.Client.PushCognitiveResults(ctx, payloads)
	if apiErr := api.AsError(err); apiErr != nil && apiErr.PartialRejection() {
		var invalid []string
		for _, rec := range apiErr.Details.InvalidRecords {
			invalid = append(invalid, rec.ID)
		}
		if err := j.Store.DeleteCognitiveTestResults(invalid); err != nil {
			j.Logger.Error("drop rejected cognitive results", "err", err)
			return Retry
		}
		j.Logger.Warn("server rejected cognitive results, dropped locally", "count", len(invalid))
		if len(invalid) >= len(pending) {
			return Success
		}
		return Retry
	}
	if result := classify(err); result != Success {
		return result
	}

	ids := make([]string, 0, len(pending))
	for _, r := range pending {
		ids = append(ids, r.ID)
	}
	if err := j.Store.MarkCognitiveTestResultsSynced(ids); err != nil {
		j.Logger.Error("mark cognitive results synced", "err", err)
		return Retry
	}
	return Success
}
