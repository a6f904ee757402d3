// ABOUTME: Worker tests: partial rejection narrows the batch, two-phase
// ABOUTME: journal deletion, and fire-and-forget questionnaire pushes.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/sensing/internal/api"
	"github.com/harperreed/sensing/internal/models"
	"github.com/harperreed/sensing/internal/storage"
)

type noTokens struct{}

func (noTokens) AccessToken() string { return "" }

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rejectionBody(ids ...string) []byte {
	records := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		records = append(records, map[string]string{"id": id})
	}
	raw, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"statusCode": 400,
			"name":       "ValidationError",
			"details":    map[string]any{"invalidRecords": records},
		},
	})
	return raw
}

func TestJournalPartialRejectionNarrowsBatch(t *testing.T) {
	store := newTestStore(t)

	var entries []*models.JournalEntry
	for i := 0; i < 10; i++ {
		e := models.NewJournalEntry(fmt.Sprintf("note %d", i), "device-1", time.Now())
		require.NoError(t, store.InsertJournalEntry(e, nil))
		entries = append(entries, e)
	}
	rejected := []string{entries[1].ID, entries[4].ID, entries[7].ID}

	var mu sync.Mutex
	var batches [][]api.JournalEntryPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []api.JournalEntryPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		mu.Lock()
		batches = append(batches, batch)
		n := len(batches)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write(rejectionBody(rejected...))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	job := &JournalPushJob{
		Store:  store,
		Client: api.NewClient(srv.URL, "k", noTokens{}),
		Logger: log.Default(),
	}

	// First attempt: full batch of 10, server rejects 3, job asks to retry.
	assert.Equal(t, Retry, job.Run(context.Background()))
	// Second attempt: exactly the remaining 7.
	assert.Equal(t, Success, job.Run(context.Background()))

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 7)
	for _, p := range batches[1] {
		assert.NotContains(t, rejected, p.ID, "rejected ids must be excised")
	}

	pending, err := store.PendingJournalEntries()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWholeBatchRejectedReportsSuccessWithoutResubmission(t *testing.T) {
	store := newTestStore(t)
	a := models.NewJournalEntry("a", "d", time.Now())
	b := models.NewJournalEntry("b", "d", time.Now())
	require.NoError(t, store.InsertJournalEntry(a, nil))
	require.NoError(t, store.InsertJournalEntry(b, nil))

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write(rejectionBody(a.ID, b.ID))
	}))
	defer srv.Close()

	job := &JournalPushJob{Store: store, Client: api.NewClient(srv.URL, "k", noTokens{}), Logger: log.Default()}

	assert.Equal(t, Success, job.Run(context.Background()), "empty remainder is success, not retry")
	assert.Equal(t, 1, calls)

	// A further run finds nothing pending and makes no network call.
	assert.Equal(t, Success, job.Run(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestJournalDeleteTreats404AsConfirmed(t *testing.T) {
	store := newTestStore(t)
	e := models.NewJournalEntry("to delete", "d", time.Now())
	require.NoError(t, store.InsertJournalEntry(e, nil))
	require.NoError(t, store.SoftDeleteJournalEntry(e.ID))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"statusCode":404,"name":"NotFound"}}`))
	}))
	defer srv.Close()

	job := &JournalDeleteJob{Store: store, Client: api.NewClient(srv.URL, "k", noTokens{}), Logger: log.Default()}
	assert.Equal(t, Success, job.Run(context.Background()))

	got, err := store.JournalEntry(e.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "404 means already deleted; local row must be purged")
}

func TestJournalDeleteRetriesOnServerError(t *testing.T) {
	store := newTestStore(t)
	e := models.NewJournalEntry("to delete", "d", time.Now())
	require.NoError(t, store.InsertJournalEntry(e, nil))
	require.NoError(t, store.SoftDeleteJournalEntry(e.ID))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	job := &JournalDeleteJob{Store: store, Client: api.NewClient(srv.URL, "k", noTokens{}), Logger: log.Default()}
	assert.Equal(t, Retry, job.Run(context.Background()))

	got, err := store.JournalEntry(e.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "unconfirmed delete must keep the soft-deleted row")
	assert.Equal(t, 1, got.Deleted)
}

func TestQuestionnairePushDeletesRowOnSuccess(t *testing.T) {
	store := newTestStore(t)
	r := &models.QuestionnaireResponse{
		FullID: "c:q", CreatedAt: time.Now().UnixMilli(), Response: `{"q1":2}`,
	}
	require.NoError(t, store.InsertQuestionnaireResponse(r))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	job := &QuestionnaireJob{Store: store, Client: api.NewClient(srv.URL, "k", noTokens{}), Logger: log.Default()}
	assert.Equal(t, Success, job.Run(context.Background()))

	pending, err := store.PendingQuestionnaireResponses()
	require.NoError(t, err)
	assert.Empty(t, pending, "a confirmed push deletes the local row")
}

func TestQuestionnaireValidationRejectionDropsRow(t *testing.T) {
	store := newTestStore(t)
	r := &models.QuestionnaireResponse{FullID: "c:q", CreatedAt: 1, Response: `bad`}
	require.NoError(t, store.InsertQuestionnaireResponse(r))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	job := &QuestionnaireJob{Store: store, Client: api.NewClient(srv.URL, "k", noTokens{}), Logger: log.Default()}
	assert.Equal(t, Success, job.Run(context.Background()))

	pending, _ := store.PendingQuestionnaireResponses()
	assert.Empty(t, pending, "resubmitting invalid answers cannot succeed")
}

func TestCognitivePartialRejection(t *testing.T) {
	store := newTestStore(t)
	good, err := models.NewCognitiveTestResult(models.TestReactionTime,
		models.ReactionTimeResult{LatenciesMillis: []int64{210, 240}}, time.Now().UnixMilli(), "2023-11-15T09:00:00")
	require.NoError(t, err)
	bad, err := models.NewCognitiveTestResult(models.TestSpatialMemory,
		models.SpatialMemoryResult{GridSize: 5}, time.Now().UnixMilli(), "2023-11-15T09:05:00")
	require.NoError(t, err)
	require.NoError(t, store.InsertCognitiveTestResult(good))
	require.NoError(t, store.InsertCognitiveTestResult(bad))

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write(rejectionBody(bad.ID))
			return
		}
		var batch []api.CognitiveResultPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		require.Len(t, batch, 1)
		assert.Equal(t, good.ID, batch[0].ID)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	job := &CognitiveJob{Store: store, Client: api.NewClient(srv.URL, "k", noTokens{}), Logger: log.Default()}
	assert.Equal(t, Retry, job.Run(context.Background()))
	assert.Equal(t, Success, job.Run(context.Background()))

	pending, err := store.PendingCognitiveTestResults()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTapSessionPartialRejectionByStart(t *testing.T) {
	store := newTestStore(t)
	a := &models.TapSessionRecord{Taps: "[1]", Start: 1000, Stop: 1100, Orientations: "[]", AppIDs: "[]"}
	b := &models.TapSessionRecord{Taps: "[2]", Start: 2000, Stop: 2100, Orientations: "[]", AppIDs: "[]"}
	require.NoError(t, store.InsertTapSession(a))
	require.NoError(t, store.InsertTapSession(b))

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"statusCode":400,"name":"ValidationError","details":{"invalidRecords":[{"start":1000}]}}}`))
			return
		}
		var batch []api.TapSessionPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		require.Len(t, batch, 1)
		assert.EqualValues(t, 2000, batch[0].Start)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	job := &TapSessionJob{Store: store, Client: api.NewClient(srv.URL, "k", noTokens{}), Logger: log.Default()}
	assert.Equal(t, Retry, job.Run(context.Background()))
	assert.Equal(t, Success, job.Run(context.Background()))

	pending, err := store.PendingTapSessions(0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

type fakeRecorder struct {
	id    string
	saves int
}

func (r *fakeRecorder) ParticipationID() string      { return r.id }
func (r *fakeRecorder) SetParticipationID(id string) { r.id = id }
func (r *fakeRecorder) Save() error                  { r.saves++; return nil }

func TestParticipationRefreshRecordsIDOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": "part-9", "cohort": {"id": "cohort-1", "title": "Sleep Study", "canWithdraw": true}},
			{"id": "part-10", "cohort": {"id": "cohort-2", "title": "Typing Study"}}
		]`)
	}))
	defer srv.Close()

	store := newTestStore(t)
	recorder := &fakeRecorder{}
	job := &ParticipationRefreshJob{
		Store:  store,
		Client: api.NewClient(srv.URL, "k", noTokens{}),
		Logger: log.Default(), Creds: recorder, IdentityID: "identity-1",
	}

	require.Equal(t, Success, job.Run(context.Background()))
	assert.Equal(t, "part-9", recorder.id)
	assert.Equal(t, 1, recorder.saves)

	cohorts, err := store.Cohorts()
	require.NoError(t, err)
	assert.Len(t, cohorts, 2)

	// A second refresh never overwrites an already-recorded id.
	require.Equal(t, Success, job.Run(context.Background()))
	assert.Equal(t, "part-9", recorder.id)
	assert.Equal(t, 1, recorder.saves)
}
