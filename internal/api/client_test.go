// ABOUTME: Client tests: header injection, 401 repair-and-replay-once,
// ABOUTME: error envelope decoding and the missing-body contract.
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/sensing/internal/models"
)

type staticTokens struct{ token string }

func (s *staticTokens) AccessToken() string { return s.token }

type fakeRepairer struct {
	calls int32
	token string
	err   error
}

func (f *fakeRepairer) Repair(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.token, f.err
}

func TestClientSendsAPIKeyAndBearer(t *testing.T) {
	var gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sdk-key", &staticTokens{token: "tok-1"})
	_, err := c.Metrics(context.Background(), models.MetricSleepScore, "2023-11")
	require.NoError(t, err)
	assert.Equal(t, "sdk-key", gotKey)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClientRepairsAndReplaysOnce(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			require.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "stale"}
	c := NewClient(srv.URL, "k", tokens)
	repairer := &fakeRepairer{token: "fresh"}
	c.SetRepairer(repairer)

	_, err := c.Metrics(context.Background(), models.MetricSleepScore, "2023-11")
	require.NoError(t, err)
	assert.EqualValues(t, 1, repairer.calls)
	assert.EqualValues(t, 2, attempts)
}

func TestClientDoesNotLoopOnRepeated401(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", &staticTokens{token: "t"})
	c.SetRepairer(&fakeRepairer{token: "still-bad"})

	_, err := c.Metrics(context.Background(), models.MetricSleepScore, "2023-11")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err), "final 401 must surface, not loop: %v", err)
	assert.EqualValues(t, 2, attempts, "exactly one replay")
}

func TestDecodePartialRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"statusCode":400,"name":"ValidationError","message":"invalid records","details":{"invalidRecords":[{"id":"bad-1"},{"id":"bad-2"}]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", &staticTokens{})
	err := c.PushJournalEntries(context.Background(), []JournalEntryPayload{{ID: "bad-1"}})
	require.Error(t, err)

	apiErr := AsError(err)
	require.NotNil(t, apiErr)
	assert.True(t, apiErr.PartialRejection())
	require.Len(t, apiErr.Details.InvalidRecords, 2)
	assert.Equal(t, "bad-1", apiErr.Details.InvalidRecords[0].ID)
}

func TestMissingBodyIsContractViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // empty body
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", &staticTokens{})
	_, err := c.Login(context.Background(), "id", "pw")
	assert.ErrorIs(t, err, ErrMissingBody)
}

func TestConflictHelper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"statusCode":409,"name":"Conflict","message":"already registered"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", &staticTokens{})
	err := c.RegisterCredentials(context.Background(), "id", "pw")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
}
