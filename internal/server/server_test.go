package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/cache"
	"github.com/lexdesk/deadline-alerts/internal/model"
	"github.com/lexdesk/deadline-alerts/internal/publications"
	"github.com/lexdesk/deadline-alerts/internal/ratelimit"
	"github.com/lexdesk/deadline-alerts/internal/store"
	"github.com/lexdesk/deadline-alerts/tests/testutil"
)

type fakeSearcher struct {
	calls int
	fail  bool
}

func (f *fakeSearcher) Search(_ context.Context, _ string) (publications.SearchResult, error) {
	f.calls++
	if f.fail {
		return publications.SearchResult{}, assert.AnError
	}
	return publications.SearchResult{Success: true, PublicationsFound: 2}, nil
}

type fixture struct {
	store    *store.SQLiteStore
	searcher *fakeSearcher
	handler  http.Handler
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()

	s := testutil.NewTestStore(t)
	searcher := &fakeSearcher{}
	limiter := ratelimit.NewSlidingWindow(limit, time.Hour)
	pubs := publications.NewService(searcher, limiter, zap.NewNop())
	c := cache.New(cache.NewMemoryStore(), time.Minute, nil)

	srv := New(s, c, pubs, nil, zap.NewNop())
	return &fixture{store: s, searcher: searcher, handler: srv.Router()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func TestRefreshPublications(t *testing.T) {
	f := newFixture(t, 5)

	w := f.do(t, http.MethodPost, "/api/publications/refresh",
		`{"user_id":"user-1","process_number":"0001234-56.2026.8.26.0100"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result publications.RefreshResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.True(t, result.Allowed)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.PublicationsFound)
	assert.Equal(t, 1, f.searcher.calls)
}

func TestRefreshPublicationsRateLimited(t *testing.T) {
	f := newFixture(t, 2)
	body := `{"user_id":"user-1","process_number":"0001234-56.2026.8.26.0100"}`

	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodPost, "/api/publications/refresh", body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/publications/refresh", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var result publications.RefreshResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.False(t, result.Allowed)
	assert.False(t, result.RetryAfter.IsZero())

	// The denied request never reached the external searcher.
	assert.Equal(t, 2, f.searcher.calls)
}

func TestRefreshPublicationsBadRequest(t *testing.T) {
	f := newFixture(t, 5)

	w := f.do(t, http.MethodPost, "/api/publications/refresh", `{"user_id":"user-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/publications/refresh", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.searcher.calls)
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertUser(ctx, "user-1", "Ana", "ana@example.com"))
	due := time.Now().Add(48 * time.Hour)
	for _, id := range []string{"dl-1", "dl-2"} {
		require.NoError(t, f.store.CreateDeadline(ctx, model.Deadline{
			ID: id, UserID: "user-1", Title: "appeal " + id, DueAt: due,
			Status: model.DeadlineStatusPending,
		}))
	}

	w := f.do(t, http.MethodGet, "/api/dashboard/summary?user_id=user-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var counts map[string]int
	require.NoError(t, json.NewDecoder(w.Body).Decode(&counts))
	assert.Equal(t, 2, counts[model.DeadlineStatusPending])

	// A third deadline created after the first read is invisible until
	// the cached entry expires or is invalidated.
	require.NoError(t, f.store.CreateDeadline(ctx, model.Deadline{
		ID: "dl-3", UserID: "user-1", Title: "appeal dl-3", DueAt: due,
		Status: model.DeadlineStatusPending,
	}))

	w = f.do(t, http.MethodGet, "/api/dashboard/summary?user_id=user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	counts = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&counts))
	assert.Equal(t, 2, counts[model.DeadlineStatusPending])
}

func TestDashboardSummaryRequiresUser(t *testing.T) {
	f := newFixture(t, 5)

	w := f.do(t, http.MethodGet, "/api/dashboard/summary", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndReadNotifications(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertUser(ctx, "user-1", "Ana", "ana@example.com"))
	now := time.Now().UTC()
	res, err := f.store.InsertNotificationIfAbsent(ctx, model.NotificationRecord{
		UserID:     "user-1",
		Channel:    model.ChannelInApp,
		DeadlineID: "dl-1",
		DedupeKey:  "deadline:dl-1:DUE_TODAY",
		Status:     model.NotificationStatusSent,
		Severity:   "danger",
		Title:      "Deadline due today",
		SentAt:     &now,
	})
	require.NoError(t, err)
	require.True(t, res.Created)

	w := f.do(t, http.MethodGet, "/api/notifications?user_id=user-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var records []model.NotificationRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "Deadline due today", records[0].Title)

	w = f.do(t, http.MethodPost, "/api/notifications/"+records[0].ID+"/read", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/notifications?user_id=user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	records = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	assert.Empty(t, records)
}

func TestAcknowledgeDeadline(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertUser(ctx, "user-1", "Ana", "ana@example.com"))
	require.NoError(t, f.store.CreateDeadline(ctx, model.Deadline{
		ID: "dl-1", UserID: "user-1", Title: "appeal", DueAt: time.Now().Add(time.Hour),
		Status: model.DeadlineStatusPending,
	}))

	// Warm the dashboard cache, then acknowledge; the ack must drop the
	// cached entry so the summary reflects fresh state.
	w := f.do(t, http.MethodGet, "/api/dashboard/summary?user_id=user-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/deadlines/dl-1/acknowledge", `{"user_id":"user-1"}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	d, err := f.store.GetDeadlineByID(ctx, "dl-1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.NotNil(t, d.AcknowledgedAt)
}

func TestAcknowledgeDeadlineWrongOwner(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertUser(ctx, "user-1", "Ana", "ana@example.com"))
	require.NoError(t, f.store.CreateDeadline(ctx, model.Deadline{
		ID: "dl-1", UserID: "user-1", Title: "appeal", DueAt: time.Now().Add(time.Hour),
		Status: model.DeadlineStatusPending,
	}))

	w := f.do(t, http.MethodPost, "/api/deadlines/dl-1/acknowledge", `{"user_id":"user-2"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerAlertPassWithoutRunner(t *testing.T) {
	f := newFixture(t, 5)

	w := f.do(t, http.MethodPost, "/api/jobs/alert-pass", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
