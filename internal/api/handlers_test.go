package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/persistence/memory"
)

const scenarioBody = `[
	{"id": "X13210000Z", "occurred_at": "2021-04-16T08:05:35.941465", "track_id": "T123456", "status": "S", "amount": 10.54},
	{"id": "X13210001Z", "occurred_at": "2021-04-16T08:05:36.941465", "track_id": "T123456", "status": "A", "amount": 10.54},
	{"id": "X13210002Z", "occurred_at": "2021-04-16T08:05:37.941465", "track_id": "T123456", "status": "R", "amount": 0.54},
	{"id": "X13210003Z", "occurred_at": "2021-04-16T08:05:38.941465", "track_id": "T123456", "status": "S", "amount": 10.00},
	{"id": "X13210004Z", "occurred_at": "2021-04-16T08:05:39.941465", "track_id": "T123456", "status": "A", "amount": 10.54}
]`

func newTestServer(t *testing.T, maxBatchSize int) (*http.ServeMux, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	handler := NewHandler(domain.NewService(repo), maxBatchSize)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux, repo
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestIngestThenAggregate(t *testing.T) {
	mux, _ := newTestServer(t, 0)

	rr := do(mux, http.MethodPost, "/v1/activity/", scenarioBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created []ActivityView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Len(t, created, 5)

	rr = do(mux, http.MethodGet, "/v1/activity/T123456/", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp AggregateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, AggregateResponse{TrackID: "T123456", LastStatus: "A", Amount: "20.00"}, resp)
}

func TestIngestSingleObject(t *testing.T) {
	mux, repo := newTestServer(t, 0)

	body := `{"id": "X132110000Z", "occurred_at": "2021-04-16T10:14:16.435742", "track_id": "TRACK_ID_3", "status": "A", "amount": 30}`
	rr := do(mux, http.MethodPost, "/v1/activity/", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created []ActivityView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, []ActivityView{{
		ID:         "X132110000Z",
		OccurredAt: "2021-04-16T10:14:16.435742",
		TrackID:    "TRACK_ID_3",
		Status:     "A",
		Amount:     "30.00",
	}}, created)

	history, err := repo.FindByTrack(context.Background(), "TRACK_ID_3")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestIngestDuplicateInBatchKeepsLater(t *testing.T) {
	mux, repo := newTestServer(t, 0)

	body := `[
		{"id": "DUP", "occurred_at": "2021-04-16T10:14:16.1", "track_id": "T1", "status": "S", "amount": "1.00"},
		{"id": "DUP", "occurred_at": "2021-04-16T10:14:17.1", "track_id": "T1", "status": "S", "amount": "2.00"}
	]`
	rr := do(mux, http.MethodPost, "/v1/activity/", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	history, err := repo.FindByTrack(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "2.00", history[0].Amount)
}

func TestIngestMixedValidity(t *testing.T) {
	mux, _ := newTestServer(t, 0)

	body := `[
		{"id": "OK1", "occurred_at": "2021-04-16T10:14:16.1", "track_id": "T1", "status": "S", "amount": "1.00"},
		{"id": "BAD1", "occurred_at": "2021-04-16T10:14:16.1", "track_id": "T1", "status": "T", "amount": "1.00"}
	]`
	rr := do(mux, http.MethodPost, "/v1/activity/", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created []ActivityView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Len(t, created, 1)
	require.Equal(t, "OK1", created[0].ID)
}

func TestIngestAllKnownIsRejected(t *testing.T) {
	mux, _ := newTestServer(t, 0)
	require.Equal(t, http.StatusCreated, do(mux, http.MethodPost, "/v1/activity/", scenarioBody).Code)

	body := `[
		{"id": "X13210000Z", "occurred_at": "2021-04-16T09:14:16.435742", "track_id": "TRACK_ID_3", "status": "A", "amount": 30},
		{"id": "X13210001Z", "occurred_at": "2021-04-16T09:14:16.435742", "track_id": "TRACK_ID_3", "status": "A", "amount": 30}
	]`
	rr := do(mux, http.MethodPost, "/v1/activity/", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "Cannot store any activity", resp["message"])
}

func TestIngestRejectsMalformedBodies(t *testing.T) {
	mux, _ := newTestServer(t, 2)

	for name, body := range map[string]string{
		"not json":     `{`,
		"scalar":       `42`,
		"too many":     `[{}, {}, {}]`,
		"only garbage": `[1, "two"]`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := do(mux, http.MethodPost, "/v1/activity/", body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestAggregateUnknownTrack(t *testing.T) {
	mux, _ := newTestServer(t, 0)

	rr := do(mux, http.MethodGet, "/v1/activity/11/", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "Track ID 11 does not exist", resp["message"])
}

func TestAggregateCorruptAmount(t *testing.T) {
	mux, repo := newTestServer(t, 0)

	_, err := repo.InsertMany(context.Background(), []domain.Activity{{
		ID:         "CORRUPT",
		OccurredAt: time.Date(2021, time.April, 16, 8, 0, 0, 0, time.UTC),
		TrackID:    "BROKEN",
		Status:     domain.StatusSettled,
		Amount:     "abc",
	}})
	require.NoError(t, err)

	rr := do(mux, http.MethodGet, "/v1/activity/BROKEN/", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "Cannot calculate amount for BROKEN", resp["message"])
}

func TestHistoryPaginates(t *testing.T) {
	mux, _ := newTestServer(t, 0)
	require.Equal(t, http.StatusCreated, do(mux, http.MethodPost, "/v1/activity/", scenarioBody).Code)

	rr := do(mux, http.MethodGet, "/v1/activity/T123456/history?limit=3", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var page HistoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 3)
	require.Equal(t, "X13210004Z", page.Items[0].ID)
	require.NotEmpty(t, page.NextCursor)

	rr = do(mux, http.MethodGet, "/v1/activity/T123456/history?limit=3&cursor="+page.NextCursor, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var second HistoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	require.Len(t, second.Items, 2)
	require.Equal(t, "X13210000Z", second.Items[1].ID)
	require.Empty(t, second.NextCursor)
}

func TestHistoryRejectsInvalidCursor(t *testing.T) {
	mux, _ := newTestServer(t, 0)

	rr := do(mux, http.MethodGet, "/v1/activity/T1/history?cursor=%21%21", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnsupportedMethods(t *testing.T) {
	mux, _ := newTestServer(t, 0)

	require.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodGet, "/v1/activity/", "").Code)
	require.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodDelete, "/v1/activity/T1/", "").Code)
	require.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/v1/activity/T1/other", "").Code)
}
