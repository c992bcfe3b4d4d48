package web

import (
	"encoding/json"
	"helo/internal/back"
	"helo/internal/boltstore"
	"helo/internal/locker"
	"helo/internal/rating"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func createTestServer(t *testing.T) *httptest.Server {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "helo.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := NewServer(back.New(store, locker.NewMemory(), rating.Primary), "127.0.0.1:0")
	s.limiter = rate.NewLimiter(rate.Inf, 0)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string, dst interface{}) int {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	if dst != nil && res.StatusCode < 300 {
		require.NoError(t, json.Unmarshal(data, dst), string(data))
	}

	return res.StatusCode
}

func TestMatchLifecycle(t *testing.T) {
	ts := createTestServer(t)

	var stdb, first back.Entity
	assert.Equal(t, http.StatusCreated, do(t, ts, "POST", "/v1/entities", `{"Tag": "StDb"}`, &stdb))
	assert.Equal(t, http.StatusCreated, do(t, ts, "POST", "/v1/entities", `{"Tag": "91st"}`, &first))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, "POST", "/v1/entities", `{"Tag": "StDb"}`, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, "POST", "/v1/entities", `{`, nil))

	assert.Equal(t, http.StatusBadRequest, do(t, ts, "POST", "/v1/matches", `{
		"Reference": "bad", "Date": "2022-01-07T20:00:00Z",
		"Side1": ["StDb"], "Side2": ["91st"], "ObjectivePoints1": 2
	}`, nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, "POST", "/v1/matches", `{
		"Reference": "unknown", "Date": "2022-01-07T20:00:00Z",
		"Side1": ["StDb"], "Side2": ["nope"], "ObjectivePoints1": 5
	}`, nil))

	var m back.Match
	require.Equal(t, http.StatusCreated, do(t, ts, "POST", "/v1/matches", `{
		"Reference": "StDb-91.-2022-01-07", "Date": "2022-01-07T20:00:00Z", "Map": "Foy",
		"Side1": ["StDb"], "Side2": ["91st"], "ObjectivePoints1": 5
	}`, &m))
	path := "/v1/match/" + m.ID.String()

	assert.Equal(t, http.StatusConflict, do(t, ts, "POST", path+"/confirm", "", nil))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, "POST", path+"/confirm?side=1", "", nil))
	require.Equal(t, http.StatusOK, do(t, ts, "POST", path+"/confirm?side=1&by=alice", "", &m))
	assert.False(t, m.Posted)
	require.Equal(t, http.StatusOK, do(t, ts, "POST", path+"/confirm?side=2&by=bob", "", &m))
	assert.True(t, m.Posted)

	var board []back.Entity
	require.Equal(t, http.StatusOK, do(t, ts, "GET", "/v1/entities", "", &board))
	require.Len(t, board, 2)
	assert.Equal(t, "StDb", board[0].Tag)
	assert.Equal(t, 620, board[0].Rating)

	var got back.Entity
	require.Equal(t, http.StatusOK, do(t, ts, "GET", "/v1/entity/91st", "", &got))
	assert.Equal(t, 580, got.Rating)
	require.Equal(t, http.StatusOK, do(t, ts, "GET", "/v1/entity/"+first.ID.String(), "", &got))
	assert.Equal(t, "91st", got.Tag)

	var history []back.LedgerEntry
	require.Equal(t, http.StatusOK, do(t, ts, "GET", "/v1/entity/StDb/history", "", &history))
	require.Len(t, history, 1)
	assert.Equal(t, m.ID, history[0].MatchID)

	var stats back.Statistics
	require.Equal(t, http.StatusOK, do(t, ts, "GET", "/v1/entity/StDb/stats", "", &stats))
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1.0, stats.Winrate)
	assert.Equal(t, 1, stats.ResultTypes[0].Count)
	require.Equal(t, http.StatusOK, do(t, ts, "GET", "/v1/entity/StDb/stats?map=carentan", "", &stats))
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, http.StatusNotFound, do(t, ts, "GET", "/v1/entity/nope/stats", "", nil))

	require.Equal(t, http.StatusOK, do(t, ts, "PATCH", path, `{"ObjectivePoints1": 0, "ObjectivePoints2": 5}`, &m))
	assert.True(t, m.NeedsRecalculation)
	assert.Equal(t, "Foy", m.Map)
	assert.Equal(t, http.StatusBadRequest, do(t, ts, "PATCH", path, `{"ObjectivePoints1": 1}`, nil))

	var report struct{ Replayed int }
	require.Equal(t, http.StatusOK, do(t, ts, "POST", path+"/recalculate", "", &report))
	assert.Equal(t, 0, report.Replayed)

	require.Equal(t, http.StatusOK, do(t, ts, "GET", "/v1/entity/StDb", "", &got))
	assert.Equal(t, 580, got.Rating)
	require.Equal(t, http.StatusOK, do(t, ts, "GET", path, "", &m))
	assert.False(t, m.NeedsRecalculation)
}

func TestHistoryChart(t *testing.T) {
	ts := createTestServer(t)
	assert.Equal(t, http.StatusCreated, do(t, ts, "POST", "/v1/entities", `{"Tag": "StDb"}`, nil))

	res, err := ts.Client().Get(ts.URL + "/v1/entity/StDb/history.svg")
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/svg+xml", res.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "<svg")

	assert.Equal(t, http.StatusNotFound, do(t, ts, "GET", "/v1/entity/nope/history.svg", "", nil))
}

func TestSimulation(t *testing.T) {
	ts := createTestServer(t)
	for _, v := range []string{"StDb", "91st", "CoRe"} {
		require.Equal(t, http.StatusCreated, do(t, ts, "POST", "/v1/entities", `{"Tag": "`+v+`"}`, nil))
	}

	var sim back.Simulation
	require.Equal(t, http.StatusOK, do(t, ts, "GET", "/v1/simulate?side1=StDb&side2=91st,CoRe&points1=5&points2=0", "", &sim))
	assert.Equal(t, []int{620}, sim.Ratings1)
	assert.Equal(t, []int{590, 590}, sim.Ratings2)

	assert.Equal(t, http.StatusBadRequest, do(t, ts, "GET", "/v1/simulate?side1=StDb&side2=StDb&points1=5", "", nil))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, "GET", "/v1/simulate?side1=StDb&side2=91st&points1=x", "", nil))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, "GET", "/v1/simulate?side1=StDb&side2=91st&points1=5&factor=0.7", "", nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, "GET", "/v1/simulate?side1=StDb&side2=nope&points1=5", "", nil))
}

func TestErrorStatus(t *testing.T) {
	ts := createTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, ts, "GET", "/v1/match/not-an-id", "", nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, "GET", "/v1/match/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "", nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, "POST", "/v1/match/6ba7b810-9dad-11d1-80b4-00c04fd430c8/recalculate", "", nil))
	assert.Equal(t, http.StatusNoContent, do(t, ts, "GET", "/", "", nil))
}

func TestWriteRateLimit(t *testing.T) {
	s := NewServer(nil, "")
	s.limiter = rate.NewLimiter(rate.Every(1<<62), 1)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/match/not-an-id/recalculate", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
