package devserver_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayoisaiah/codetime/internal/config"
	"github.com/ayoisaiah/codetime/internal/devserver"
	"github.com/ayoisaiah/codetime/internal/logging"
	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/remote"
)

const apiKey = "dev-key"

func newDB(t *testing.T) *devserver.DB {
	t.Helper()

	db, err := devserver.OpenDB(filepath.Join(t.TempDir(), "aggregator.sqlite"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func newServer(t *testing.T, db *devserver.DB) *httptest.Server {
	t.Helper()

	srv := devserver.New(db, devserver.Options{
		Logger: logging.Discard(),
		APIKey: apiKey,
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	return ts
}

func day(d string, focused, total int64, langs map[string]int64) models.DayDelta {
	return models.DayDelta{
		Day:               d,
		Source:            "vscode",
		FocusedSeconds:    focused,
		TotalSeconds:      total,
		LanguageBreakdown: langs,
	}
}

func TestPushAccumulates(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)

	p := &models.Payload{
		Username: "alice",
		Data: []models.DayDelta{
			day("2024-01-01", 100, 120, map[string]int64{"go": 80, "sql": 20, "md": 0}),
		},
	}

	first, err := db.Push(ctx, p)
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.Equal(t, 1, first.Processed.DailyTotals)
	assert.Equal(t, 2, first.Processed.LanguageTotals)

	_, err = uuid.Parse(first.UUID)
	require.NoError(t, err)

	second, err := db.Push(ctx, p)
	require.NoError(t, err)

	// the identity is stable across pushes
	assert.Equal(t, first.UUID, second.UUID)

	page, err := db.History(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(200), page.Data[0].FocusedSeconds)
	assert.Equal(t, int64(240), page.Data[0].TotalSeconds)

	langs, err := db.Languages(ctx, "alice", "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []devserver.LanguageTotal{
		{Language: "go", FocusedSeconds: 160},
		{Language: "sql", FocusedSeconds: 40},
	}, langs)
}

func TestHistoryPagination(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)

	p := &models.Payload{Username: "bob"}

	for i := 1; i <= 10; i++ {
		p.Data = append(p.Data, day(fmt.Sprintf("2024-01-%02d", i), int64(i), int64(i), nil))
	}

	_, err := db.Push(ctx, p)
	require.NoError(t, err)

	page, err := db.History(ctx, "bob", 1)
	require.NoError(t, err)
	assert.Len(t, page.Data, 7)
	assert.Equal(t, "2024-01-10", page.Data[0].Day)
	assert.Equal(t, devserver.PageMeta{Total: 10, Page: 1, TotalPages: 2}, page.Meta)

	page, err = db.History(ctx, "bob", 2)
	require.NoError(t, err)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, "2024-01-01", page.Data[2].Day)

	_, err = db.History(ctx, "nobody", 1)
	assert.Error(t, err)
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)

	pushes := map[string][]models.DayDelta{
		"alice": {day("2024-01-01", 100, 100, nil), day("2024-01-02", 50, 60, nil)},
		"bob":   {day("2024-01-01", 300, 310, nil)},
		"carol": {day("2024-01-02", 120, 130, nil), day("2023-12-01", 999, 999, nil)},
	}

	for username, data := range pushes {
		_, err := db.Push(ctx, &models.Payload{Username: username, Data: data})
		require.NoError(t, err)
	}

	board, err := db.Leaderboard(ctx, "2024-01-01", "2024-01-07", 10)
	require.NoError(t, err)

	assert.Equal(t, []devserver.LeaderboardEntry{
		{Username: "bob", FocusedSeconds: 300, TotalSeconds: 310, Rank: 1},
		{Username: "alice", FocusedSeconds: 150, TotalSeconds: 160, Rank: 2},
		{Username: "carol", FocusedSeconds: 120, TotalSeconds: 130, Rank: 3},
	}, board)

	board, err = db.Leaderboard(ctx, "2024-01-01", "2024-01-07", 1)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "bob", board[0].Username)
}

func post(t *testing.T, ts *httptest.Server, key, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, ts.URL+devserver.PushPath, strings.NewReader(body))
	require.NoError(t, err)

	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = res.Body.Close()
	})

	return res
}

func TestPushEndpointRejects(t *testing.T) {
	ts := newServer(t, newDB(t))

	testCases := []struct {
		name string
		key  string
		body string
		code int
	}{
		{
			name: "missing key",
			body: `{"username":"alice","data":[]}`,
			code: http.StatusUnauthorized,
		},
		{
			name: "wrong key",
			key:  "nope",
			body: `{"username":"alice","data":[]}`,
			code: http.StatusUnauthorized,
		},
		{
			name: "missing username",
			key:  apiKey,
			body: `{"data":[]}`,
			code: http.StatusBadRequest,
		},
		{
			name: "bad day",
			key:  apiKey,
			body: `{"username":"alice","data":[{"day":"01/02/2024","focusedSeconds":1,"totalSeconds":1}]}`,
			code: http.StatusBadRequest,
		},
		{
			name: "negative seconds",
			key:  apiKey,
			body: `{"username":"alice","data":[{"day":"2024-01-02","focusedSeconds":-1,"totalSeconds":1}]}`,
			code: http.StatusBadRequest,
		},
		{
			name: "negative language seconds",
			key:  apiKey,
			body: `{"username":"alice","data":[{"day":"2024-01-02","focusedSeconds":1,"totalSeconds":1,"languageBreakdown":{"go":-5}}]}`,
			code: http.StatusBadRequest,
		},
		{
			name: "not json",
			key:  apiKey,
			body: `{`,
			code: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := post(t, ts, tc.key, tc.body)
			assert.Equal(t, tc.code, res.StatusCode)

			var body struct {
				Error   string `json:"error"`
				Success bool   `json:"success"`
			}

			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRemoteClientAgainstServer(t *testing.T) {
	db := newDB(t)
	ts := newServer(t, db)

	c := remote.New(&config.SyncConfig{
		Endpoint: ts.URL + devserver.PushPath,
		APIKey:   apiKey,
		Timeout:  5 * time.Second,
	}, logging.Discard())

	resp, err := c.Push(context.Background(), models.Payload{
		Username: "dana",
		Data: []models.DayDelta{
			day("2024-02-01", 60, 90, map[string]int64{"go": 60}),
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "dana", resp.Username)

	res, err := http.Get(ts.URL + "/api/users/dana/history?page=1")
	require.NoError(t, err)

	defer res.Body.Close()

	var page devserver.HistoryPage

	require.NoError(t, json.NewDecoder(res.Body).Decode(&page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(60), page.Data[0].FocusedSeconds)

	res2, err := http.Get(ts.URL + "/api/users/nobody/history")
	require.NoError(t, err)

	defer res2.Body.Close()

	assert.Equal(t, http.StatusNotFound, res2.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newServer(t, newDB(t))

	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)

	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}
