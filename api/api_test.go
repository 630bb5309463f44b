package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/game"
	"github.com/hoshinonyaruko/stack-in-im/structs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeResults struct {
	results []structs.GameResult
	err     error
}

func (f *fakeResults) Results(ctx context.Context, playerID string) ([]structs.GameResult, error) {
	return f.results, f.err
}

type testServer struct {
	router  *gin.Engine
	results *fakeResults
	dir     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	var manager *game.Manager
	metrics := NewMetrics(reg, func() int { return manager.Len() })

	// 时钟不动，移动块停在刚生成的位置
	fixed := time.Unix(1700000000, 0)
	manager, err := game.NewManager(config.DefaultGameConfig(), time.Hour, zap.NewNop(),
		game.WithClock(func() time.Time { return fixed }),
		game.WithListenerFactory(func(sessionID, playerID string) game.Listener {
			return metrics.Listener()
		}))
	require.NoError(t, err)

	ts := &testServer{results: &fakeResults{}, dir: t.TempDir()}
	ts.router = NewRouter(Deps{
		Manager:  manager,
		Results:  ts.results,
		Renderer: NewRenderer(nil, 8, ts.dir),
		Metrics:  metrics,
		Gatherer: reg,
		Logger:   zap.NewNop(),
		SelfPath: "127.0.0.1:38870",

		LiveInterval: 20 * time.Millisecond,
	})
	return ts
}

func (ts *testServer) get(t *testing.T, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ts.router.ServeHTTP(w, req)

	var body map[string]any
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestMissingOpenID(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/start", "/action", "/state", "/reset", "/render-tower", "/results"} {
		w, body := ts.get(t, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, body["error"], "openid", path)
	}
}

func TestStateWithoutGame(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.get(t, "/state?openid=ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartThenMiss(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.get(t, "/start?openid=u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "playing", body["state"])
	assert.NotEmpty(t, body["session_id"])
	assert.NotEmpty(t, w.Header().Get("X-Trace-Id"))

	// 没有经过时间，移动块还在振幅最远处
	w, body = ts.get(t, "/action?openid=u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "missed", body["outcome"])
	assert.Equal(t, "ended", body["state"])
	assert.EqualValues(t, 0, body["score"])
	assert.Equal(t, "", body["prize"])
	next := body["next_tier"].(map[string]any)
	assert.EqualValues(t, 10, next["threshold"])

	// 已结束的局再点击不变
	_, body = ts.get(t, "/action?openid=u1")
	assert.Nil(t, body["outcome"])
	assert.Equal(t, "ended", body["state"])
}

func TestActionStartsIdleGame(t *testing.T) {
	ts := newTestServer(t)
	_, body := ts.get(t, "/action?openid=u1")
	assert.Nil(t, body["outcome"])
	assert.Equal(t, "playing", body["state"])
}

func TestStateSnapshot(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/start?openid=u1")

	w, body := ts.get(t, "/state?openid=u1")
	require.Equal(t, http.StatusOK, w.Code)
	g := body["game"].(map[string]any)
	assert.Equal(t, "playing", g["state"])
	assert.Len(t, g["stack"], 1)
	assert.NotNil(t, g["active"])
}

func TestResetGivesNewSession(t *testing.T) {
	ts := newTestServer(t)
	_, first := ts.get(t, "/start?openid=u1")
	_, second := ts.get(t, "/reset?openid=u1")
	assert.Equal(t, "idle", second["state"])
	assert.NotEqual(t, first["session_id"], second["session_id"])
}

func TestRenderTower(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/start?openid=../evil")

	w, body := ts.get(t, "/render-tower?openid=../evil")
	require.Equal(t, http.StatusOK, w.Code)
	fileName := safeName("../evil") + ".png"
	assert.True(t, strings.HasPrefix(fileName, "___evil-"))
	assert.Equal(t, "http://127.0.0.1:38870/static/"+fileName, body["image_url"])

	info, err := os.Stat(filepath.Join(ts.dir, fileName))
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	w, _ = ts.get(t, "/static/"+fileName)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRenderTowerSeparatesSimilarOpenIDs(t *testing.T) {
	ts := newTestServer(t)
	urls := map[string]bool{}
	for _, openID := range []string{"a.b", "a_b"} {
		ts.get(t, "/start?openid="+openID)
		w, body := ts.get(t, "/render-tower?openid="+openID)
		require.Equal(t, http.StatusOK, w.Code)
		urls[body["image_url"].(string)] = true
	}
	assert.Len(t, urls, 2)
}

func TestResults(t *testing.T) {
	ts := newTestServer(t)
	ts.results.results = []structs.GameResult{{ID: "r1", PlayerID: "u1", Score: 12, Prize: "Карта «Ёвар»"}}

	w, body := ts.get(t, "/results?openid=u1")
	require.Equal(t, http.StatusOK, w.Code)
	list := body["results"].([]any)
	require.Len(t, list, 1)
	assert.EqualValues(t, 12, list[0].(map[string]any)["score"])

	ts.results.err = errors.New("db locked")
	w, _ = ts.get(t, "/results?openid=u1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestResultsEmptyList(t *testing.T) {
	ts := newTestServer(t)
	_, body := ts.get(t, "/results?openid=u1")
	assert.Equal(t, []any{}, body["results"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/start?openid=u1")
	ts.get(t, "/action?openid=u1")

	w, _ := ts.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	text := w.Body.String()
	assert.Contains(t, text, `stack_placements_total{outcome="missed"} 1`)
	assert.Contains(t, text, "stack_games_started_total 1")
	assert.Contains(t, text, "stack_games_over_total 1")
	assert.Contains(t, text, "stack_sessions 1")
}
