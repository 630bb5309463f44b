package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hoshinonyaruko/stack-in-im/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type memStore struct {
	mu      sync.Mutex
	results []structs.GameResult
	fail    bool
	saved   chan struct{}
}

func newMemStore() *memStore {
	return &memStore{saved: make(chan struct{}, 16)}
}

func (m *memStore) SaveResult(ctx context.Context, r structs.GameResult) error {
	defer func() { m.saved <- struct{}{} }()
	if m.fail {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

func (m *memStore) ResultsByPlayer(ctx context.Context, playerID string) ([]structs.GameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []structs.GameResult
	for _, r := range m.results {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func waitSaved(t *testing.T, m *memStore) {
	t.Helper()
	select {
	case <-m.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("result was not saved")
	}
}

func TestPotentialPrize(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, ""},
		{9, ""},
		{10, "Карта «Ёвар»"},
		{29, "Беспроводные наушники"},
		{30, "Телевизор"},
		{99, "Планшет"},
		{150, "Поездка в Грузию"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PotentialPrize(tt.score), "score %d", tt.score)
	}
}

func TestNextTier(t *testing.T) {
	next, ok := NextTier(0)
	require.True(t, ok)
	assert.Equal(t, 10, next.Threshold)

	next, ok = NextTier(30)
	require.True(t, ok)
	assert.Equal(t, 50, next.Threshold)

	_, ok = NextTier(100)
	assert.False(t, ok)
}

func TestRecorderSavesOnGameOver(t *testing.T) {
	store := newMemStore()
	// 后台 goroutine 可能在测试结束后才写日志
	rec := NewRecorder(store, 4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	l := rec.Listener("s1", "p1")
	l.OnGameStart()
	l.OnScoreUpdate(1)
	l.OnGameOver(23)
	waitSaved(t, store)

	results, err := rec.Results(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 23, results[0].Score)
	assert.Equal(t, "Беспроводные наушники", results[0].Prize)
	assert.NotEmpty(t, results[0].ID)
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	rec := NewRecorder(newMemStore(), 1, zaptest.NewLogger(t))

	assert.True(t, rec.Submit(structs.GameResult{PlayerID: "p1"}))
	assert.False(t, rec.Submit(structs.GameResult{PlayerID: "p1"}))
}

func TestRecorderSurvivesStoreErrors(t *testing.T) {
	store := newMemStore()
	store.fail = true
	rec := NewRecorder(store, 2, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	rec.Listener("s1", "p1").OnGameOver(5)
	waitSaved(t, store)

	results, err := rec.Results(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecorderDrainsOnShutdown(t *testing.T) {
	store := newMemStore()
	rec := NewRecorder(store, 4, zaptest.NewLogger(t))
	rec.Submit(structs.GameResult{PlayerID: "p1", Score: 1})
	rec.Submit(structs.GameResult{PlayerID: "p1", Score: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	results, err := store.ResultsByPlayer(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
