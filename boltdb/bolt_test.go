// boltdb/bolt v1.3.1 trips checkptr under -race (upstream, unmaintained).
//go:build !race

package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hoshinonyaruko/stack-in-im/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndQueryResults(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "game.bolt"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	for i, score := range []int{3, 12, 7} {
		require.NoError(t, store.SaveResult(ctx, structs.GameResult{
			ID:       string(rune('a' + i)),
			PlayerID: "p1",
			Score:    score,
			PlayedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.SaveResult(ctx, structs.GameResult{ID: "z", PlayerID: "p2", Score: 40, Prize: "Телевизор", PlayedAt: base}))

	results, err := store.ResultsByPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []int{7, 12, 3}, []int{results[0].Score, results[1].Score, results[2].Score})
	assert.True(t, results[0].PlayedAt.Equal(base.Add(2*time.Minute)))

	other, err := store.ResultsByPlayer(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "Телевизор", other[0].Prize)

	none, err := store.ResultsByPlayer(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResultsWithCancelledContext(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "game.bolt"))
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.SaveResult(ctx, structs.GameResult{ID: "a", PlayerID: "p1"}), context.Canceled)
}
