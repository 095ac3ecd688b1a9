package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGameRoundTrip(t *testing.T) {
	s := New()

	_, ok := s.GetGame("missing")
	assert.False(t, ok)

	rec := GameRecord{
		ID:        "game-1",
		FEN:       "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		WhiteType: "human",
		BlackType: "llm",
		BlackConfig: json.RawMessage(
			`{"provider":"openai","model":"gpt-4o-mini","ttc_policy":{"name":"baseline"}}`),
	}
	require.NoError(t, s.PutGame(rec))

	got, ok := s.GetGame("game-1")
	require.True(t, ok)
	assert.Equal(t, rec.FEN, got.FEN)
	assert.Equal(t, "llm", got.BlackType)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestPutGameUpdatesInPlace(t *testing.T) {
	s := New()
	require.NoError(t, s.PutGame(GameRecord{ID: "game-1", FEN: "start"}))

	first, _ := s.GetGame("game-1")
	require.NoError(t, s.PutGame(GameRecord{ID: "game-1", FEN: "later", CreatedAt: first.CreatedAt, Over: true}))

	got, ok := s.GetGame("game-1")
	require.True(t, ok)
	assert.Equal(t, "later", got.FEN)
	assert.True(t, got.Over)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
}

func TestMemoryRunRoundTrip(t *testing.T) {
	s := New()
	rec := RunRecord{
		ID:     "arena-1",
		Status: "queued",
		Config: json.RawMessage(`{"num_games":2}`),
	}
	require.NoError(t, s.PutRun(rec))

	got, ok := s.GetRun("arena-1")
	require.True(t, ok)
	assert.Equal(t, "queued", got.Status)
	assert.Nil(t, got.Result)

	rec.Status = "completed"
	rec.Result = json.RawMessage(`{"num_games":2}`)
	rec.CreatedAt = got.CreatedAt
	require.NoError(t, s.PutRun(rec))

	got, ok = s.GetRun("arena-1")
	require.True(t, ok)
	assert.Equal(t, "completed", got.Status)
	assert.NotNil(t, got.Result)
}

func TestListRunsMostRecentFirst(t *testing.T) {
	s := New()
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"arena-1", "arena-2", "arena-3"} {
		require.NoError(t, s.PutRun(RunRecord{
			ID:        id,
			Status:    "completed",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs := s.ListRuns(10)
	require.Len(t, runs, 3)
	assert.Equal(t, "arena-3", runs[0].ID)
	assert.Equal(t, "arena-2", runs[1].ID)
	assert.Equal(t, "arena-1", runs[2].ID)

	assert.Len(t, s.ListRuns(2), 2)
}

func TestPutIgnoresEmptyID(t *testing.T) {
	s := New()
	require.NoError(t, s.PutGame(GameRecord{}))
	require.NoError(t, s.PutRun(RunRecord{}))
	assert.Empty(t, s.ListRuns(10))
}

func TestBackendReportsActualWinner(t *testing.T) {
	assert.Equal(t, "memory", New().Backend())
	assert.Equal(t, "memory", NewFromEnv("").Backend())
	// An unparseable DSN falls back to memory, and Backend says so.
	assert.Equal(t, "memory", NewFromEnv("not a dsn").Backend())
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, terminal("completed"))
	assert.True(t, terminal("failed"))
	assert.False(t, terminal("queued"))
	assert.False(t, terminal("running"))
}
