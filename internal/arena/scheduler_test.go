package arena

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessarena/internal/llm"
)

// fakeFactory hands out independent clients so games can run in
// parallel without sharing scripted state.
type fakeFactory struct {
	err   error
	build func() llm.Client
}

func (f *fakeFactory) Build(ctx context.Context, provider, model string) (llm.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.build(), nil
}

type allowAll struct{}

func (allowAll) IsModelAllowed(provider, model string) bool { return true }
func (allowAll) CustomModelAllowed() bool                   { return true }

func testRunConfig(numGames int) RunConfig {
	return RunConfig{
		PlayerA:         basicPlayerConfig("model-a"),
		PlayerB:         basicPlayerConfig("model-b"),
		NumGames:        numGames,
		MaxPlies:        4,
		AlternateColors: true,
	}
}

func waitTerminal(t *testing.T, s *Scheduler, id string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := s.Get(id)
		require.True(t, ok)
		if snap.Status == StatusCompleted || snap.Status == StatusFailed {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s never reached a terminal state", id)
	return Snapshot{}
}

func TestSchedulerCompletesRun(t *testing.T) {
	factory := &fakeFactory{build: func() llm.Client { return &firstLegalClient{} }}
	s := NewScheduler(factory, Options{Concurrency: 2, Checker: allowAll{}})

	snap, err := s.Submit(testRunConfig(4))
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, StatusQueued, snap.Status)
	assert.False(t, snap.CreatedAt.IsZero())

	final := waitTerminal(t, s, snap.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	require.NotNil(t, final.Result)
	assert.Empty(t, final.Error)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.FinishedAt)

	res := final.Result
	assert.Equal(t, 4, res.NumGames)
	assert.Len(t, res.Games, 4)
	// Everything hit the ply cap, so the run is all draws.
	assert.Equal(t, 4, res.PlayerA.Draws)
	assert.Equal(t, 4, res.PlayerB.Draws)
	assert.InDelta(t, 1.0, res.Summary.DrawRate, 1e-9)
	assert.InDelta(t, 0.0, res.Summary.DecisiveRate, 1e-9)
	assert.InDelta(t, 4.0, res.Summary.AvgPlies, 1e-9)
}

func TestSchedulerAlternatesColors(t *testing.T) {
	factory := &fakeFactory{build: func() llm.Client { return &firstLegalClient{} }}
	s := NewScheduler(factory, Options{Concurrency: 4, Checker: allowAll{}})

	snap, err := s.Submit(testRunConfig(4))
	require.NoError(t, err)
	final := waitTerminal(t, s, snap.ID)
	require.Equal(t, StatusCompleted, final.Status)

	games := final.Result.Games
	require.Len(t, games, 4)
	// Player A is White on even 0-based indices.
	assert.Equal(t, "player_a", games[0].White)
	assert.Equal(t, "player_b", games[1].White)
	assert.Equal(t, "player_a", games[2].White)
	assert.Equal(t, "player_b", games[3].White)
	for i, g := range games {
		assert.Equal(t, i+1, g.GameIndex)
	}
}

func TestSchedulerAllResignationsStillCompletes(t *testing.T) {
	// Every client refuses; every game ends in resignation, but the run
	// itself completes normally.
	factory := &fakeFactory{build: func() llm.Client {
		return llm.NewScriptedClient("mute", llm.Reply{Text: "no"})
	}}
	s := NewScheduler(factory, Options{Concurrency: 2, Checker: allowAll{}})

	snap, err := s.Submit(testRunConfig(2))
	require.NoError(t, err)
	final := waitTerminal(t, s, snap.ID)

	require.Equal(t, StatusCompleted, final.Status)
	for _, g := range final.Result.Games {
		assert.Equal(t, TerminationResignation, g.Termination)
	}
	// With alternating colors, each player loses once as White.
	assert.Equal(t, 1, final.Result.PlayerA.Wins)
	assert.Equal(t, 1, final.Result.PlayerB.Wins)
}

func TestSchedulerSetupFailureFailsRun(t *testing.T) {
	factory := &fakeFactory{err: errors.New("no such provider")}
	s := NewScheduler(factory, Options{Checker: allowAll{}})

	snap, err := s.Submit(testRunConfig(1))
	require.NoError(t, err)
	final := waitTerminal(t, s, snap.ID)

	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "no such provider")
	assert.Nil(t, final.Result)
}

func TestSchedulerRejectsInvalidConfig(t *testing.T) {
	s := NewScheduler(&fakeFactory{}, Options{Checker: allowAll{}})

	_, err := s.Submit(RunConfig{NumGames: 0, MaxPlies: 10})
	assert.Error(t, err)

	cfg := testRunConfig(1)
	cfg.MaxPlies = maxMaxPlies + 1
	_, err = s.Submit(cfg)
	assert.Error(t, err)
}

func TestSchedulerSnapshotsAreAtomic(t *testing.T) {
	factory := &fakeFactory{build: func() llm.Client { return &firstLegalClient{} }}
	s := NewScheduler(factory, Options{Concurrency: 2, Checker: allowAll{}})

	snap, err := s.Submit(testRunConfig(2))
	require.NoError(t, err)

	// Readers may never observe a terminal status without its payload.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			cur, ok := s.Get(snap.ID)
			if !ok {
				continue
			}
			switch cur.Status {
			case StatusCompleted:
				assert.NotNil(t, cur.Result)
				assert.Empty(t, cur.Error)
			case StatusFailed:
				assert.NotEmpty(t, cur.Error)
				assert.Nil(t, cur.Result)
			case StatusQueued, StatusRunning:
				assert.Nil(t, cur.Result)
			}
		}
	}()

	waitTerminal(t, s, snap.ID)
	close(done)
	wg.Wait()
}

func TestRunTransitionsAreAbsorbing(t *testing.T) {
	run := newRun("arena-test", testRunConfig(1))
	require.True(t, run.markRunning())
	assert.False(t, run.markRunning())

	final := run.complete(&Result{NumGames: 1})
	assert.Equal(t, StatusCompleted, final.Status)

	// A late failure cannot overwrite the completed state.
	after := run.fail("too late")
	assert.Equal(t, StatusCompleted, after.Status)
	assert.Empty(t, after.Error)
}

func TestSchedulerListMostRecentFirst(t *testing.T) {
	factory := &fakeFactory{build: func() llm.Client { return &firstLegalClient{} }}
	s := NewScheduler(factory, Options{Concurrency: 1, Checker: allowAll{}})

	first, err := s.Submit(testRunConfig(1))
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := s.Submit(testRunConfig(1))
	require.NoError(t, err)

	list := s.List(10)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	assert.Len(t, s.List(1), 1)
}

func TestPersistHookSeesEveryTransition(t *testing.T) {
	var mu sync.Mutex
	var statuses []string
	factory := &fakeFactory{build: func() llm.Client { return &firstLegalClient{} }}
	s := NewScheduler(factory, Options{
		Concurrency: 1,
		Checker:     allowAll{},
		Persist: func(snap Snapshot) {
			mu.Lock()
			statuses = append(statuses, snap.Status)
			mu.Unlock()
		},
	})

	snap, err := s.Submit(testRunConfig(1))
	require.NoError(t, err)
	waitTerminal(t, s, snap.ID)

	// The terminal persist call may land just after Get observes the
	// terminal status.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{StatusQueued, StatusRunning, StatusCompleted}, statuses)
}
