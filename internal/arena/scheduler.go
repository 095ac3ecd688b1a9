package arena

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"chessarena/internal/llm"
	"chessarena/internal/policy"
)

// Options configures a Scheduler.
type Options struct {
	// Concurrency bounds in-flight games per run; <=0 means 2.
	Concurrency int
	// Checker is the model allow-list consulted at submission.
	Checker ModelChecker
	// Persist, when set, is called with every lifecycle snapshot.
	Persist func(Snapshot)
	// Archive, when set, is called once per completed run.
	Archive func(context.Context, Snapshot)
}

// Scheduler owns the arena runs: submission validation, background
// execution with bounded concurrency, and idempotent status reads.
type Scheduler struct {
	factory     ClientFactory
	concurrency int
	checker     ModelChecker
	persist     func(Snapshot)
	archive     func(context.Context, Snapshot)

	mu    sync.Mutex
	runs  map[string]*Run
	order []string // most recent first
}

func NewScheduler(factory ClientFactory, opts Options) *Scheduler {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Scheduler{
		factory:     factory,
		concurrency: concurrency,
		checker:     opts.Checker,
		persist:     opts.Persist,
		archive:     opts.Archive,
		runs:        make(map[string]*Run),
	}
}

// Submit validates the config, registers the run as queued and launches
// its execution context. It returns immediately; progress is observed by
// polling Get.
func (s *Scheduler) Submit(cfg RunConfig) (Snapshot, error) {
	if err := cfg.Validate(s.checker); err != nil {
		return Snapshot{}, err
	}
	run := newRun(fmt.Sprintf("arena-%d", time.Now().UnixNano()), cfg)
	// The queued snapshot is taken before the execution goroutine starts,
	// so the submitter always sees queued, never a race with running.
	queued := run.Snapshot()

	s.mu.Lock()
	s.runs[queued.ID] = run
	s.order = append([]string{queued.ID}, s.order...)
	s.mu.Unlock()

	s.save(queued)
	go s.execute(run)
	return queued, nil
}

// Get returns a consistent snapshot of one run.
func (s *Scheduler) Get(id string) (Snapshot, bool) {
	s.mu.Lock()
	run, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return run.Snapshot(), true
}

// List returns up to limit snapshots, most recent first.
func (s *Scheduler) List(limit int) []Snapshot {
	if limit < 1 {
		limit = 20
	}
	s.mu.Lock()
	ids := make([]string, 0, limit)
	for _, id := range s.order {
		if len(ids) == limit {
			break
		}
		ids = append(ids, id)
	}
	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		runs = append(runs, s.runs[id])
	}
	s.mu.Unlock()

	out := make([]Snapshot, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Snapshot())
	}
	return out
}

// execute drives one run to a terminal state. A game lost to
// resignation is a normal outcome; only setup faults or cancellation
// fail the run.
func (s *Scheduler) execute(run *Run) {
	if !run.markRunning() {
		return
	}
	snap := run.Snapshot()
	s.save(snap)
	log.Printf("arena_run_started id=%s num_games=%d", snap.ID, snap.Config.NumGames)

	ctx := context.Background()
	cfg := snap.Config

	clientsA, err := buildClients(ctx, s.factory, cfg.PlayerA)
	if err != nil {
		s.save(run.fail(fmt.Sprintf("player_a setup: %v", err)))
		return
	}
	clientsB, err := buildClients(ctx, s.factory, cfg.PlayerB)
	if err != nil {
		s.save(run.fail(fmt.Sprintf("player_b setup: %v", err)))
		return
	}

	games := make([]GameOutcome, cfg.NumGames)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := 0; i < cfg.NumGames; i++ {
		g.Go(func() error {
			whiteCfg, blackCfg := cfg.PlayerA, cfg.PlayerB
			whiteLabel, blackLabel := "player_a", "player_b"
			whiteClients, blackClients := clientsA, clientsB
			if cfg.AlternateColors && i%2 == 1 {
				whiteCfg, blackCfg = blackCfg, whiteCfg
				whiteLabel, blackLabel = blackLabel, whiteLabel
				whiteClients, blackClients = blackClients, whiteClients
			}
			white, err := newGamePlayer(whiteLabel, whiteCfg, whiteClients)
			if err != nil {
				return err
			}
			black, err := newGamePlayer(blackLabel, blackCfg, blackClients)
			if err != nil {
				return err
			}
			outcome, err := playGame(gctx, white, black, i, cfg.MaxPlies)
			if err != nil {
				return err
			}
			games[i] = outcome
			return nil
		})
	}
	err = g.Wait()
	closeClients(clientsA)
	closeClients(clientsB)
	if err != nil {
		s.save(run.fail(err.Error()))
		log.Printf("arena_run_failed id=%s error=%v", snap.ID, err)
		return
	}

	final := run.complete(buildResult(cfg, games))
	s.save(final)
	log.Printf("arena_run_completed id=%s games=%d", final.ID, len(games))
	if s.archive != nil {
		s.archive(ctx, final)
	}
}

func (s *Scheduler) save(snap Snapshot) {
	if s.persist != nil {
		s.persist(snap)
	}
}

func closeClients(cl policy.Clients) {
	for _, c := range []llm.Client{cl.Primary, cl.Verifier, cl.Fallback} {
		if c != nil {
			_ = c.Close()
		}
	}
}
