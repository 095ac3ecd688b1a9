package policy

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"chessarena/internal/llm"
)

// selfConsistencySelector issues `samples` parallel provider calls per
// attempt and picks the modal validated candidate, ties broken by
// first-seen (sample index) order.
type selfConsistencySelector struct {
	cfg Config
}

func (s *selfConsistencySelector) Name() string { return SelfConsistency }

func (s *selfConsistencySelector) SelectMove(ctx context.Context, pos Position, cl Clients) (Candidate, error) {
	started := time.Now()
	calls := 0
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		candidates, err := sampleMoves(ctx, cl.Primary, pos, s.cfg.Samples)
		calls += s.cfg.Samples
		if err != nil {
			return Candidate{}, err
		}
		if len(candidates) == 0 {
			continue
		}
		move, votes := modalMove(candidates)
		return Candidate{
			MoveUCI:       move,
			Policy:        SelfConsistency,
			Attempts:      attempt,
			ProviderCalls: calls,
			Agreement:     float64(votes) / float64(s.cfg.Samples),
			Latency:       time.Since(started),
		}, nil
	}
	return Candidate{
		Policy:        SelfConsistency,
		Attempts:      s.cfg.MaxAttempts,
		ProviderCalls: calls,
		Latency:       time.Since(started),
	}, ErrExhausted
}

// sampleMoves fans out n provider calls and returns the validated
// candidates in sample-index order, dropping refusals.
func sampleMoves(ctx context.Context, cli llm.Client, pos Position, n int) ([]string, error) {
	results := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			uci, ok, err := tryMove(gctx, cli, pos)
			if err != nil {
				return err
			}
			if ok {
				results[i] = uci
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for _, m := range results {
		if m != "" {
			out = append(out, m)
		}
	}
	return out, nil
}
