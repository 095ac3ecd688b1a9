package policy

import (
	"context"
	"time"
)

// baselineSelector accepts the first candidate that passes validation,
// retrying up to max_attempts on parse/legality failure or timeout.
type baselineSelector struct {
	cfg Config
}

func (s *baselineSelector) Name() string { return Baseline }

func (s *baselineSelector) SelectMove(ctx context.Context, pos Position, cl Clients) (Candidate, error) {
	started := time.Now()
	calls := 0
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		calls++
		uci, ok, err := tryMove(ctx, cl.Primary, pos)
		if err != nil {
			return Candidate{}, err
		}
		if ok {
			return Candidate{
				MoveUCI:       uci,
				Policy:        Baseline,
				Attempts:      attempt,
				ProviderCalls: calls,
				Latency:       time.Since(started),
			}, nil
		}
	}
	return Candidate{
		Policy:        Baseline,
		Attempts:      s.cfg.MaxAttempts,
		ProviderCalls: calls,
		Latency:       time.Since(started),
	}, ErrExhausted
}
