package policy

import (
	"context"
	"time"
)

// uncertaintyFallbackSelector runs a self-consistency round and accepts
// the modal candidate only when agreement clears the threshold;
// otherwise the decision is routed to the fallback model with a single
// baseline-style call. Either path failing consumes the attempt and the
// whole sequence restarts.
type uncertaintyFallbackSelector struct {
	cfg Config
}

func (s *uncertaintyFallbackSelector) Name() string { return UncertaintyFallback }

func (s *uncertaintyFallbackSelector) SelectMove(ctx context.Context, pos Position, cl Clients) (Candidate, error) {
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
		// Agreement counts over the requested samples, not just the
		// ones that produced a valid candidate.
		agreement := float64(votes) / float64(s.cfg.Samples)
		if agreement >= s.cfg.AgreementThreshold {
			return Candidate{
				MoveUCI:       move,
				Policy:        UncertaintyFallback,
				Attempts:      attempt,
				ProviderCalls: calls,
				Agreement:     agreement,
				Latency:       time.Since(started),
			}, nil
		}
		calls++
		uci, ok, err := tryMove(ctx, cl.Fallback, pos)
		if err != nil {
			return Candidate{}, err
		}
		if ok {
			return Candidate{
				MoveUCI:       uci,
				Policy:        UncertaintyFallback,
				Attempts:      attempt,
				ProviderCalls: calls,
				UsedFallback:  true,
				Agreement:     agreement,
				Latency:       time.Since(started),
			}, nil
		}
	}
	return Candidate{
		Policy:        UncertaintyFallback,
		Attempts:      s.cfg.MaxAttempts,
		ProviderCalls: calls,
		Latency:       time.Since(started),
	}, ErrExhausted
}
