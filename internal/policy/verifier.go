package policy

import (
	"context"
	"errors"
	"time"

	"chessarena/internal/llm"
)

// verifierSelector generates one baseline candidate per attempt, then
// asks the configured verifier model to approve it. Rejection and
// verifier failure both consume the attempt.
type verifierSelector struct {
	cfg Config
}

func (s *verifierSelector) Name() string { return Verifier }

func (s *verifierSelector) SelectMove(ctx context.Context, pos Position, cl Clients) (Candidate, error) {
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
		if !ok {
			continue
		}
		calls++
		approved, err := verify(ctx, cl.Verifier, pos, uci)
		if err != nil {
			return Candidate{}, err
		}
		if !approved {
			continue
		}
		return Candidate{
			MoveUCI:       uci,
			Policy:        Verifier,
			Attempts:      attempt,
			ProviderCalls: calls,
			UsedVerifier:  true,
			Latency:       time.Since(started),
		}, nil
	}
	return Candidate{
		Policy:        Verifier,
		Attempts:      s.cfg.MaxAttempts,
		ProviderCalls: calls,
		Latency:       time.Since(started),
	}, ErrExhausted
}

// verify asks the verifier model for an approve/reject verdict. Any
// provider failure counts as a rejection; only cancellation escapes.
func verify(ctx context.Context, cli llm.Client, pos Position, candidate string) (bool, error) {
	if cli == nil {
		return false, nil
	}
	raw, err := cli.Generate(ctx, llm.BuildVerifierPrompt(pos.query(), candidate))
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return false, err
		}
		return false, nil
	}
	return ApproveVerdict(raw), nil
}
