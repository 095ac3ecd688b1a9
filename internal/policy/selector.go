package policy

import (
	"context"
	"errors"
	"time"

	"chessarena/internal/llm"
)

// ErrExhausted is returned when max_attempts is spent without a valid
// candidate. The game driver treats it as a forced resignation. The
// Candidate returned alongside it carries no move but does carry the
// spent budget, so callers can account for the wasted calls.
var ErrExhausted = errors.New("policy: move attempts exhausted")

// Position is the immutable view of the board a selector works on for
// one ply decision.
type Position struct {
	FEN        string
	SideToMove string   // "w" or "b"
	LegalMoves []string // sorted UCI, from the rules oracle
	PGN        string
}

func (p Position) legalSet() map[string]bool {
	set := make(map[string]bool, len(p.LegalMoves))
	for _, m := range p.LegalMoves {
		set[m] = true
	}
	return set
}

func (p Position) query() llm.MoveQuery {
	return llm.MoveQuery{
		FEN:        p.FEN,
		SideToMove: p.SideToMove,
		LegalMoves: p.LegalMoves,
		PGN:        p.PGN,
	}
}

// Clients bundles the provider clients a selector may call. Verifier and
// Fallback are nil unless the policy variant needs them.
type Clients struct {
	Primary  llm.Client
	Verifier llm.Client
	Fallback llm.Client
}

// Candidate is a validated move plus its provenance.
type Candidate struct {
	MoveUCI       string
	Policy        string
	Attempts      int // policy attempts consumed
	ProviderCalls int // total provider calls, all clients
	UsedFallback  bool
	UsedVerifier  bool
	Agreement     float64 // self-consistency agreement ratio, when sampled
	Latency       time.Duration
}

// Selector turns a position plus provider clients into one validated
// move. Implementations are pure functions of (position, config,
// clients); they hold no mutable state across calls.
type Selector interface {
	Name() string
	SelectMove(ctx context.Context, pos Position, cl Clients) (Candidate, error)
}

// New builds the selector for a validated config.
func New(cfg Config) (Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := cfg.Normalized()
	switch n.Name {
	case SelfConsistency:
		return &selfConsistencySelector{cfg: n}, nil
	case Verifier:
		return &verifierSelector{cfg: n}, nil
	case UncertaintyFallback:
		return &uncertaintyFallbackSelector{cfg: n}, nil
	default:
		return &baselineSelector{cfg: n}, nil
	}
}

// tryMove issues one provider call and runs the extraction/legality
// gate. A refusal (no candidate) is reported as ok=false, never as an
// error; only context cancellation escapes.
func tryMove(ctx context.Context, cli llm.Client, pos Position) (string, bool, error) {
	if cli == nil {
		return "", false, nil
	}
	raw, err := cli.Generate(ctx, llm.BuildMovePrompt(pos.query()))
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return "", false, err
		}
		return "", false, nil
	}
	uci := ExtractMove(raw, pos)
	return uci, uci != "", nil
}

// modalMove returns the most frequent move, ties broken by first-seen
// order, plus its vote count.
func modalMove(moves []string) (string, int) {
	counts := make(map[string]int, len(moves))
	var order []string
	for _, m := range moves {
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}
	best, votes := "", 0
	for _, m := range order {
		if counts[m] > votes {
			best, votes = m, counts[m]
		}
	}
	return best, votes
}
