package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chessarena/internal/board"
	"chessarena/internal/policy"
)

// Terminations recorded on a GameOutcome beyond what the rules oracle
// reports. Resignation is forced when a policy exhausts its attempt
// budget; ply_limit is an arena cutoff, counted as a draw but kept
// distinct from a rules draw in the per-game record.
const (
	TerminationResignation = "resignation_exhausted"
	TerminationPlyLimit    = "ply_limit"
)

// MoveStatsReport summarizes one side's policy behavior over a game.
type MoveStatsReport struct {
	Provider           string  `json:"provider"`
	Model              string  `json:"model"`
	Policy             string  `json:"policy"`
	Moves              int     `json:"moves"`
	Attempts           int     `json:"attempts"`
	AvgAttemptsPerMove float64 `json:"avg_attempts_per_move"`
	ProviderCalls      int     `json:"provider_calls"`
	FallbackMoves      int     `json:"fallback_moves"`
	FallbackRate       float64 `json:"fallback_rate"`
	VerifierMoves      int     `json:"verifier_moves"`
	AvgLatencyMS       int64   `json:"avg_latency_ms"`
	EstimatedCostUSD   float64 `json:"estimated_cost_usd"`
}

// GameOutcome is the immutable per-game record a driver produces.
type GameOutcome struct {
	GameIndex      int             `json:"game_index"` // 1-based, matching report ordering
	White          string          `json:"white"`      // "player_a" or "player_b"
	Black          string          `json:"black"`
	Winner         string          `json:"winner"` // "white", "black" or "draw"
	WinnerLabel    string          `json:"winner_label"`
	Termination    string          `json:"termination"`
	Plies          int             `json:"plies"`
	DurationMS     int64           `json:"duration_ms"`
	PGN            string          `json:"pgn,omitempty"`
	FinalFEN       string          `json:"final_fen,omitempty"`
	WhiteMoveStats MoveStatsReport `json:"white_move_stats"`
	BlackMoveStats MoveStatsReport `json:"black_move_stats"`
}

// gamePlayer is one side's runtime for a single game: selector, clients
// and the stats accumulated while it moves.
type gamePlayer struct {
	label    string
	cfg      PlayerConfig
	selector policy.Selector
	clients  policy.Clients

	moves         int
	attempts      int
	providerCalls int
	fallbackMoves int
	verifierMoves int
	latencyMS     int64
	perCallCost   float64
}

func newGamePlayer(label string, cfg PlayerConfig, clients policy.Clients) (*gamePlayer, error) {
	sel, err := policy.New(cfg.Policy)
	if err != nil {
		return nil, err
	}
	return &gamePlayer{
		label:       label,
		cfg:         cfg,
		selector:    sel,
		clients:     clients,
		perCallCost: estimateCostPerCallUSD(cfg.Provider, cfg.ResolvedModel()),
	}, nil
}

func (p *gamePlayer) record(c policy.Candidate) {
	p.moves++
	p.attempts += c.Attempts
	p.providerCalls += c.ProviderCalls
	p.latencyMS += c.Latency.Milliseconds()
	if c.UsedFallback {
		p.fallbackMoves++
	}
	if c.UsedVerifier {
		p.verifierMoves++
	}
}

// recordExhausted folds the budget a failed move burned into the stats
// without counting a move played.
func (p *gamePlayer) recordExhausted(c policy.Candidate) {
	p.attempts += c.Attempts
	p.providerCalls += c.ProviderCalls
	p.latencyMS += c.Latency.Milliseconds()
}

func (p *gamePlayer) report() MoveStatsReport {
	r := MoveStatsReport{
		Provider:         p.cfg.Provider,
		Model:            p.cfg.ResolvedModel(),
		Policy:           p.cfg.Policy.Normalized().Name,
		Moves:            p.moves,
		Attempts:         p.attempts,
		ProviderCalls:    p.providerCalls,
		FallbackMoves:    p.fallbackMoves,
		VerifierMoves:    p.verifierMoves,
		EstimatedCostUSD: round4(float64(p.providerCalls) * p.perCallCost),
	}
	if p.moves > 0 {
		r.AvgAttemptsPerMove = round4(float64(p.attempts) / float64(p.moves))
		r.FallbackRate = round4(float64(p.fallbackMoves) / float64(p.moves))
		r.AvgLatencyMS = p.latencyMS / int64(p.moves)
	}
	return r
}

// playGame drives one game to completion or the ply cap. The terminal
// check always precedes the move request, and every move a policy hands
// back has already passed the legality gate, so PushUCI failing is an
// invariant violation rather than a provider problem.
func playGame(ctx context.Context, white, black *gamePlayer, gameIndex, maxPlies int) (GameOutcome, error) {
	game := board.New()
	started := time.Now()
	outcome := GameOutcome{
		GameIndex: gameIndex + 1,
		White:     white.label,
		Black:     black.label,
	}

	for {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		if st := game.Status(); st.Over {
			outcome.Winner = st.Winner
			outcome.Termination = st.Method
			break
		}
		if game.Plies() >= maxPlies {
			outcome.Winner = "draw"
			outcome.Termination = TerminationPlyLimit
			break
		}

		mover := white
		if game.SideToMove() == "b" {
			mover = black
		}
		pos := policy.Position{
			FEN:        game.FEN(),
			SideToMove: game.SideToMove(),
			LegalMoves: game.LegalMoves(),
			PGN:        game.PGN(),
		}
		cand, err := mover.selector.SelectMove(ctx, pos, mover.clients)
		if errors.Is(err, policy.ErrExhausted) {
			// Resignation by exhaustion: the other side takes the win.
			// The budget the failed move burned still counts.
			mover.recordExhausted(cand)
			if mover == white {
				outcome.Winner = "black"
			} else {
				outcome.Winner = "white"
			}
			outcome.Termination = TerminationResignation
			break
		}
		if err != nil {
			return outcome, err
		}
		if _, err := game.PushUCI(cand.MoveUCI); err != nil {
			return outcome, fmt.Errorf("policy %s emitted unplayable move: %w", mover.selector.Name(), err)
		}
		mover.record(cand)
	}

	outcome.WinnerLabel = winnerLabel(outcome.Winner, white.label, black.label)
	outcome.Plies = game.Plies()
	outcome.DurationMS = time.Since(started).Milliseconds()
	outcome.PGN = game.PGN()
	outcome.FinalFEN = game.FEN()
	outcome.WhiteMoveStats = white.report()
	outcome.BlackMoveStats = black.report()
	return outcome, nil
}

func winnerLabel(winner, whiteLabel, blackLabel string) string {
	switch winner {
	case "white":
		return whiteLabel
	case "black":
		return blackLabel
	}
	return "draw"
}
