package arena

// PlayerResult is one player's aggregate over a whole run.
type PlayerResult struct {
	Wins               int     `json:"wins"`
	Losses             int     `json:"losses"`
	Draws              int     `json:"draws"`
	WinRate            float64 `json:"win_rate"`
	Score              float64 `json:"score"` // wins + draws/2, per game
	MovesPlayed        int     `json:"moves_played"`
	AvgAttemptsPerMove float64 `json:"avg_attempts_per_move"`
	FallbackRate       float64 `json:"fallback_rate"`
	AvgLatencyMS       int64   `json:"avg_latency_ms"`
	EstimatedCostUSD   float64 `json:"estimated_cost_usd"`
}

// Summary is the run-level digest.
type Summary struct {
	AvgPlies     float64 `json:"avg_plies"`
	DecisiveRate float64 `json:"decisive_rate"`
	DrawRate     float64 `json:"draw_rate"`
}

// Result aggregates all game outcomes of one run. It is computed exactly
// once, after every game has finished, so readers never see a partial
// aggregate.
type Result struct {
	NumGames        int           `json:"num_games"`
	MaxPlies        int           `json:"max_plies"`
	AlternateColors bool          `json:"alternate_colors"`
	PlayerA         PlayerResult  `json:"player_a"`
	PlayerB         PlayerResult  `json:"player_b"`
	Summary         Summary       `json:"summary"`
	Games           []GameOutcome `json:"games,omitempty"`
}

// WithoutGames returns a copy with the per-game list elided, for compact
// list responses.
func (r *Result) WithoutGames() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Games = nil
	return &out
}

type playerTally struct {
	wins, losses, draws int
	moves               int
	attempts            int
	fallbackMoves       int
	latencyMS           int64
	costUSD             float64
}

func (t *playerTally) addStats(s MoveStatsReport) {
	t.moves += s.Moves
	t.attempts += s.Attempts
	t.fallbackMoves += s.FallbackMoves
	t.latencyMS += s.AvgLatencyMS * int64(s.Moves)
	t.costUSD += s.EstimatedCostUSD
}

func (t *playerTally) finalize(numGames int) PlayerResult {
	r := PlayerResult{
		Wins:             t.wins,
		Losses:           t.losses,
		Draws:            t.draws,
		MovesPlayed:      t.moves,
		EstimatedCostUSD: round4(t.costUSD),
	}
	if t.moves > 0 {
		r.AvgAttemptsPerMove = round4(float64(t.attempts) / float64(t.moves))
		r.FallbackRate = round4(float64(t.fallbackMoves) / float64(t.moves))
		r.AvgLatencyMS = t.latencyMS / int64(t.moves)
	}
	if numGames > 0 {
		r.WinRate = round4(float64(t.wins) / float64(numGames))
		r.Score = round4((float64(t.wins) + 0.5*float64(t.draws)) / float64(numGames))
	}
	return r
}

// buildResult folds the full outcome set into the run aggregate.
func buildResult(cfg RunConfig, games []GameOutcome) *Result {
	var a, b playerTally
	totalPlies := 0
	for _, g := range games {
		totalPlies += g.Plies
		switch g.WinnerLabel {
		case "player_a":
			a.wins++
			b.losses++
		case "player_b":
			b.wins++
			a.losses++
		default:
			a.draws++
			b.draws++
		}
		if g.White == "player_a" {
			a.addStats(g.WhiteMoveStats)
			b.addStats(g.BlackMoveStats)
		} else {
			b.addStats(g.WhiteMoveStats)
			a.addStats(g.BlackMoveStats)
		}
	}

	res := &Result{
		NumGames:        cfg.NumGames,
		MaxPlies:        cfg.MaxPlies,
		AlternateColors: cfg.AlternateColors,
		PlayerA:         a.finalize(cfg.NumGames),
		PlayerB:         b.finalize(cfg.NumGames),
		Games:           games,
	}
	if cfg.NumGames > 0 {
		decisive := res.PlayerA.Wins + res.PlayerB.Wins
		res.Summary = Summary{
			AvgPlies:     round4(float64(totalPlies) / float64(cfg.NumGames)),
			DecisiveRate: round4(float64(decisive) / float64(cfg.NumGames)),
			DrawRate:     round4(float64(a.draws) / float64(cfg.NumGames)),
		}
	}
	return res
}
