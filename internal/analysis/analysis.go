// Package analysis grades a finished game move by move against a UCI
// engine: centipawn loss per move, per-side accuracy, key moves and
// turning points.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"chessarena/internal/board"
	"chessarena/internal/engine"
)

// ErrUnavailable means the engine binary could not be launched.
var ErrUnavailable = errors.New("analysis engine unavailable")

// TooShortError rejects games below the minimum sample size.
type TooShortError struct {
	MinPlies      int
	AnalyzedPlies int
}

func (e *TooShortError) Error() string {
	return fmt.Sprintf("not enough moves to analyze: got %d, need %d", e.AnalyzedPlies, e.MinPlies)
}

// Config tunes the analysis pass.
type Config struct {
	Profile            string
	MinPlies           int
	MaxPlies           int
	MoveTime           time.Duration
	KeyMovesLimit      int
	TurningPointsLimit int
	EnginePath         string
}

func (c Config) withDefaults() Config {
	if c.Profile == "" {
		c.Profile = "balanced"
	}
	if c.MinPlies <= 0 {
		c.MinPlies = 8
	}
	if c.MaxPlies <= 0 {
		c.MaxPlies = 160
	}
	if c.MoveTime <= 0 {
		c.MoveTime = 100 * time.Millisecond
	}
	if c.KeyMovesLimit <= 0 {
		c.KeyMovesLimit = 5
	}
	if c.TurningPointsLimit <= 0 {
		c.TurningPointsLimit = 3
	}
	return c
}

// MoveReport grades one half-move.
type MoveReport struct {
	Ply           int    `json:"ply"`
	Side          string `json:"side"`
	SAN           string `json:"san"`
	UCI           string `json:"uci"`
	CPLoss        int    `json:"cp_loss"`
	Category      string `json:"category"`
	EvalBeforeCP  int    `json:"eval_before_cp"`
	EvalAfterCP   int    `json:"eval_after_cp"`
	SwingCP       int    `json:"swing_cp"`
	ImprovementCP int    `json:"improvement_cp"`
}

// SideMetrics aggregates one color's move quality.
type SideMetrics struct {
	EstimatedElo     int            `json:"estimated_elo"`
	AccuracyPercent  int            `json:"accuracy_percent"`
	AvgCentipawnLoss int            `json:"avg_centipawn_loss"`
	MoveCounts       map[string]int `json:"move_counts"`
}

// KeyMove is a highlighted move with commentary.
type KeyMove struct {
	Ply          int    `json:"ply"`
	Side         string `json:"side"`
	SAN          string `json:"san"`
	UCI          string `json:"uci"`
	Category     string `json:"category"`
	CPLoss       int    `json:"cp_loss"`
	EvalBeforeCP int    `json:"eval_before_cp"`
	EvalAfterCP  int    `json:"eval_after_cp"`
	Commentary   string `json:"commentary"`
}

// TurningPoint marks a move that flipped or swung the evaluation.
type TurningPoint struct {
	Ply        int    `json:"ply"`
	Side       string `json:"side"`
	SAN        string `json:"san"`
	SwingCP    int    `json:"swing_cp"`
	Commentary string `json:"commentary"`
}

// Reliability qualifies how much to trust the report.
type Reliability struct {
	SufficientSample bool   `json:"sufficient_sample"`
	Note             string `json:"note"`
}

// Report is the full analysis of one game.
type Report struct {
	GameID        string         `json:"game_id"`
	Profile       string         `json:"analysis_profile"`
	AnalyzedPlies int            `json:"analyzed_plies"`
	White         SideMetrics    `json:"white"`
	Black         SideMetrics    `json:"black"`
	KeyMoves      []KeyMove      `json:"key_moves"`
	TurningPoints []TurningPoint `json:"turning_points"`
	Summary       string         `json:"summary"`
	Reliability   Reliability    `json:"reliability"`
}

// Service runs analyses. It launches one engine process per call so a
// crashed engine never poisons later requests.
type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	return &Service{cfg: cfg.withDefaults()}
}

// AnalyzeGame replays the PGN and grades every move.
func (s *Service) AnalyzeGame(gameID, pgn string) (*Report, error) {
	moves := board.ReplayPGN(pgn)
	if len(moves) < s.cfg.MinPlies {
		return nil, &TooShortError{MinPlies: s.cfg.MinPlies, AnalyzedPlies: len(moves)}
	}
	if len(moves) > s.cfg.MaxPlies {
		moves = moves[:s.cfg.MaxPlies]
	}

	path, err := engine.ResolvePath(s.cfg.EnginePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	eng, err := engine.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer eng.Close()

	reports := make([]MoveReport, 0, len(moves))
	for i, mv := range moves {
		before, err := eng.EvalCP(mv.FENBefore, s.cfg.MoveTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		after, err := eng.EvalCP(mv.FENAfter, s.cfg.MoveTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		// Loss is measured from the mover's point of view.
		improvement := after - before
		if mv.Side == "black" {
			improvement = before - after
		}
		cpLoss := -improvement
		if cpLoss < 0 {
			cpLoss = 0
		}
		reports = append(reports, MoveReport{
			Ply:           i + 1,
			Side:          mv.Side,
			SAN:           mv.SAN,
			UCI:           mv.UCI,
			CPLoss:        cpLoss,
			Category:      categorize(cpLoss),
			EvalBeforeCP:  before,
			EvalAfterCP:   after,
			SwingCP:       after - before,
			ImprovementCP: improvement,
		})
	}

	white := buildSideMetrics("white", reports)
	black := buildSideMetrics("black", reports)
	keyMoves := s.buildKeyMoves(reports)
	turning := s.buildTurningPoints(reports)

	return &Report{
		GameID:        gameID,
		Profile:       s.cfg.Profile,
		AnalyzedPlies: len(reports),
		White:         white,
		Black:         black,
		KeyMoves:      keyMoves,
		TurningPoints: turning,
		Summary:       buildSummary(reports, white, black, keyMoves, turning),
		Reliability: Reliability{
			SufficientSample: len(reports) >= s.cfg.MinPlies,
			Note:             "Performance Elo estimate for this game only.",
		},
	}, nil
}

var categoryThresholds = []struct {
	name string
	max  int
}{
	{"best", 20},
	{"good", 50},
	{"inaccuracy", 100},
	{"mistake", 200},
}

func categorize(cpLoss int) string {
	for _, t := range categoryThresholds {
		if cpLoss <= t.max {
			return t.name
		}
	}
	return "blunder"
}

func buildSideMetrics(side string, reports []MoveReport) SideMetrics {
	counts := map[string]int{"best": 0, "good": 0, "inaccuracy": 0, "mistake": 0, "blunder": 0}
	totalLoss, n := 0, 0
	for _, mv := range reports {
		if mv.Side != side {
			continue
		}
		counts[mv.Category]++
		totalLoss += mv.CPLoss
		n++
	}
	avgCPL := 0
	if n > 0 {
		avgCPL = int(float64(totalLoss)/float64(n) + 0.5)
	}
	return SideMetrics{
		EstimatedElo:     clamp(2800-14*avgCPL, 600, 2800),
		AccuracyPercent:  clamp(100-int(0.35*float64(avgCPL)+0.5), 0, 100),
		AvgCentipawnLoss: avgCPL,
		MoveCounts:       counts,
	}
}

func (s *Service) buildKeyMoves(reports []MoveReport) []KeyMove {
	var severe []MoveReport
	for _, mv := range reports {
		switch mv.Category {
		case "inaccuracy", "mistake", "blunder":
			severe = append(severe, mv)
		}
	}
	sort.SliceStable(severe, func(i, j int) bool { return severe[i].CPLoss > severe[j].CPLoss })
	if len(severe) > s.cfg.KeyMovesLimit {
		severe = severe[:s.cfg.KeyMovesLimit]
	}

	included := make(map[int]bool, len(severe))
	for _, mv := range severe {
		included[mv.Ply] = true
	}

	// Admit the single strongest improving move alongside the misses.
	var best *MoveReport
	for i := range reports {
		mv := reports[i]
		if mv.Category != "best" || mv.ImprovementCP <= 0 || included[mv.Ply] {
			continue
		}
		if best == nil || mv.ImprovementCP > best.ImprovementCP {
			best = &reports[i]
		}
	}
	if best != nil {
		if len(severe) >= s.cfg.KeyMovesLimit {
			severe[len(severe)-1] = *best
		} else {
			severe = append(severe, *best)
		}
	}

	sort.SliceStable(severe, func(i, j int) bool {
		if severe[i].CPLoss != severe[j].CPLoss {
			return severe[i].CPLoss > severe[j].CPLoss
		}
		return severe[i].ImprovementCP > severe[j].ImprovementCP
	})

	out := make([]KeyMove, 0, len(severe))
	for _, mv := range severe {
		out = append(out, KeyMove{
			Ply:          mv.Ply,
			Side:         mv.Side,
			SAN:          mv.SAN,
			UCI:          mv.UCI,
			Category:     mv.Category,
			CPLoss:       mv.CPLoss,
			EvalBeforeCP: mv.EvalBeforeCP,
			EvalAfterCP:  mv.EvalAfterCP,
			Commentary:   keyMoveCommentary(mv.Category),
		})
	}
	return out
}

func keyMoveCommentary(category string) string {
	switch category {
	case "best":
		return "High-quality move that improved the position and kept strong practical chances."
	case "good":
		return "Solid move that stayed close to the engine preference."
	case "inaccuracy":
		return "Small but meaningful loss of evaluation compared to the top engine line."
	case "mistake":
		return "Major inaccuracy that shifted momentum toward the opponent."
	}
	return "Critical blunder that created a large evaluation swing."
}

func (s *Service) buildTurningPoints(reports []MoveReport) []TurningPoint {
	var flips []MoveReport
	for _, mv := range reports {
		if mv.EvalBeforeCP == 0 || mv.EvalAfterCP == 0 {
			continue
		}
		if (mv.EvalBeforeCP > 0) != (mv.EvalAfterCP > 0) {
			flips = append(flips, mv)
		}
	}
	bySwing := make([]MoveReport, len(reports))
	copy(bySwing, reports)
	sort.SliceStable(bySwing, func(i, j int) bool { return abs(bySwing[i].SwingCP) > abs(bySwing[j].SwingCP) })

	seen := make(map[int]bool)
	var out []TurningPoint
	for _, mv := range append(flips, bySwing...) {
		if seen[mv.Ply] {
			continue
		}
		seen[mv.Ply] = true
		out = append(out, TurningPoint{
			Ply:        mv.Ply,
			Side:       mv.Side,
			SAN:        mv.SAN,
			SwingCP:    abs(mv.SwingCP),
			Commentary: turningPointCommentary(mv),
		})
		if len(out) >= s.cfg.TurningPointsLimit {
			break
		}
	}
	return out
}

func turningPointCommentary(mv MoveReport) string {
	switch {
	case mv.EvalBeforeCP >= 0 && mv.EvalAfterCP < 0:
		return "This move flipped the evaluation from White advantage to Black advantage."
	case mv.EvalBeforeCP <= 0 && mv.EvalAfterCP > 0:
		return "This move flipped the evaluation from Black advantage to White advantage."
	}
	return "This move produced one of the largest evaluation swings in the game."
}

func buildSummary(reports []MoveReport, white, black SideMetrics, keyMoves []KeyMove, turning []TurningPoint) string {
	lines := []string{
		fmt.Sprintf("White played at an estimated %d level with %d%% accuracy (avg CPL %d).",
			white.EstimatedElo, white.AccuracyPercent, white.AvgCentipawnLoss),
		fmt.Sprintf("Black played at an estimated %d level with %d%% accuracy (avg CPL %d).",
			black.EstimatedElo, black.AccuracyPercent, black.AvgCentipawnLoss),
	}
	if len(keyMoves) > 0 {
		k := keyMoves[0]
		lines = append(lines, fmt.Sprintf("Key move #%d (%s) %s was classified as %s with a %d centipawn impact.",
			k.Ply, k.Side, k.SAN, k.Category, k.CPLoss))
	}
	if len(turning) > 0 {
		t := turning[0]
		lines = append(lines, fmt.Sprintf("The main turning point came on move #%d (%s) %s, creating a %d centipawn swing.",
			t.Ply, t.Side, t.SAN, t.SwingCP))
	}

	lastEval := 0
	if len(reports) > 0 {
		lastEval = reports[len(reports)-1].EvalAfterCP
	}
	switch {
	case lastEval > 75:
		lines = append(lines, "White finished with a stable edge.")
	case lastEval < -75:
		lines = append(lines, "Black finished with a stable edge.")
	default:
		lines = append(lines, "The final phase stayed dynamically balanced.")
	}
	lines = append(lines, "This report estimates game performance only and does not represent account rating.")
	return strings.Join(lines, " ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
