// Package board wraps the chess rules engine behind the small oracle
// surface the rest of the system consumes: legal move enumeration, move
// application and terminal detection. Moves cross this boundary as UCI
// strings so callers never touch engine types.
package board

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notnil/chess"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Termination methods reported by Status.
const (
	MethodCheckmate            = "checkmate"
	MethodStalemate            = "stalemate"
	MethodThreefoldRepetition  = "threefold_repetition"
	MethodFivefoldRepetition   = "fivefold_repetition"
	MethodFiftyMoveRule        = "fifty_move_rule"
	MethodSeventyFiveMoveRule  = "seventy_five_move_rule"
	MethodInsufficientMaterial = "insufficient_material"
	MethodUnknown              = "unknown"
)

// Status is the oracle's terminal verdict for the current position.
type Status struct {
	Over   bool
	Winner string // "white", "black" or "draw"; empty while in progress
	Method string
}

// Game is a single chess game in progress.
type Game struct {
	g *chess.Game
}

// New starts a game from the initial position.
func New() *Game {
	return &Game{g: chess.NewGame()}
}

// FromFEN resumes a game from an arbitrary position.
func FromFEN(fen string) (*Game, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("invalid fen: %w", err)
	}
	return &Game{g: chess.NewGame(opt)}, nil
}

// FEN returns the current position.
func (gm *Game) FEN() string {
	return gm.g.Position().String()
}

// SideToMove returns "w" or "b".
func (gm *Game) SideToMove() string {
	if gm.g.Position().Turn() == chess.White {
		return "w"
	}
	return "b"
}

// Plies returns the number of half-moves played so far.
func (gm *Game) Plies() int {
	return len(gm.g.Moves())
}

// LegalMoves enumerates every legal move in UCI form, sorted for a
// stable prompt and a deterministic legality gate.
func (gm *Game) LegalMoves() []string {
	valid := gm.g.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, m := range valid {
		out = append(out, m.String())
	}
	sort.Strings(out)
	return out
}

// PushUCI applies one move given in UCI form and returns its SAN. The
// move must be legal in the current position.
func (gm *Game) PushUCI(uci string) (string, error) {
	pos := gm.g.Position()
	move, err := chess.UCINotation{}.Decode(pos, strings.TrimSpace(uci))
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", uci, err)
	}
	san := chess.AlgebraicNotation{}.Encode(pos, move)
	if err := gm.g.Move(move); err != nil {
		return "", fmt.Errorf("apply %q: %w", uci, err)
	}
	return san, nil
}

// PGN returns the movetext of the game so far.
func (gm *Game) PGN() string {
	return strings.TrimSpace(gm.g.String())
}

// Status reports whether the game is over and how. Threefold repetition
// and the fifty-move rule are claimable rather than automatic, and the
// arena always claims them, so they are folded in here.
func (gm *Game) Status() Status {
	if gm.g.Outcome() == chess.NoOutcome {
		for _, method := range gm.g.EligibleDraws() {
			if method == chess.ThreefoldRepetition || method == chess.FiftyMoveRule {
				_ = gm.g.Draw(method)
				break
			}
		}
	}

	outcome := gm.g.Outcome()
	if outcome == chess.NoOutcome {
		return Status{}
	}
	st := Status{Over: true, Method: methodName(gm.g.Method())}
	switch outcome {
	case chess.WhiteWon:
		st.Winner = "white"
	case chess.BlackWon:
		st.Winner = "black"
	default:
		st.Winner = "draw"
	}
	return st
}

func methodName(m chess.Method) string {
	switch m {
	case chess.Checkmate:
		return MethodCheckmate
	case chess.Stalemate:
		return MethodStalemate
	case chess.ThreefoldRepetition:
		return MethodThreefoldRepetition
	case chess.FivefoldRepetition:
		return MethodFivefoldRepetition
	case chess.FiftyMoveRule:
		return MethodFiftyMoveRule
	case chess.SeventyFiveMoveRule:
		return MethodSeventyFiveMoveRule
	case chess.InsufficientMaterial:
		return MethodInsufficientMaterial
	}
	return MethodUnknown
}

// DecodeSAN resolves a SAN token against a position and returns the
// move in UCI form.
func DecodeSAN(fen, san string) (string, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return "", fmt.Errorf("invalid fen: %w", err)
	}
	g := chess.NewGame(opt)
	move, err := chess.AlgebraicNotation{}.Decode(g.Position(), strings.TrimSpace(san))
	if err != nil {
		return "", err
	}
	return move.String(), nil
}
