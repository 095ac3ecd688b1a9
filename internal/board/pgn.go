package board

import (
	"strings"

	"github.com/notnil/chess"
)

// PlayedMove is one half-move recovered from a PGN, with the positions
// around it.
type PlayedMove struct {
	UCI       string
	SAN       string
	Side      string // "white" or "black"
	FENBefore string
	FENAfter  string
}

// ReplayPGN parses movetext and replays it from the initial position.
// An empty or unparsable PGN yields no moves rather than an error, so
// callers can treat it as a too-short game.
func ReplayPGN(pgn string) []PlayedMove {
	pgn = strings.TrimSpace(pgn)
	if pgn == "" {
		return nil
	}
	if !hasResultToken(pgn) {
		// Accumulated movetext has no result marker yet.
		pgn += " *"
	}
	opt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil
	}
	parsed := chess.NewGame(opt)

	g := chess.NewGame()
	out := make([]PlayedMove, 0, len(parsed.Moves()))
	for _, move := range parsed.Moves() {
		pos := g.Position()
		pm := PlayedMove{
			UCI:       move.String(),
			SAN:       chess.AlgebraicNotation{}.Encode(pos, move),
			Side:      "white",
			FENBefore: pos.String(),
		}
		if pos.Turn() == chess.Black {
			pm.Side = "black"
		}
		if err := g.Move(move); err != nil {
			break
		}
		pm.FENAfter = g.Position().String()
		out = append(out, pm)
	}
	return out
}

func hasResultToken(pgn string) bool {
	switch {
	case strings.HasSuffix(pgn, "*"),
		strings.HasSuffix(pgn, "1-0"),
		strings.HasSuffix(pgn, "0-1"),
		strings.HasSuffix(pgn, "1/2-1/2"):
		return true
	}
	return false
}
