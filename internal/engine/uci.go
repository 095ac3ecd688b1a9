// Package engine talks to a UCI chess engine subprocess. It backs both
// the engine player and post-game analysis.
package engine

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
)

// mateScoreCP stands in for forced-mate scores so centipawn math stays
// finite.
const mateScoreCP = 10000

// ResolvePath returns the engine binary to launch: the explicit path
// when given, otherwise a stockfish found on PATH.
func ResolvePath(explicit string) (string, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		return p, nil
	}
	p, err := exec.LookPath("stockfish")
	if err != nil {
		return "", fmt.Errorf("stockfish not found on PATH: %w", err)
	}
	return p, nil
}

// Engine is a single UCI subprocess. The protocol is strictly
// request/response, so calls are serialized under one lock.
type Engine struct {
	mu  sync.Mutex
	eng *uci.Engine
}

// New launches the binary and runs the UCI handshake.
func New(path string) (*Engine, error) {
	eng, err := uci.New(path)
	if err != nil {
		return nil, fmt.Errorf("launch engine %s: %w", path, err)
	}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		eng.Close()
		return nil, fmt.Errorf("uci handshake: %w", err)
	}
	return &Engine{eng: eng}, nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eng.Close()
}

// BestMove searches the position for moveTime and returns the engine's
// choice in UCI form.
func (e *Engine) BestMove(fen string, moveTime time.Duration) (string, error) {
	pos, err := parseFEN(fen)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	err = e.eng.Run(
		uci.CmdPosition{Position: pos},
		uci.CmdGo{MoveTime: moveTime},
	)
	if err != nil {
		return "", fmt.Errorf("engine search: %w", err)
	}
	best := e.eng.SearchResults().BestMove
	if best == nil {
		return "", fmt.Errorf("engine returned no move for %s", fen)
	}
	return best.String(), nil
}

// EvalCP scores the position in centipawns from White's point of view.
// Forced mates clamp to +-mateScoreCP.
func (e *Engine) EvalCP(fen string, moveTime time.Duration) (int, error) {
	pos, err := parseFEN(fen)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	err = e.eng.Run(
		uci.CmdPosition{Position: pos},
		uci.CmdGo{MoveTime: moveTime},
	)
	if err != nil {
		return 0, fmt.Errorf("engine search: %w", err)
	}
	score := e.eng.SearchResults().Info.Score

	// UCI scores are from the side to move; normalize to White.
	cp := score.CP
	if score.Mate != 0 {
		cp = mateScoreCP
		if score.Mate < 0 {
			cp = -mateScoreCP
		}
	}
	if pos.Turn() == chess.Black {
		cp = -cp
	}
	return cp, nil
}

func parseFEN(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("invalid fen: %w", err)
	}
	return chess.NewGame(opt).Position(), nil
}
