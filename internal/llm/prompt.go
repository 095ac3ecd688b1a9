package llm

import (
	"fmt"
	"strings"
)

const movePromptSystem = "You are a chess move selector. Output JSON only."

// BuildMovePrompt renders the user prompt shared by all providers. The
// legal move list is embedded so the model can only pick from it; the
// policy layer still re-validates whatever comes back.
func BuildMovePrompt(q MoveQuery) string {
	side := "White"
	if q.SideToMove == "b" {
		side = "Black"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are playing chess as %s.\n", side)
	fmt.Fprintf(&b, "Position (FEN): %s\n", q.FEN)
	if strings.TrimSpace(q.PGN) != "" {
		fmt.Fprintf(&b, "Moves so far: %s\n", strings.TrimSpace(q.PGN))
	}
	fmt.Fprintf(&b, "Legal moves (UCI): %s\n", strings.Join(q.LegalMoves, ", "))
	b.WriteString("Pick the strongest move for the side to move.\n")
	b.WriteString(`Respond with JSON only: {"move_uci": "<one legal move>"}`)
	return b.String()
}

// BuildVerifierPrompt asks a second model to approve or reject a
// candidate move for the position.
func BuildVerifierPrompt(q MoveQuery, candidate string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Position (FEN): %s\n", q.FEN)
	fmt.Fprintf(&b, "Legal moves (UCI): %s\n", strings.Join(q.LegalMoves, ", "))
	fmt.Fprintf(&b, "Candidate move: %s\n", candidate)
	b.WriteString("Is the candidate a sound move for the side to move? ")
	b.WriteString(`Respond with JSON only: {"verdict": "approve"} or {"verdict": "reject"}`)
	return b.String()
}
