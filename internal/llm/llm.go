// Package llm holds the model provider adapters. Every provider is a
// Client that turns one move query into raw model text under a deadline
// the adapter enforces itself; parsing and legality checks live upstream
// in the policy layer.
package llm

import (
	"context"
	"errors"
)

// Failure taxonomy surfaced to the policy layer. Policies only ever see
// these through errors.Is; the raw provider error stays wrapped inside.
var (
	ErrTimeout         = errors.New("llm: provider call timed out")
	ErrRateLimited     = errors.New("llm: provider rate limited")
	ErrProvider        = errors.New("llm: provider error")
	ErrInvalidResponse = errors.New("llm: invalid provider response")
)

// MoveQuery carries everything a model needs to pick a move.
type MoveQuery struct {
	FEN        string
	SideToMove string   // "w" or "b"
	LegalMoves []string // sorted UCI
	PGN        string   // movetext so far, may be empty
}

type Client interface {
	Name() string
	// Generate returns the raw model text for one prompt. The
	// implementation applies its own per-call deadline and never blocks
	// past it, returning an ErrTimeout-wrapped error instead.
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
