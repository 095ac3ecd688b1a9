// Package arena runs batches of LLM-vs-LLM games: a single-game driver,
// a run scheduler with a polled lifecycle, and aggregate statistics.
package arena

import (
	"context"
	"fmt"
	"strings"

	"chessarena/internal/llm"
	"chessarena/internal/policy"
)

// PlayerConfig is one side of an arena run: a model identity bound to a
// TTC policy.
type PlayerConfig struct {
	Provider    string        `json:"provider" yaml:"provider"`
	Model       string        `json:"model" yaml:"model"`
	CustomModel string        `json:"custom_model,omitempty" yaml:"custom_model,omitempty"`
	Policy      policy.Config `json:"ttc_policy" yaml:"ttc_policy"`
}

// ResolvedModel returns the custom override when present.
func (p PlayerConfig) ResolvedModel() string {
	if m := strings.TrimSpace(p.CustomModel); m != "" {
		return m
	}
	return strings.TrimSpace(p.Model)
}

// RunConfig is the unit of batch work submitted by a client.
type RunConfig struct {
	PlayerA         PlayerConfig `json:"player_a" yaml:"player_a"`
	PlayerB         PlayerConfig `json:"player_b" yaml:"player_b"`
	NumGames        int          `json:"num_games" yaml:"num_games"`
	MaxPlies        int          `json:"max_plies" yaml:"max_plies"`
	AlternateColors bool         `json:"alternate_colors" yaml:"alternate_colors"`
}

const (
	maxNumGames = 64
	maxMaxPlies = 500
)

// ModelChecker is the allow-list collaborator consulted at submission.
type ModelChecker interface {
	IsModelAllowed(provider, model string) bool
	CustomModelAllowed() bool
}

// Validate rejects a config synchronously, before the run ever reaches
// the queue.
func (c RunConfig) Validate(checker ModelChecker) error {
	if c.NumGames < 1 || c.NumGames > maxNumGames {
		return fmt.Errorf("num_games must be in 1..%d", maxNumGames)
	}
	if c.MaxPlies < 1 || c.MaxPlies > maxMaxPlies {
		return fmt.Errorf("max_plies must be in 1..%d", maxMaxPlies)
	}
	if err := c.PlayerA.validate(checker, "player_a"); err != nil {
		return err
	}
	return c.PlayerB.validate(checker, "player_b")
}

func (p PlayerConfig) validate(checker ModelChecker, label string) error {
	if err := p.Policy.Validate(); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	model := p.ResolvedModel()
	if model == "" {
		return fmt.Errorf("%s: model is required", label)
	}
	if checker == nil {
		return nil
	}
	if strings.TrimSpace(p.CustomModel) != "" {
		if !checker.CustomModelAllowed() {
			return fmt.Errorf("%s: custom models are disabled", label)
		}
	} else if !checker.IsModelAllowed(p.Provider, model) {
		return fmt.Errorf("%s: model %s/%s is not allowed", label, p.Provider, model)
	}
	n := p.Policy.Normalized()
	if n.Name == policy.Verifier && checker != nil &&
		!checker.IsModelAllowed(verifierProvider(p), n.VerifierModel) {
		return fmt.Errorf("%s: verifier model %s is not allowed", label, n.VerifierModel)
	}
	if n.Name == policy.UncertaintyFallback && checker != nil &&
		!checker.IsModelAllowed(fallbackProvider(p), n.FallbackModel) {
		return fmt.Errorf("%s: fallback model %s is not allowed", label, n.FallbackModel)
	}
	return nil
}

func verifierProvider(p PlayerConfig) string {
	if v := strings.TrimSpace(p.Policy.VerifierProvider); v != "" {
		return v
	}
	return p.Provider
}

func fallbackProvider(p PlayerConfig) string {
	if v := strings.TrimSpace(p.Policy.FallbackProvider); v != "" {
		return v
	}
	return p.Provider
}

// ClientFactory builds provider clients; satisfied by llm.Factory.
type ClientFactory interface {
	Build(ctx context.Context, provider, model string) (llm.Client, error)
}

// buildClients resolves the primary plus any auxiliary clients a
// player's policy needs.
func buildClients(ctx context.Context, factory ClientFactory, p PlayerConfig) (policy.Clients, error) {
	var cl policy.Clients
	primary, err := factory.Build(ctx, p.Provider, p.ResolvedModel())
	if err != nil {
		return cl, err
	}
	cl.Primary = primary
	n := p.Policy.Normalized()
	if n.Name == policy.Verifier {
		cl.Verifier, err = factory.Build(ctx, verifierProvider(p), n.VerifierModel)
		if err != nil {
			_ = primary.Close()
			return policy.Clients{}, err
		}
	}
	if n.Name == policy.UncertaintyFallback {
		cl.Fallback, err = factory.Build(ctx, fallbackProvider(p), n.FallbackModel)
		if err != nil {
			_ = primary.Close()
			return policy.Clients{}, err
		}
	}
	return cl, nil
}
