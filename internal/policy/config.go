// Package policy implements the move-selection strategies that spend
// provider calls to produce one validated move per ply.
package policy

import (
	"fmt"
	"strings"
)

// Supported policy names.
const (
	Baseline            = "baseline"
	SelfConsistency     = "self_consistency"
	Verifier            = "verifier"
	UncertaintyFallback = "uncertainty_fallback"
)

const (
	defaultSamples            = 3
	defaultMaxAttempts        = 3
	defaultAgreementThreshold = 0.67
)

// Config describes a policy variant and its numeric parameters. It is
// immutable once a run starts; Normalized returns the copy the engine
// actually uses.
type Config struct {
	Name               string  `json:"name" yaml:"name"`
	Samples            int     `json:"samples" yaml:"samples"`
	MaxAttempts        int     `json:"max_attempts" yaml:"max_attempts"`
	AgreementThreshold float64 `json:"agreement_threshold" yaml:"agreement_threshold"`

	VerifierProvider string `json:"verifier_provider,omitempty" yaml:"verifier_provider,omitempty"`
	VerifierModel    string `json:"verifier_model,omitempty" yaml:"verifier_model,omitempty"`
	FallbackProvider string `json:"fallback_provider,omitempty" yaml:"fallback_provider,omitempty"`
	FallbackModel    string `json:"fallback_model,omitempty" yaml:"fallback_model,omitempty"`
}

// Normalized clamps numeric parameters into their documented ranges:
// samples and max_attempts to >=1, agreement_threshold to [0.5, 1.0].
// Zero means "use the default" for each of them, since an absent field
// decodes to zero; anything below zero clamps to the range floor. An
// unset name means baseline.
func (c Config) Normalized() Config {
	out := c
	out.Name = strings.ToLower(strings.TrimSpace(c.Name))
	if out.Name == "" {
		out.Name = Baseline
	}
	if out.Samples == 0 {
		out.Samples = defaultSamples
	}
	if out.Samples < 1 {
		out.Samples = 1
	}
	if out.MaxAttempts == 0 {
		out.MaxAttempts = defaultMaxAttempts
	}
	if out.MaxAttempts < 1 {
		out.MaxAttempts = 1
	}
	if out.AgreementThreshold == 0 {
		out.AgreementThreshold = defaultAgreementThreshold
	}
	if out.AgreementThreshold < 0.5 {
		out.AgreementThreshold = 0.5
	}
	if out.AgreementThreshold > 1.0 {
		out.AgreementThreshold = 1.0
	}
	return out
}

// Validate rejects configurations that cannot be executed. The verifier
// model is required for (and only for) the verifier policy; same for the
// fallback model and uncertainty_fallback.
func (c Config) Validate() error {
	n := c.Normalized()
	switch n.Name {
	case Baseline, SelfConsistency, Verifier, UncertaintyFallback:
	default:
		return fmt.Errorf("unknown ttc policy %q", c.Name)
	}
	hasVerifier := strings.TrimSpace(c.VerifierModel) != ""
	hasFallback := strings.TrimSpace(c.FallbackModel) != ""
	if n.Name == Verifier && !hasVerifier {
		return fmt.Errorf("policy %q requires verifier_model", Verifier)
	}
	if n.Name != Verifier && hasVerifier {
		return fmt.Errorf("verifier_model is only valid for policy %q", Verifier)
	}
	if n.Name == UncertaintyFallback && !hasFallback {
		return fmt.Errorf("policy %q requires fallback_model", UncertaintyFallback)
	}
	if n.Name != UncertaintyFallback && hasFallback {
		return fmt.Errorf("fallback_model is only valid for policy %q", UncertaintyFallback)
	}
	return nil
}
