package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FactoryConfig carries the credentials and knobs shared by all
// provider clients built for one process.
type FactoryConfig struct {
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string
	LocalBaseURL string
	Timeout      time.Duration
}

// Factory builds provider clients by name, wrapping each in the
// configured middlewares.
type Factory struct {
	cfg FactoryConfig
	mws []Middleware
}

func NewFactory(cfg FactoryConfig, mws ...Middleware) *Factory {
	return &Factory{cfg: cfg, mws: mws}
}

// Build returns a client for the provider/model pair. The model string
// is trusted here; allow-list enforcement happens at submission time.
func (f *Factory) Build(ctx context.Context, provider, model string) (Client, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("model is required for provider %q", provider)
	}
	var (
		cli Client
		err error
	)
	switch provider {
	case "openai":
		cli = NewOpenAIClient(f.cfg.OpenAIKey, model, f.cfg.Timeout)
	case "anthropic":
		cli = NewAnthropicClient(f.cfg.AnthropicKey, model, f.cfg.Timeout)
	case "gemini":
		cli, err = NewGeminiClient(ctx, f.cfg.GeminiKey, model, f.cfg.Timeout)
	case "local":
		cli = NewLocalClient(model, f.cfg.LocalBaseURL, f.cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", provider)
	}
	if err != nil {
		return nil, err
	}
	return Wrap(cli, f.mws...), nil
}
