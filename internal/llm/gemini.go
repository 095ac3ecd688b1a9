package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiClient{cli: cli, model: model, timeout: timeout}, nil
}

func (c *GeminiClient) Name() string { return "gemini:" + c.model }
func (c *GeminiClient) Close() error { return nil }

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	temp := float32(0.1)
	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      &temp,
		},
	)
	if err != nil {
		return "", wrapTransport(c.Name(), err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%s: %w: no candidates", c.Name(), ErrInvalidResponse)
	}
	var chunks []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			chunks = append(chunks, part.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(chunks, "\n"))
	if text == "" {
		return "", fmt.Errorf("%s: %w: empty candidate text", c.Name(), ErrInvalidResponse)
	}
	return text, nil
}
