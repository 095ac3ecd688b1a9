package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
}

func NewAnthropicClient(apiKey, model string, timeout time.Duration) *AnthropicClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AnthropicClient{
		http:    &http.Client{},
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.anthropic.com/v1/messages",
		timeout: timeout,
	}
}

func (c *AnthropicClient) Name() string { return "anthropic:" + c.model }
func (c *AnthropicClient) Close() error { return nil }

type anthropicReq struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type anthropicResp struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("%s: %w: ANTHROPIC_API_KEY is missing", c.Name(), ErrProvider)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, _ := json.Marshal(anthropicReq{
		Model:     c.model,
		MaxTokens: 120,
		System:    movePromptSystem,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", wrapTransport(c.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", wrapTransport(c.Name(), err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransport(c.Name(), err)
	}
	if resp.StatusCode/100 != 2 {
		return "", wrapStatus(c.Name(), resp.StatusCode, string(data))
	}
	var out anthropicResp
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%s: %w: %v", c.Name(), ErrInvalidResponse, err)
	}
	var chunks []string
	for _, part := range out.Content {
		if part.Text != "" {
			chunks = append(chunks, part.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(chunks, "\n"))
	if text == "" {
		return "", fmt.Errorf("%s: %w: empty message content", c.Name(), ErrInvalidResponse)
	}
	return text, nil
}
