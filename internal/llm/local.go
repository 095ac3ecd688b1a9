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

// LocalClient calls an Ollama-compatible /api/generate endpoint. Useful
// for offline play against locally hosted models.
type LocalClient struct {
	http    *http.Client
	model   string
	baseURL string
	timeout time.Duration
}

func NewLocalClient(model, baseURL string, timeout time.Duration) *LocalClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	return &LocalClient{
		http:    &http.Client{},
		model:   model,
		baseURL: baseURL,
		timeout: timeout,
	}
}

func (c *LocalClient) Name() string { return "local:" + c.model }
func (c *LocalClient) Close() error { return nil }

type localGenerateReq struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options"`
}
type localGenerateResp struct {
	Response string `json:"response"`
}

func (c *LocalClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, _ := json.Marshal(localGenerateReq{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"temperature": 0.1},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", wrapTransport(c.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

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
	var out localGenerateResp
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%s: %w: %v", c.Name(), ErrInvalidResponse, err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("%s: %w: empty response", c.Name(), ErrInvalidResponse)
	}
	return out.Response, nil
}
