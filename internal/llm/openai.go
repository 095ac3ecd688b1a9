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

// OpenAIClient calls the OpenAI Chat Completions API and asks for JSON.
type OpenAIClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
}

func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIClient{
		http:    &http.Client{},
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1/chat/completions",
		timeout: timeout,
	}
}

func (c *OpenAIClient) Name() string { return "openai:" + c.model }
func (c *OpenAIClient) Close() error { return nil }

type openAIChatReq struct {
	Model       string          `json:"model"`
	Temperature float32         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
}
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type openAIChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("%s: %w: OPENAI_API_KEY is missing", c.Name(), ErrProvider)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, _ := json.Marshal(openAIChatReq{
		Model:       c.model,
		Temperature: 0.1,
		Messages: []openAIMessage{
			{Role: "system", Content: movePromptSystem},
			{Role: "user", Content: prompt},
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", wrapTransport(c.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
	var out openAIChatResp
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%s: %w: %v", c.Name(), ErrInvalidResponse, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w: empty completion", c.Name(), ErrInvalidResponse)
	}
	return out.Choices[0].Message.Content, nil
}
