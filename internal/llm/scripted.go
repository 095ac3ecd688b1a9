package llm

import (
	"context"
	"sync"
)

// Reply is one scripted provider response.
type Reply struct {
	Text string
	Err  error
}

// ScriptedClient returns canned replies in order, repeating the last one
// once the script runs out. It records every call for assertions in
// tests and offline runs.
type ScriptedClient struct {
	mu      sync.Mutex
	name    string
	replies []Reply
	calls   int
}

func NewScriptedClient(name string, replies ...Reply) *ScriptedClient {
	return &ScriptedClient{name: name, replies: replies}
}

func (c *ScriptedClient) Name() string { return c.name }
func (c *ScriptedClient) Close() error { return nil }

func (c *ScriptedClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if len(c.replies) == 0 {
		return "", ErrInvalidResponse
	}
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	r := c.replies[i]
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

// Calls reports how many times Generate was invoked.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
