package llm

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, logging) without touching provider code.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// RateLimit throttles calls through a token-bucket limiter. If rps <= 0
// the middleware passes calls through untouched.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Generate(ctx, prompt)
}

// RateLimitFromEnv reads LLM_RPS / LLM_BURST and rate-limits accordingly;
// with neither set it is a no-op.
func RateLimitFromEnv() Middleware {
	rps, _ := strconv.ParseFloat(os.Getenv("LLM_RPS"), 64)
	burst, _ := strconv.Atoi(os.Getenv("LLM_BURST"))
	return RateLimit(rps, burst)
}

// Logging logs one line per provider call with latency and outcome.
func Logging() Middleware {
	return func(next Client) Client {
		return &logged{next: next}
	}
}

type logged struct {
	next Client
}

func (c *logged) Name() string { return c.next.Name() }
func (c *logged) Close() error { return c.next.Close() }
func (c *logged) Generate(ctx context.Context, prompt string) (string, error) {
	started := time.Now()
	text, err := c.next.Generate(ctx, prompt)
	latency := time.Since(started).Milliseconds()
	if err != nil {
		log.Printf("llm_call client=%s latency_ms=%d error=%v", c.next.Name(), latency, err)
		return "", err
	}
	log.Printf("llm_call client=%s latency_ms=%d bytes=%d", c.next.Name(), latency, len(text))
	return text, nil
}
