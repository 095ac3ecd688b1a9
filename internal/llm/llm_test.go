package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapTransportTaxonomy(t *testing.T) {
	err := wrapTransport("openai", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)

	err = wrapTransport("openai", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrProvider)

	err = wrapTransport("openai", errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrProvider)
}

func TestWrapStatusTaxonomy(t *testing.T) {
	assert.ErrorIs(t, wrapStatus("anthropic", 429, "slow down"), ErrRateLimited)
	assert.ErrorIs(t, wrapStatus("anthropic", 500, "boom"), ErrProvider)
	assert.ErrorIs(t, wrapStatus("anthropic", 401, "bad key"), ErrProvider)
}

func TestScriptedClientOrderAndRepeat(t *testing.T) {
	c := NewScriptedClient("s", Reply{Text: "one"}, Reply{Text: "two"})

	got, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "one", got)

	got, _ = c.Generate(context.Background(), "p")
	assert.Equal(t, "two", got)

	// Script exhausted: the last reply repeats.
	got, _ = c.Generate(context.Background(), "p")
	assert.Equal(t, "two", got)
	assert.Equal(t, 3, c.Calls())
}

func TestWrapOrder(t *testing.T) {
	inner := NewScriptedClient("inner", Reply{Text: "ok"})
	var order []string
	tag := func(name string) Middleware {
		return func(next Client) Client {
			return &tagged{next: next, name: name, order: &order}
		}
	}
	cli := Wrap(inner, tag("outer"), tag("mid"))
	_, err := cli.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "mid"}, order)
}

type tagged struct {
	next  Client
	name  string
	order *[]string
}

func (c *tagged) Name() string { return c.next.Name() }
func (c *tagged) Close() error { return c.next.Close() }
func (c *tagged) Generate(ctx context.Context, prompt string) (string, error) {
	*c.order = append(*c.order, c.name)
	return c.next.Generate(ctx, prompt)
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	inner := NewScriptedClient("inner", Reply{Text: "ok"})
	cli := RateLimit(0, 0)(inner)
	for i := 0; i < 5; i++ {
		_, err := cli.Generate(context.Background(), "p")
		require.NoError(t, err)
	}
	assert.Equal(t, 5, inner.Calls())
}

func TestBuildMovePrompt(t *testing.T) {
	q := MoveQuery{
		FEN:        "8/8/8/8/8/8/8/8 w - - 0 1",
		SideToMove: "b",
		LegalMoves: []string{"e7e5", "g8f6"},
		PGN:        "1. e4",
	}
	p := BuildMovePrompt(q)
	assert.Contains(t, p, "playing chess as Black")
	assert.Contains(t, p, q.FEN)
	assert.Contains(t, p, "e7e5, g8f6")
	assert.Contains(t, p, "1. e4")
	assert.Contains(t, p, `"move_uci"`)
}

func TestBuildVerifierPrompt(t *testing.T) {
	q := MoveQuery{FEN: "fen", LegalMoves: []string{"e2e4"}}
	p := BuildVerifierPrompt(q, "e2e4")
	assert.Contains(t, p, "Candidate move: e2e4")
	assert.Contains(t, p, `"verdict"`)
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	f := NewFactory(FactoryConfig{})
	_, err := f.Build(context.Background(), "watson", "deep-blue")
	assert.Error(t, err)

	_, err = f.Build(context.Background(), "openai", "")
	assert.Error(t, err)
}
