package arena

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessarena/internal/llm"
	"chessarena/internal/policy"
)

// firstLegalClient answers every move prompt with the first move from
// the embedded legal move list, so it stays legal at any position.
type firstLegalClient struct {
	calls int
}

func (c *firstLegalClient) Name() string { return "first-legal" }
func (c *firstLegalClient) Close() error { return nil }

func (c *firstLegalClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.calls++
	const marker = "Legal moves (UCI): "
	idx := strings.Index(prompt, marker)
	if idx < 0 {
		return "", llm.ErrInvalidResponse
	}
	rest := prompt[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	moves := strings.Split(rest, ", ")
	if len(moves) == 0 {
		return "", llm.ErrInvalidResponse
	}
	return `{"move_uci": "` + moves[0] + `"}`, nil
}

func basicPlayerConfig(model string) PlayerConfig {
	return PlayerConfig{
		Provider: "openai",
		Model:    model,
		Policy:   policy.Config{Name: policy.Baseline, MaxAttempts: 2},
	}
}

func mustPlayer(t *testing.T, label string, cli llm.Client) *gamePlayer {
	t.Helper()
	p, err := newGamePlayer(label, basicPlayerConfig("gpt-4o-mini"), policy.Clients{Primary: cli})
	require.NoError(t, err)
	return p
}

func scripted(uci ...string) *llm.ScriptedClient {
	replies := make([]llm.Reply, 0, len(uci))
	for _, m := range uci {
		replies = append(replies, llm.Reply{Text: `{"move_uci": "` + m + `"}`})
	}
	return llm.NewScriptedClient("scripted", replies...)
}

func TestPlayGameCheckmate(t *testing.T) {
	white := mustPlayer(t, "player_a", scripted("f2f3", "g2g4"))
	black := mustPlayer(t, "player_b", scripted("e7e5", "d8h4"))

	outcome, err := playGame(context.Background(), white, black, 0, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.GameIndex)
	assert.Equal(t, "black", outcome.Winner)
	assert.Equal(t, "player_b", outcome.WinnerLabel)
	assert.Equal(t, "checkmate", outcome.Termination)
	assert.Equal(t, 4, outcome.Plies)
	assert.NotEmpty(t, outcome.PGN)
	assert.NotEmpty(t, outcome.FinalFEN)
	assert.Equal(t, 2, outcome.WhiteMoveStats.Moves)
	assert.Equal(t, 2, outcome.BlackMoveStats.Moves)
}

func TestPlayGameResignationByExhaustion(t *testing.T) {
	// White's model never produces a legal move; the attempt budget runs
	// out and black takes the game.
	white := mustPlayer(t, "player_a", llm.NewScriptedClient("broken", llm.Reply{Text: "pass"}))
	black := mustPlayer(t, "player_b", &firstLegalClient{})

	outcome, err := playGame(context.Background(), white, black, 2, 100)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.GameIndex)
	assert.Equal(t, "black", outcome.Winner)
	assert.Equal(t, "player_b", outcome.WinnerLabel)
	assert.Equal(t, TerminationResignation, outcome.Termination)
	assert.Equal(t, 0, outcome.Plies)
	// No move was played, but the burned budget is still accounted.
	assert.Equal(t, 0, outcome.WhiteMoveStats.Moves)
	assert.Equal(t, 2, outcome.WhiteMoveStats.Attempts)
	assert.Equal(t, 2, outcome.WhiteMoveStats.ProviderCalls)
	assert.Greater(t, outcome.WhiteMoveStats.EstimatedCostUSD, 0.0)
}

func TestPlayGamePlyLimitIsADraw(t *testing.T) {
	white := mustPlayer(t, "player_a", &firstLegalClient{})
	black := mustPlayer(t, "player_b", &firstLegalClient{})

	outcome, err := playGame(context.Background(), white, black, 0, 4)
	require.NoError(t, err)

	assert.Equal(t, "draw", outcome.Winner)
	assert.Equal(t, "draw", outcome.WinnerLabel)
	assert.Equal(t, TerminationPlyLimit, outcome.Termination)
	assert.Equal(t, 4, outcome.Plies)
}

func TestPlayGameTerminalCheckPrecedesMoveRequest(t *testing.T) {
	whiteClient := &firstLegalClient{}
	white := mustPlayer(t, "player_a", whiteClient)
	black := mustPlayer(t, "player_b", &firstLegalClient{})

	outcome, err := playGame(context.Background(), white, black, 0, 0)
	require.NoError(t, err)

	// Ply cap of zero means no provider is ever consulted.
	assert.Equal(t, 0, whiteClient.calls)
	assert.Equal(t, TerminationPlyLimit, outcome.Termination)
}

func TestMoveStatsReport(t *testing.T) {
	p := mustPlayer(t, "player_a", scripted("e2e4"))
	p.record(policy.Candidate{MoveUCI: "e2e4", Attempts: 2, ProviderCalls: 3})
	p.record(policy.Candidate{MoveUCI: "g1f3", Attempts: 1, ProviderCalls: 1, UsedFallback: true})

	r := p.report()
	assert.Equal(t, 2, r.Moves)
	assert.Equal(t, 3, r.Attempts)
	assert.InDelta(t, 1.5, r.AvgAttemptsPerMove, 1e-9)
	assert.Equal(t, 4, r.ProviderCalls)
	assert.Equal(t, 1, r.FallbackMoves)
	assert.InDelta(t, 0.5, r.FallbackRate, 1e-9)
	assert.Equal(t, "openai", r.Provider)
	assert.Equal(t, "gpt-4o-mini", r.Model)
	assert.Equal(t, policy.Baseline, r.Policy)
	assert.Greater(t, r.EstimatedCostUSD, 0.0)
}
