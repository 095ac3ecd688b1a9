package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessarena/internal/llm"
)

func reply(uci string) llm.Reply {
	return llm.Reply{Text: `{"move_uci": "` + uci + `"}`}
}

func junk() llm.Reply {
	return llm.Reply{Text: "no move for you"}
}

func TestBaselineFirstValidWins(t *testing.T) {
	sel, err := New(Config{Name: Baseline, MaxAttempts: 3})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p", junk(), reply("e2e4"))
	cand, err := sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary})
	require.NoError(t, err)

	assert.Equal(t, "e2e4", cand.MoveUCI)
	assert.Equal(t, 2, cand.Attempts)
	assert.Equal(t, 2, cand.ProviderCalls)
	assert.Equal(t, 2, primary.Calls())
	assert.False(t, cand.UsedFallback)
}

func TestBaselineExhaustionSpendsExactBudget(t *testing.T) {
	sel, err := New(Config{Name: Baseline, MaxAttempts: 3})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p", junk())
	cand, err := sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, primary.Calls())
	// The exhausted candidate carries the spent budget, but no move.
	assert.Empty(t, cand.MoveUCI)
	assert.Equal(t, 3, cand.Attempts)
	assert.Equal(t, 3, cand.ProviderCalls)
}

func TestBaselineProviderErrorConsumesAttempt(t *testing.T) {
	sel, err := New(Config{Name: Baseline, MaxAttempts: 2})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p",
		llm.Reply{Err: llm.ErrTimeout},
		llm.Reply{Err: llm.ErrRateLimited},
	)
	_, err = sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, primary.Calls())
}

func TestSelfConsistencyPicksModalMove(t *testing.T) {
	sel, err := New(Config{Name: SelfConsistency, Samples: 5, MaxAttempts: 1})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p",
		reply("e2e4"), reply("g1f3"), reply("e2e4"), reply("g1f3"), reply("e2e4"),
	)
	cand, err := sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary})
	require.NoError(t, err)

	assert.Equal(t, "e2e4", cand.MoveUCI)
	assert.Equal(t, 1, cand.Attempts)
	assert.Equal(t, 5, cand.ProviderCalls)
	assert.InDelta(t, 0.6, cand.Agreement, 1e-9)
	assert.Equal(t, 5, primary.Calls())
}

func TestSelfConsistencyAgreementCountsAllSamples(t *testing.T) {
	sel, err := New(Config{Name: SelfConsistency, Samples: 5, MaxAttempts: 1})
	require.NoError(t, err)

	// Two refusals still divide the agreement by the full sample count.
	primary := llm.NewScriptedClient("p",
		reply("e2e4"), junk(), reply("e2e4"), junk(), reply("e2e4"),
	)
	cand, err := sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary})
	require.NoError(t, err)

	assert.Equal(t, "e2e4", cand.MoveUCI)
	assert.InDelta(t, 0.6, cand.Agreement, 1e-9)
}

func TestSelfConsistencyAllRefusalsExhausts(t *testing.T) {
	sel, err := New(Config{Name: SelfConsistency, Samples: 3, MaxAttempts: 2})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p", junk())
	_, err = sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 6, primary.Calls())
}

func TestVerifierApprovalPath(t *testing.T) {
	sel, err := New(Config{Name: Verifier, MaxAttempts: 3, VerifierModel: "check-model"})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p", reply("e2e4"))
	verifier := llm.NewScriptedClient("v",
		llm.Reply{Text: `{"verdict": "reject"}`},
		llm.Reply{Text: `{"verdict": "approve"}`},
	)
	cand, err := sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary, Verifier: verifier})
	require.NoError(t, err)

	assert.Equal(t, "e2e4", cand.MoveUCI)
	assert.Equal(t, 2, cand.Attempts)
	assert.True(t, cand.UsedVerifier)
	assert.Equal(t, 4, cand.ProviderCalls)
	assert.Equal(t, 2, verifier.Calls())
}

func TestVerifierRejectionExhausts(t *testing.T) {
	sel, err := New(Config{Name: Verifier, MaxAttempts: 2, VerifierModel: "check-model"})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p", reply("e2e4"))
	verifier := llm.NewScriptedClient("v", llm.Reply{Text: `{"verdict": "reject"}`})
	_, err = sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary, Verifier: verifier})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, primary.Calls())
	assert.Equal(t, 2, verifier.Calls())
}

func TestVerifierFailureCountsAsRejection(t *testing.T) {
	sel, err := New(Config{Name: Verifier, MaxAttempts: 1, VerifierModel: "check-model"})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p", reply("e2e4"))
	verifier := llm.NewScriptedClient("v", llm.Reply{Err: llm.ErrProvider})
	_, err = sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary, Verifier: verifier})
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestUncertaintyFallbackHighAgreementSkipsFallback(t *testing.T) {
	sel, err := New(Config{
		Name: UncertaintyFallback, Samples: 5, MaxAttempts: 1,
		AgreementThreshold: 0.6, FallbackModel: "strong-model",
	})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p",
		reply("e2e4"), reply("e2e4"), reply("e2e4"), reply("g1f3"), reply("g1f3"),
	)
	fallback := llm.NewScriptedClient("f", reply("b1c3"))
	cand, err := sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary, Fallback: fallback})
	require.NoError(t, err)

	assert.Equal(t, "e2e4", cand.MoveUCI)
	assert.False(t, cand.UsedFallback)
	assert.Equal(t, 0, fallback.Calls())
	assert.Equal(t, 5, cand.ProviderCalls)
}

func TestUncertaintyFallbackLowAgreementCallsFallbackOnce(t *testing.T) {
	sel, err := New(Config{
		Name: UncertaintyFallback, Samples: 5, MaxAttempts: 1,
		AgreementThreshold: 0.8, FallbackModel: "strong-model",
	})
	require.NoError(t, err)

	// 3/5 agreement = 0.6, below the 0.8 threshold.
	primary := llm.NewScriptedClient("p",
		reply("e2e4"), reply("e2e4"), reply("e2e4"), reply("g1f3"), reply("g1f3"),
	)
	fallback := llm.NewScriptedClient("f", reply("b1c3"))
	cand, err := sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary, Fallback: fallback})
	require.NoError(t, err)

	assert.Equal(t, "b1c3", cand.MoveUCI)
	assert.True(t, cand.UsedFallback)
	assert.Equal(t, 1, fallback.Calls())
	assert.Equal(t, 6, cand.ProviderCalls)
	assert.InDelta(t, 0.6, cand.Agreement, 1e-9)
}

func TestUncertaintyFallbackBothFailingExhausts(t *testing.T) {
	sel, err := New(Config{
		Name: UncertaintyFallback, Samples: 2, MaxAttempts: 1,
		AgreementThreshold: 1.0, FallbackModel: "strong-model",
	})
	require.NoError(t, err)

	primary := llm.NewScriptedClient("p", reply("e2e4"), reply("g1f3"))
	fallback := llm.NewScriptedClient("f", junk())
	_, err = sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary, Fallback: fallback})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, fallback.Calls())
}

func TestSelectorsNeverEmitIllegalMoves(t *testing.T) {
	// Every reply is either illegal or junk except one legal move.
	primary := llm.NewScriptedClient("p",
		llm.Reply{Text: `{"move_uci": "e2e5"}`},
		llm.Reply{Text: "d2d5!!"},
		reply("g1f3"),
	)
	sel, err := New(Config{Name: Baseline, MaxAttempts: 5})
	require.NoError(t, err)
	cand, err := sel.SelectMove(context.Background(), startPos(), Clients{Primary: primary})
	require.NoError(t, err)
	assert.Equal(t, "g1f3", cand.MoveUCI)
	assert.Equal(t, 3, cand.Attempts)
}

func TestSelectMoveHonorsCancellation(t *testing.T) {
	sel, err := New(Config{Name: Baseline, MaxAttempts: 3})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := llm.NewScriptedClient("p", reply("e2e4"))
	_, err = sel.SelectMove(ctx, startPos(), Clients{Primary: primary})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModalMoveTieBreaksFirstSeen(t *testing.T) {
	move, votes := modalMove([]string{"g1f3", "e2e4", "e2e4", "g1f3"})
	assert.Equal(t, "g1f3", move)
	assert.Equal(t, 2, votes)
}
