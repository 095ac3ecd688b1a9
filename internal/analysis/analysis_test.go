package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeGameTooShort(t *testing.T) {
	svc := NewService(Config{MinPlies: 8})

	_, err := svc.AnalyzeGame("game-1", "1. e4 e5 *")
	var tooShort *TooShortError
	require.ErrorAs(t, err, &tooShort)
	assert.Equal(t, 8, tooShort.MinPlies)
	assert.Equal(t, 2, tooShort.AnalyzedPlies)

	_, err = svc.AnalyzeGame("game-2", "")
	require.ErrorAs(t, err, &tooShort)
	assert.Equal(t, 0, tooShort.AnalyzedPlies)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, "best", categorize(0))
	assert.Equal(t, "best", categorize(20))
	assert.Equal(t, "good", categorize(21))
	assert.Equal(t, "good", categorize(50))
	assert.Equal(t, "inaccuracy", categorize(51))
	assert.Equal(t, "inaccuracy", categorize(100))
	assert.Equal(t, "mistake", categorize(101))
	assert.Equal(t, "mistake", categorize(200))
	assert.Equal(t, "blunder", categorize(201))
}

func TestBuildSideMetrics(t *testing.T) {
	reports := []MoveReport{
		{Side: "white", CPLoss: 10, Category: "best"},
		{Side: "white", CPLoss: 30, Category: "good"},
		{Side: "white", CPLoss: 260, Category: "blunder"},
		{Side: "black", CPLoss: 0, Category: "best"},
	}
	m := buildSideMetrics("white", reports)

	assert.Equal(t, 100, m.AvgCentipawnLoss)
	assert.Equal(t, 65, m.AccuracyPercent) // 100 - 0.35*100
	assert.Equal(t, 1400, m.EstimatedElo)  // 2800 - 14*100
	assert.Equal(t, 1, m.MoveCounts["best"])
	assert.Equal(t, 1, m.MoveCounts["good"])
	assert.Equal(t, 1, m.MoveCounts["blunder"])
	assert.Equal(t, 0, m.MoveCounts["mistake"])

	perfect := buildSideMetrics("black", reports)
	assert.Equal(t, 0, perfect.AvgCentipawnLoss)
	assert.Equal(t, 100, perfect.AccuracyPercent)
	assert.Equal(t, 2800, perfect.EstimatedElo)
}

func TestSideMetricsClampExtremes(t *testing.T) {
	reports := []MoveReport{{Side: "white", CPLoss: 900, Category: "blunder"}}
	m := buildSideMetrics("white", reports)
	assert.Equal(t, 0, m.AccuracyPercent)
	assert.Equal(t, 600, m.EstimatedElo)
}

func TestBuildKeyMovesRanksBySeverity(t *testing.T) {
	svc := NewService(Config{KeyMovesLimit: 2})
	reports := []MoveReport{
		{Ply: 1, Side: "white", SAN: "e4", Category: "best", CPLoss: 0, ImprovementCP: 0},
		{Ply: 2, Side: "black", SAN: "f6", Category: "mistake", CPLoss: 150},
		{Ply: 3, Side: "white", SAN: "d4", Category: "inaccuracy", CPLoss: 60},
		{Ply: 4, Side: "black", SAN: "g5", Category: "blunder", CPLoss: 700},
	}
	key := svc.buildKeyMoves(reports)
	require.Len(t, key, 2)
	assert.Equal(t, 4, key[0].Ply)
	assert.Equal(t, "blunder", key[0].Category)
	assert.Equal(t, 2, key[1].Ply)
	assert.NotEmpty(t, key[0].Commentary)
}

func TestBuildTurningPointsPrefersSignFlips(t *testing.T) {
	svc := NewService(Config{TurningPointsLimit: 2})
	reports := []MoveReport{
		{Ply: 1, Side: "white", SAN: "e4", EvalBeforeCP: 10, EvalAfterCP: 30, SwingCP: 20},
		{Ply: 2, Side: "black", SAN: "f6", EvalBeforeCP: 30, EvalAfterCP: -120, SwingCP: -150},
		{Ply: 3, Side: "white", SAN: "d4", EvalBeforeCP: -120, EvalAfterCP: -400, SwingCP: -280},
	}
	points := svc.buildTurningPoints(reports)
	require.Len(t, points, 2)
	// The sign flip on ply 2 outranks the bigger raw swing on ply 3.
	assert.Equal(t, 2, points[0].Ply)
	assert.Equal(t, 150, points[0].SwingCP)
	assert.Contains(t, points[0].Commentary, "flipped")
	assert.Equal(t, 3, points[1].Ply)
}

func TestBuildSummaryMentionsBothSides(t *testing.T) {
	white := buildSideMetrics("white", nil)
	black := buildSideMetrics("black", nil)
	s := buildSummary(nil, white, black, nil, nil)
	assert.Contains(t, s, "White played")
	assert.Contains(t, s, "Black played")
	assert.Contains(t, s, "dynamically balanced")
}
