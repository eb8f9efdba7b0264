package detect

import (
	"context"
	"testing"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LpTino/chess-analyzer/internal/analysis"
	"github.com/LpTino/chess-analyzer/internal/corpus"
	"github.com/LpTino/chess-analyzer/internal/engine"
)

// fakeEval returns scripted scores by FEN and records every call. Scores
// are raw side-to-move values, exactly what a UCI engine would report.
type fakeEval struct {
	scores map[string]float64
	best   string
	calls  []string
}

func (f *fakeEval) Evaluate(_ context.Context, fen string, _ int) (engine.Result, error) {
	f.calls = append(f.calls, fen)
	return engine.Result{Score: engine.Score(f.scores[fen]), BestMove: f.best}, nil
}

func buildGame(t *testing.T, sans ...string) corpus.Game {
	t.Helper()
	g := chess.NewGame()
	for _, san := range sans {
		require.NoError(t, g.MoveStr(san), "move %s", san)
	}
	return corpus.NewGame("test.pgn", 1, g)
}

func detector(eval Evaluator, threshold float64) *Detector {
	return &Detector{Eval: eval, Depth: 5, Threshold: threshold, Log: zerolog.Nop()}
}

func TestSingleCriticalMove(t *testing.T) {
	g := buildGame(t, "e4")
	pos := g.Positions()
	eval := &fakeEval{
		scores: map[string]float64{
			pos[0].String(): 0.20, // pre-move, mover's perspective
			pos[1].String(): 2.10, // post-move, opponent's perspective
		},
		best: "d2d4",
	}

	moves, err := detector(eval, 2.0).AnalyzeGame(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, moves, 1)

	m := moves[0]
	assert.Equal(t, "test_1", m.GameID)
	assert.Equal(t, 1, m.MoveNumber)
	assert.Equal(t, "e4", m.Move)
	assert.Equal(t, "White", m.Side)
	assert.InDelta(t, 0.20, m.EvalBefore, 1e-9)
	assert.InDelta(t, -2.10, m.EvalAfter, 1e-9)
	assert.InDelta(t, 2.30, m.Delta, 1e-9)
	assert.Equal(t, "d4", m.BestMove)
	assert.Equal(t, pos[1].String(), m.PositionFEN)
	assert.NotEmpty(t, m.Comment)
}

func TestThresholdBoundaryInclusive(t *testing.T) {
	g := buildGame(t, "e4")
	pos := g.Positions()
	// 0.25 and 2.25 are exact in binary, so delta is exactly 2.5.
	scores := map[string]float64{
		pos[0].String(): 0.25,
		pos[1].String(): 2.25,
	}

	moves, err := detector(&fakeEval{scores: scores}, 2.5).AnalyzeGame(context.Background(), g)
	require.NoError(t, err)
	assert.Len(t, moves, 1, "delta == threshold must be included")

	moves, err = detector(&fakeEval{scores: scores}, 2.5625).AnalyzeGame(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, moves, "delta below threshold must be excluded")
}

func TestChainedEvaluationAndOrdering(t *testing.T) {
	g := buildGame(t, "e4", "e5", "Nf3")
	pos := g.Positions()
	// Raw side-to-move scores chosen so moves 1 and 3 swing and move 2
	// does not: fixed-perspective evals 0.0 -> 3.0 -> 3.0 -> 0.5.
	eval := &fakeEval{
		scores: map[string]float64{
			pos[0].String(): 0.0,  // white to move
			pos[1].String(): -3.0, // black to move, white is +3
			pos[2].String(): 3.0,  // white to move, unchanged
			pos[3].String(): -0.5, // black to move, white dropped to +0.5
		},
		best: "d2d4",
	}

	moves, err := detector(eval, 2.0).AnalyzeGame(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, moves, 2)

	assert.Equal(t, 1, moves[0].MoveNumber)
	assert.InDelta(t, 3.0, moves[0].Delta, 1e-9)
	assert.Equal(t, "White", moves[0].Side)

	assert.Equal(t, 3, moves[1].MoveNumber)
	assert.InDelta(t, 2.5, moves[1].Delta, 1e-9)
	assert.Equal(t, "White", moves[1].Side)

	for i := 1; i < len(moves); i++ {
		assert.LessOrEqual(t, moves[i-1].MoveNumber, moves[i].MoveNumber)
	}
}

func TestQuietMoveByLosingSideNotFlagged(t *testing.T) {
	// White is +2.5 throughout; black's reply keeps the eval steady. A
	// perspective mix-up would see |2.5+2.5| = 5 and flag it.
	g := buildGame(t, "e4", "e5")
	pos := g.Positions()
	eval := &fakeEval{
		scores: map[string]float64{
			pos[0].String(): 0.0,
			pos[1].String(): -2.5, // black to move, white +2.5
			pos[2].String(): 2.5,  // white to move, still +2.5
		},
	}

	moves, err := detector(eval, 2.0).AnalyzeGame(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, moves, 1, "only white's first move should be flagged")
	assert.Equal(t, 1, moves[0].MoveNumber)
}

func TestBestMoveQueriedOnlyWhenCritical(t *testing.T) {
	g := buildGame(t, "e4", "e5")
	eval := &fakeEval{scores: map[string]float64{}} // all evals 0, no swings

	moves, err := detector(eval, 2.0).AnalyzeGame(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, moves)
	// start + one per move, no extra best-move lookups
	assert.Len(t, eval.calls, 3)
}

func TestRaisingThresholdYieldsSubset(t *testing.T) {
	g := buildGame(t, "e4", "e5", "Nf3", "Nc6")
	pos := g.Positions()
	scores := map[string]float64{}
	vals := []float64{0.0, -2.2, 4.1, -1.0, 0.3}
	for i, p := range pos {
		scores[p.String()] = vals[i]
	}

	run := func(threshold float64) []analysis.CriticalMove {
		moves, err := detector(&fakeEval{scores: scores, best: "d2d4"}, threshold).
			AnalyzeGame(context.Background(), g)
		require.NoError(t, err)
		return moves
	}

	loose := run(1.0)
	tight := run(3.0)
	assert.Greater(t, len(loose), len(tight))

	inLoose := map[int]bool{}
	for _, m := range loose {
		inLoose[m.MoveNumber] = true
	}
	for _, m := range tight {
		assert.True(t, inLoose[m.MoveNumber], "move %d flagged at T=3.0 but not at T=1.0", m.MoveNumber)
	}
}

func TestCheckmateGetsTerminalScore(t *testing.T) {
	// Fool's mate: 1. f3 e5 2. g4 Qh4#
	g := buildGame(t, "f3", "e5", "g4", "Qh4#")
	pos := g.Positions()
	require.Equal(t, chess.Checkmate, pos[len(pos)-1].Status())

	eval := &fakeEval{scores: map[string]float64{}, best: "d2d4"}
	moves, err := detector(eval, 2.0).AnalyzeGame(context.Background(), g)
	require.NoError(t, err)

	require.NotEmpty(t, moves)
	last := moves[len(moves)-1]
	assert.Equal(t, 4, last.MoveNumber)
	assert.Equal(t, "Black", last.Side)
	assert.InDelta(t, engine.MateBase, last.EvalAfter, 1e-9, "mate scored toward the winner")
	assert.InDelta(t, engine.MateBase, last.Delta, 1e-9)

	// The mate position itself must never reach the engine.
	for _, fen := range eval.calls {
		assert.NotEqual(t, pos[len(pos)-1].String(), fen)
	}
}

func TestEmptyGame(t *testing.T) {
	g := buildGame(t)
	eval := &fakeEval{scores: map[string]float64{}}
	moves, err := detector(eval, 2.0).AnalyzeGame(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, moves)
	assert.Empty(t, eval.calls)
}

func TestDeltaAlwaysNonNegative(t *testing.T) {
	g := buildGame(t, "e4", "e5", "Nf3", "Nc6")
	pos := g.Positions()
	scores := map[string]float64{}
	vals := []float64{1.5, 3.0, -4.0, 2.0, -6.0}
	for i, p := range pos {
		scores[p.String()] = vals[i]
	}

	moves, err := detector(&fakeEval{scores: scores, best: "d2d4"}, 0.0).
		AnalyzeGame(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, moves, 4, "threshold 0 flags every move")
	for _, m := range moves {
		assert.GreaterOrEqual(t, m.Delta, 0.0)
	}
}
