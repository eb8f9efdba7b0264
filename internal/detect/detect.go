// Package detect walks a game's main line and flags moves whose evaluation
// swing meets the configured threshold.
package detect

import (
	"context"
	"math"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"

	"github.com/LpTino/chess-analyzer/internal/analysis"
	"github.com/LpTino/chess-analyzer/internal/corpus"
	"github.com/LpTino/chess-analyzer/internal/engine"
)

// Evaluator scores a position at a search depth and recommends a move. The
// score is always from the perspective of the side to move in fen.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string, depth int) (engine.Result, error)
}

// Detector classifies critical moves in one game at a time. It holds no
// per-game state, so one Detector can serve any number of games as long as
// its Evaluator is not shared across goroutines.
type Detector struct {
	Eval      Evaluator
	Depth     int
	Threshold float64
	Log       zerolog.Logger
}

// AnalyzeGame evaluates every main-line position of g and returns the
// critical moves in move order. Each position is evaluated exactly once:
// the raw post-move score of move i is already from the perspective of the
// side to move there, which is the mover of move i+1, so it carries over
// as that move's pre-move score unchanged.
//
// An evaluation error abandons the rest of the game; whatever was already
// classified is returned alongside the error.
func (d *Detector) AnalyzeGame(ctx context.Context, g corpus.Game) ([]analysis.CriticalMove, error) {
	moves := g.Moves()
	positions := g.Positions()
	if len(moves) == 0 {
		return nil, nil
	}

	log := d.Log.With().Str("game", g.ID).Logger()
	log.Info().Int("moves", len(moves)).Msg("analyzing game")

	evalBefore, err := d.evaluate(ctx, positions[0])
	if err != nil {
		return nil, err
	}

	var critical []analysis.CriticalMove
	for i := range moves {
		pre := positions[i]
		post := positions[i+1]

		// Raw score is from the side to move after the move, i.e. the
		// opponent; negating it expresses it for the player who moved.
		rawAfter, err := d.evaluate(ctx, post)
		if err != nil {
			return critical, err
		}
		evalAfter := -rawAfter

		delta := math.Abs(evalAfter.Pawns() - evalBefore.Pawns())
		if delta >= d.Threshold {
			best, err := d.bestMove(ctx, pre)
			if err != nil {
				return critical, err
			}
			cm := analysis.CriticalMove{
				GameID:      g.ID,
				MoveNumber:  i + 1,
				Move:        g.SAN(i),
				Side:        pre.Turn().Name(),
				EvalBefore:  evalBefore.Pawns(),
				EvalAfter:   evalAfter.Pawns(),
				Delta:       delta,
				PositionFEN: post.String(),
				BestMove:    best,
				Comment:     analysis.Comment(evalBefore.Pawns(), evalAfter.Pawns(), delta),
			}
			critical = append(critical, cm)
			log.Info().
				Str("move", cm.Move).
				Float64("delta", delta).
				Msg("critical move detected")
		}

		evalBefore = rawAfter

		if (i+1)%10 == 0 {
			log.Debug().Int("move", i+1).Msg("progress")
		}
	}

	return critical, nil
}

// evaluate returns the score of pos from the side to move's perspective.
// Finished positions get their defined score without consulting the engine:
// the side to move is either mated or stalemated, there is nothing to
// search.
func (d *Detector) evaluate(ctx context.Context, pos *chess.Position) (engine.Score, error) {
	switch pos.Status() {
	case chess.Checkmate:
		return engine.Score(-engine.MateBase), nil
	case chess.Stalemate:
		return 0, nil
	}
	res, err := d.Eval.Evaluate(ctx, pos.String(), d.Depth)
	if err != nil {
		return 0, err
	}
	return res.Score, nil
}

// bestMove asks the engine what it would have played at the pre-move
// position and renders it in standard notation. An engine move that cannot
// be decoded against the position is kept in its long algebraic form.
func (d *Detector) bestMove(ctx context.Context, pre *chess.Position) (string, error) {
	res, err := d.Eval.Evaluate(ctx, pre.String(), d.Depth)
	if err != nil {
		return "", err
	}
	if res.BestMove == "" {
		return "", nil
	}
	if m, err := (chess.UCINotation{}).Decode(pre, res.BestMove); err == nil {
		return chess.AlgebraicNotation{}.Encode(pre, m), nil
	}
	return res.BestMove, nil
}
