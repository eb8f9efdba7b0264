// Package analyzer drives the full run: load the corpus, walk every game
// through the detector, and aggregate the critical moves in stable
// file/game/move order. Failures are isolated at the smallest scope that
// can contain them; only engine startup is fatal.
package analyzer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/LpTino/chess-analyzer/internal/analysis"
	"github.com/LpTino/chess-analyzer/internal/corpus"
	"github.com/LpTino/chess-analyzer/internal/detect"
	"github.com/LpTino/chess-analyzer/internal/engine"
)

// Engine is the evaluator handle the analyzer manages: scoped acquisition
// through a Factory, a single restart on failure, release on every exit
// path.
type Engine interface {
	detect.Evaluator
	Restart() error
	Close() error
}

// Factory launches one engine process. Each worker owns exactly one.
type Factory func() (Engine, error)

// Config holds the per-run analysis settings.
type Config struct {
	Depth     int
	Threshold float64
	Workers   int // engine processes to run in parallel, min 1
}

// Analyzer aggregates critical moves across a whole corpus.
type Analyzer struct {
	cfg       Config
	log       zerolog.Logger
	newEngine Factory
}

func New(cfg Config, log zerolog.Logger, factory Factory) *Analyzer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Analyzer{cfg: cfg, log: log, newEngine: factory}
}

// Run analyzes every game in every PGN file under dir. On context
// cancellation it returns whatever was collected so far together with the
// context error, so the caller can still flush partial reports.
func (a *Analyzer) Run(ctx context.Context, dir string) ([]analysis.CriticalMove, error) {
	files, err := corpus.LoadDir(dir, a.log)
	if err != nil {
		return nil, err
	}

	var games []corpus.Game
	for _, f := range files {
		games = append(games, f.Games...)
	}
	a.log.Info().Int("games", len(games)).Int("workers", a.cfg.Workers).Msg("starting analysis")

	results := make([][]analysis.CriticalMove, len(games))
	if a.cfg.Workers == 1 {
		err = a.runSequential(ctx, games, results)
	} else {
		err = a.runPool(ctx, games, results)
	}
	if err != nil {
		return nil, err
	}

	var moves []analysis.CriticalMove
	for _, r := range results {
		moves = append(moves, r...)
	}
	a.log.Info().Int("critical_moves", len(moves)).Msg("analysis finished")
	return moves, ctx.Err()
}

func (a *Analyzer) runSequential(ctx context.Context, games []corpus.Game, results [][]analysis.CriticalMove) error {
	eng, err := a.newEngine()
	if err != nil {
		return fmt.Errorf("engine startup: %w", err)
	}
	defer eng.Close()

	for i := range games {
		if ctx.Err() != nil {
			a.log.Warn().Msg("analysis interrupted, keeping partial results")
			return nil
		}
		a.analyzeOne(ctx, eng, games[i], &results[i], a.log)
	}
	return nil
}

// runPool distributes games over N workers, one engine process per worker.
// Games are independent, so the only coordination is the shared index
// channel; results land in their preassigned slot, which preserves the
// file/game order of the sequential path.
func (a *Analyzer) runPool(ctx context.Context, games []corpus.Game, results [][]analysis.CriticalMove) error {
	engines := make([]Engine, 0, a.cfg.Workers)
	defer func() {
		for _, e := range engines {
			e.Close()
		}
	}()
	for i := 0; i < a.cfg.Workers; i++ {
		eng, err := a.newEngine()
		if err != nil {
			return fmt.Errorf("engine startup (worker %d): %w", i, err)
		}
		engines = append(engines, eng)
	}

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := range games {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w, eng := range engines {
		wg.Add(1)
		go func(w int, eng Engine) {
			defer wg.Done()
			log := a.log.With().Int("worker", w).Logger()
			for i := range jobs {
				a.analyzeOne(ctx, eng, games[i], &results[i], log)
			}
		}(w, eng)
	}
	wg.Wait()
	return nil
}

// analyzeOne runs the detector on a single game. An evaluation failure
// (after the engine-restart retry inside retryEvaluator) abandons the rest
// of that game only; moves classified before the failure are kept. The
// abandoned engine may still be mid-search, so it is restarted before the
// next game ever talks to it: a late answer to an old search must not be
// read as the next position's result.
func (a *Analyzer) analyzeOne(ctx context.Context, eng Engine, g corpus.Game, out *[]analysis.CriticalMove, log zerolog.Logger) {
	det := &detect.Detector{
		Eval:      retryEvaluator{eng: eng, log: log},
		Depth:     a.cfg.Depth,
		Threshold: a.cfg.Threshold,
		Log:       log,
	}
	moves, err := det.AnalyzeGame(ctx, g)
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).
			Str("file", g.File).
			Int("game", g.Index).
			Msg("evaluation failed, skipping rest of game")
		if rerr := eng.Restart(); rerr != nil {
			log.Error().Err(rerr).Msg("engine restart after abandoned game failed")
		}
	}
	*out = moves
	if err == nil {
		log.Info().Str("game", g.ID).Int("critical", len(moves)).Msg("game analyzed")
	}
}

// retryEvaluator restarts the engine process once after a failed
// evaluation and retries. A second failure propagates.
type retryEvaluator struct {
	eng Engine
	log zerolog.Logger
}

func (r retryEvaluator) Evaluate(ctx context.Context, fen string, depth int) (engine.Result, error) {
	res, err := r.eng.Evaluate(ctx, fen, depth)
	if err == nil || ctx.Err() != nil {
		return res, err
	}
	r.log.Warn().Err(err).Str("fen", fen).Msg("evaluation failed, restarting engine for one retry")
	if rerr := r.eng.Restart(); rerr != nil {
		return res, fmt.Errorf("engine restart: %w", rerr)
	}
	return r.eng.Evaluate(ctx, fen, depth)
}
