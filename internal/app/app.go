// Package app wires the command line, logging, engine lifecycle, analysis
// run and report emission together. cmd/chess-analyzer is a thin shim over
// Run so the whole flow is testable in-process.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/LpTino/chess-analyzer/internal/analysis"
	"github.com/LpTino/chess-analyzer/internal/analyzer"
	"github.com/LpTino/chess-analyzer/internal/cli"
	"github.com/LpTino/chess-analyzer/internal/config"
	"github.com/LpTino/chess-analyzer/internal/corpus"
	"github.com/LpTino/chess-analyzer/internal/engine"
	"github.com/LpTino/chess-analyzer/internal/report"
	"github.com/LpTino/chess-analyzer/internal/version"
)

// Output artifact names inside the output directory.
const (
	jsonName    = "chess_analysis.json"
	htmlName    = "chess_analysis_report.html"
	promptsName = "chess_analysis_prompts.txt"
	logName     = "chess-analyzer.log"
)

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	fs := cli.NewFlagSet("chess-analyzer")
	fs.SetOutput(stderr)

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.Version {
		fmt.Fprintf(stdout, "chess-analyzer version %s\n", version.Version)
		return 0
	}
	if opts.ConfigFile != "" {
		fc, err := config.Load(opts.ConfigFile)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		if err := config.Merge(&opts, fc); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	console := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()

	// Fatal preconditions are checked before any output file exists, so an
	// aborted startup leaves no artifacts behind.
	if _, err := corpus.ListFiles(opts.PGNDir); err != nil {
		console.Error().Err(err).Msg("nothing to analyze")
		return 1
	}
	engCfg := engine.Config{
		Path:       opts.EnginePath,
		Timeout:    opts.EvalTimeout,
		MoveTimeMS: opts.MoveTimeMS,
	}
	probe, err := engine.New(engCfg, console)
	if err != nil {
		console.Error().Err(err).Msg("engine unreachable")
		return 1
	}
	probe.Close()

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		console.Error().Err(err).Msg("cannot create output directory")
		return 1
	}
	logFile, err := os.Create(filepath.Join(opts.OutputDir, logName))
	if err != nil {
		console.Error().Err(err).Msg("cannot create log file")
		return 1
	}
	defer logFile.Close()
	log := zerolog.New(zerolog.MultiLevelWriter(logFile, zerolog.ConsoleWriter{Out: stderr})).
		With().Timestamp().Logger()

	log.Info().
		Str("version", version.Version).
		Str("engine", opts.EnginePath).
		Int("depth", opts.Depth).
		Float64("threshold", opts.Threshold).
		Int("workers", opts.Workers).
		Msg("run started")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := analyzer.New(analyzer.Config{
		Depth:     opts.Depth,
		Threshold: opts.Threshold,
		Workers:   opts.Workers,
	}, log, func() (analyzer.Engine, error) {
		return engine.New(engCfg, log)
	})

	moves, err := a.Run(ctx, opts.PGNDir)
	interrupted := err != nil && errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		log.Error().Err(err).Msg("analysis aborted")
		return 1
	}
	if interrupted {
		log.Warn().Msg("interrupted, flushing partial reports")
	}

	rep := analysis.NewReport(moves, opts.Threshold, opts.Depth)
	emit(log, opts.OutputDir, jsonName, rep, report.WriteJSON)
	if !opts.NoHTML {
		emit(log, opts.OutputDir, htmlName, rep, report.WriteHTML)
	}
	if !opts.NoPrompts {
		emit(log, opts.OutputDir, promptsName, rep, report.WritePrompts)
	}
	log.Info().Int("critical_moves", len(moves)).Str("dir", opts.OutputDir).Msg("reports written")

	if interrupted {
		return 1
	}
	return 0
}

// emit writes one artifact. A write failure is logged and swallowed so the
// remaining artifacts still get their chance.
func emit(log zerolog.Logger, dir, name string, rep analysis.Report, write func(io.Writer, analysis.Report) error) {
	path := filepath.Join(dir, name)
	if err := writeArtifact(path, rep, write); err != nil {
		log.Error().Err(err).Str("artifact", name).Msg("report write failed")
		return
	}
	log.Info().Str("artifact", path).Msg("report written")
}

// writeArtifact creates path and renders one report into it. A close error
// is a write error: an artifact that did not flush was not written.
func writeArtifact(path string, rep analysis.Report, write func(io.Writer, analysis.Report) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = write(f, rep)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
