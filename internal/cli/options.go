// Package cli parses the command line into an Options struct.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/LpTino/chess-analyzer/internal/version"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Input
	PGNDir     string // positional: directory of PGN files
	ConfigFile string

	// Engine
	EnginePath  string
	Depth       int
	MoveTimeMS  int
	EvalTimeout time.Duration
	Workers     int

	// Analysis
	Threshold float64

	// Output
	OutputDir string
	NoHTML    bool
	NoPrompts bool

	Version bool

	// set records which flags were given explicitly, so config-file values
	// never override the user's command line.
	set map[string]bool
}

// Set reports whether the named flag was given explicitly.
func (o Options) Set(name string) bool { return o.set[name] }

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: scan PGN games with a UCI engine and flag critical moves

Version: %s

Usage:
  %s [flags] <pgn-directory>

Flags:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	fs.StringVar(&opt.ConfigFile, "config", "", "YAML config file; flags override it [none]")

	fs.StringVar(&opt.EnginePath, "engine", "stockfish", "UCI engine executable [stockfish]")
	fs.IntVar(&opt.Depth, "depth", 15, "engine search depth [15]")
	fs.IntVar(&opt.MoveTimeMS, "movetime", 0, "extra per-position movetime cap in ms (0 = depth only) [0]")
	fs.DurationVar(&opt.EvalTimeout, "eval-timeout", 60*time.Second, "max wait per engine evaluation [60s]")
	fs.IntVar(&opt.Workers, "workers", 1, "parallel engine processes [1]")

	fs.Float64Var(&opt.Threshold, "threshold", 2.0, "critical-move threshold in pawns [2.0]")

	fs.StringVar(&opt.OutputDir, "output-dir", "./output", "directory for reports and log [./output]")
	fs.BoolVar(&opt.NoHTML, "no-html", false, "skip the HTML report [false]")
	fs.BoolVar(&opt.NoPrompts, "no-prompts", false, "skip the prompt-text report [false]")

	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	opt.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { opt.set[f.Name] = true })
	if opt.Version {
		return opt, nil
	}

	// Validation
	switch fs.NArg() {
	case 0:
		return opt, errors.New("missing PGN directory argument")
	case 1:
		opt.PGNDir = fs.Arg(0)
	default:
		return opt, fmt.Errorf("expected one PGN directory, got %d arguments", fs.NArg())
	}
	return opt, opt.Validate()
}

// Validate checks the numeric options. ParseArgs runs it on the parsed
// flags; it must run again after a config-file merge, since file values
// never pass through the flag layer.
func (o *Options) Validate() error {
	if o.Depth < 1 {
		return errors.New("--depth must be >= 1")
	}
	if o.Threshold < 0 {
		return errors.New("--threshold must be >= 0")
	}
	if o.Workers < 1 {
		return errors.New("--workers must be >= 1")
	}
	if o.EvalTimeout <= 0 {
		return errors.New("--eval-timeout must be positive")
	}
	return nil
}
