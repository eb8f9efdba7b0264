// Package config loads the optional YAML settings file and merges it under
// whatever was given on the command line.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LpTino/chess-analyzer/internal/cli"
)

// File mirrors the CLI flags. Zero values mean "not set".
type File struct {
	Engine      string  `yaml:"engine"`
	Depth       int     `yaml:"depth"`
	MoveTimeMS  int     `yaml:"movetime_ms"`
	EvalTimeout string  `yaml:"eval_timeout"` // Go duration string, e.g. "90s"
	Workers     int     `yaml:"workers"`
	Threshold   float64 `yaml:"threshold"`
	OutputDir   string  `yaml:"output_dir"`
	NoHTML      bool    `yaml:"no_html"`
	NoPrompts   bool    `yaml:"no_prompts"`
}

// Load reads and decodes a config file.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("config %s: %w", path, err)
	}
	return f, nil
}

// Merge applies file values to every option the user did not set
// explicitly on the command line.
func Merge(opt *cli.Options, f File) error {
	if f.Engine != "" && !opt.Set("engine") {
		opt.EnginePath = f.Engine
	}
	if f.Depth != 0 && !opt.Set("depth") {
		opt.Depth = f.Depth
	}
	if f.MoveTimeMS != 0 && !opt.Set("movetime") {
		opt.MoveTimeMS = f.MoveTimeMS
	}
	if f.EvalTimeout != "" && !opt.Set("eval-timeout") {
		d, err := time.ParseDuration(f.EvalTimeout)
		if err != nil {
			return fmt.Errorf("config eval_timeout: %w", err)
		}
		opt.EvalTimeout = d
	}
	if f.Workers != 0 && !opt.Set("workers") {
		opt.Workers = f.Workers
	}
	if f.Threshold != 0 && !opt.Set("threshold") {
		opt.Threshold = f.Threshold
	}
	if f.OutputDir != "" && !opt.Set("output-dir") {
		opt.OutputDir = f.OutputDir
	}
	if f.NoHTML && !opt.Set("no-html") {
		opt.NoHTML = true
	}
	if f.NoPrompts && !opt.Set("no-prompts") {
		opt.NoPrompts = true
	}
	return opt.Validate()
}
