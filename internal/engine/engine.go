// Package engine wraps a UCI chess engine process behind a small evaluation
// facade. One Engine owns one long-lived process; it is not safe for
// concurrent use.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrTimeout is returned when the engine does not produce a result within
// the configured wait. The process is left mid-search afterwards, so the
// caller must Restart before issuing further commands.
var ErrTimeout = errors.New("engine did not respond before deadline")

// ErrClosed is returned when the engine process has exited.
var ErrClosed = errors.New("engine process closed its output")

// EvalError wraps a failed evaluation with the position it was asked about.
type EvalError struct {
	FEN string
	Err error
}

func (e *EvalError) Error() string { return fmt.Sprintf("evaluate %q: %v", e.FEN, e.Err) }
func (e *EvalError) Unwrap() error { return e.Err }

// Result is one engine answer: the score of the position from the side to
// move's perspective and the move the engine would play there.
type Result struct {
	Score    Score
	BestMove string // long algebraic, e.g. "e2e4"
}

// Config holds the engine process settings shared across a run.
type Config struct {
	Path       string        // engine executable, resolved via PATH if bare
	Timeout    time.Duration // max wait per command/evaluation
	MoveTimeMS int           // optional "movetime" cap passed to go, 0 = depth only
}

// Engine is a handle on a running UCI engine process.
type Engine struct {
	cfg   Config
	log   zerolog.Logger
	cmd   *exec.Cmd
	stdin *bufio.Writer
	in    io.Closer
	lines chan string
}

// New launches the engine process and performs the UCI handshake. A launch
// or handshake failure here is the fatal-startup condition: nothing has
// been analyzed yet and the caller should abort the run.
func New(cfg Config, log zerolog.Logger) (*Engine, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	e := &Engine{cfg: cfg, log: log}
	if err := e.start(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) start() error {
	cmd := exec.Command(e.cfg.Path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch engine %q: %w", e.cfg.Path, err)
	}

	lines := make(chan string, 128)
	go func() {
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	e.cmd = cmd
	e.stdin = bufio.NewWriter(stdin)
	e.in = stdin
	e.lines = lines

	if err := e.handshake(); err != nil {
		e.shutdown()
		return fmt.Errorf("uci handshake: %w", err)
	}

	e.log.Debug().Str("path", e.cfg.Path).Msg("engine started")
	return nil
}

func (e *Engine) handshake() error {
	if err := e.send("uci"); err != nil {
		return err
	}
	if err := e.waitFor("uciok"); err != nil {
		return err
	}
	if err := e.send("isready"); err != nil {
		return err
	}
	return e.waitFor("readyok")
}

func (e *Engine) send(cmd string) error {
	if _, err := e.stdin.WriteString(cmd + "\n"); err != nil {
		return fmt.Errorf("write to engine: %w", err)
	}
	if err := e.stdin.Flush(); err != nil {
		return fmt.Errorf("write to engine: %w", err)
	}
	return nil
}

func (e *Engine) waitFor(expected string) error {
	deadline := time.NewTimer(e.cfg.Timeout)
	defer deadline.Stop()
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return ErrClosed
			}
			if strings.Contains(line, expected) {
				return nil
			}
		case <-deadline.C:
			return ErrTimeout
		}
	}
}

// Evaluate scores one position at the given depth. The returned score is
// from the perspective of the side to move in fen. On error the engine may
// still be searching; the caller owns the retry-after-Restart policy.
func (e *Engine) Evaluate(ctx context.Context, fen string, depth int) (Result, error) {
	if err := e.send("position fen " + fen); err != nil {
		return Result{}, &EvalError{FEN: fen, Err: err}
	}
	goCmd := fmt.Sprintf("go depth %d", depth)
	if e.cfg.MoveTimeMS > 0 {
		goCmd += fmt.Sprintf(" movetime %d", e.cfg.MoveTimeMS)
	}
	if err := e.send(goCmd); err != nil {
		return Result{}, &EvalError{FEN: fen, Err: err}
	}

	res, err := e.collect(ctx)
	if err != nil {
		return Result{}, &EvalError{FEN: fen, Err: err}
	}
	return res, nil
}

// collect reads engine output until bestmove, keeping the score from the
// last info line seen (later lines come from deeper search).
func (e *Engine) collect(ctx context.Context) (Result, error) {
	deadline := time.NewTimer(e.cfg.Timeout)
	defer deadline.Stop()

	var res Result
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return res, ErrClosed
			}
			if strings.HasPrefix(line, "info") {
				if s, ok := parseScore(line); ok {
					res.Score = s
				}
			} else if strings.HasPrefix(line, "bestmove") {
				parts := strings.Fields(line)
				if len(parts) > 1 {
					res.BestMove = parts[1]
				}
				return res, nil
			}
		case <-deadline.C:
			return res, ErrTimeout
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

// parseScore extracts "score cp N" or "score mate N" from an info line.
func parseScore(line string) (Score, bool) {
	parts := strings.Fields(line)
	for i, part := range parts {
		if part != "score" || i+2 >= len(parts) {
			continue
		}
		n, err := strconv.Atoi(parts[i+2])
		if err != nil {
			return 0, false
		}
		switch parts[i+1] {
		case "cp":
			return FromCentipawns(n), true
		case "mate":
			return FromMate(n), true
		}
	}
	return 0, false
}

// Restart tears the process down and launches a fresh one. Used after a
// crash or timeout left the previous process unusable.
func (e *Engine) Restart() error {
	e.log.Warn().Str("path", e.cfg.Path).Msg("restarting engine process")
	e.shutdown()
	return e.start()
}

// Close releases the engine process. Safe to call on every exit path.
func (e *Engine) Close() error {
	if e.cmd == nil {
		return nil
	}
	e.shutdown()
	e.cmd = nil
	return nil
}

func (e *Engine) shutdown() {
	_ = e.send("quit")
	_ = e.in.Close()

	// Drain so the reader goroutine can reach EOF even if the process was
	// still printing when we gave up on it.
	go func(lines chan string) {
		for range lines {
		}
	}(e.lines)

	done := make(chan struct{})
	go func() {
		_ = e.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = e.cmd.Process.Kill()
		<-done
	}
}
