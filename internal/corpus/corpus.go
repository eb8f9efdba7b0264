// Package corpus loads directories of PGN files into immutable games for
// analysis. Parsing is delegated to github.com/notnil/chess; this package
// only decides what is a game, what is a file, and what gets skipped.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

// ParseError marks a single game that could not be parsed. The file's
// remaining games are unaffected.
type ParseError struct {
	File string
	Game int // 1-based index within the file
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s game %d: %v", e.File, e.Game, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Game is one loaded game: identity plus the parsed main line. Immutable
// once loaded.
type Game struct {
	File  string // base name of the source file
	Index int    // 1-based index within the file
	ID    string // "<stem>_<index>"
	g     *chess.Game
}

// NewGame wraps an already-parsed game. Exposed for tests and callers that
// build games programmatically.
func NewGame(file string, index int, g *chess.Game) Game {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return Game{
		File:  filepath.Base(file),
		Index: index,
		ID:    fmt.Sprintf("%s_%d", stem, index),
		g:     g,
	}
}

// Moves returns the main line. Side variations in the source PGN are not
// represented here at all.
func (g Game) Moves() []*chess.Move { return g.g.Moves() }

// Positions returns the position before each move plus the final position,
// so len(Positions()) == len(Moves())+1.
func (g Game) Positions() []*chess.Position { return g.g.Positions() }

// SAN renders move i in standard algebraic notation.
func (g Game) SAN(i int) string {
	return chess.AlgebraicNotation{}.Encode(g.Positions()[i], g.Moves()[i])
}

// Outcome returns the recorded result, e.g. "1-0".
func (g Game) Outcome() string { return string(g.g.Outcome()) }

// File is one PGN file and the games that parsed out of it.
type File struct {
	Path  string
	Games []Game
}

// ListFiles returns the PGN files in dir, sorted. An unreadable or empty
// directory is an error: there is nothing to analyze, which callers treat
// as fatal.
func ListFiles(dir string) ([]string, error) {
	if fi, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("input directory: %s is not a directory", dir)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.pgn"))
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("input directory: no PGN files in %s", dir)
	}
	return paths, nil
}

// LoadDir loads every game from every PGN file in dir, in file order. A
// game that fails to parse is logged and skipped; a file that cannot be
// read is logged and skipped; neither aborts the load.
func LoadDir(dir string, log zerolog.Logger) ([]File, error) {
	paths, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	log.Info().Int("files", len(paths)).Str("dir", dir).Msg("found PGN files")

	files := make([]File, 0, len(paths))
	for _, path := range paths {
		f, err := LoadFile(path, log)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("skipping unreadable file")
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// LoadFile parses all games in one PGN file, skipping games that fail to
// parse.
func LoadFile(path string, log zerolog.Logger) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}

	f := File{Path: path}
	for i, chunk := range splitGames(string(data)) {
		fn, err := chess.PGN(strings.NewReader(chunk))
		if err != nil {
			perr := &ParseError{File: filepath.Base(path), Game: i + 1, Err: err}
			log.Warn().Err(perr).Msg("skipping malformed game")
			continue
		}
		g := chess.NewGame(fn)
		// The parser stops quietly at the first token it cannot read, so a
		// short main line means part of the movetext never parsed.
		if want := countMoveTokens(chunk); want != len(g.Moves()) {
			perr := &ParseError{
				File: filepath.Base(path),
				Game: i + 1,
				Err:  fmt.Errorf("movetext: parsed %d of %d moves", len(g.Moves()), want),
			}
			log.Warn().Err(perr).Msg("skipping malformed game")
			continue
		}
		f.Games = append(f.Games, NewGame(path, i+1, g))
	}
	log.Info().Str("file", filepath.Base(path)).Int("games", len(f.Games)).Msg("loaded games")
	return f, nil
}

// countMoveTokens counts the move tokens in one game chunk: tag lines,
// comments, variations, NAGs, move numbers and the result are all stripped
// first, so what remains is the main line the parser should have consumed.
func countMoveTokens(chunk string) int {
	var movetext strings.Builder
	for _, line := range strings.Split(chunk, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "%") {
			continue
		}
		movetext.WriteString(line)
		movetext.WriteString(" ")
	}

	var (
		stripped  strings.Builder
		inComment bool
		varDepth  int
	)
	for _, r := range movetext.String() {
		switch {
		case inComment:
			if r == '}' {
				inComment = false
			}
			stripped.WriteRune(' ')
		case r == '{':
			inComment = true
			stripped.WriteRune(' ')
		case r == '(':
			varDepth++
			stripped.WriteRune(' ')
		case r == ')':
			if varDepth > 0 {
				varDepth--
			}
			stripped.WriteRune(' ')
		case varDepth > 0:
			stripped.WriteRune(' ')
		default:
			stripped.WriteRune(r)
		}
	}

	n := 0
	for _, tok := range strings.Fields(stripped.String()) {
		switch tok {
		case "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		if strings.HasPrefix(tok, "$") {
			continue
		}
		// Move numbers come glued ("12.e4", "12...Nf6") or standalone.
		tok = strings.TrimLeft(tok, "0123456789.")
		if tok != "" {
			n++
		}
	}
	return n
}

// splitGames cuts a multi-game PGN into per-game chunks so one malformed
// game cannot take the rest of the file down with it. A new game starts at
// a tag line that follows movetext.
func splitGames(data string) []string {
	var (
		chunks   []string
		cur      []string
		sawMoves bool
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(cur, "\n"))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		cur = cur[:0]
		sawMoves = false
	}
	for _, line := range strings.Split(data, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && sawMoves {
			flush()
		}
		if trimmed != "" && !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "%") {
			sawMoves = true
		}
		cur = append(cur, line)
	}
	flush()
	return chunks
}
