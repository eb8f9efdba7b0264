package engine

import "fmt"

// MateBase is the pawn-unit magnitude a forced mate is anchored at. A mate
// in N converts to +/-(MateBase+N), so a closer mate has a smaller magnitude
// and any mate score dwarfs every centipawn score the engine can report.
const MateBase = 1000.0

// Score is a position evaluation in pawn units, always from the perspective
// of the side to move at the evaluated position.
type Score float64

// FromCentipawns converts a UCI "score cp" value to pawn units.
func FromCentipawns(cp int) Score {
	return Score(float64(cp) / 100.0)
}

// FromMate converts a UCI "score mate" value (moves until mate, negative if
// the side to move is getting mated) to the normalized mate scale.
func FromMate(moves int) Score {
	if moves < 0 {
		return Score(-(MateBase + float64(-moves)))
	}
	return Score(MateBase + float64(moves))
}

// Pawns returns the score as a plain float64.
func (s Score) Pawns() float64 { return float64(s) }

// IsMate reports whether the score is on the mate scale.
func (s Score) IsMate() bool {
	return s >= MateBase || s <= -MateBase
}

func (s Score) String() string {
	return fmt.Sprintf("%.2f", float64(s))
}
