// Package analysis defines the records the whole pipeline exchanges: the
// immutable critical-move entries and the report envelope the emitters
// consume.
package analysis

import "time"

// CriticalMove records one move whose evaluation swing met the threshold.
// Constructed once by the detector and never mutated; both evaluations are
// from the perspective of the player who made the move.
type CriticalMove struct {
	GameID      string  `json:"game_id"`
	MoveNumber  int     `json:"move_number"` // ply, 1-based
	Move        string  `json:"move"`        // standard algebraic notation
	Side        string  `json:"side"`        // "White" or "Black"
	EvalBefore  float64 `json:"eval_before"`
	EvalAfter   float64 `json:"eval_after"`
	Delta       float64 `json:"delta"`
	PositionFEN string  `json:"position_fen"` // position after the move
	BestMove    string  `json:"best_move,omitempty"`
	Comment     string  `json:"comment"`
}

// Improved reports whether the move improved the mover's position.
func (m CriticalMove) Improved() bool { return m.EvalAfter > m.EvalBefore }

// Metadata describes the run that produced a report.
type Metadata struct {
	GeneratedAt time.Time `json:"timestamp"`
	Threshold   float64   `json:"threshold"`
	Depth       int       `json:"depth"`
	TotalMoves  int       `json:"total_moves"`
}

// Report is the full ordered critical-move list plus run metadata. It is
// what every emitter serializes.
type Report struct {
	Metadata      Metadata       `json:"metadata"`
	CriticalMoves []CriticalMove `json:"critical_moves"`
}

// NewReport builds the emitter payload from the aggregated move list.
func NewReport(moves []CriticalMove, threshold float64, depth int) Report {
	return Report{
		Metadata: Metadata{
			GeneratedAt: time.Now(),
			Threshold:   threshold,
			Depth:       depth,
			TotalMoves:  len(moves),
		},
		CriticalMoves: moves,
	}
}

// Comment severity cut-offs in pawn units.
const (
	severeSwing = 5.0
	majorSwing  = 3.0
)

// Comment derives the human-readable classification of a critical move from
// the direction and size of the evaluation swing.
func Comment(evalBefore, evalAfter, delta float64) string {
	if evalAfter > evalBefore {
		switch {
		case delta >= severeSwing:
			return "Brilliant move that transforms the position"
		case delta >= majorSwing:
			return "Strong tactical blow that increases the advantage"
		default:
			return "Good move that clearly improves the position"
		}
	}
	switch {
	case delta >= severeSwing:
		return "Blunder that seriously compromises the position"
	case delta >= majorSwing:
		return "Significant tactical mistake"
	default:
		return "Inaccuracy that worsens the position"
	}
}
