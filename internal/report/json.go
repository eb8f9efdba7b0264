// Package report turns the aggregated critical-move list into the output
// artifacts. Each emitter is a pure function of the report; failures in one
// never touch the others.
package report

import (
	"encoding/json"
	"io"

	"github.com/LpTino/chess-analyzer/internal/analysis"
)

// WriteJSON serializes the full report, pretty-indented. Decoding the
// output reproduces the in-memory list field for field.
func WriteJSON(w io.Writer, r analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
