package report

import (
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/LpTino/chess-analyzer/internal/analysis"
)

// promptLimit caps the prompt file at the biggest swings; a study session
// with a language model rarely needs more.
const promptLimit = 10

var promptTmpl = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"lower": strings.ToLower,
}).Parse(`## Prompt {{.N}}: {{.M.Move}} by {{.M.Side}}
**Game:** {{.M.GameID}} | **Move:** {{.M.MoveNumber}}
**Evaluation swing:** {{printf "%.2f" .M.Delta}} pawns

Analyze this chess position, where {{lower .M.Side}} played {{.M.Move}}.

Context:
- Move number: {{.M.MoveNumber}}
- Evaluation before the move: {{printf "%.2f" .M.EvalBefore}}
- Evaluation after the move: {{printf "%.2f" .M.EvalAfter}}
- Swing: {{printf "%.2f" .M.Delta}} pawns
- Engine classification: {{.M.Comment}}
{{- if .M.BestMove}}
- Engine's preferred move: {{.M.BestMove}}
{{- end}}

Position after the move (FEN):
{{.M.PositionFEN}}

Questions:
1. Why was this move critical?
2. What were the better alternatives?
3. Which tactical or strategic pattern is involved?
4. How did the position change after this move?
5. What lesson can be drawn from it?

Please give a detailed analysis of this position.

{{.Rule}}

`))

// WritePrompts renders the largest swings as self-contained analysis
// prompts for an external language model, one section per move, biggest
// swing first.
func WritePrompts(w io.Writer, r analysis.Report) error {
	moves := append([]analysis.CriticalMove(nil), r.CriticalMoves...)
	sort.SliceStable(moves, func(i, j int) bool { return moves[i].Delta > moves[j].Delta })
	if len(moves) > promptLimit {
		moves = moves[:promptLimit]
	}

	if _, err := io.WriteString(w, "# Chess Analysis Prompts\n"+strings.Repeat("=", 50)+"\n\n"); err != nil {
		return err
	}
	rule := strings.Repeat("=", 80)
	for i, m := range moves {
		data := struct {
			N    int
			M    analysis.CriticalMove
			Rule string
		}{i + 1, m, rule}
		if err := promptTmpl.Execute(w, data); err != nil {
			return err
		}
	}
	return nil
}
