package report

import (
	"html/template"
	"io"

	"github.com/LpTino/chess-analyzer/internal/analysis"
)

// severity buckets for styling only; the comment text carries the meaning.
func severity(m analysis.CriticalMove) string {
	class := "error"
	if m.Improved() {
		class = "good"
	}
	switch {
	case m.Delta >= 5.0:
		return class + " severe"
	case m.Delta >= 3.0:
		return class + " major"
	default:
		return class + " minor"
	}
}

type gameSection struct {
	GameID string
	Moves  []analysis.CriticalMove
}

// groupByGame preserves first-appearance order of games and move order
// within each game.
func groupByGame(moves []analysis.CriticalMove) []gameSection {
	idx := map[string]int{}
	var sections []gameSection
	for _, m := range moves {
		i, ok := idx[m.GameID]
		if !ok {
			i = len(sections)
			idx[m.GameID] = i
			sections = append(sections, gameSection{GameID: m.GameID})
		}
		sections[i].Moves = append(sections[i].Moves, m)
	}
	return sections
}

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"severity": severity,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Chess Analysis Report</title>
<style>
  body { font-family: Arial, sans-serif; margin: 20px; }
  .header { background-color: #2c3e50; color: white; padding: 20px; border-radius: 8px; }
  .stats { background-color: #ecf0f1; padding: 15px; border-radius: 8px; margin: 20px 0; }
  .game { margin: 25px 0; }
  .critical-move { border: 1px solid #ddd; margin: 10px 0; padding: 15px; border-radius: 8px; }
  .critical-move.error { border-left: 5px solid #e74c3c; }
  .critical-move.good { border-left: 5px solid #27ae60; }
  .critical-move.severe { background-color: #fdf3f2; }
  .critical-move.major { background-color: #fcf9f2; }
  .move-info { display: grid; grid-template-columns: 1fr 1fr; gap: 10px; margin: 10px 0; }
  .fen { font-family: monospace; font-size: 12px; background-color: #f8f9fa; padding: 5px; border-radius: 4px; }
</style>
</head>
<body>
<div class="header">
  <h1>Chess Analysis Report</h1>
  <p>Generated: {{.Report.Metadata.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>
</div>
<div class="stats">
  <h2>Statistics</h2>
  <ul>
    <li><strong>Critical moves:</strong> {{.Report.Metadata.TotalMoves}}</li>
    <li><strong>Threshold:</strong> {{printf "%.2f" .Report.Metadata.Threshold}} pawns</li>
    <li><strong>Search depth:</strong> {{.Report.Metadata.Depth}}</li>
  </ul>
</div>
{{range .Sections}}
<div class="game">
  <h2>Game {{.GameID}}</h2>
  {{range .Moves}}
  <div class="critical-move {{severity .}}">
    <h3>{{.Move}} &mdash; {{.Side}} (move {{.MoveNumber}})</h3>
    <div class="move-info">
      <div><strong>Swing:</strong> {{printf "%.2f" .Delta}} pawns</div>
      <div><strong>Eval before:</strong> {{printf "%.2f" .EvalBefore}}</div>
      <div><strong>Eval after:</strong> {{printf "%.2f" .EvalAfter}}</div>
      {{if .BestMove}}<div><strong>Better was:</strong> {{.BestMove}}</div>{{end}}
    </div>
    <p><strong>Comment:</strong> {{.Comment}}</p>
    <div class="fen"><strong>FEN:</strong> {{.PositionFEN}}</div>
  </div>
  {{end}}
</div>
{{end}}
</body>
</html>
`))

// WriteHTML renders the browsable report, grouped by game with severity
// styling by swing size.
func WriteHTML(w io.Writer, r analysis.Report) error {
	data := struct {
		Report   analysis.Report
		Sections []gameSection
	}{r, groupByGame(r.CriticalMoves)}
	return htmlTmpl.Execute(w, data)
}
