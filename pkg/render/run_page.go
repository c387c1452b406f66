package render

import (
	"html/template"
	"io"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/model"
	"go.uber.org/zap"
)

var run_page_template *template.Template

// RunPageData describes a selection job for rendering.
type RunPageData struct {
	RunID                  string
	InputDir               string
	Status                 string
	ErrorMessage           string
	Stats                  model.SelectionStats
	Thresholds             model.Thresholds
	Products               []model.ProductCount
	Clusters               []*db.ClusterResult
	ShouldRefresh          bool
	RefreshIntervalSeconds int
}

func init() {
	mainTmpl := `
	<!DOCTYPE html>
	<html>
	<head>
	    <title>BGC selection {{ .RunID }}</title>
	    <style>
        table { border-collapse: collapse; }
        td, th { border: 1px solid #ccc; padding: 2px 8px; }
        .discarded { color: #888; }
   		</style>
		{{ if .ShouldRefresh }}
        <script>
	        setTimeout(function () { window.location.reload(); }, {{ mul .RefreshIntervalSeconds 1000 }});
        </script>
		{{ end }}
	</head>
	<body>
		<h1>BGC selection</h1>
		<p><strong>Run ID:</strong> {{ .RunID }}</p>
		<p><strong>Input:</strong> {{ .InputDir }}</p>
		<p><strong>Status:</strong> {{ .Status }}</p>
		<p>
			Core genes &ge; {{ .Thresholds.MinCoreGenes }};
			length &ge; {{ .Thresholds.MinLengthBP }} bp;
			edge distance &ge; {{ .Thresholds.MinEdgeDistanceBP }} bp;
			additional genes &ge; {{ .Thresholds.MinAdditionalGenesMain }} (main),
			{{ .Thresholds.MinAdditionalGenesSecondChance }} (second chance)
		</p>
		{{ if .ErrorMessage }}
			<p style="color: red;">{{ .ErrorMessage }}</p>
		{{ end }}
		<p>
			Passed main: {{ .Stats.PassedMain }},
			passed second chance: {{ .Stats.PassedSecondChance }},
			discarded: {{ .Stats.Discarded }},
			skipped: {{ .Stats.Skipped }}
		</p>
		{{ if .ShouldRefresh }}
			<p>The selection is still running. This page refreshes every {{ .RefreshIntervalSeconds }} seconds.</p>
		{{ end }}
		{{ if .Products }}
		<h2>Products of selected BGCs</h2>
		<table>
			<tr><th>Product</th><th>Count</th></tr>
			{{ range .Products }}<tr><td>{{ .Product }}</td><td>{{ .Count }}</td></tr>
			{{ end }}
		</table>
		{{ end }}
		{{ if .Clusters }}
		<h2>Clusters</h2>
		<table>
			<tr><th>File</th><th>Name</th><th>Length (bp)</th><th>Products</th><th>Core</th><th>Additional</th><th>Verdict</th></tr>
			{{ range .Clusters }}
			<tr{{ if not .Verdict.Selected }} class="discarded"{{ end }}>
				<td>{{ .FileName }}</td>
				<td>{{ if .Name }}{{ deref .Name }}{{ end }}</td>
				<td>{{ .LengthBP }}</td>
				<td>{{ join .Products }}</td>
				<td>{{ .CoreGenes }}</td>
				<td>{{ .AdditionalGenes }}</td>
				<td>{{ .Verdict }}</td>
			</tr>
			{{ end }}
		</table>
		{{ end }}
	</body>
	</html>`

	run_page_template = template.New("run_page").Funcs(template.FuncMap{
		"mul":   func(a, b int) int { return a * b },
		"join":  model.ProductKey,
		"deref": func(s *string) string { return *s },
	})
	run_page_template = template.Must(run_page_template.Parse(mainTmpl))
}

// RenderRunPage renders the status page of a selection job.
func RenderRunPage(w io.Writer, data RunPageData) error {
	logger.Info("Rendering run page", zap.String("run_id", data.RunID), zap.String("status", data.Status))
	return run_page_template.Execute(w, data)
}
