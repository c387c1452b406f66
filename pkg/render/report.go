package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/model"
	"go.uber.org/zap"
)

const StatsFileName = "statistics_file.txt"

// ReportData is everything printed to the statistics file of a run.
type ReportData struct {
	RunID      string
	FinishedAt time.Time
	Thresholds model.Thresholds
	Stats      model.SelectionStats
	Products   map[string]int
	Grouped    bool
}

type reportRow struct {
	Label string
	Count int
	Share string
}

var statsTemplate = template.Must(template.New("stats").Parse(
	`>>> Analysis finished at: {{ .FinishedAt.Format "02/01/2006 15:04:05" }}
{{- if .RunID }}
>>> Run: {{ .RunID }}
{{- end }}

>>> Parameters used for selection:
>> For preliminary selection:
   Minimum number of core genes                      {{ printf "%8d" .Thresholds.MinCoreGenes }}
>> For main selection:
   Minimum length (in bp)                            {{ printf "%8d" .Thresholds.MinLengthBP }}
   Minimum distance (in bp)                          {{ printf "%8d" .Thresholds.MinEdgeDistanceBP }}
   Minimum number of additional biosynthetic genes   {{ printf "%8d" .Thresholds.MinAdditionalGenesMain }}
>> For second-chance selection:
   Minimum number of additional biosynthetic genes   {{ printf "%8d" .Thresholds.MinAdditionalGenesSecondChance }}

{{ if .Selection -}}
>>> Results of BGC-selection:
{{- range .Selection }}
   {{ printf "%-33s %8d %9s" .Label .Count .Share }}
{{- end }}
{{- else -}}
> No BGC was found!
{{- end }}
{{- if .Skipped }}
   {{ printf "%-33s %8d" "Skipped (malformed)" .Skipped }}
{{- end }}

{{ if .ProductRows -}}
>>> Product(s) of selected BGCs:
{{- range .ProductRows }}
   {{ printf "%-33s %8d" .Product .Count }}
{{- end }}
{{- else -}}
> No BGC was selected and therefore no product of selected BGCs!
{{- end }}
`))

func share(n, total int) string {
	return fmt.Sprintf("%.2f%%", float64(n)*100/float64(total))
}

// ProductRows orders product statistics for display. Grouped rows follow
// model.ProductGroups; otherwise the most frequent product comes first.
func ProductRows(counts map[string]int, grouped bool) []model.ProductCount {
	if len(counts) == 0 {
		return nil
	}
	if !grouped {
		return model.SortedProducts(counts)
	}

	g := model.GroupProducts(counts)
	rows := make([]model.ProductCount, 0, len(model.ProductGroups))
	for _, name := range model.ProductGroups {
		rows = append(rows, model.ProductCount{Product: name, Count: g[name]})
	}
	return rows
}

// WriteStatsReport writes the plain text statistics of one run.
func WriteStatsReport(w io.Writer, data ReportData) error {
	var selection []reportRow
	if all := data.Stats.All(); all > 0 {
		selection = []reportRow{
			{"BGCs selected", data.Stats.Selected(), share(data.Stats.Selected(), all)},
			{"  by main selection", data.Stats.PassedMain, share(data.Stats.PassedMain, all)},
			{"  by second-chance selection", data.Stats.PassedSecondChance, share(data.Stats.PassedSecondChance, all)},
			{"BGCs discarded", data.Stats.Discarded, share(data.Stats.Discarded, all)},
			{"All BGCs", all, share(all, all)},
		}
	}

	return statsTemplate.Execute(w, struct {
		ReportData
		Selection   []reportRow
		Skipped     int
		ProductRows []model.ProductCount
	}{
		ReportData:  data,
		Selection:   selection,
		Skipped:     data.Stats.Skipped,
		ProductRows: ProductRows(data.Products, data.Grouped),
	})
}

// SaveStatsReport writes the report to <dir>/statistics_file.txt and returns
// the file path.
func SaveStatsReport(dir string, data ReportData) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, StatsFileName)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteStatsReport(f, data); err != nil {
		f.Close()
		return "", fmt.Errorf("write stats report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	logger.Info("Statistics written", zap.String("path", path))
	return path, nil
}
