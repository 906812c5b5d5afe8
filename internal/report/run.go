package report

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/FranksOps/dogbook/internal/pipeline"
	"github.com/FranksOps/dogbook/internal/region"
)

const runTmpl = `Dogbook Pipeline Complete
-------------------------
Run:      {{.RunID}}
Started:  {{.StartedAt.Format "2006-01-02T15:04:05Z07:00"}}
Regions:  {{regions .Regions}}

Collection Results:
{{- range .Collected}}
  {{.Region}}: {{.Topics}} topics
{{- end}}
  Total: {{.TotalCollected}} topics

Generation Results:
  Generated: {{.Generated}} new topics
  Skipped:   {{.Skipped}} duplicates
  Rejected:  {{.Rejected}} invalid rows

API Usage:
  Brave API calls: {{.SearchUsage}}
  Monthly limit:   {{.SearchLimit}}
  Usage:           {{printf "%.1f" .UsagePercent}}%

Duration: {{seconds .Duration}} seconds
`

var runReport = template.Must(template.New("run").Funcs(template.FuncMap{
	"regions": func(rs []region.Region) string {
		if len(rs) == 0 {
			return "all"
		}
		names := make([]string, len(rs))
		for i, r := range rs {
			names[i] = string(r)
		}
		return strings.Join(names, ", ")
	},
	"seconds": func(d time.Duration) int64 { return int64(d.Round(time.Second) / time.Second) },
}).Parse(runTmpl))

// WriteRun writes the end-of-run summary of a pipeline run.
func WriteRun(w io.Writer, res pipeline.Result) error {
	if err := runReport.Execute(w, res); err != nil {
		return fmt.Errorf("render run report: %w", err)
	}
	return nil
}
