package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/dogbook/internal/storage"
)

// Summary contains aggregated numbers about one or more collection runs.
type Summary struct {
	TotalQueries int
	TotalTopics  int
	TotalErrors  int
	Runs         int
	ByOutcome    map[string]int
	ByRegion     map[string]RegionStats
	TopSources   []SourceCount
	AvgDuration  time.Duration
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}

// RegionStats counts queries and generated topics for a region.
type RegionStats struct {
	Queries int
	Topics  int
}

// SourceCount is the number of topics generated from one news host.
type SourceCount struct {
	Source string
	Count  int
}

const maxSources = 10

// GenerateSummary processes a slice of audit records to generate summary metrics.
func GenerateSummary(records []*storage.QueryRecord) Summary {
	s := Summary{
		ByOutcome: make(map[string]int),
		ByRegion:  make(map[string]RegionStats),
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	runs := make(map[string]struct{})
	sources := make(map[string]int)
	var total time.Duration

	for _, r := range records {
		s.TotalQueries++
		s.ByOutcome[string(r.Outcome)]++
		runs[r.RunID] = struct{}{}
		total += r.Duration

		rs := s.ByRegion[r.Region]
		rs.Queries++
		switch r.Outcome {
		case storage.OutcomeTopic:
			s.TotalTopics++
			rs.Topics++
			if r.Source != "" {
				sources[r.Source]++
			}
		case storage.OutcomeError:
			s.TotalErrors++
		}
		s.ByRegion[r.Region] = rs

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	for src, n := range sources {
		s.TopSources = append(s.TopSources, SourceCount{Source: src, Count: n})
	}
	sort.Slice(s.TopSources, func(i, j int) bool {
		if s.TopSources[i].Count != s.TopSources[j].Count {
			return s.TopSources[i].Count > s.TopSources[j].Count
		}
		return s.TopSources[i].Source < s.TopSources[j].Source
	})
	if len(s.TopSources) > maxSources {
		s.TopSources = s.TopSources[:maxSources]
	}

	s.Runs = len(runs)
	s.AvgDuration = (total / time.Duration(s.TotalQueries)).Round(time.Millisecond)
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Dogbook Collection History
--------------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Runs:          {{.Runs}}
Queries:       {{.TotalQueries}} (avg {{.AvgDuration}})
Topics:        {{.TotalTopics}}
Errors:        {{.TotalErrors}}

Outcomes:
{{- range $outcome, $count := .ByOutcome}}
  {{$outcome}}: {{$count}}
{{- else}}
  None
{{- end}}

Regions:
{{- range $region, $stats := .ByRegion}}
  {{$region}}: {{$stats.Topics}}/{{$stats.Queries}} queries produced a topic
{{- else}}
  None
{{- end}}

Top Sources:
{{- range .TopSources}}
  {{.Source}}: {{.Count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Dogbook Collection History</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Dogbook Collection History</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Runs}} runs)</p>

  <div class="stat-card">
    <div>Queries</div>
    <div class="stat-val">{{.TotalQueries}}</div>
  </div>
  <div class="stat-card">
    <div>Topics</div>
    <div class="stat-val">{{.TotalTopics}}</div>
  </div>
  <div class="stat-card">
    <div>Errors</div>
    <div class="stat-val" style="color: {{if gt .TotalErrors 0}}red{{else}}green{{end}};">{{.TotalErrors}}</div>
  </div>

  <h3>Regions</h3>
  <table>
    <tr><th>Region</th><th>Queries</th><th>Topics</th></tr>
    {{- range $region, $stats := .ByRegion}}
    <tr><td>{{$region}}</td><td>{{$stats.Queries}}</td><td>{{$stats.Topics}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>

  <h3>Outcomes</h3>
  <table>
    <tr><th>Outcome</th><th>Count</th></tr>
    {{- range $outcome, $count := .ByOutcome}}
    <tr><td>{{$outcome}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Top Sources</h3>
  <table>
    <tr><th>Source</th><th>Topics</th></tr>
    {{- range .TopSources}}
    <tr><td>{{.Source}}</td><td>{{.Count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	return nil
}
