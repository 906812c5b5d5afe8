package verify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
)

var textReport = template.Must(template.New("verify").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"mark": func(s Status) string {
		switch s {
		case Pass:
			return "[PASS]"
		case Warn:
			return "[WARN]"
		default:
			return "[FAIL]"
		}
	},
}).Parse(`Pipeline Verification Report
----------------------------
Overall Status: {{mark .Status}} {{upper (print .Status)}}

Verification Checks:
{{- range .Checks}}
  {{mark .Status}} {{.Name}}
         {{.Message}}
{{- end}}

Content Summary:
  Total Topics: {{.Summary.TotalTopics}}

  By Region:
{{- range $k, $v := .Summary.ByRegion}}
    {{$k}}: {{$v}} topics
{{- end}}

  By Category:
{{- range $k, $v := .Summary.ByCategory}}
    {{$k}}: {{$v}} topics
{{- end}}

  By Language:
{{- range $k, $v := .Summary.ByLanguage}}
    {{$k}}: {{$v}} topics
{{- end}}
`))

// WriteText renders the report for a terminal.
func WriteText(w io.Writer, r Report) error {
	if err := textReport.Execute(w, r); err != nil {
		return fmt.Errorf("render verification report: %w", err)
	}
	return nil
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode verification report: %w", err)
	}
	return nil
}
