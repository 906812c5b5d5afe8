// Package staging reads and writes the per-region CSV files that sit between
// collection and materialization.
package staging

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/dogbook/internal/apperr"
	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/topic"
)

// Headers is the staging column order.
var Headers = []string{"slug", "region", "category", "locale_json", "options", "keywords", "expirationDate", "source"}

// Row maps a header name to its cell value.
type Row map[string]string

// WriteRows renders headers unquoted and every data cell quoted, with
// embedded quotes doubled. Lines are joined by "\n" with no trailing newline.
func WriteRows(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(headers, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			b.WriteByte('"')
		}
	}
	return b.String()
}

// ParseRows reads CSV text whose first line is the header. Quoted cells may
// hold commas, doubled quotes and newlines. A UTF-8 BOM and CRLF line endings
// are accepted. Short rows are padded with empty strings.
func ParseRows(text string) ([]Row, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []Row{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := make(Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// EncodeTopic renders a collected topic as a staging record in Headers order.
func EncodeTopic(t topic.CollectedTopic) ([]string, error) {
	locale, err := json.Marshal(t.Locale)
	if err != nil {
		return nil, fmt.Errorf("encode locale: %w", err)
	}
	options, err := json.Marshal(t.Options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	keywords := t.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}

	return []string{
		t.Slug,
		string(t.Region),
		string(t.Category),
		string(locale),
		string(options),
		string(kw),
		t.ExpirationDate,
		t.Source,
	}, nil
}

// DecodeRow validates a staging row and rebuilds its topic. It returns a
// *apperr.ValidationError for a bad slug, region or category, and a
// *apperr.ParseError for malformed JSON cells.
func DecodeRow(row Row) (topic.CollectedTopic, error) {
	slug := row["slug"]
	if slug == "" {
		return topic.CollectedTopic{}, &apperr.ValidationError{Field: "slug", Reason: "missing"}
	}
	if !topic.ValidSlug(slug) {
		return topic.CollectedTopic{}, &apperr.ValidationError{Field: "slug", Value: slug, Reason: "must be lowercase letters, digits and hyphens"}
	}
	reg, err := region.ParseRegion(row["region"])
	if err != nil {
		return topic.CollectedTopic{}, err
	}
	cat, err := region.ParseCategory(row["category"])
	if err != nil {
		return topic.CollectedTopic{}, err
	}

	t := topic.CollectedTopic{
		Slug:           slug,
		Region:         reg,
		Category:       cat,
		ExpirationDate: row["expirationDate"],
		Source:         row["source"],
	}
	if err := json.Unmarshal([]byte(row["locale_json"]), &t.Locale); err != nil {
		return topic.CollectedTopic{}, &apperr.ParseError{What: "locale_json", Err: err}
	}
	if err := json.Unmarshal([]byte(row["options"]), &t.Options); err != nil {
		return topic.CollectedTopic{}, &apperr.ParseError{What: "options", Err: err}
	}
	if err := json.Unmarshal([]byte(row["keywords"]), &t.Keywords); err != nil {
		return topic.CollectedTopic{}, &apperr.ParseError{What: "keywords", Err: err}
	}
	if t.Keywords == nil {
		t.Keywords = []string{}
	}
	return t, nil
}
