// Package csvbackend keeps run history in a spreadsheet-friendly CSV file.
package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/dogbook/internal/storage"
)

var _ storage.Backend = (*Backend)(nil)

// columns is the order new files are written in. Reads locate columns by
// header name, so files with reordered or extra columns still load.
var columns = []string{
	"id", "run_id", "region", "category", "query", "outcome",
	"slug", "source", "duration_ms", "error", "created_at",
}

// Backend appends one CSV row per query record.
type Backend struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// New opens or creates the file at path, writing the header row when the
// file is empty.
func New(path string) (*Backend, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history csv: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat history csv: %w", err)
	}

	b := &Backend{path: path, file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := b.writeRow(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("write history csv header: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) writeRow(row []string) error {
	if err := b.w.Write(row); err != nil {
		return err
	}
	b.w.Flush()
	return b.w.Error()
}

// Save appends r.
func (b *Backend) Save(ctx context.Context, r *storage.QueryRecord) error {
	row := []string{
		r.ID,
		r.RunID,
		r.Region,
		r.Category,
		r.Query,
		string(r.Outcome),
		r.Slug,
		r.Source,
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		r.Error,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writeRow(row); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

// Query reads the whole file and filters in memory. Rows missing an id or
// with an unparsable timestamp are skipped.
func (b *Backend) Query(ctx context.Context, filter storage.Filter) ([]*storage.QueryRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		return nil, fmt.Errorf("open history csv: %w", err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1

	header, err := rd.Read()
	if errors.Is(err, io.EOF) {
		return []*storage.QueryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	value := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var matched []*storage.QueryRecord
	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history csv: %w", err)
		}

		createdAt, err := time.Parse(time.RFC3339Nano, value(row, "created_at"))
		if err != nil || value(row, "id") == "" {
			continue
		}
		durationMs, _ := strconv.ParseInt(value(row, "duration_ms"), 10, 64)

		r := &storage.QueryRecord{
			ID:        value(row, "id"),
			RunID:     value(row, "run_id"),
			Region:    value(row, "region"),
			Category:  value(row, "category"),
			Query:     value(row, "query"),
			Outcome:   storage.Outcome(value(row, "outcome")),
			Slug:      value(row, "slug"),
			Source:    value(row, "source"),
			Duration:  time.Duration(durationMs) * time.Millisecond,
			Error:     value(row, "error"),
			CreatedAt: createdAt,
		}
		if filter.Match(r) {
			matched = append(matched, r)
		}
	}

	return filter.Page(matched), nil
}

// Close releases the file handle.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
