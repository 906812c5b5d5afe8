// Package jsonbackend keeps run history as newline-delimited JSON.
package jsonbackend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/FranksOps/dogbook/internal/storage"
)

var _ storage.Backend = (*Backend)(nil)

// Backend appends one JSON object per query record. Reads scan the whole
// file, so it suits histories of a few hundred thousand lines.
type Backend struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// entry is the on-disk shape; durations are stored in milliseconds.
type entry struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Region     string    `json:"region"`
	Category   string    `json:"category"`
	Query      string    `json:"query"`
	Outcome    string    `json:"outcome"`
	Slug       string    `json:"slug,omitempty"`
	Source     string    `json:"source,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEntry(r *storage.QueryRecord) entry {
	return entry{
		ID:         r.ID,
		RunID:      r.RunID,
		Region:     r.Region,
		Category:   r.Category,
		Query:      r.Query,
		Outcome:    string(r.Outcome),
		Slug:       r.Slug,
		Source:     r.Source,
		DurationMs: r.Duration.Milliseconds(),
		Error:      r.Error,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (e entry) record() *storage.QueryRecord {
	return &storage.QueryRecord{
		ID:        e.ID,
		RunID:     e.RunID,
		Region:    e.Region,
		Category:  e.Category,
		Query:     e.Query,
		Outcome:   storage.Outcome(e.Outcome),
		Slug:      e.Slug,
		Source:    e.Source,
		Duration:  time.Duration(e.DurationMs) * time.Millisecond,
		Error:     e.Error,
		CreatedAt: e.CreatedAt,
	}
}

// New opens or creates the log at path. A last line left without its
// newline by an interrupted write is terminated so new records start clean.
func New(path string) (*Backend, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat history log: %w", err)
	}
	if info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			f.Close()
			return nil, fmt.Errorf("read history log: %w", err)
		}
		if last[0] != '\n' {
			if _, err := f.Write([]byte{'\n'}); err != nil {
				f.Close()
				return nil, fmt.Errorf("repair history log: %w", err)
			}
		}
	}

	return &Backend{path: path, file: f}, nil
}

// Save appends r as a single line.
func (b *Backend) Save(ctx context.Context, r *storage.QueryRecord) error {
	line, err := json.Marshal(toEntry(r))
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	line = append(line, '\n')

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.file.Write(line); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

// Query filters every line in memory. Lines that do not decode are skipped.
func (b *Backend) Query(ctx context.Context, filter storage.Filter) ([]*storage.QueryRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A separate reader leaves the append handle alone.
	f, err := os.Open(b.path)
	if err != nil {
		return nil, fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	var matched []*storage.QueryRecord
	rd := bufio.NewReader(f)
	for {
		line, err := rd.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var e entry
			if json.Unmarshal(line, &e) == nil {
				if r := e.record(); filter.Match(r) {
					matched = append(matched, r)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history log: %w", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
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
