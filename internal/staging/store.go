package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/topic"
)

// Store is a directory of staging files named {region}_{YYYY-MM-DD}.csv.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a Store rooted at dir. The directory is created on the
// first Write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir is the staging directory.
func (s *Store) Dir() string { return s.dir }

// Write stages topics for a region under today's UTC date, replacing any file
// already written for that day, and returns the file path.
func (s *Store) Write(r region.Region, topics []topic.CollectedTopic) (string, error) {
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rec, err := EncodeTopic(t)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", t.Slug, err)
		}
		rows = append(rows, rec)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.csv", r, s.now().UTC().Format(topic.DateLayout))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(WriteRows(Headers, rows)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// Files lists the staging CSV paths in lexical order. A missing directory is
// reported as an error satisfying errors.Is(err, fs.ErrNotExist).
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list staging dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Read parses one staging file.
func (s *Store) Read(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	rows, err := ParseRows(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
