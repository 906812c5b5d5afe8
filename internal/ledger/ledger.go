// Package ledger persists the set of topic slugs that have already been
// materialized, so repeated runs never publish the same topic twice.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Ledger is the processed-slug record stored at data/processed.json.
// Slugs keep insertion order.
type Ledger struct {
	path        string
	slugs       []string
	index       map[string]struct{}
	lastUpdated *string
}

type file struct {
	Slugs       []string `json:"slugs"`
	LastUpdated *string  `json:"lastUpdated"`
}

// Load reads the ledger at path. A missing file yields an empty ledger; a
// malformed one is an error.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path, index: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", path, err)
	}
	for _, s := range f.Slugs {
		l.Add(s)
	}
	l.lastUpdated = f.LastUpdated
	return l, nil
}

// Path is the file the ledger saves to.
func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Contains(slug string) bool {
	_, ok := l.index[slug]
	return ok
}

// Add records slug. It reports false when slug was already present.
func (l *Ledger) Add(slug string) bool {
	if l.Contains(slug) {
		return false
	}
	l.index[slug] = struct{}{}
	l.slugs = append(l.slugs, slug)
	return true
}

// Slugs returns a copy of the recorded slugs in insertion order.
func (l *Ledger) Slugs() []string {
	out := make([]string, len(l.slugs))
	copy(out, l.slugs)
	return out
}

func (l *Ledger) Len() int { return len(l.slugs) }

// LastUpdated is the timestamp of the last save, or "" if never saved.
func (l *Ledger) LastUpdated() string {
	if l.lastUpdated == nil {
		return ""
	}
	return *l.lastUpdated
}

// Reset forgets every slug.
func (l *Ledger) Reset() {
	l.slugs = nil
	l.index = make(map[string]struct{})
}

// Save stamps lastUpdated with now and writes the ledger atomically: the
// JSON goes to a temp file in the same directory which is then renamed over
// the target.
func (l *Ledger) Save(now time.Time) error {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	slugs := l.slugs
	if slugs == nil {
		slugs = []string{}
	}

	data, err := json.MarshalIndent(file{Slugs: slugs, LastUpdated: &ts}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".processed-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}

	l.lastUpdated = &ts
	return nil
}
