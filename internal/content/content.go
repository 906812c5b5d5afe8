// Package content writes and lists the JSON topic files the site build reads.
package content

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/topic"
)

// Tree is a content directory laid out as {root}/{region}/{category}/{slug}.json.
type Tree struct {
	root string
}

// NewTree creates a Tree rooted at root.
func NewTree(root string) *Tree {
	return &Tree{root: root}
}

func (t *Tree) Root() string { return t.root }

// Path is where the topic with the given identity is stored.
func (t *Tree) Path(r region.Region, c region.Category, slug string) string {
	return filepath.Join(t.root, string(r), string(c), slug+".json")
}

// Write stores td as 2-space indented JSON, creating directories as needed,
// and returns the file path.
func (t *Tree) Write(td topic.TopicData) (string, error) {
	if !topic.ValidSlug(td.Slug) {
		return "", fmt.Errorf("refusing to write topic with unsafe slug %q", td.Slug)
	}

	path := t.Path(td.Region, td.Category, td.Slug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create content dir: %w", err)
	}

	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode topic %s: %w", td.Slug, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write topic %s: %w", td.Slug, err)
	}
	return path, nil
}

// Files lists every .json file below the root in lexical order. A missing
// root yields no files.
func (t *Tree) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == t.root && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content dir: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Read decodes one topic file.
func Read(path string) (topic.TopicData, error) {
	var td topic.TopicData
	data, err := os.ReadFile(path)
	if err != nil {
		return td, fmt.Errorf("read topic: %w", err)
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return td, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return td, nil
}
