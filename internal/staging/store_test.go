package staging

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/topic"
)

func TestStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw")
	s := NewStore(dir)
	s.now = func() time.Time { return time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC) }

	if _, err := s.Files(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Expected not-exist error for missing dir, got %v", err)
	}

	path, err := s.Write(region.TaiwanHK, []topic.CollectedTopic{sampleTopic()})
	if err != nil {
		t.Fatalf("Failed to write staging file: %v", err)
	}
	if filepath.Base(path) != "taiwan_hk_2026-10-18.csv" {
		t.Errorf("Unexpected file name %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read staging file: %v", err)
	}
	if !strings.HasPrefix(string(data), "slug,region,category,locale_json,options,keywords,expirationDate,source\n\"tsmc-2nm") {
		t.Errorf("Unexpected file start:\n%s", data)
	}
	if strings.HasSuffix(string(data), "\n") {
		t.Errorf("Expected no trailing newline")
	}

	if _, err := s.Write(region.Global, []topic.CollectedTopic{}); err != nil {
		t.Fatalf("Failed to write second file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	files, err := s.Files()
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "global_2026-10-18.csv" {
		t.Fatalf("Expected 2 sorted CSV files, got %v", files)
	}

	rows, err := s.Read(path)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	if len(rows) != 1 || rows[0]["source"] != "focustaiwan.tw" {
		t.Errorf("Unexpected rows %v", rows)
	}
}
