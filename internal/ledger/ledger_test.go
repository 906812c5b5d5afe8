package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissing(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "processed.json"))
	if err != nil {
		t.Fatalf("Failed to load missing ledger: %v", err)
	}
	if l.Len() != 0 || l.LastUpdated() != "" {
		t.Errorf("Expected empty ledger, got %d slugs, lastUpdated %q", l.Len(), l.LastUpdated())
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	if err := os.WriteFile(path, []byte("{slugs: oops"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Expected an error for a malformed ledger")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "processed.json")
	l, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load ledger: %v", err)
	}

	if !l.Add("fed-cut-march") {
		t.Errorf("Expected first Add to report true")
	}
	l.Add("ipl-final-2026")
	if l.Add("fed-cut-march") {
		t.Errorf("Expected duplicate Add to report false")
	}

	now := time.Date(2026, 10, 18, 9, 15, 0, 0, time.UTC)
	if err := l.Save(now); err != nil {
		t.Fatalf("Failed to save ledger: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read ledger: %v", err)
	}
	want := "{\n  \"slugs\": [\n    \"fed-cut-march\",\n    \"ipl-final-2026\"\n  ],\n  \"lastUpdated\": \"2026-10-18T09:15:00.000Z\"\n}"
	if string(data) != want {
		t.Errorf("Unexpected ledger file:\n%s", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected temp file to be gone, found %d entries", len(entries))
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload ledger: %v", err)
	}
	if reloaded.Len() != 2 || !reloaded.Contains("ipl-final-2026") {
		t.Errorf("Unexpected reloaded slugs %v", reloaded.Slugs())
	}
	if reloaded.LastUpdated() != "2026-10-18T09:15:00.000Z" {
		t.Errorf("Unexpected lastUpdated %q", reloaded.LastUpdated())
	}
}

func TestResetSavesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	l, _ := Load(path)
	l.Add("a")
	l.Reset()
	if l.Contains("a") {
		t.Errorf("Expected slug to be forgotten")
	}
	if err := l.Save(time.Now()); err != nil {
		t.Fatalf("Failed to save ledger: %v", err)
	}

	var f struct {
		Slugs []string `json:"slugs"`
	}
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("Failed to decode ledger: %v", err)
	}
	if f.Slugs == nil {
		t.Errorf("Expected slugs to be an empty array, not null")
	}
}
