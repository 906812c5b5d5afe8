package topic

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/dogbook/internal/region"
)

func TestOptionsRequireTwoEntries(t *testing.T) {
	var ok Options
	if err := json.Unmarshal([]byte(`["Yes","No"]`), &ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok[0] != "Yes" || ok[1] != "No" {
		t.Errorf("Expected [Yes No], got %v", ok)
	}

	for _, bad := range []string{`["Yes"]`, `["A","B","C"]`, `[]`, `"Yes"`} {
		var o Options
		if err := json.Unmarshal([]byte(bad), &o); err == nil {
			t.Errorf("Expected error decoding %s", bad)
		}
	}

	out, err := json.Marshal(Options{"Sim", "Não"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `["Sim","Não"]` {
		t.Errorf("Expected array encoding, got %s", out)
	}
}

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"x-raises-y", "x-raises-y"},
		{"  Fed Rate Cut 2025 ", "fed-rate-cut-2025"},
		{"S&P 500 -- record?", "s-p-500-record"},
		{"--already--hyphened--", "already-hyphened"},
		{"台股", ""},
		{"../../etc/passwd", "etc-passwd"},
	}
	for _, tt := range tests {
		if got := NormalizeSlug(tt.in); got != tt.want {
			t.Errorf("NormalizeSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if !ValidSlug("nba-finals-2025-champion") {
		t.Errorf("Expected valid slug")
	}
	for _, bad := range []string{"", "Upper", "trailing-", "a--b", "a/b", "a b"} {
		if ValidSlug(bad) {
			t.Errorf("Expected %q to be invalid", bad)
		}
	}
}

func TestParseDate(t *testing.T) {
	good := []string{
		"2025-12-31T00:00:00Z",
		"2025-12-31T00:00:00.000Z",
		"2025-12-31T00:00:00+05:30",
		"2025-12-31T10:30:00",
		"2025-12-31",
	}
	for _, s := range good {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q) unexpected error: %v", s, err)
		}
	}

	for _, s := range []string{"", "soon", "31/12/2025", "2025-13-01"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("Expected error parsing %q", s)
		}
	}
}

func TestPublish(t *testing.T) {
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -5*3600))
	c := CollectedTopic{
		Slug:     "x-raises-y",
		Region:   region.Global,
		Category: region.Tech,
		Locale: map[string]LocaleContent{
			"en": {Title: "X", Question: "Will X?", Description: "d"},
		},
		Options:        Options{"Yes", "No"},
		ExpirationDate: "2026-06-30",
		Source:         "example.com",
	}

	td := Publish(c, now)
	if td.Status != StatusActive {
		t.Errorf("Expected status active, got %s", td.Status)
	}
	if td.PublishedAt != "2026-03-10" {
		t.Errorf("Expected UTC publish date 2026-03-10, got %s", td.PublishedAt)
	}
	if td.Keywords == nil {
		t.Errorf("Expected keywords to encode as an empty array, not null")
	}

	data, err := json.Marshal(td)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), `"image"`) {
		t.Errorf("Expected image to be omitted when empty: %s", data)
	}
}
