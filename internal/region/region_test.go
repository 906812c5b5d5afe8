package region

import (
	"errors"
	"strings"
	"testing"

	"github.com/FranksOps/dogbook/internal/apperr"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	got := reg.Regions()
	if len(got) != 4 {
		t.Fatalf("Expected 4 regions, got %d", len(got))
	}
	for i, want := range All {
		if got[i] != want {
			t.Errorf("Expected region %d to be %s, got %s", i, want, got[i])
		}
	}

	langs := map[Region][]string{
		Global:   {"en"},
		India:    {"hi"},
		TaiwanHK: {"zh-TW"},
		Latam:    {"pt", "es"},
	}
	for r, want := range langs {
		have := reg.Languages(r)
		if strings.Join(have, ",") != strings.Join(want, ",") {
			t.Errorf("Languages(%s) = %v, want %v", r, have, want)
		}
	}

	cfg, ok := reg.Lookup(TaiwanHK)
	if !ok {
		t.Fatal("Expected taiwan_hk to be registered")
	}
	if cfg.SearchLang != "zh-hant" {
		t.Errorf("Expected search lang zh-hant, got %s", cfg.SearchLang)
	}

	for _, r := range reg.Regions() {
		cfg, _ := reg.Lookup(r)
		if len(cfg.Groups) < 5 {
			t.Errorf("Expected at least 5 query groups for %s, got %d", r, len(cfg.Groups))
		}
		for _, g := range cfg.Groups {
			if len(g.Queries) != 5 {
				t.Errorf("Expected 5 queries in %s/%s, got %d", r, g.Name, len(g.Queries))
			}
		}
	}

	if reg.PrimaryLanguage(Latam) != "pt" {
		t.Errorf("Expected latam primary language pt, got %s", reg.PrimaryLanguage(Latam))
	}
	if reg.Languages(Region("mars")) != nil {
		t.Errorf("Expected nil languages for unknown region")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	reg := Default()

	cfg, _ := reg.Lookup(Latam)
	cfg.Languages[0] = "fr"
	cfg.Groups[0].Name = "changed"
	cfg.Groups[0].Queries[0] = "changed"

	again, _ := reg.Lookup(Latam)
	if again.Languages[0] != "pt" {
		t.Errorf("Expected registry languages untouched, got %v", again.Languages)
	}
	if again.Groups[0].Name == "changed" || again.Groups[0].Queries[0] == "changed" {
		t.Errorf("Expected registry groups untouched, got %+v", again.Groups[0])
	}
	if reg.PrimaryLanguage(Latam) != "pt" {
		t.Errorf("Expected primary language pt, got %s", reg.PrimaryLanguage(Latam))
	}
}

func TestParseRegionAndCategory(t *testing.T) {
	if _, err := ParseRegion("latam"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	_, err := ParseRegion("europe")
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if ve.Field != "region" {
		t.Errorf("Expected field region, got %s", ve.Field)
	}

	if _, err := ParseCategory("tech"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseCategory("Tech"); err == nil {
		t.Errorf("Expected category match to be case sensitive")
	}
}

func TestParseList(t *testing.T) {
	all, err := ParseList(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != len(All) {
		t.Errorf("Expected every region for an empty list, got %v", all)
	}

	some, err := ParseList([]string{"india", "global", "india"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(some) != 2 || some[0] != India || some[1] != Global {
		t.Errorf("Expected [india global], got %v", some)
	}

	if _, err := ParseList([]string{"global", "moon"}); err == nil {
		t.Errorf("Expected error for unknown region")
	}
}

func TestLoadRejectsBadRegistry(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "regions: []\n"},
		{"unknown region", "regions:\n  - id: mars\n    languages: [en]\n    searchLang: en\n"},
		{"bad language", "regions:\n  - id: global\n    languages: [fr]\n    searchLang: en\n"},
		{"no search lang", "regions:\n  - id: global\n    languages: [en]\n"},
		{"bad category", "regions:\n  - id: global\n    languages: [en]\n    searchLang: en\n    categories:\n      - name: X\n        category: weather\n        queries: [a]\n"},
		{"unknown field", "regions:\n  - id: global\n    languages: [en]\n    searchLang: en\n    colour: red\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.yaml)); err == nil {
				t.Errorf("Expected error loading %s registry", tt.name)
			}
		})
	}
}
