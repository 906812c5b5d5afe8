package region

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultRegistry []byte

// QueryGroup is a named set of search queries feeding one category.
type QueryGroup struct {
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`
	Queries  []string `yaml:"queries"`
}

// Config describes how a single region is collected.
type Config struct {
	ID         Region       `yaml:"id"`
	Languages  []string     `yaml:"languages"`
	SearchLang string       `yaml:"searchLang"`
	Groups     []QueryGroup `yaml:"categories"`
}

// Registry is the immutable region lookup table.
type Registry struct {
	order   []Region
	regions map[Region]Config
}

type registryFile struct {
	Regions []Config `yaml:"regions"`
}

// Default returns the built-in registry. It panics if the embedded file is invalid.
func Default() *Registry {
	r, err := Load(bytes.NewReader(defaultRegistry))
	if err != nil {
		panic(fmt.Sprintf("region: embedded registry: %v", err))
	}
	return r
}

// LoadFile reads a registry from path, or returns Default when path is empty.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a YAML registry.
func Load(r io.Reader) (*Registry, error) {
	var file registryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	reg := &Registry{regions: make(map[Region]Config, len(file.Regions))}
	for _, cfg := range file.Regions {
		if _, err := ParseRegion(string(cfg.ID)); err != nil {
			return nil, err
		}
		if _, dup := reg.regions[cfg.ID]; dup {
			return nil, fmt.Errorf("region %s declared twice", cfg.ID)
		}
		if len(cfg.Languages) == 0 {
			return nil, fmt.Errorf("region %s has no languages", cfg.ID)
		}
		for _, lang := range cfg.Languages {
			if !IsLocale(lang) {
				return nil, fmt.Errorf("region %s: unsupported language %q", cfg.ID, lang)
			}
		}
		if cfg.SearchLang == "" {
			return nil, fmt.Errorf("region %s has no search language", cfg.ID)
		}
		for _, g := range cfg.Groups {
			if _, err := ParseCategory(string(g.Category)); err != nil {
				return nil, fmt.Errorf("region %s group %q: %w", cfg.ID, g.Name, err)
			}
		}
		reg.order = append(reg.order, cfg.ID)
		reg.regions[cfg.ID] = cfg
	}

	if len(reg.order) == 0 {
		return nil, fmt.Errorf("registry declares no regions")
	}
	return reg, nil
}

// Regions returns every configured region in declaration order.
func (r *Registry) Regions() []Region {
	out := make([]Region, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns a copy of the configuration for id.
func (r *Registry) Lookup(id Region) (Config, bool) {
	cfg, ok := r.regions[id]
	if !ok {
		return Config{}, false
	}
	cfg.Languages = append([]string(nil), cfg.Languages...)
	groups := make([]QueryGroup, len(cfg.Groups))
	for i, g := range cfg.Groups {
		g.Queries = append([]string(nil), g.Queries...)
		groups[i] = g
	}
	cfg.Groups = groups
	return cfg, true
}

// Languages returns the display languages for id, or nil if it is unknown.
func (r *Registry) Languages(id Region) []string {
	cfg, ok := r.regions[id]
	if !ok {
		return nil
	}
	out := make([]string, len(cfg.Languages))
	copy(out, cfg.Languages)
	return out
}

// PrimaryLanguage is the language single-locale generation targets.
func (r *Registry) PrimaryLanguage(id Region) string {
	cfg, ok := r.regions[id]
	if !ok || len(cfg.Languages) == 0 {
		return ""
	}
	return cfg.Languages[0]
}
