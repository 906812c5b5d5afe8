// Package seed writes a fixed set of sample topics into the content tree so
// the site and the verifier can be exercised without API credentials.
package seed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/dogbook/internal/content"
	"github.com/FranksOps/dogbook/internal/ledger"
	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/topic"
)

//go:embed samples.json
var samplesJSON []byte

// Samples decodes the embedded sample topics keyed by region.
func Samples() (map[region.Region][]topic.CollectedTopic, error) {
	var raw map[region.Region][]topic.CollectedTopic
	dec := json.NewDecoder(bytes.NewReader(samplesJSON))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	for r, topics := range raw {
		if _, err := region.ParseRegion(string(r)); err != nil {
			return nil, err
		}
		for i := range topics {
			topics[i].Region = r
			if !topic.ValidSlug(topics[i].Slug) {
				return nil, fmt.Errorf("sample %q: invalid slug", topics[i].Slug)
			}
			if _, err := region.ParseCategory(string(topics[i].Category)); err != nil {
				return nil, fmt.Errorf("sample %q: %w", topics[i].Slug, err)
			}
		}
	}
	return raw, nil
}

// Seeder publishes the samples.
type Seeder struct {
	tree       *content.Tree
	ledgerPath string
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Seeder.
func New(tree *content.Tree, ledgerPath string, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{tree: tree, ledgerPath: ledgerPath, logger: logger, now: time.Now}
}

// Run writes the samples for regions, or for every region when none are
// given, and merges their slugs into the ledger. Existing content files with
// the same path are overwritten. It returns the number of files written.
func (s *Seeder) Run(regions []region.Region) (int, error) {
	samples, err := Samples()
	if err != nil {
		return 0, err
	}
	if len(regions) == 0 {
		regions = region.All
	}

	led, err := ledger.Load(s.ledgerPath)
	if err != nil {
		return 0, err
	}

	now := s.now()
	written := 0
	for _, r := range regions {
		s.logger.Info("Seeding region", "region", r, "topics", len(samples[r]))
		for _, c := range samples[r] {
			path, err := s.tree.Write(topic.Publish(c, now))
			if err != nil {
				return written, err
			}
			led.Add(c.Slug)
			written++
			s.logger.Debug("Seeded topic", "region", r, "slug", c.Slug, "file", path)
		}
	}

	if err := led.Save(now); err != nil {
		return written, err
	}
	s.logger.Info("Seeded sample topics", "count", written)
	return written, nil
}
