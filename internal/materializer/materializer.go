// Package materializer publishes staged topics as content files, skipping
// any slug the ledger has already seen.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/FranksOps/dogbook/internal/apperr"
	"github.com/FranksOps/dogbook/internal/content"
	"github.com/FranksOps/dogbook/internal/ledger"
	"github.com/FranksOps/dogbook/internal/metrics"
	"github.com/FranksOps/dogbook/internal/staging"
	"github.com/FranksOps/dogbook/internal/topic"
)

// Stats counts what one run did with the staged rows.
type Stats struct {
	Generated int
	Skipped   int
	Rejected  int
}

// Materializer turns staging rows into content files.
type Materializer struct {
	staging    *staging.Store
	content    *content.Tree
	ledgerPath string
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Materializer reading from s, writing to tree and tracking
// processed slugs in the ledger file at ledgerPath.
func New(s *staging.Store, tree *content.Tree, ledgerPath string, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		staging:    s,
		content:    tree,
		ledgerPath: ledgerPath,
		logger:     logger,
		now:        time.Now,
	}
}

// Run processes every staging file in name order. The ledger is saved once
// at the end, also when a content write fails, so it always lists every file
// that was written.
func (m *Materializer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	m.logger.Info("Starting topic generation from CSV files")

	led, err := ledger.Load(m.ledgerPath)
	if err != nil {
		return stats, err
	}

	files, err := m.staging.Files()
	if errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("No raw data directory found", "dir", m.staging.Dir())
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	m.logger.Info("Found CSV files", "count", len(files))

	runErr := m.process(ctx, files, led, &stats)

	if err := led.Save(m.now()); err != nil {
		return stats, errors.Join(runErr, fmt.Errorf("save ledger: %w", err))
	}
	metrics.RecordMaterialized(stats.Generated, stats.Skipped, stats.Rejected)

	m.logger.Info("Generation summary",
		"generated", stats.Generated,
		"skipped", stats.Skipped,
		"rejected", stats.Rejected,
	)
	return stats, runErr
}

func (m *Materializer) process(ctx context.Context, files []string, led *ledger.Ledger, stats *Stats) error {
	publishedAt := m.now()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := filepath.Base(path)
		rows, err := m.staging.Read(path)
		if err != nil {
			m.logger.Error("Failed to parse staging file", "file", name, "err", err)
			continue
		}
		m.logger.Info("Processing", "file", name, "rows", len(rows))

		for _, row := range rows {
			c, err := staging.DecodeRow(row)
			if err != nil {
				stats.Rejected++
				m.logRejected(name, row["slug"], err)
				continue
			}

			if led.Contains(c.Slug) {
				stats.Skipped++
				m.logger.Debug("Skipping duplicate", "file", name, "slug", c.Slug)
				continue
			}

			if _, err := m.content.Write(topic.Publish(c, publishedAt)); err != nil {
				return fmt.Errorf("materialize %s: %w", c.Slug, err)
			}
			led.Add(c.Slug)
			stats.Generated++
			m.logger.Info("Generated", "slug", c.Slug, "region", c.Region, "category", c.Category)
		}
	}
	return nil
}

func (m *Materializer) logRejected(file, slug string, err error) {
	var ve *apperr.ValidationError
	kind := "parse"
	if errors.As(err, &ve) {
		kind = "validation"
	}
	m.logger.Warn("Rejected row", "file", file, "slug", slug, "kind", kind, "err", err)
}
