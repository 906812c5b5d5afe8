// Package pipeline runs collection followed by materialization and reports
// what the run produced.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/dogbook/internal/materializer"
	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/search"
	"github.com/FranksOps/dogbook/internal/topic"
	"github.com/google/uuid"
)

// Collector gathers topics for regions into the staging directory.
type Collector interface {
	CollectRun(ctx context.Context, runID string, regions []region.Region) (map[region.Region][]topic.CollectedTopic, error)
}

// Materializer publishes staged rows as content files.
type Materializer interface {
	Run(ctx context.Context) (materializer.Stats, error)
}

// RegionCount is how many topics a region contributed to the run.
type RegionCount struct {
	Region region.Region `json:"region"`
	Topics int           `json:"topics"`
}

// Result summarizes one pipeline run.
type Result struct {
	RunID        string          `json:"runId"`
	Regions      []region.Region `json:"regions"`
	Collected    []RegionCount   `json:"collected"`
	Generated    int             `json:"generated"`
	Skipped      int             `json:"skipped"`
	Rejected     int             `json:"rejected"`
	SearchUsage  int             `json:"searchUsage"`
	SearchLimit  int             `json:"searchLimit"`
	UsagePercent float64         `json:"usagePercent"`
	StartedAt    time.Time       `json:"startedAt"`
	Duration     time.Duration   `json:"duration"`
}

// TotalCollected sums the per-region counts.
func (r Result) TotalCollected() int {
	total := 0
	for _, c := range r.Collected {
		total += c.Topics
	}
	return total
}

// Pipeline wires the two stages together.
type Pipeline struct {
	registry     *region.Registry
	collector    Collector
	materializer Materializer
	quota        *search.Quota
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a Pipeline. quota may be nil when usage is not tracked.
func New(reg *region.Registry, c Collector, m Materializer, quota *search.Quota, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry:     reg,
		collector:    c,
		materializer: m,
		quota:        quota,
		logger:       logger,
		now:          time.Now,
	}
}

// Run collects topics for regions, or every registry region when none are
// given, then materializes everything staged so far. A collection error
// stops the run before materialization.
func (p *Pipeline) Run(ctx context.Context, regions []region.Region) (Result, error) {
	if len(regions) == 0 {
		regions = p.registry.Regions()
	}

	res := Result{
		RunID:     uuid.NewString(),
		Regions:   regions,
		StartedAt: p.now(),
	}

	p.logger.Info("Starting pipeline", "run_id", res.RunID, "regions", regions)

	p.logger.Info("Step 1: collecting topics from news sources")
	collected, err := p.collector.CollectRun(ctx, res.RunID, regions)
	for _, r := range regions {
		if topics, ok := collected[r]; ok {
			res.Collected = append(res.Collected, RegionCount{Region: r, Topics: len(topics)})
		}
	}
	p.usage(&res)
	if err != nil {
		res.Duration = p.now().Sub(res.StartedAt)
		return res, fmt.Errorf("collect: %w", err)
	}

	p.logger.Info("Step 2: generating content files")
	stats, err := p.materializer.Run(ctx)
	res.Generated = stats.Generated
	res.Skipped = stats.Skipped
	res.Rejected = stats.Rejected
	res.Duration = p.now().Sub(res.StartedAt)
	if err != nil {
		return res, fmt.Errorf("materialize: %w", err)
	}

	p.logger.Info("Pipeline complete",
		"run_id", res.RunID,
		"collected", res.TotalCollected(),
		"generated", res.Generated,
		"skipped", res.Skipped,
		"search_usage", res.SearchUsage,
		"duration", res.Duration,
	)
	return res, nil
}

func (p *Pipeline) usage(res *Result) {
	if p.quota == nil {
		return
	}
	res.SearchUsage = p.quota.Used()
	res.SearchLimit = p.quota.Limit()
	res.UsagePercent = p.quota.Percent()
}
