// Package collector turns search results into staged prediction topics, one
// region at a time.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/FranksOps/dogbook/internal/apperr"
	"github.com/FranksOps/dogbook/internal/llm"
	"github.com/FranksOps/dogbook/internal/metrics"
	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/search"
	"github.com/FranksOps/dogbook/internal/staging"
	"github.com/FranksOps/dogbook/internal/storage"
	"github.com/FranksOps/dogbook/internal/topic"
	"github.com/FranksOps/dogbook/pkg/ratelimit"
	"github.com/google/uuid"
)

const (
	DefaultSearchCount     = 5
	DefaultResultsPerQuery = 1
	DefaultThrottle        = 500 * time.Millisecond
)

// Generator produces topics from a news item.
type Generator interface {
	TopicFromNews(ctx context.Context, news llm.News, category region.Category, language string) (llm.Outcome[topic.GeneratedTopic], error)
	LatamTopics(ctx context.Context, news llm.News, category region.Category) (llm.Outcome[topic.LatamPair], error)
}

// Options wires a Collector. Registry, Search, Generator and Staging are required.
type Options struct {
	Registry  *region.Registry
	Search    search.Provider
	Generator Generator
	Staging   *staging.Store
	// Pacer pauses after every query. Nil means DefaultThrottle.
	Pacer *ratelimit.Pacer
	// Audit receives one record per query. Nil records nothing.
	Audit           storage.Backend
	Logger          *slog.Logger
	SearchCount     int
	ResultsPerQuery int
}

// Collector runs the search and generation loop.
type Collector struct {
	registry        *region.Registry
	search          search.Provider
	gen             Generator
	staging         *staging.Store
	pacer           *ratelimit.Pacer
	audit           storage.Backend
	logger          *slog.Logger
	searchCount     int
	resultsPerQuery int
	now             func() time.Time
}

// New creates a Collector.
func New(opts Options) *Collector {
	c := &Collector{
		registry:        opts.Registry,
		search:          opts.Search,
		gen:             opts.Generator,
		staging:         opts.Staging,
		pacer:           opts.Pacer,
		audit:           opts.Audit,
		logger:          opts.Logger,
		searchCount:     opts.SearchCount,
		resultsPerQuery: opts.ResultsPerQuery,
		now:             time.Now,
	}
	if c.pacer == nil {
		c.pacer = ratelimit.NewPacer(DefaultThrottle, 0)
	}
	if c.audit == nil {
		c.audit = storage.Discard{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.searchCount <= 0 {
		c.searchCount = DefaultSearchCount
	}
	if c.resultsPerQuery <= 0 {
		c.resultsPerQuery = DefaultResultsPerQuery
	}
	return c
}

// Collect gathers topics for regions, or for every registry region when none
// are given, under a fresh run ID.
func (c *Collector) Collect(ctx context.Context, regions []region.Region) (map[region.Region][]topic.CollectedTopic, error) {
	return c.CollectRun(ctx, uuid.NewString(), regions)
}

// CollectRun is Collect with the run ID stamped on audit records supplied by
// the caller. Only configuration errors and cancellation are returned; any
// other failure is logged and collection moves on.
func (c *Collector) CollectRun(ctx context.Context, runID string, regions []region.Region) (map[region.Region][]topic.CollectedTopic, error) {
	if len(regions) == 0 {
		regions = c.registry.Regions()
	}

	c.logger.Info("Starting topic collection", "run_id", runID, "regions", regions)

	results := make(map[region.Region][]topic.CollectedTopic, len(regions))
	for _, r := range regions {
		topics, err := c.collectRegion(ctx, runID, r)
		if err != nil {
			results[r] = []topic.CollectedTopic{}
			if errors.Is(err, apperr.ErrConfig) || ctx.Err() != nil {
				return results, err
			}
			c.logger.Error("Failed to collect region", "region", r, "err", err)
			continue
		}

		if len(topics) > 0 {
			path, err := c.staging.Write(r, topics)
			if err != nil {
				c.logger.Error("Failed to stage topics", "region", r, "err", err)
				results[r] = []topic.CollectedTopic{}
				continue
			}
			c.logger.Info("Staged topics", "region", r, "file", path)
		}

		results[r] = topics
		c.logger.Info("Region collected", "region", r, "topics", len(topics))
	}

	return results, nil
}

func (c *Collector) collectRegion(ctx context.Context, runID string, r region.Region) ([]topic.CollectedTopic, error) {
	cfg, ok := c.registry.Lookup(r)
	if !ok {
		return nil, &apperr.ValidationError{Field: "region", Value: string(r), Reason: "not in registry"}
	}

	c.logger.Info("Collecting topics for region", "region", r, "languages", cfg.Languages)

	topics := []topic.CollectedTopic{}
	for _, group := range cfg.Groups {
		c.logger.Debug("Category", "region", r, "group", group.Name)

		for _, query := range group.Queries {
			rec := &storage.QueryRecord{
				ID:        uuid.NewString(),
				RunID:     runID,
				Region:    string(r),
				Category:  string(group.Category),
				Query:     query,
				CreatedAt: c.now(),
			}
			start := time.Now()

			got, src, err := c.processQuery(ctx, cfg, group.Category, query)
			rec.Duration = time.Since(start)
			rec.Source = src

			switch {
			case err != nil:
				rec.Outcome = storage.OutcomeError
				rec.Error = err.Error()
			case got == nil:
				rec.Outcome = storage.OutcomeNoResults
			case len(got) == 0:
				rec.Outcome = storage.OutcomeNoTopic
			default:
				rec.Outcome = storage.OutcomeTopic
				rec.Slug = got[0].Slug
				topics = append(topics, got...)
			}
			c.record(ctx, rec)

			if err != nil {
				if errors.Is(err, apperr.ErrConfig) || ctx.Err() != nil {
					return topics, err
				}
				c.logger.Error("Error processing query", "region", r, "query", query, "err", err)
			}

			if err := c.pacer.Wait(ctx); err != nil {
				return topics, err
			}
		}
	}

	return topics, nil
}

// processQuery searches and generates from the top results. A nil slice
// means the search found nothing; an empty one means no result produced a
// usable topic.
func (c *Collector) processQuery(ctx context.Context, cfg region.Config, category region.Category, query string) ([]topic.CollectedTopic, string, error) {
	c.logger.Info("Searching", "region", cfg.ID, "query", query)

	results, err := c.search.Search(ctx, query, c.searchCount, cfg.SearchLang)
	if err != nil {
		return nil, "", err
	}
	if len(results) == 0 {
		c.logger.Warn("No results found", "region", cfg.ID, "query", query)
		return nil, "", nil
	}
	if len(results) > c.resultsPerQuery {
		results = results[:c.resultsPerQuery]
	}

	topics := []topic.CollectedTopic{}
	source := Hostname(results[0].URL)
	for _, res := range results {
		c.logger.Debug("Found news", "region", cfg.ID, "title", res.Title)
		news := llm.News{Title: res.Title, Description: res.Description}

		t, ok, err := c.generate(ctx, cfg, category, news, Hostname(res.URL))
		if err != nil {
			return topics, source, err
		}
		if ok {
			c.logger.Info("Generated topic", "region", cfg.ID, "slug", t.Slug)
			topics = append(topics, t)
		}
	}
	return topics, source, nil
}

func (c *Collector) generate(ctx context.Context, cfg region.Config, category region.Category, news llm.News, source string) (topic.CollectedTopic, bool, error) {
	if cfg.ID == region.Latam {
		out, err := c.gen.LatamTopics(ctx, news, category)
		if err != nil || !out.OK {
			return topic.CollectedTopic{}, false, err
		}
		return fromLatam(out.Value, cfg.ID, category, source), true, nil
	}

	lang := c.registry.PrimaryLanguage(cfg.ID)
	out, err := c.gen.TopicFromNews(ctx, news, category, lang)
	if err != nil || !out.OK {
		return topic.CollectedTopic{}, false, err
	}
	return fromSingle(out.Value, cfg.ID, category, lang, source), true, nil
}

func (c *Collector) record(ctx context.Context, rec *storage.QueryRecord) {
	metrics.RecordQuery(rec)
	if err := c.audit.Save(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Warn("Failed to save audit record", "query", rec.Query, "err", err)
	}
}

func fromSingle(g topic.GeneratedTopic, r region.Region, category region.Category, lang, source string) topic.CollectedTopic {
	return topic.CollectedTopic{
		Slug:           g.Slug,
		Region:         r,
		Category:       category,
		Locale:         map[string]topic.LocaleContent{lang: g.Locale()},
		Options:        g.Options,
		Keywords:       g.Keywords,
		ExpirationDate: g.ExpirationDate,
		Source:         source,
	}
}

func fromLatam(p topic.LatamPair, r region.Region, category region.Category, source string) topic.CollectedTopic {
	return topic.CollectedTopic{
		Slug:     p.PT.Slug,
		Region:   r,
		Category: category,
		Locale: map[string]topic.LocaleContent{
			"pt": p.PT.Locale(),
			"es": p.ES.Locale(),
		},
		Options:        p.PT.Options,
		Keywords:       p.PT.Keywords,
		ExpirationDate: p.PT.ExpirationDate,
		Source:         source,
	}
}

// Hostname is the host part of a result URL, or "unknown" when it has none.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
