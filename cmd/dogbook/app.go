package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/FranksOps/dogbook/internal/collector"
	"github.com/FranksOps/dogbook/internal/config"
	"github.com/FranksOps/dogbook/internal/content"
	"github.com/FranksOps/dogbook/internal/fingerprint"
	"github.com/FranksOps/dogbook/internal/llm"
	"github.com/FranksOps/dogbook/internal/materializer"
	"github.com/FranksOps/dogbook/internal/metrics"
	"github.com/FranksOps/dogbook/internal/pipeline"
	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/search"
	"github.com/FranksOps/dogbook/internal/staging"
	"github.com/FranksOps/dogbook/internal/storage"
	"github.com/FranksOps/dogbook/internal/storage/csvbackend"
	"github.com/FranksOps/dogbook/internal/storage/jsonbackend"
	"github.com/FranksOps/dogbook/internal/storage/postgres"
	"github.com/FranksOps/dogbook/internal/storage/sqlite"
	"github.com/FranksOps/dogbook/internal/verify"
	"github.com/FranksOps/dogbook/pkg/httpclient"
	"github.com/FranksOps/dogbook/pkg/proxy"
	"github.com/FranksOps/dogbook/pkg/ratelimit"
)

// app holds the components built from one Config.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *region.Registry
	staging  *staging.Store
	content  *content.Tree
	audit    storage.Backend
	metrics  *metrics.Server
	quota    *search.Quota
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	reg, err := region.LoadFile(cfg.RegionsFile)
	if err != nil {
		return nil, err
	}

	audit, err := openAudit(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		staging:  staging.NewStore(cfg.StagingDir()),
		content:  content.NewTree(cfg.ContentDir),
		audit:    audit,
		quota:    search.NewQuota(cfg.Search.MonthlyLimit, cfg.Search.WarnThreshold),
	}
	if cfg.Metrics.Port > 0 {
		a.metrics = metrics.Start(cfg.Metrics.Port, logger)
		logger.Info("Metrics server listening", "port", cfg.Metrics.Port)
	}
	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.metrics.Stop(ctx); err != nil {
		a.logger.Warn("Failed to stop metrics server", "err", err)
	}
	if err := a.audit.Close(); err != nil {
		a.logger.Warn("Failed to close audit store", "err", err)
	}
}

// openAudit builds the run-history backend. json and csv default to a file
// under the data directory.
func openAudit(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	dsn := cfg.Audit.DSN
	var err error
	switch cfg.Audit.Backend {
	case "", "none":
		return storage.Discard{}, nil
	case "json":
		if dsn == "" {
			if dsn, err = defaultHistoryPath(cfg, "history.ndjson"); err != nil {
				return nil, err
			}
		}
		b, err := jsonbackend.New(dsn)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "csv":
		if dsn == "" {
			if dsn, err = defaultHistoryPath(cfg, "history.csv"); err != nil {
				return nil, err
			}
		}
		b, err := csvbackend.New(dsn)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "sqlite":
		if dsn == "" {
			if dsn, err = defaultHistoryPath(cfg, "history.db"); err != nil {
				return nil, err
			}
		}
		return sqlite.New(dsn)
	case "postgres":
		return postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

func defaultHistoryPath(cfg *config.Config, name string) (string, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return filepath.Join(cfg.DataDir, name), nil
}

func (a *app) collector() (*collector.Collector, error) {
	profile, err := fingerprint.ParseProfile(a.cfg.HTTP.TLSProfile)
	if err != nil {
		return nil, err
	}

	proxies, err := a.proxies()
	if err != nil {
		return nil, err
	}

	searchHTTP, err := httpclient.New(httpclient.Config{Timeout: a.cfg.Search.Timeout, TLSProfile: profile, Proxies: proxies})
	if err != nil {
		return nil, err
	}
	llmHTTP, err := httpclient.New(httpclient.Config{Timeout: a.cfg.LLM.Timeout, TLSProfile: profile, Proxies: proxies})
	if err != nil {
		return nil, err
	}

	brave := search.NewBrave(search.BraveConfig{
		Endpoint:  a.cfg.Search.Endpoint,
		APIKey:    a.cfg.Search.APIKey,
		Freshness: a.cfg.Search.Freshness,
		RPS:       a.cfg.Search.RPS,
	}, searchHTTP, a.quota, a.logger)
	retrier := search.NewRetrier(brave, search.RetryConfig{
		Attempts: a.cfg.Search.Retries,
		Base:     a.cfg.Search.RetryBase,
	}, a.logger)

	gen := llm.NewGenerator(llm.NewClient(llm.Config{
		Endpoint:    a.cfg.LLM.Endpoint,
		APIKey:      a.cfg.LLM.APIKey,
		Model:       a.cfg.LLM.Model,
		Temperature: a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
	}, llmHTTP), a.logger)

	return collector.New(collector.Options{
		Registry:        a.registry,
		Search:          retrier,
		Generator:       gen,
		Staging:         a.staging,
		Pacer:           ratelimit.NewPacer(a.cfg.Collector.Throttle, a.cfg.Collector.Jitter),
		Audit:           a.audit,
		Logger:          a.logger,
		SearchCount:     a.cfg.Search.Count,
		ResultsPerQuery: a.cfg.Collector.ResultsPerQuery,
	}), nil
}

// proxies builds the shared egress pool, or nil when none is configured.
func (a *app) proxies() (*proxy.Pool, error) {
	if len(a.cfg.HTTP.Proxies) == 0 && a.cfg.HTTP.ProxyFile == "" {
		return nil, nil
	}
	pool := proxy.NewPool(proxy.Config{})
	if err := pool.Add(a.cfg.HTTP.Proxies...); err != nil {
		return nil, err
	}
	if a.cfg.HTTP.ProxyFile != "" {
		if err := pool.LoadFile(a.cfg.HTTP.ProxyFile); err != nil {
			return nil, err
		}
	}
	a.logger.Info("Routing API calls through egress proxies", "count", pool.Len())
	return pool, nil
}

func (a *app) materializer() *materializer.Materializer {
	return materializer.New(a.staging, a.content, a.cfg.LedgerPath(), a.logger)
}

func (a *app) verifier() *verify.Verifier {
	return verify.New(a.content, a.cfg.LedgerPath(), a.logger)
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	c, err := a.collector()
	if err != nil {
		return nil, err
	}
	return pipeline.New(a.registry, c, a.materializer(), a.quota, a.logger), nil
}
