package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/FranksOps/dogbook/internal/apperr"
	"github.com/FranksOps/dogbook/internal/metrics"
	"github.com/FranksOps/dogbook/pkg/httpclient"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint  = "https://api.search.brave.com/res/v1/web/search"
	DefaultFreshness = "pw"
)

// BraveConfig configures a Brave client.
type BraveConfig struct {
	Endpoint  string
	APIKey    string
	Freshness string
	// RPS caps outbound requests per second. Zero or less disables the cap.
	RPS float64
}

// Brave is a Provider backed by the Brave web search API.
type Brave struct {
	cfg     BraveConfig
	http    *httpclient.Client
	quota   *Quota
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Provider = (*Brave)(nil)

type braveResponse struct {
	Web *struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age"`
}

// NewBrave creates a Brave client. quota is shared with whoever reports usage
// and must not be nil.
func NewBrave(cfg BraveConfig, client *httpclient.Client, quota *Quota, logger *slog.Logger) *Brave {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Freshness == "" {
		cfg.Freshness = DefaultFreshness
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Brave{
		cfg:     cfg,
		http:    client,
		quota:   quota,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Search runs one web search. The quota is charged only when the API answers
// with a 2xx status.
func (b *Brave) Search(ctx context.Context, query string, count int, language string) ([]Result, error) {
	if b.cfg.APIKey == "" {
		return nil, apperr.Config("BRAVE_API_KEY environment variable is not set")
	}
	if b.quota.exceeded() {
		metrics.RecordSearch(metrics.SearchQuota, b.quota.Used())
		return nil, fmt.Errorf("%w: Brave API monthly limit reached (%d)", apperr.ErrQuotaExceeded, b.quota.Limit())
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("search_lang", language)
	params.Set("freshness", b.cfg.Freshness)

	req, err := http.NewRequest(http.MethodGet, b.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.cfg.APIKey)

	var resp braveResponse
	if err := b.http.DoJSON(ctx, req, &resp); err != nil {
		metrics.RecordSearch(metrics.SearchError, b.quota.Used())
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return nil, &apperr.UpstreamError{Provider: "Brave", StatusCode: se.StatusCode, Body: se.Body}
		}
		return nil, fmt.Errorf("brave search: %w", err)
	}

	used, warn := b.quota.record()
	metrics.RecordSearch(metrics.SearchOK, used)
	if warn {
		b.logger.Warn("Brave API usage warning",
			"used", used,
			"limit", b.quota.Limit(),
			"percent", int(math.Round(float64(used)/float64(b.quota.Limit())*100)),
		)
	}

	if resp.Web == nil {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		results = append(results, Result{
			Title:         plainText(r.Title),
			URL:           r.URL,
			Description:   plainText(r.Description),
			PublishedDate: r.Age,
		})
	}
	return results, nil
}
