// Package config loads pipeline settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "DOGBOOK"
	configPathEnv  = "DOGBOOK_CONFIG"
	defaultFile    = "dogbook.yaml"
	braveKeyEnv    = "BRAVE_API_KEY"
	chutesKeyEnv   = "CHUTES_API_KEY"
	chutesModelEnv = "CHUTES_MODEL"
)

// Config holds every setting the CLI needs to wire the pipeline.
type Config struct {
	DataDir     string          `mapstructure:"data_dir"`
	ContentDir  string          `mapstructure:"content_dir"`
	RegionsFile string          `mapstructure:"regions_file"`
	Log         LogConfig       `mapstructure:"log"`
	Search      SearchConfig    `mapstructure:"search"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Collector   CollectorConfig `mapstructure:"collector"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	Audit       AuditConfig     `mapstructure:"audit"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SearchConfig configures the Brave web search client.
type SearchConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	Count         int           `mapstructure:"count"`
	Freshness     string        `mapstructure:"freshness"`
	MonthlyLimit  int           `mapstructure:"monthly_limit"`
	WarnThreshold float64       `mapstructure:"warn_threshold"`
	Retries       int           `mapstructure:"retries"`
	RetryBase     time.Duration `mapstructure:"retry_base"`
	RPS           float64       `mapstructure:"rps"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the chat-completion client.
type LLMConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CollectorConfig tunes the per-query loop.
type CollectorConfig struct {
	ResultsPerQuery int           `mapstructure:"results_per_query"`
	Throttle        time.Duration `mapstructure:"throttle"`
	Jitter          float64       `mapstructure:"jitter"`
}

// HTTPConfig applies to every outbound API client.
type HTTPConfig struct {
	TLSProfile string `mapstructure:"tls_profile"`
	// Proxies are egress proxy URLs; ProxyFile lists more, one per line.
	Proxies   []string `mapstructure:"proxies"`
	ProxyFile string   `mapstructure:"proxy_file"`
}

// AuditConfig selects where per-query run history is recorded.
type AuditConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// MetricsConfig controls the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// StagingDir is where collection writes its CSV files.
func (c Config) StagingDir() string { return filepath.Join(c.DataDir, "raw") }

// LedgerPath is the processed-slug ledger file.
func (c Config) LedgerPath() string { return filepath.Join(c.DataDir, "processed.json") }

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("content_dir", filepath.Join("src", "content", "topics"))
	v.SetDefault("regions_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("search.endpoint", "https://api.search.brave.com/res/v1/web/search")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.count", 5)
	v.SetDefault("search.freshness", "pw")
	v.SetDefault("search.monthly_limit", 2000)
	v.SetDefault("search.warn_threshold", 0.8)
	v.SetDefault("search.retries", 3)
	v.SetDefault("search.retry_base", time.Second)
	v.SetDefault("search.rps", 1.0)
	v.SetDefault("search.timeout", 15*time.Second)

	v.SetDefault("llm.endpoint", "https://llm.chutes.ai/v1/chat/completions")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "deepseek-ai/DeepSeek-V3-0324")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("collector.results_per_query", 1)
	v.SetDefault("collector.throttle", 500*time.Millisecond)
	v.SetDefault("collector.jitter", 0.0)

	v.SetDefault("http.tls_profile", "go")
	v.SetDefault("http.proxies", []string{})
	v.SetDefault("http.proxy_file", "")

	v.SetDefault("audit.backend", "none")
	v.SetDefault("audit.dsn", "")

	v.SetDefault("metrics.port", 0)
}

// Load builds a Config. path may be empty, in which case DOGBOOK_CONFIG and
// then ./dogbook.yaml are tried; a missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider credentials keep the names the deployment already uses.
	if err := v.BindEnv("search.api_key", envPrefix+"_SEARCH_API_KEY", braveKeyEnv); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("llm.api_key", envPrefix+"_LLM_API_KEY", chutesKeyEnv); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("llm.model", envPrefix+"_LLM_MODEL", chutesModelEnv); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv(configPathEnv)
		explicit = path != ""
	}
	if !explicit {
		if _, err := os.Stat(defaultFile); err == nil {
			path = defaultFile
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with. Missing credentials are
// not checked here; the clients report them when they are first used.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.ContentDir == "" {
		errs = append(errs, errors.New("content_dir must not be empty"))
	}
	if c.Search.Count <= 0 {
		errs = append(errs, fmt.Errorf("search.count must be positive, got %d", c.Search.Count))
	}
	if c.Search.MonthlyLimit <= 0 {
		errs = append(errs, fmt.Errorf("search.monthly_limit must be positive, got %d", c.Search.MonthlyLimit))
	}
	if c.Search.WarnThreshold <= 0 || c.Search.WarnThreshold > 1 {
		errs = append(errs, fmt.Errorf("search.warn_threshold must be in (0, 1], got %v", c.Search.WarnThreshold))
	}
	if c.Search.Retries <= 0 {
		errs = append(errs, fmt.Errorf("search.retries must be positive, got %d", c.Search.Retries))
	}
	if c.Search.RetryBase < 0 {
		errs = append(errs, fmt.Errorf("search.retry_base must not be negative"))
	}
	if c.Collector.ResultsPerQuery <= 0 {
		errs = append(errs, fmt.Errorf("collector.results_per_query must be positive, got %d", c.Collector.ResultsPerQuery))
	}
	if c.Collector.ResultsPerQuery > c.Search.Count {
		errs = append(errs, fmt.Errorf("collector.results_per_query (%d) exceeds search.count (%d)", c.Collector.ResultsPerQuery, c.Search.Count))
	}
	if c.Collector.Throttle < 0 {
		errs = append(errs, fmt.Errorf("collector.throttle must not be negative"))
	}
	if c.Collector.Jitter < 0 || c.Collector.Jitter > 1 {
		errs = append(errs, fmt.Errorf("collector.jitter must be in [0, 1], got %v", c.Collector.Jitter))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	switch c.Audit.Backend {
	case "none", "json", "csv", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("audit.backend must be one of none, json, csv, sqlite, postgres; got %q", c.Audit.Backend))
	}
	if c.Audit.Backend == "postgres" && c.Audit.DSN == "" {
		errs = append(errs, errors.New("audit.dsn is required for the postgres backend"))
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port))
	}
	return errors.Join(errs...)
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
