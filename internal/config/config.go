package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process-wide configuration, loaded once from the
// environment. Every field maps to a key in the external configuration
// table; defaults mirror the documented defaults exactly.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"8"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// IngestSecret authorizes POST /ingest. SchedulerSecret is a second,
	// independently rotatable token accepted for the same endpoint.
	IngestSecret    string `envconfig:"INGEST_SECRET" required:"true"`
	SchedulerSecret string `envconfig:"SCHEDULER_SECRET" default:""`

	LLMProvider      string `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMBaseURL       string `envconfig:"LLM_BASE_URL" required:"true"`
	LLMAPIKey        string `envconfig:"LLM_API_KEY" default:""`
	LLMModel         string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMPromptVersion string `envconfig:"LLM_PROMPT_VERSION" default:"v1"`

	ClusterSimilarityThreshold float64 `envconfig:"CLUSTER_SIMILARITY_THRESHOLD" default:"0.4"`
	ClusterTrgmThreshold       float64 `envconfig:"CLUSTER_TRGM_THRESHOLD" default:"0.2"`
	ClusterActiveDays          int     `envconfig:"CLUSTER_ACTIVE_DAYS" default:"7"`

	RankingMaxDomains        int     `envconfig:"RANKING_MAX_DOMAINS" default:"6"`
	RankingRecencyDecayHours float64 `envconfig:"RANKING_RECENCY_DECAY_HOURS" default:"24"`

	DirectModeMaxItems       int `envconfig:"DIRECT_MODE_MAX_ITEMS" default:"30"`
	DirectModeTimeoutMS      int `envconfig:"DIRECT_MODE_TIMEOUT_MS" default:"120000"`
	DirectModeLLMConcurrency int `envconfig:"DIRECT_MODE_LLM_CONCURRENCY" default:"3"`

	MinConfidenceThreshold float64 `envconfig:"MIN_CONFIDENCE_THRESHOLD" default:"0.6"`

	// FeedSourcesRaw is a semicolon-separated list of "name|sourceType|url"
	// triples describing the enabled syndication feeds. Parse with
	// FeedSources(). Not a database table: spec treats the feed list as
	// static deployment configuration, not a queryable entity.
	FeedSourcesRaw string `envconfig:"FEED_SOURCES" default:""`
}

// FeedSource describes one configured, pollable feed.
type FeedSource struct {
	Name       string
	SourceType string
	URL        string
}

// FeedSources parses FeedSourcesRaw into a slice, skipping malformed
// entries rather than failing startup over one bad row.
func (c *Config) FeedSources() []FeedSource {
	if c == nil {
		return nil
	}
	var sources []FeedSource
	for _, raw := range strings.Split(c.FeedSourcesRaw, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, "|", 3)
		if len(parts) != 3 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		sourceType := strings.ToUpper(strings.TrimSpace(parts[1]))
		feedURL := strings.TrimSpace(parts[2])
		if name == "" || sourceType == "" || feedURL == "" {
			continue
		}
		sources = append(sources, FeedSource{Name: name, SourceType: sourceType, URL: feedURL})
	}
	return sources
}

// Load reads and validates configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.IngestSecret) == "" {
		return fmt.Errorf("INGEST_SECRET is required")
	}
	if strings.TrimSpace(c.LLMBaseURL) == "" {
		return fmt.Errorf("LLM_BASE_URL is required")
	}
	if c.ClusterSimilarityThreshold <= 0 || c.ClusterSimilarityThreshold > 1 {
		return fmt.Errorf("CLUSTER_SIMILARITY_THRESHOLD must be in (0,1]")
	}
	if c.ClusterTrgmThreshold <= 0 || c.ClusterTrgmThreshold > 1 {
		return fmt.Errorf("CLUSTER_TRGM_THRESHOLD must be in (0,1]")
	}
	if c.ClusterActiveDays < 1 {
		return fmt.Errorf("CLUSTER_ACTIVE_DAYS must be >= 1")
	}
	if c.RankingMaxDomains < 1 {
		return fmt.Errorf("RANKING_MAX_DOMAINS must be >= 1")
	}
	if c.RankingRecencyDecayHours <= 0 {
		return fmt.Errorf("RANKING_RECENCY_DECAY_HOURS must be > 0")
	}
	if c.DirectModeMaxItems < 1 {
		return fmt.Errorf("DIRECT_MODE_MAX_ITEMS must be >= 1")
	}
	if c.DirectModeTimeoutMS < 1000 {
		return fmt.Errorf("DIRECT_MODE_TIMEOUT_MS must be >= 1000")
	}
	if c.DirectModeLLMConcurrency < 1 {
		return fmt.Errorf("DIRECT_MODE_LLM_CONCURRENCY must be >= 1")
	}
	if c.MinConfidenceThreshold < 0 || c.MinConfidenceThreshold > 1 {
		return fmt.Errorf("MIN_CONFIDENCE_THRESHOLD must be in [0,1]")
	}
	return nil
}

// CORSAllowedOriginsList dedups and trims the comma-separated origin list.
func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
