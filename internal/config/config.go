package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"SL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"SL_DB_MAX_CONNS" default:"8"`

	// Product matcher.
	MatchThreshold float64 `envconfig:"SL_MATCH_THRESHOLD" default:"0.6"`

	// Source keys. The primary source is the high-confidence sales-rank
	// feed; everything else is treated as secondary discussion signal.
	PrimarySourceKey string `envconfig:"SL_PRIMARY_SOURCE" default:"amazon_movers"`

	// Scoring engine. A product unseen on the primary feed for longer
	// than the staleness window is delisted and decays at the sharper
	// delisted rate.
	SecondaryMinValue   float64       `envconfig:"SL_SECONDARY_MIN_VALUE" default:"50"`
	DisplayMinScore     int           `envconfig:"SL_DISPLAY_MIN_SCORE" default:"40"`
	ResetAgeOnRelisting bool          `envconfig:"SL_RESET_AGE_ON_RELISTING" default:"false"`
	PrimaryStaleAfter   time.Duration `envconfig:"SL_PRIMARY_STALE_AFTER" default:"48h"`

	// Batch driver.
	AdapterDelay   time.Duration `envconfig:"SL_ADAPTER_DELAY" default:"1500ms"`
	AdapterTimeout time.Duration `envconfig:"SL_ADAPTER_TIMEOUT" default:"30s"`

	// Primary-source metadata refresh.
	RefreshSkipWindow time.Duration `envconfig:"SL_REFRESH_SKIP_WINDOW" default:"240h"`
	RefreshMaxRows    int           `envconfig:"SL_REFRESH_MAX_ROWS" default:"50"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

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
		return fmt.Errorf("SL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("SL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("SL_DB_MIN_CONNS (%d) cannot exceed SL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("SL_MATCH_THRESHOLD must be in (0, 1]")
	}
	if strings.TrimSpace(c.PrimarySourceKey) == "" {
		return fmt.Errorf("SL_PRIMARY_SOURCE is required")
	}
	if c.SecondaryMinValue < 0 {
		return fmt.Errorf("SL_SECONDARY_MIN_VALUE must be >= 0")
	}
	if c.DisplayMinScore < 0 || c.DisplayMinScore > 100 {
		return fmt.Errorf("SL_DISPLAY_MIN_SCORE must be in [0, 100]")
	}
	if c.PrimaryStaleAfter <= 0 {
		return fmt.Errorf("SL_PRIMARY_STALE_AFTER must be > 0")
	}
	if c.AdapterDelay < 0 {
		return fmt.Errorf("SL_ADAPTER_DELAY must be >= 0")
	}
	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("SL_ADAPTER_TIMEOUT must be > 0")
	}
	if c.RefreshSkipWindow < 0 {
		return fmt.Errorf("SL_REFRESH_SKIP_WINDOW must be >= 0")
	}
	if c.RefreshMaxRows < 1 {
		return fmt.Errorf("SL_REFRESH_MAX_ROWS must be >= 1")
	}
	return nil
}

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
