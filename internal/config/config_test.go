package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Environment:       "local",
		LogLevel:          "info",
		DatabaseURL:       "postgres://localhost/styleluxe",
		DBMinConns:        1,
		DBMaxConns:        8,
		MatchThreshold:    0.6,
		PrimarySourceKey:  "amazon_movers",
		SecondaryMinValue: 50,
		DisplayMinScore:   40,
		PrimaryStaleAfter: 48 * time.Hour,
		AdapterDelay:      time.Second,
		AdapterTimeout:    30 * time.Second,
		RefreshSkipWindow: 240 * time.Hour,
		RefreshMaxRows:    50,
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing database url", func(c *Config) { c.DatabaseURL = "  " }, "DATABASE_URL"},
		{"min conns above max", func(c *Config) { c.DBMinConns = 9 }, "SL_DB_MIN_CONNS"},
		{"threshold zero", func(c *Config) { c.MatchThreshold = 0 }, "SL_MATCH_THRESHOLD"},
		{"threshold above one", func(c *Config) { c.MatchThreshold = 1.5 }, "SL_MATCH_THRESHOLD"},
		{"negative secondary floor", func(c *Config) { c.SecondaryMinValue = -1 }, "SL_SECONDARY_MIN_VALUE"},
		{"display score above 100", func(c *Config) { c.DisplayMinScore = 120 }, "SL_DISPLAY_MIN_SCORE"},
		{"zero primary staleness", func(c *Config) { c.PrimaryStaleAfter = 0 }, "SL_PRIMARY_STALE_AFTER"},
		{"zero adapter timeout", func(c *Config) { c.AdapterTimeout = 0 }, "SL_ADAPTER_TIMEOUT"},
		{"zero refresh cap", func(c *Config) { c.RefreshMaxRows = 0 }, "SL_REFRESH_MAX_ROWS"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestCORSAllowedOriginsList_DedupesAndTrims(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CORSAllowedOrigins = " https://a.example , https://b.example,https://a.example ,, "
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 {
		t.Fatalf("expected 2 origins, got %v", got)
	}
	if got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", got)
	}
}
