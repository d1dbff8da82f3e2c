package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Database = DatabaseConfig{
		Path:    ":memory:",
		Timeout: 1 * time.Second,
	}
	cfg.Feed.URL = ""
	cfg.Feed.HTTPTimeout = 5 * time.Second
	cfg.Feed.UserAgent = "feedline-test/1.0"
	cfg.Feed.OutputPaths = nil
	cfg.Feed.LatestPaths = nil
	cfg.Feed.ShareIndexOut = ""
	cfg.Feed.PagesDir = ""
	cfg.Media.ProbeTimeout = 1 * time.Second
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Backend.Retries = 0
	cfg.Backend.RetrySleep = 0
	cfg.Backend.UserAgent = "feedline-test/1.0"
	return cfg
}
