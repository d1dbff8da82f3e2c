package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestGetDefaultOpener(t *testing.T) {
	expected := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "start",
	}

	opener := getDefaultOpener()

	if expectedOpener, ok := expected[runtime.GOOS]; ok {
		if opener != expectedOpener {
			t.Errorf("getDefaultOpener() = %s, want %s for %s", opener, expectedOpener, runtime.GOOS)
		}
	} else if opener != "open" {
		t.Errorf("getDefaultOpener() = %s, want 'open' for unknown OS", opener)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Timeout != 1*time.Second {
		t.Errorf("Database.Timeout = %v, want 1s", cfg.Database.Timeout)
	}
	if cfg.Feed.HTTPTimeout != 30*time.Second {
		t.Errorf("Feed.HTTPTimeout = %v, want 30s", cfg.Feed.HTTPTimeout)
	}
	if cfg.Feed.UserAgent == "" {
		t.Error("Feed.UserAgent should not be empty")
	}
	if cfg.Feed.Limit != 365 {
		t.Errorf("Feed.Limit = %d, want 365", cfg.Feed.Limit)
	}
	if cfg.UI.AdCadence != 5 {
		t.Errorf("UI.AdCadence = %d, want 5", cfg.UI.AdCadence)
	}
	if !cfg.UI.ShowSidebar {
		t.Error("UI.ShowSidebar should default to true")
	}
	if cfg.Media.DefaultOpener == "" {
		t.Error("Media.DefaultOpener should not be empty")
	}
	if cfg.Backend.TopK != 16 {
		t.Errorf("Backend.TopK = %d, want 16", cfg.Backend.TopK)
	}
	if cfg.Server.PageSize != 20 {
		t.Errorf("Server.PageSize = %d, want 20", cfg.Server.PageSize)
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
	if cfg.UI.AdCadence != 5 {
		t.Errorf("UI.AdCadence = %d, want 5", cfg.UI.AdCadence)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[database]
path = "/tmp/test.db"
timeout = "10s"

[feed]
url = "https://diary.example.org/feed/index.json"
http_timeout = "60s"
user_agent = "test-agent"

[ui]
show_sidebar = false
ad_cadence = 7

[ui.colors]
primary = "#FF0000"
`

	if writeErr := os.WriteFile(configPath, []byte(configContent), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %s, want '/tmp/test.db'", cfg.Database.Path)
	}
	if cfg.Database.Timeout != 10*time.Second {
		t.Errorf("Database.Timeout = %v, want 10s", cfg.Database.Timeout)
	}
	if cfg.Feed.URL != "https://diary.example.org/feed/index.json" {
		t.Errorf("Feed.URL = %s", cfg.Feed.URL)
	}
	if cfg.Feed.HTTPTimeout != 60*time.Second {
		t.Errorf("Feed.HTTPTimeout = %v, want 60s", cfg.Feed.HTTPTimeout)
	}
	if cfg.Feed.UserAgent != "test-agent" {
		t.Errorf("Feed.UserAgent = %s, want 'test-agent'", cfg.Feed.UserAgent)
	}
	if cfg.UI.ShowSidebar {
		t.Error("UI.ShowSidebar = true, want false")
	}
	if cfg.UI.AdCadence != 7 {
		t.Errorf("UI.AdCadence = %d, want 7", cfg.UI.AdCadence)
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want '#FF0000'", cfg.UI.Colors.Primary)
	}
	// untouched keys keep their defaults
	if cfg.UI.Colors.Secondary != "#4ECDC4" {
		t.Errorf("UI.Colors.Secondary = %s, want default", cfg.UI.Colors.Secondary)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FEEDLINE_FEED_URL", "https://env.example.org/feed.json")
	t.Setenv("FEEDLINE_FEED_SHARE_INDEX_URL", "https://env.example.org/share_index.json")
	t.Setenv("FEEDLINE_UI_SHOW_SIDEBAR", "false")
	t.Setenv("FEEDLINE_UI_MASCOT_URI", "https://env.example.org/mascot.png")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Feed.URL != "https://env.example.org/feed.json" {
		t.Errorf("Feed.URL = %s", cfg.Feed.URL)
	}
	if cfg.Feed.ShareIndexURL != "https://env.example.org/share_index.json" {
		t.Errorf("Feed.ShareIndexURL = %s", cfg.Feed.ShareIndexURL)
	}
	if cfg.UI.ShowSidebar {
		t.Error("UI.ShowSidebar = true, want false")
	}
	if cfg.UI.MascotURI != "https://env.example.org/mascot.png" {
		t.Errorf("UI.MascotURI = %s", cfg.UI.MascotURI)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	// godotenv never overrides variables that are already set, so make sure
	// this one starts out unset for the test.
	t.Setenv("FEEDLINE_UI_AD_CADENCE", "")
	os.Unsetenv("FEEDLINE_UI_AD_CADENCE")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FEEDLINE_UI_AD_CADENCE=9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FEEDLINE_UI_AD_CADENCE") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UI.AdCadence != 9 {
		t.Errorf("UI.AdCadence = %d, want 9", cfg.UI.AdCadence)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := defaultConfig()
	cfg.Database.Path = "/test/path.db"
	cfg.Database.Timeout = 10 * time.Second
	cfg.Feed.UserAgent = "test-save-agent"
	cfg.UI.Colors.Primary = "#00FF00"
	cfg.UI.AdCadence = 3
	cfg.Backend.APIBase = "http://rag.internal:9000"

	savePath := filepath.Join(tmpDir, "saved-config.toml")
	if saveErr := Save(cfg, savePath); saveErr != nil {
		t.Fatalf("Save() error = %v", saveErr)
	}

	if _, statErr := os.Stat(savePath); os.IsNotExist(statErr) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Database.Path != cfg.Database.Path {
		t.Errorf("Loaded Database.Path = %s, want %s", loaded.Database.Path, cfg.Database.Path)
	}
	if loaded.Database.Timeout != cfg.Database.Timeout {
		t.Errorf("Loaded Database.Timeout = %v, want %v", loaded.Database.Timeout, cfg.Database.Timeout)
	}
	if loaded.Feed.UserAgent != cfg.Feed.UserAgent {
		t.Errorf("Loaded Feed.UserAgent = %s, want %s", loaded.Feed.UserAgent, cfg.Feed.UserAgent)
	}
	if loaded.UI.Colors.Primary != "#00FF00" {
		t.Errorf("Loaded UI.Colors.Primary = %s", loaded.UI.Colors.Primary)
	}
	if loaded.UI.AdCadence != 3 {
		t.Errorf("Loaded UI.AdCadence = %d, want 3", loaded.UI.AdCadence)
	}
	if loaded.Backend.APIBase != cfg.Backend.APIBase {
		t.Errorf("Loaded Backend.APIBase = %s, want %s", loaded.Backend.APIBase, cfg.Backend.APIBase)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if genErr := GenerateDefaultConfig(configPath); genErr != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", genErr)
	}

	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		t.Fatal("GenerateDefaultConfig() did not create file")
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}
	if cfg.UI.AdCadence != 5 {
		t.Errorf("Generated config has UI.AdCadence = %d, want 5", cfg.UI.AdCadence)
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg == nil {
		t.Fatal("TestConfig() returned nil")
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("TestConfig Database.Path = %s, want ':memory:'", cfg.Database.Path)
	}
	if cfg.Feed.UserAgent != "feedline-test/1.0" {
		t.Errorf("TestConfig Feed.UserAgent = %s, want 'feedline-test/1.0'", cfg.Feed.UserAgent)
	}
	if cfg.Backend.Retries != 0 {
		t.Errorf("TestConfig Backend.Retries = %d, want 0", cfg.Backend.Retries)
	}
}
