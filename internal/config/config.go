package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Feed     FeedConfig     `mapstructure:"feed"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

// FeedConfig controls where the timeline is read from and where the
// publishing commands write to.
type FeedConfig struct {
	URL           string        `mapstructure:"url"`
	ShareIndexURL string        `mapstructure:"share_index_url"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	OutputPaths   []string      `mapstructure:"output_paths"`
	LatestPaths   []string      `mapstructure:"latest_paths"`
	ShareIndexOut string        `mapstructure:"share_index_out"`
	PagesDir      string        `mapstructure:"pages_dir"`
	Limit         int           `mapstructure:"limit"`
	AllowLocal    bool          `mapstructure:"allow_local"`
}

type UIConfig struct {
	Colors      UIColors `mapstructure:"colors"`
	ShowSidebar bool     `mapstructure:"show_sidebar"`
	ShowBanner  bool     `mapstructure:"show_banner"`
	MascotURI   string   `mapstructure:"mascot_uri"`
	AdCadence   int      `mapstructure:"ad_cadence"`
	AdsFile     string   `mapstructure:"ads_file"`
	WordWrapMax int      `mapstructure:"word_wrap_max"`
	WordWrapMin int      `mapstructure:"word_wrap_min"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
}

type MediaConfig struct {
	Image         []string      `mapstructure:"image"`
	Browser       []string      `mapstructure:"browser"`
	DefaultOpener string        `mapstructure:"default_opener"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

// BackendConfig describes the RAG backend used by the publishing commands.
type BackendConfig struct {
	APIBase    string        `mapstructure:"api_base"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    int           `mapstructure:"retries"`
	RetrySleep time.Duration `mapstructure:"retry_sleep"`
	UserAgent  string        `mapstructure:"user_agent"`
	TopK       int           `mapstructure:"top_k"`
	MaxChars   int           `mapstructure:"max_chars"`
	Place      string        `mapstructure:"place"`
	Timezone   string        `mapstructure:"timezone"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	PageSize int    `mapstructure:"page_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".feedline", "archive.db")
	searchIndexPath := filepath.Join(homeDir, ".feedline", "index.bleve")

	return &Config{
		Database: DatabaseConfig{
			Path:        dbPath,
			Timeout:     1 * time.Second,
			SearchIndex: searchIndexPath,
		},
		Feed: FeedConfig{
			URL:           "http://localhost:8000/feed/index.json",
			ShareIndexURL: "",
			HTTPTimeout:   30 * time.Second,
			UserAgent:     "feedline/1.0 (https://github.com/pders01/feedline)",
			OutputPaths:   []string{"public/feed/feed.json"},
			LatestPaths:   []string{"public/latest.json"},
			ShareIndexOut: "public/share_index.json",
			PagesDir:      "public/feed",
			Limit:         365,
			AllowLocal:    true,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
			},
			ShowSidebar: true,
			ShowBanner:  false,
			MascotURI:   "images/mascot.png",
			AdCadence:   5,
			WordWrapMax: 100,
			WordWrapMin: 40,
		},
		Media: MediaConfig{
			Image:         defaultImageViewers(),
			Browser:       defaultBrowsers(),
			DefaultOpener: getDefaultOpener(),
			ProbeTimeout:  5 * time.Second,
		},
		Backend: BackendConfig{
			APIBase:    "http://localhost:8000",
			Timeout:    120 * time.Second,
			Retries:    1,
			RetrySleep: 1 * time.Second,
			UserAgent:  "feedline-generate/1.0",
			TopK:       16,
			MaxChars:   280,
			Place:      "Yokosuka",
			Timezone:   "Asia/Tokyo",
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:8000",
			PageSize: 20,
		},
		Log: LogConfig{
			Level: "off",
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

func defaultImageViewers() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"start"}
	default:
		return []string{"sxiv", "feh", "eog", "xdg-open"}
	}
}

func defaultBrowsers() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"start"}
	default:
		return []string{"xdg-open", "firefox"}
	}
}

// Load reads configuration from defaults, the config file, a .env file in
// the working directory and FEEDLINE_* environment variables, in increasing
// order of precedence.
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()

	cfg := defaultConfig()
	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FEEDLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it.
// Nested struct defaults are not visible to env lookups otherwise.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.timeout", cfg.Database.Timeout)
	v.SetDefault("database.search_index", cfg.Database.SearchIndex)

	v.SetDefault("feed.url", cfg.Feed.URL)
	v.SetDefault("feed.share_index_url", cfg.Feed.ShareIndexURL)
	v.SetDefault("feed.http_timeout", cfg.Feed.HTTPTimeout)
	v.SetDefault("feed.user_agent", cfg.Feed.UserAgent)
	v.SetDefault("feed.output_paths", cfg.Feed.OutputPaths)
	v.SetDefault("feed.latest_paths", cfg.Feed.LatestPaths)
	v.SetDefault("feed.share_index_out", cfg.Feed.ShareIndexOut)
	v.SetDefault("feed.pages_dir", cfg.Feed.PagesDir)
	v.SetDefault("feed.limit", cfg.Feed.Limit)
	v.SetDefault("feed.allow_local", cfg.Feed.AllowLocal)

	v.SetDefault("ui.colors.primary", cfg.UI.Colors.Primary)
	v.SetDefault("ui.colors.secondary", cfg.UI.Colors.Secondary)
	v.SetDefault("ui.colors.accent", cfg.UI.Colors.Accent)
	v.SetDefault("ui.colors.text", cfg.UI.Colors.Text)
	v.SetDefault("ui.colors.muted", cfg.UI.Colors.Muted)
	v.SetDefault("ui.colors.error", cfg.UI.Colors.Error)
	v.SetDefault("ui.show_sidebar", cfg.UI.ShowSidebar)
	v.SetDefault("ui.show_banner", cfg.UI.ShowBanner)
	v.SetDefault("ui.mascot_uri", cfg.UI.MascotURI)
	v.SetDefault("ui.ad_cadence", cfg.UI.AdCadence)
	v.SetDefault("ui.ads_file", cfg.UI.AdsFile)
	v.SetDefault("ui.word_wrap_max", cfg.UI.WordWrapMax)
	v.SetDefault("ui.word_wrap_min", cfg.UI.WordWrapMin)

	v.SetDefault("media.image", cfg.Media.Image)
	v.SetDefault("media.browser", cfg.Media.Browser)
	v.SetDefault("media.default_opener", cfg.Media.DefaultOpener)
	v.SetDefault("media.probe_timeout", cfg.Media.ProbeTimeout)

	v.SetDefault("backend.api_base", cfg.Backend.APIBase)
	v.SetDefault("backend.timeout", cfg.Backend.Timeout)
	v.SetDefault("backend.retries", cfg.Backend.Retries)
	v.SetDefault("backend.retry_sleep", cfg.Backend.RetrySleep)
	v.SetDefault("backend.user_agent", cfg.Backend.UserAgent)
	v.SetDefault("backend.top_k", cfg.Backend.TopK)
	v.SetDefault("backend.max_chars", cfg.Backend.MaxChars)
	v.SetDefault("backend.place", cfg.Backend.Place)
	v.SetDefault("backend.timezone", cfg.Backend.Timezone)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.page_size", cfg.Server.PageSize)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
}

// ConfigDir returns the directory searched for config.toml and ads.toml.
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "feedline")
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.UI.AdsFile = expandPath(cfg.UI.AdsFile)
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings for TOML readability
	dbCfg := map[string]interface{}{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	feedCfg := map[string]interface{}{
		"url":             config.Feed.URL,
		"share_index_url": config.Feed.ShareIndexURL,
		"http_timeout":    config.Feed.HTTPTimeout.String(),
		"user_agent":      config.Feed.UserAgent,
		"output_paths":    config.Feed.OutputPaths,
		"latest_paths":    config.Feed.LatestPaths,
		"share_index_out": config.Feed.ShareIndexOut,
		"pages_dir":       config.Feed.PagesDir,
		"limit":           config.Feed.Limit,
		"allow_local":     config.Feed.AllowLocal,
	}

	mediaCfg := map[string]interface{}{
		"image":          config.Media.Image,
		"browser":        config.Media.Browser,
		"default_opener": config.Media.DefaultOpener,
		"probe_timeout":  config.Media.ProbeTimeout.String(),
	}

	backendCfg := map[string]interface{}{
		"api_base":    config.Backend.APIBase,
		"timeout":     config.Backend.Timeout.String(),
		"retries":     config.Backend.Retries,
		"retry_sleep": config.Backend.RetrySleep.String(),
		"user_agent":  config.Backend.UserAgent,
		"top_k":       config.Backend.TopK,
		"max_chars":   config.Backend.MaxChars,
		"place":       config.Backend.Place,
		"timezone":    config.Backend.Timezone,
	}

	v.Set("database", dbCfg)
	v.Set("feed", feedCfg)
	v.Set("ui", map[string]interface{}{
		"colors": map[string]interface{}{
			"primary":   config.UI.Colors.Primary,
			"secondary": config.UI.Colors.Secondary,
			"accent":    config.UI.Colors.Accent,
			"text":      config.UI.Colors.Text,
			"muted":     config.UI.Colors.Muted,
			"error":     config.UI.Colors.Error,
		},
		"show_sidebar":  config.UI.ShowSidebar,
		"show_banner":   config.UI.ShowBanner,
		"mascot_uri":    config.UI.MascotURI,
		"ad_cadence":    config.UI.AdCadence,
		"ads_file":      config.UI.AdsFile,
		"word_wrap_max": config.UI.WordWrapMax,
		"word_wrap_min": config.UI.WordWrapMin,
	})
	v.Set("media", mediaCfg)
	v.Set("backend", backendCfg)
	v.Set("server", map[string]interface{}{
		"addr":      config.Server.Addr,
		"page_size": config.Server.PageSize,
	})
	v.Set("log", map[string]interface{}{
		"level": config.Log.Level,
		"file":  config.Log.File,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
