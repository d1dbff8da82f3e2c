package media

import (
	_ "embed"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed media_types.toml
var mediaTypesTOML []byte

// Type is what an opened target is treated as.
type Type int

const (
	TypeImage Type = iota
	TypePage
)

type TypeConfig struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

type TypesConfig struct {
	Image     TypeConfig                `toml:"image"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
}

type PlatformConfig struct {
	DefaultOpener string `toml:"default_opener"`
}

type TypeDetector struct {
	config *TypesConfig
}

func NewTypeDetector() (*TypeDetector, error) {
	var config TypesConfig
	if err := toml.Unmarshal(mediaTypesTOML, &config); err != nil {
		return nil, err
	}
	return &TypeDetector{config: &config}, nil
}

// DetectType classifies target as an image by extension or URL pattern;
// everything else is a page for the browser.
func (d *TypeDetector) DetectType(target string) Type {
	lower := strings.ToLower(target)

	if i := strings.IndexAny(lower, "?#"); i != -1 {
		lower = lower[:i]
	}
	if idx := strings.LastIndex(lower, "."); idx != -1 && !strings.Contains(lower[idx:], "/") {
		if slices.Contains(d.config.Image.Extensions, lower[idx+1:]) {
			return TypeImage
		}
	}

	for _, pattern := range d.config.Image.URLPatterns {
		if strings.Contains(lower, pattern) {
			return TypeImage
		}
	}
	return TypePage
}

func (d *TypeDetector) GetDefaultOpener() string {
	if platformConfig, ok := d.config.Platforms[runtime.GOOS]; ok {
		return platformConfig.DefaultOpener
	}
	if fallback, ok := d.config.Platforms["fallback"]; ok {
		return fallback.DefaultOpener
	}
	return "open"
}
