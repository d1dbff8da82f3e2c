package timeline

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed ads.toml
var adsTOML []byte

// ErrEmptyPool is returned when an ad file defines no templates.
var ErrEmptyPool = errors.New("ad pool is empty")

// Template is the content an ad is built from.
type Template struct {
	Title      string   `toml:"title"`
	Body       string   `toml:"body"`
	CTA        string   `toml:"cta"`
	URL        string   `toml:"url"`
	Sponsor    string   `toml:"sponsor"`
	Disclaimer string   `toml:"disclaimer"`
	Tags       []string `toml:"tags"`
}

// Pool is the fixed, ordered set of templates ads are drawn from. Order
// matters: an anchor's hash selects by index.
type Pool []Template

type poolFile struct {
	Ads []Template `toml:"ad"`
}

// ParsePool decodes a TOML document of [[ad]] tables.
func ParsePool(data []byte) (Pool, error) {
	var f poolFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing ad pool: %w", err)
	}
	if len(f.Ads) == 0 {
		return nil, ErrEmptyPool
	}
	return Pool(f.Ads), nil
}

// DefaultPool returns the built-in templates.
func DefaultPool() Pool {
	pool, err := ParsePool(adsTOML)
	if err != nil {
		panic(fmt.Sprintf("embedded ads.toml: %v", err))
	}
	return pool
}

// LoadPool reads the pool at path, or returns the built-in pool when path
// is empty.
func LoadPool(path string) (Pool, error) {
	if path == "" {
		return DefaultPool(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ad pool: %w", err)
	}
	return ParsePool(data)
}
