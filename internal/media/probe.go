package media

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/pders01/feedline/internal/config"
	"github.com/pders01/feedline/internal/debuglog"
)

// Prober checks which image candidates are reachable.
type Prober struct {
	client    *http.Client
	userAgent string
}

func NewProber(cfg *config.Config) *Prober {
	timeout := 5 * time.Second
	userAgent := ""
	if cfg != nil {
		if cfg.Media.ProbeTimeout > 0 {
			timeout = cfg.Media.ProbeTimeout
		}
		userAgent = cfg.Feed.UserAgent
	}
	return &Prober{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Reachable returns the candidates that answer, keeping their order.
// Failures are dropped silently; a missing image never blocks the text.
func (p *Prober) Reachable(ctx context.Context, candidates []string) []string {
	ok := make([]bool, len(candidates))

	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok[i] = p.check(ctx, c)
		}()
	}
	wg.Wait()

	out := make([]string, 0, len(candidates))
	for i, c := range candidates {
		if ok[i] {
			out = append(out, c)
		}
	}
	return out
}

func (p *Prober) check(ctx context.Context, candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "file":
		_, err := os.Stat(u.Path)
		return err == nil
	case "http", "https":
	default:
		return false
	}

	if p.request(ctx, http.MethodHead, candidate) {
		return true
	}
	// Some hosts refuse HEAD; ask for the first byte instead.
	return p.request(ctx, http.MethodGet, candidate)
}

func (p *Prober) request(ctx context.Context, method, candidate string) bool {
	req, err := http.NewRequestWithContext(ctx, method, candidate, nil)
	if err != nil {
		return false
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		debuglog.Debugf("image probe %s %s: %v", method, candidate, err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode >= 400 {
		debuglog.Debugf("image probe %s %s: HTTP %d", method, candidate, resp.StatusCode)
		return false
	}
	return true
}
