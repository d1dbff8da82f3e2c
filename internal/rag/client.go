// Package rag talks to the retrieval-augmented generation backend that
// writes the talk feed entries.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pders01/feedline/internal/config"
	"github.com/pders01/feedline/internal/debuglog"
)

// ErrEmptyAnswer is returned when a query response carries no usable text.
var ErrEmptyAnswer = errors.New("backend returned no answer")

type StatusResponse struct {
	DocsDir       string   `json:"docs_dir"`
	JSONFiles     int      `json:"json_files"`
	ChunksInStore int      `json:"chunks_in_store"`
	Files         []string `json:"files"`
}

type ReindexResponse struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Files     int `json:"files"`
}

type QueryRequest struct {
	Question       string `json:"question"`
	TopK           int    `json:"top_k,omitempty"`
	ExtraContext   string `json:"extra_context,omitempty"`
	UseLiveWeather bool   `json:"use_live_weather,omitempty"`
	OutputStyle    string `json:"output_style,omitempty"`
	MaxChars       int    `json:"max_chars,omitempty"`
	IncludeDebug   bool   `json:"include_debug,omitempty"`
}

// QueryResponse is decoded loosely: backends have used several keys for
// the generated text over time.
type QueryResponse struct {
	Answer    string         `json:"answer"`
	Text      string         `json:"text"`
	TweetText string         `json:"tweet"`
	Output    string         `json:"output"`
	Error     string         `json:"error"`
	Context   []string       `json:"context,omitempty"`
	Chunks    []Chunk        `json:"chunks,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	Result    *struct {
		Answer string `json:"answer"`
	} `json:"result,omitempty"`
}

// Tweet returns the generated post text, trimmed.
func (r *QueryResponse) Tweet() (string, error) {
	if msg := strings.TrimSpace(r.Error); msg != "" {
		return "", fmt.Errorf("backend error: %s", msg)
	}
	for _, v := range []string{r.Answer, r.Text, r.TweetText, r.Output} {
		if s := strings.TrimSpace(v); s != "" {
			return s, nil
		}
	}
	if r.Result != nil {
		if s := strings.TrimSpace(r.Result.Answer); s != "" {
			return s, nil
		}
	}
	return "", ErrEmptyAnswer
}

// Chunk is a retrieved document fragment, returned with include_debug.
type Chunk struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Distance *float64       `json:"distance,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DebugDetail collects the retrieval details a debug query returned, for
// storing next to the generated entry. It is nil when there are none.
func (r *QueryResponse) DebugDetail() map[string]any {
	detail := make(map[string]any, len(r.Detail)+2)
	for k, v := range r.Detail {
		detail[k] = v
	}
	if len(r.Context) > 0 {
		if _, ok := detail["context"]; !ok {
			detail["context"] = r.Context
		}
	}
	if len(r.Chunks) > 0 {
		if _, ok := detail["chunks"]; !ok {
			detail["chunks"] = r.Chunks
		}
	}
	if len(detail) == 0 {
		return nil
	}
	return detail
}

type Client struct {
	base       string
	http       *http.Client
	userAgent  string
	retries    int
	retrySleep time.Duration
	sleep      func(context.Context, time.Duration) error
}

func NewClient(cfg *config.Config) *Client {
	b := config.BackendConfig{}
	if cfg != nil {
		b = cfg.Backend
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ua := b.UserAgent
	if ua == "" {
		ua = "feedline-rag/1.0"
	}
	return &Client{
		base:       strings.TrimRight(b.APIBase, "/"),
		http:       &http.Client{Timeout: timeout},
		userAgent:  ua,
		retries:    max(b.Retries, 0),
		retrySleep: b.RetrySleep,
		sleep:      sleepCtx,
	}
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/rag/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reindex(ctx context.Context) (*ReindexResponse, error) {
	var out ReindexResponse
	if err := c.do(ctx, http.MethodPost, "/rag/reindex", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, errors.New("question is required")
	}
	var out QueryResponse
	if err := c.do(ctx, http.MethodPost, "/rag/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c.base == "" {
		return errors.New("backend api_base is not configured")
	}
	url := c.base + path

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	log := debuglog.WithFields(map[string]interface{}{"method": method, "url": url})

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.retrySleep); err != nil {
				return err
			}
		}
		lastErr = c.once(ctx, method, url, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("attempt %d/%d failed: %v", attempt+1, c.retries+1, lastErr)
	}
	return fmt.Errorf("%s %s: %w", method, url, lastErr)
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 400 {
			snippet = snippet[:400]
		}
		if snippet != "" {
			return fmt.Errorf("HTTP error: %d: %s", resp.StatusCode, snippet)
		}
		return fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
