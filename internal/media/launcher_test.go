package media

import (
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pders01/feedline/internal/config"
)

func TestDetectType(t *testing.T) {
	detector, err := NewTypeDetector()
	if err != nil {
		t.Fatalf("NewTypeDetector: %v", err)
	}

	tests := []struct {
		name     string
		url      string
		expected Type
	}{
		{name: "PNG image", url: "https://x/images/a.png", expected: TypeImage},
		{name: "JPEG image", url: "http://example.org/photo.jpeg", expected: TypeImage},
		{name: "Uppercase", url: "http://example.org/PHOTO.JPG", expected: TypeImage},
		{name: "Query string", url: "http://example.org/a.webp?v=2", expected: TypeImage},
		{name: "Fragment", url: "http://example.org/a.gif#top", expected: TypeImage},
		{name: "Images path", url: "http://example.org/images/generated", expected: TypeImage},
		{name: "Local file", url: "file:///tmp/a.png", expected: TypeImage},
		{name: "Ad landing page", url: "https://example.org/tours", expected: TypePage},
		{name: "HTML page", url: "https://example.org/page.html", expected: TypePage},
		{name: "Dot in host only", url: "https://example.org/run", expected: TypePage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detector.DetectType(tt.url); got != tt.expected {
				t.Errorf("DetectType(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestDefaultOpener(t *testing.T) {
	detector, err := NewTypeDetector()
	if err != nil {
		t.Fatalf("NewTypeDetector: %v", err)
	}
	opener := detector.GetDefaultOpener()
	switch runtime.GOOS {
	case "darwin":
		if opener != "open" {
			t.Errorf("expected open, got %s", opener)
		}
	case "linux":
		if opener != "xdg-open" {
			t.Errorf("expected xdg-open, got %s", opener)
		}
	}
}

func newRecordingLauncher(t *testing.T, cfg *config.Config) (*Launcher, *[]*exec.Cmd) {
	t.Helper()
	l := NewLauncher(cfg)
	var started []*exec.Cmd
	l.start = func(cmd *exec.Cmd) error {
		started = append(started, cmd)
		return nil
	}
	return l, &started
}

func TestLauncher_Open(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Media.Image = []string{"definitely-not-installed-viewer"}
	cfg.Media.Browser = []string{"definitely-not-installed-browser"}
	cfg.Media.DefaultOpener = "fallback-opener"

	l, started := newRecordingLauncher(t, cfg)

	if err := l.Open("https://x/images/a.png"); err != nil {
		t.Fatalf("Open image: %v", err)
	}
	if err := l.Open("https://example.org/tours"); err != nil {
		t.Fatalf("Open page: %v", err)
	}

	if len(*started) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(*started))
	}
	for i, cmd := range *started {
		if filepath.Base(cmd.Path) != "fallback-opener" && cmd.Args[0] != "fallback-opener" {
			t.Errorf("command %d: expected fallback opener, got %v", i, cmd.Args)
		}
	}
	if last := (*started)[0].Args; last[len(last)-1] != "https://x/images/a.png" {
		t.Errorf("expected target as last argument, got %v", last)
	}
}

func TestLauncher_OpenEmpty(t *testing.T) {
	l, started := newRecordingLauncher(t, config.TestConfig())
	if err := l.Open(""); err == nil {
		t.Error("expected error for empty target")
	}
	if len(*started) != 0 {
		t.Error("expected nothing started")
	}
}

func TestLauncher_StartFailure(t *testing.T) {
	l := NewLauncher(config.TestConfig())
	l.start = func(*exec.Cmd) error { return errors.New("boom") }
	if err := l.Open("https://example.org/tours"); err == nil {
		t.Error("expected start failure to surface")
	}
}
