package tui

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/feedline/internal/config"
)

func TestShowBanner(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	ShowBanner("1.0.0-test")

	w.Close()
	os.Stdout = old
	out := <-outC

	if !strings.Contains(out, "diary timeline") {
		t.Errorf("Expected banner to contain tagline, got: %s", out)
	}
	if !strings.Contains(out, "╔") || !strings.Contains(out, "╝") {
		t.Errorf("Expected banner to contain border characters, got: %s", out)
	}
	if !strings.Contains(out, "◆") {
		t.Errorf("Expected banner to contain separator symbols, got: %s", out)
	}
	if !strings.Contains(out, "v1.0.0-test") {
		t.Errorf("Expected banner to contain version 'v1.0.0-test', got: %s", out)
	}
}

func TestVersionBannerDev(t *testing.T) {
	out := VersionBanner("dev")
	if strings.Contains(out, "vdev") {
		t.Errorf("dev builds should not print a version, got: %s", out)
	}
	if strings.Contains(VersionBanner("v2.0.0"), "vv2") {
		t.Errorf("version prefix should not be doubled")
	}
}

func TestGetWelcomeMessage(t *testing.T) {
	result := GetWelcomeMessage("Loading the timeline")

	if !strings.Contains(result, "Loading the timeline") {
		t.Errorf("Expected welcome message to contain the message, got: %s", result)
	}
	if !strings.Contains(result, "█▀▀") {
		t.Errorf("Expected welcome message to contain logo elements, got: %s", result)
	}
}

func TestBannerText(t *testing.T) {
	out := BannerText()
	for _, line := range LogoLines {
		if !strings.Contains(out, line) {
			t.Errorf("Expected banner row to contain %q", line)
		}
	}
}

func TestApplyTheme(t *testing.T) {
	oldPrimary, oldMuted := PrimaryColor, MutedColor
	t.Cleanup(func() {
		PrimaryColor, MutedColor = oldPrimary, oldMuted
		buildStyles()
	})

	ApplyTheme(config.UIColors{Primary: "#123456"})

	if PrimaryColor != lipgloss.Color("#123456") {
		t.Errorf("Expected primary color to change, got %v", PrimaryColor)
	}
	if MutedColor != oldMuted {
		t.Errorf("Empty entries should keep the default, got %v", MutedColor)
	}
	if LogoStyle.GetForeground() != lipgloss.Color("#123456") {
		t.Errorf("Expected styles to be rebuilt")
	}
}

func TestLogoConstants(t *testing.T) {
	if len(LogoLines) != 3 {
		t.Errorf("Expected 3 logo lines, got %d", len(LogoLines))
	}
	if len(BannerColors) != 4 {
		t.Errorf("Expected 4 banner colors, got %d", len(BannerColors))
	}
}
