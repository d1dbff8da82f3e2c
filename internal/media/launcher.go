package media

import (
	"fmt"
	"os/exec"

	"github.com/pders01/feedline/internal/config"
)

// Launcher opens images in a viewer and ad targets in a browser.
type Launcher struct {
	imageViewer   string
	browser       string
	defaultOpener string
	registry      *OpenerRegistry
	detector      *TypeDetector
	start         func(*exec.Cmd) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewOpenerRegistry(config.ConfigDir())
	if err != nil {
		registry = &OpenerRegistry{openers: make(map[string]OpenerDefinition)}
	}

	detector, err := NewTypeDetector()
	if err != nil {
		detector = &TypeDetector{config: &TypesConfig{}}
	}

	defaultOpener := cfg.Media.DefaultOpener
	if defaultOpener == "" {
		defaultOpener = detector.GetDefaultOpener()
	}

	l := &Launcher{
		defaultOpener: defaultOpener,
		registry:      registry,
		detector:      detector,
		start:         startDetached,
	}
	l.imageViewer = registry.FindAvailable(cfg.Media.Image)
	l.browser = registry.FindAvailable(cfg.Media.Browser)

	if l.imageViewer == "" {
		l.imageViewer = l.defaultOpener
	}
	if l.browser == "" {
		l.browser = l.defaultOpener
	}
	return l
}

// Open launches the program matching target's type without waiting for it.
func (l *Launcher) Open(target string) error {
	if target == "" {
		return fmt.Errorf("nothing to open")
	}

	t := l.detector.DetectType(target)
	program := l.browser
	if t == TypeImage {
		program = l.imageViewer
	}
	if program == "" {
		return fmt.Errorf("no application found to open %s", target)
	}

	cmd, err := l.registry.GetCommand(program, t, target)
	if err != nil {
		cmd = exec.Command(program, target)
	}

	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", program, err)
	}
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
