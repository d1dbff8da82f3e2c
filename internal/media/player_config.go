package media

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

//go:embed openers.toml
var openersTOML []byte

// OpenerDefinition describes how an external program is invoked for each
// target type.
type OpenerDefinition struct {
	Description string    `toml:"description"`
	Platforms   []string  `toml:"platforms"`
	Image       *OpenArgs `toml:"image,omitempty"`
	Page        *OpenArgs `toml:"page,omitempty"`
}

// OpenArgs holds the arguments placed before the target.
type OpenArgs struct {
	Args []string `toml:"args"`
}

type OpenersConfig struct {
	Openers map[string]OpenerDefinition `toml:"openers"`
}

// OpenerRegistry holds opener definitions, built-in plus user overrides.
type OpenerRegistry struct {
	openers map[string]OpenerDefinition
}

// NewOpenerRegistry loads the embedded definitions and merges
// openers.toml from configDir when present.
func NewOpenerRegistry(configDir string) (*OpenerRegistry, error) {
	var config OpenersConfig
	if err := toml.Unmarshal(openersTOML, &config); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}

	r := &OpenerRegistry{openers: config.Openers}
	if configDir != "" {
		r.loadUserConfig(filepath.Join(configDir, "openers.toml"))
	}
	return r, nil
}

func (r *OpenerRegistry) loadUserConfig(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var user OpenersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		return
	}
	for name, def := range user.Openers {
		r.openers[name] = def
	}
}

// GetCommand builds the command that opens target with name.
func (r *OpenerRegistry) GetCommand(name string, t Type, target string) (*exec.Cmd, error) {
	def, exists := r.openers[name]
	if !exists {
		return exec.Command(name, target), nil
	}

	if !slices.Contains(def.Platforms, runtime.GOOS) {
		return nil, fmt.Errorf("%s not supported on %s", name, runtime.GOOS)
	}

	var args *OpenArgs
	switch t {
	case TypeImage:
		args = def.Image
	case TypePage:
		args = def.Page
	}
	if args == nil {
		return nil, fmt.Errorf("%s cannot open this target", name)
	}

	return exec.Command(name, append(slices.Clone(args.Args), target)...), nil
}

func (r *OpenerRegistry) IsAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// FindAvailable returns the first installed program in names.
func (r *OpenerRegistry) FindAvailable(names []string) string {
	for _, name := range names {
		if r.IsAvailable(name) {
			return name
		}
	}
	return ""
}
