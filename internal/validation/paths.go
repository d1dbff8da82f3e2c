package validation

import (
	"fmt"
	"os"
)

// PathHandler validates the filesystem locations a publishing run touches.
type PathHandler struct {
	validator *FilePathValidator
}

func NewPathHandler(baseDirs ...string) *PathHandler {
	return &PathHandler{validator: NewFilePathValidator(baseDirs...)}
}

// OutputPaths validates every path in paths, dropping empty entries.
func (ph *PathHandler) OutputPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean, err := ph.validator.ValidateAndSanitize(p)
		if err != nil {
			return nil, fmt.Errorf("output path %q: %w", p, err)
		}
		out = append(out, clean)
	}
	return out, nil
}

// OutputPath validates a single optional path. Empty stays empty.
func (ph *PathHandler) OutputPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return ph.validator.ValidateAndSanitize(p)
}

// EnsureDirectory validates path and creates it.
func (ph *PathHandler) EnsureDirectory(path string) (string, error) {
	clean, err := ph.validator.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", clean, err)
	}
	return clean, nil
}
