// Package security confines tool-supplied paths to the served directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that escape the served directory
var ErrOutsideDirectory = errors.New("path is outside configured directory")

// PathValidator resolves paths received over MCP against one root directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, errors.New("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute configured directory
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve turns path into an absolute path inside the root. Relative paths
// are taken relative to the root. Symlinks are followed before the check so a
// link cannot point out of the directory.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", errors.New("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	clean := filepath.Clean(path)

	if !within(clean, v.root) && !within(clean, realPath(v.root)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}

	if real := realPath(clean); real != clean {
		if !within(real, v.root) && !within(real, realPath(v.root)) {
			return "", fmt.Errorf("%w: %s resolves to %s", ErrOutsideDirectory, path, real)
		}
	}

	return clean, nil
}

// realPath resolves symlinks, returning path unchanged when it cannot
func realPath(path string) string {
	if _, err := os.Lstat(path); err != nil {
		return path
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}
