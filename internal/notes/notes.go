// Package notes writes note files into a single directory.
package notes

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
)

var ErrBadName = errors.New("invalid note name")

type Dir struct {
	path string
}

func NewDir(path string) *Dir {
	if path == "" {
		path = "."
	}
	return &Dir{path: path}
}

func (d *Dir) Path() string { return d.path }

// Write creates name inside the directory, replacing any previous content.
// The directory is created on first use.
func (d *Dir) Write(name string, body []byte) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}

	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}

	full := filepath.Join(d.path, name)
	if err := os.WriteFile(full, body, 0o644); err != nil {
		return fmt.Errorf("write note: %w", err)
	}

	log.Info("Note saved", "path", full, "bytes", len(body))
	return nil
}
