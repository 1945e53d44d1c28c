package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the rectoverso home directory.
	DefaultDirName = ".rectoverso"

	// ScratchDirName is the subdirectory for per-run batch files.
	ScratchDirName = "tmp"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// StoreFileName is the default flashcard workbook.
	StoreFileName = "flashcards.xlsx"
)

// Dir represents the rectoverso home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.rectoverso).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// StorePath returns the default flashcard workbook path.
func (d *Dir) StorePath() string {
	return filepath.Join(d.path, StoreFileName)
}

// ScratchDir returns the parent directory of batch temp dirs.
func (d *Dir) ScratchDir() string {
	return filepath.Join(d.path, ScratchDirName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create scratch directory (this also creates the parent)
	if err := os.MkdirAll(d.ScratchDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// ResolveStorePath returns configured when set, the default store otherwise.
// A leading "~/" is expanded to the user's home directory.
func (d *Dir) ResolveStorePath(configured string) string {
	if configured == "" {
		return d.StorePath()
	}
	if rest, ok := strings.CutPrefix(configured, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return configured
}
