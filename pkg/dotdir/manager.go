// Package dotdir resolves the .semidx/ directory that holds the config file,
// the default snapshot, the tag index log and the embedding cache.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the semidx directory.
	dirName = ".semidx"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .semidx/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.semidx/ dir
//  3. Home ~/.semidx/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating semidx directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// Resolve joins a relative path onto the target directory. Absolute paths
// are returned unchanged.
func (m *Manager) Resolve(overrideDir, path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}

	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, path), nil
}

// localDirExists checks whether a .semidx/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
