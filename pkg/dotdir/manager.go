// Package dotdir manages the .cloudchat/ and ~/.cloudchat directories that
// hold the config file, credentials and the small amount of state the chat
// command keeps between runs.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the cloudchat directory.
	dirName = ".cloudchat"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .cloudchat/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.cloudchat/ dir
//  3. Home ~/.cloudchat/ dir, created when missing
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

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating cloudchat directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
