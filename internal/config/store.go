package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	homeDir         = ".taskboard"
	sessionFileName = "session.yaml"
)

// SessionPath returns the configured session file, or the default one under
// the user's home directory.
func (f FileStore) SessionPath() (string, error) {
	if f.Path != "" {
		return f.Path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	return filepath.Join(home, homeDir, sessionFileName), nil
}
