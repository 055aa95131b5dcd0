package storage

import (
	"os"
	"path/filepath"
)

// DefaultDatabaseDir returns the per-user database directory, creating it
// if needed.
func DefaultDatabaseDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "thai-checkers", "db")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
