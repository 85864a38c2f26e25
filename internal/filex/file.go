// Package filex holds filesystem helpers for the client's local state.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold the database file
// at dsn. SQLite URIs ("file:...") and ":memory:" are left alone.
func EnsureParentDir(dsn string) (string, error) {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return "", nil
	}

	dir, err := filepath.Abs(filepath.Dir(dsn))
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dsn, err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
