// Package blob stores document bytes by relative path.
//
// Two backends exist: FileStore on the local filesystem and PostgresStore in
// a bytea table. Callers only see Store.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by Read when nothing is stored at the path.
var ErrNotFound = errors.New("blob: not found")

// Store is a path-addressed byte store.
type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	// Delete is idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// cleanKey normalizes key to a slash-separated relative path and rejects
// anything that would escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blob: empty key")
	}
	cleaned := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("blob: invalid key %q", key)
	}
	return cleaned, nil
}
