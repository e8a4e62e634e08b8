package indexer

import "path/filepath"

// CanonicalDir is the absolute, cleaned form of a store directory. Cache
// scopes, index events and run history all key on it so that "./store" and
// "/abs/store" name the same store.
func CanonicalDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}
