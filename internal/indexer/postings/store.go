// Package postings persists the term -> document identifier mapping of the
// inverted index. Keys are lower-cased terms; values are document paths.
// Storage is append-only: postings are never updated or removed, physical
// duplicates are allowed and collapse on read.
package postings

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatindex/pkg/errors"
)

// Store is the posting store contract shared by every backend.
type Store interface {
	// Add appends value to the postings of term, creating the record on first
	// use. Errors wrap apperrors.ErrStorageWrite and are not fatal to a run.
	Add(term, value string) error
	// Get returns the distinct values recorded for term. An unseen term yields
	// an empty set and a nil error.
	Get(term string) (Set, error)
	// Summarize returns the number of distinct term keys in the store.
	Summarize() (int, error)
	Close() error
}

// NormalizeKey lower-cases term (with word-final ς for Σ) and rejects keys that cannot name a single
// flat record: empty, "." or "..", or containing a path separator or NUL.
func NormalizeKey(term string) (string, error) {
	key := tokenizer.Lower(term)
	switch {
	case key == "", key == ".", key == "..":
		return "", fmt.Errorf("term %q: %w", term, apperrors.ErrInvalidKey)
	case strings.ContainsAny(key, "/\\\x00"):
		return "", fmt.Errorf("term %q contains a path separator: %w", term, apperrors.ErrInvalidKey)
	}
	return key, nil
}

// OpenBackend opens the store named by backend ("file" or "badger") in dir.
func OpenBackend(backend, dir string) (Store, error) {
	switch backend {
	case "", "file":
		return Open(dir)
	case "badger":
		return OpenBadger(dir, false)
	default:
		return nil, fmt.Errorf("unknown store backend %q: %w", backend, apperrors.ErrStorageInit)
	}
}

// badgerManifest marks a BadgerDB directory. Term records are always
// lower-case, so no FileStore entry carries this exact name.
const badgerManifest = "MANIFEST"

// holdsBadger reports whether dir contains a BadgerDB manifest. A hit on the
// Lstat is confirmed by exact name, since a case-insensitive filesystem
// resolves the term record "manifest" for it too.
func holdsBadger(dir string) (bool, error) {
	if _, err := os.Lstat(filepath.Join(dir, badgerManifest)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Name() == badgerManifest {
			return true, nil
		}
	}
	return false, nil
}

// isEmptyDir reports whether dir is missing or has no entries.
func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
