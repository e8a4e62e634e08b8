package postings

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/flatindex/pkg/errors"
)

// maxLineSize bounds a single stored document identifier.
const maxLineSize = 1 << 20

// FileStore keeps one newline-delimited record file per lower-cased term in a
// flat directory. It takes no locks: one process is expected to own the
// directory for the duration of an index run.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// Open creates dir (with parents) if needed and returns a store rooted there.
// A directory written by BadgerStore is refused.
func Open(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w: %w", dir, apperrors.ErrStorageInit, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat store directory %s: %w: %w", dir, apperrors.ErrStorageInit, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, apperrors.ErrStorageInit)
	}
	holds, err := holdsBadger(dir)
	if err != nil {
		return nil, fmt.Errorf("inspecting store directory %s: %w: %w", dir, apperrors.ErrStorageInit, err)
	}
	if holds {
		return nil, fmt.Errorf("%s holds a badger store, open it with the badger backend: %w", dir, apperrors.ErrStorageInit)
	}
	return &FileStore{
		dir:    dir,
		logger: slog.Default().With("component", "posting-store", "backend", "file"),
	}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// KeyPath maps term to its record file: dir/lowercase(term).
func (s *FileStore) KeyPath(term string) (string, error) {
	key, err := NormalizeKey(term)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

func (s *FileStore) Add(term, value string) error {
	path, err := s.KeyPath(term)
	if err != nil {
		return fmt.Errorf("appending to %q: %w: %w", term, apperrors.ErrStorageWrite, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not append to %q: %w: %w", term, apperrors.ErrStorageWrite, err)
	}
	if _, err := f.WriteString(value + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("could not write to %q: %w: %w", term, apperrors.ErrStorageWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing record %q: %w: %w", term, apperrors.ErrStorageWrite, err)
	}
	return nil
}

func (s *FileStore) Get(term string) (Set, error) {
	values := make(Set)
	path, err := s.KeyPath(term)
	if err != nil {
		// Such a key can never have been written.
		return values, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("opening record %q: %w: %w", term, apperrors.ErrStorageRead, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	skipped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if !utf8.Valid(line) {
			skipped++
			continue
		}
		values[string(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading record %q: %w: %w", term, apperrors.ErrStorageRead, err)
	}
	if skipped > 0 {
		s.logger.Debug("skipped undecodable postings", "term", term, "lines", skipped)
	}
	return values, nil
}

func (s *FileStore) Summarize() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("directory cannot be read: %s: %w: %w", s.dir, apperrors.ErrStorageRead, err)
	}
	return len(entries), nil
}

func (s *FileStore) Close() error {
	return nil
}
