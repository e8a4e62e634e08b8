package postings

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	apperrors "github.com/Adithya-Monish-Kumar-K/flatindex/pkg/errors"
)

// Key layout:
//
//	k/<key>             marker written with the first posting of a term
//	p/<key>\x00<value>  one entry per distinct posting
//
// NormalizeKey forbids NUL in keys, so the separator is unambiguous.
var (
	termPrefix    = []byte("k/")
	postingPrefix = []byte("p/")
)

// BadgerStore keeps postings in a single BadgerDB directory. It honours the
// same contract as FileStore; repeated adds of one posting collapse on write
// instead of on read.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens (creating if needed) a BadgerDB posting store in dir. With
// inMemory set, dir is ignored and nothing touches the disk. A non-empty
// directory without a Badger manifest (a FileStore) is refused before Badger
// writes anything into it.
func OpenBadger(dir string, inMemory bool) (*BadgerStore, error) {
	logger := slog.Default().With("component", "posting-store", "backend", "badger")

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := checkBadgerDir(dir); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w: %w", dir, apperrors.ErrStorageInit, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store %s: %w: %w", dir, apperrors.ErrStorageInit, err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func checkBadgerDir(dir string) error {
	empty, err := isEmptyDir(dir)
	if err != nil {
		return fmt.Errorf("inspecting store directory %s: %w: %w", dir, apperrors.ErrStorageInit, err)
	}
	if empty {
		return nil
	}
	holds, err := holdsBadger(dir)
	if err != nil {
		return fmt.Errorf("inspecting store directory %s: %w: %w", dir, apperrors.ErrStorageInit, err)
	}
	if !holds {
		return fmt.Errorf("%s is not a badger store, open it with the file backend: %w", dir, apperrors.ErrStorageInit)
	}
	return nil
}

func postingKey(key, value string) []byte {
	k := make([]byte, 0, len(postingPrefix)+len(key)+1+len(value))
	k = append(k, postingPrefix...)
	k = append(k, key...)
	k = append(k, 0)
	return append(k, value...)
}

func (s *BadgerStore) Add(term, value string) error {
	key, err := NormalizeKey(term)
	if err != nil {
		return fmt.Errorf("appending to %q: %w: %w", term, apperrors.ErrStorageWrite, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(append(bytes.Clone(termPrefix), key...), nil); err != nil {
			return err
		}
		return txn.Set(postingKey(key, value), nil)
	})
	if err != nil {
		return fmt.Errorf("could not append to %q: %w: %w", term, apperrors.ErrStorageWrite, err)
	}
	return nil
}

func (s *BadgerStore) Get(term string) (Set, error) {
	values := make(Set)
	key, err := NormalizeKey(term)
	if err != nil {
		return values, nil
	}
	prefix := postingKey(key, "")
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value := it.Item().Key()[len(prefix):]
			if !utf8.Valid(value) {
				continue
			}
			values[string(value)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading postings %q: %w: %w", term, apperrors.ErrStorageRead, err)
	}
	return values, nil
}

func (s *BadgerStore) Summarize() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = termPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(termPrefix); it.ValidForPrefix(termPrefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting keys: %w: %w", apperrors.ErrStorageRead, err)
	}
	return count, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
