// Package events carries index-complete notifications from the index command
// to running serve processes, which drop their cached query results.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/kafka"
)

type IndexComplete struct {
	StoreDir   string    `json:"store_dir"`
	Documents  int       `json:"documents"`
	Postings   int       `json:"postings"`
	Keys       int       `json:"keys"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Invalidator is satisfied by *cache.QueryCache.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

func NewIndexComplete(storeDir string, s indexer.Summary) IndexComplete {
	return IndexComplete{
		StoreDir:   indexer.CanonicalDir(storeDir),
		Documents:  s.Documents,
		Postings:   s.Postings,
		Keys:       s.Keys,
		FinishedAt: s.FinishedAt,
	}
}

// PublishIndexComplete announces a finished index run, keyed by store
// directory so events for one store stay ordered.
func PublishIndexComplete(ctx context.Context, pub Publisher, ev IndexComplete) error {
	return pub.Publish(ctx, kafka.Event{Key: ev.StoreDir, Value: ev})
}

// InvalidateOnIndexComplete returns a handler that invalidates inv when an
// event for storeDir arrives. Events for other stores are acknowledged and
// ignored.
func InvalidateOnIndexComplete(storeDir string, inv Invalidator) kafka.MessageHandler {
	storeDir = indexer.CanonicalDir(storeDir)
	logger := slog.Default().With("component", "index-events")
	return func(ctx context.Context, _ []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[IndexComplete](value)
		if err != nil {
			return err
		}
		if ev.StoreDir != storeDir {
			logger.Debug("ignoring event for other store", "store_dir", ev.StoreDir)
			return nil
		}
		logger.Info("index updated, invalidating query cache", "keys", ev.Keys, "documents", ev.Documents)
		return inv.Invalidate(ctx)
	}
}
