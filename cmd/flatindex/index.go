package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/events"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/history"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/postings"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/resilience"
)

func (a *app) index(c *cli.Context) error {
	if c.NArg() < 2 {
		return usageError(c, "a store directory and at least one source directory are required")
	}
	storeDir := c.Args().First()
	roots := c.Args().Tail()
	ctx := c.Context

	store, err := postings.OpenBackend(a.cfg.Store.Backend, storeDir)
	if err != nil {
		return err
	}
	defer store.Close()

	var m *metrics.Metrics
	if a.cfg.Metrics.Enabled || a.cfg.Metrics.Textfile != "" {
		m = metrics.New()
	}
	if a.cfg.Metrics.Enabled {
		shutdown := m.StartServer(a.cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	builder := indexer.NewBuilder(store,
		indexer.WithProgress(a.stdout, a.cfg.Indexer.ProgressEvery),
		indexer.WithMetrics(m),
	)
	summary, err := builder.Build(ctx, roots)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "keys: %d\n", summary.Keys)

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := m.WriteTextfile(path); err != nil {
			slog.Warn("could not write metrics textfile", "path", path, "error", err)
		}
	}
	a.recordRun(ctx, storeDir, summary)
	a.announceRun(ctx, storeDir, summary)
	return nil
}

// recordRun stores the summary in the run history. Failures are warnings;
// the index itself is already complete.
func (a *app) recordRun(ctx context.Context, storeDir string, summary indexer.Summary) {
	if !a.cfg.Postgres.Enabled {
		return
	}
	var pg *postgres.Client
	err := resilience.Retry(ctx, "postgres connect", resilience.DefaultBackoff(), func(ctx context.Context) error {
		var connErr error
		pg, connErr = postgres.New(ctx, a.cfg.Postgres)
		return connErr
	})
	if err != nil {
		slog.Warn("run history unavailable", "error", err)
		return
	}
	defer pg.Close()

	runs := history.NewStore(pg.DB)
	if err := runs.EnsureSchema(ctx); err != nil {
		slog.Warn("could not prepare run history", "error", err)
		return
	}
	id, err := runs.Record(ctx, storeDir, summary)
	if err != nil {
		slog.Warn("could not record index run", "error", err)
		return
	}
	slog.Info("index run recorded", "run_id", id)
}

func (a *app) announceRun(ctx context.Context, storeDir string, summary indexer.Summary) {
	if !a.cfg.Kafka.Enabled {
		return
	}
	producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.IndexTopic)
	defer producer.Close()

	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := events.PublishIndexComplete(pubCtx, producer, events.NewIndexComplete(storeDir, summary)); err != nil {
		slog.Warn("could not publish index-complete event", "topic", a.cfg.Kafka.IndexTopic, "error", err)
	}
}
