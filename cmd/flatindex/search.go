package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/history"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/postings"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/postgres"
)

func (a *app) search(c *cli.Context) error {
	if c.NArg() < 1 {
		return usageError(c, "a store directory is required")
	}
	store, err := postings.OpenBackend(a.cfg.Store.Backend, c.Args().First())
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := query.New(store, nil).Search(c.Args().Tail())
	if err != nil {
		return err
	}
	for _, doc := range results.Sorted() {
		fmt.Fprintln(a.stdout, doc)
	}
	return nil
}

func (a *app) stats(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageError(c, "exactly one store directory is required")
	}
	storeDir := c.Args().First()
	store, err := postings.OpenBackend(a.cfg.Store.Backend, storeDir)
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.Summarize()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "keys: %d\n", keys)

	if !a.cfg.Postgres.Enabled {
		return nil
	}
	pg, err := postgres.New(c.Context, a.cfg.Postgres)
	if err != nil {
		slog.Warn("run history unavailable", "error", err)
		return nil
	}
	defer pg.Close()

	runs, err := history.NewStore(pg.DB).Recent(c.Context, storeDir, c.Int("runs"))
	if err != nil {
		slog.Warn("could not list index runs", "error", err)
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(a.stdout, "run %d: finished=%s documents=%d skipped=%d postings=%d warnings=%d keys=%d\n",
			r.ID, r.FinishedAt.Format(time.RFC3339),
			r.Documents, r.Skipped, r.Postings, r.WriteWarnings, r.Keys)
	}
	return nil
}
