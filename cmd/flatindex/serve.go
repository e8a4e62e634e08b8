package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/events"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/postings"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/flatindex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/resilience"
)

func (a *app) serve(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageError(c, "exactly one store directory is required")
	}
	storeDir := c.Args().First()
	ctx := c.Context
	cfg := a.cfg
	log := logger.WithComponent("serve")
	if port := c.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	store, err := postings.OpenBackend(cfg.Store.Backend, storeDir)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		err = resilience.Retry(ctx, "redis connect", resilience.DefaultBackoff(), func(ctx context.Context) error {
			var connErr error
			redisClient, connErr = pkgredis.NewClient(ctx, cfg.Redis)
			return connErr
		})
		if err != nil {
			log.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewBreaker("redis", cfg.Redis.BreakerThreshold, cfg.Redis.BreakerCooldown)
			queryCache = cache.New(cache.Guard(redisClient, breaker), indexer.CanonicalDir(storeDir), cfg.Redis.CacheTTL, m)
			log.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	checker := health.NewChecker()
	checker.Register("store", func(ctx context.Context) health.ComponentHealth {
		keys, err := store.Summarize()
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d keys", keys)}
	})
	if cfg.Redis.Enabled {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if redisClient == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			}
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	h := handler.New(query.New(store, m), store, queryCache, m, cfg.Search.MaxResults)
	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("search service listening", "addr", server.Addr, "store", storeDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down search service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		g.Go(func() error {
			<-gctx.Done()
			return shutdownMetrics(context.Background())
		})
	}
	if cfg.Kafka.Enabled && queryCache != nil {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.IndexTopic, events.InvalidateOnIndexComplete(storeDir, queryCache))
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	err = g.Wait()
	log.Info("search service stopped")
	return err
}
