package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	redis_adapter "tezui.dashboard/internal/adapters/cache/redis"
	"tezui.dashboard/internal/adapters/repository/pg"
	"tezui.dashboard/internal/adapters/timeline"
	"tezui.dashboard/internal/config"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/services"
	"tezui.dashboard/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if len(cfg.SyncApps) == 0 {
		log.Fatal("SYNC_APPS environment variable is required")
	}

	logger.Info("Starting Tez UI syncer", "apps", cfg.SyncApps, "interval", cfg.SyncInterval.String())

	backend, err := timeline.New(timeline.Options{
		TimelineURL:       cfg.TimelineURL,
		RMURL:             cfg.RMURL,
		Timeout:           cfg.TimelineTimeout,
		RequestsPerSecond: cfg.TimelineRPS,
	})
	if err != nil {
		log.Fatalf("failed to init timeline client: %v", err)
	}

	repo, err := pg.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres: %v", err)
	}

	cache, redisClient, err := redis_adapter.NewRedisAdapter(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to init redis: %v", err)
	}
	defer redisClient.Close()

	store := services.NewStore(backend,
		services.WithCache(cache, cfg.CacheTTL),
		services.WithPubSub(cache),
	)
	s := syncer.New(store, repo, redis_adapter.NewFailedFetches(redisClient), syncer.Options{
		Apps:        cfg.SyncApps,
		Interval:    cfg.SyncInterval,
		Concurrency: cfg.SyncConcurrency,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("Shutting down syncer...")
		cancel()
	}()

	if err := s.Run(ctx); err != nil {
		log.Fatalf("Syncer error: %v", err)
	}
}
