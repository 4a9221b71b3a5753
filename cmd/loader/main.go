package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sstload/internal/loader/events"
	"sstload/internal/loader/service"
	"sstload/internal/loader/status"
	"sstload/internal/loader/store"
	"sstload/internal/platform/config"
	"sstload/internal/platform/httpserver"
	"sstload/internal/platform/logger"
	"sstload/internal/platform/metrics"
	"sstload/internal/platform/postgres"
	"sstload/internal/platform/redis"
	"sstload/internal/query"
	httptransport "sstload/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New("info").Error("invalid configuration", "error", err)
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		return err
	}
	defer db.Close()

	pgStore, err := store.NewPostgres(db)
	if err != nil {
		log.Error("store init failed", "error", err)
		return err
	}
	if cfg.ApplySchema {
		if err := pgStore.ApplySchema(ctx); err != nil {
			log.Error("schema apply failed", "error", err)
			return err
		}
		log.Info("schema applied")
	}

	var publisher events.Publisher = events.Nop{}
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		publisher, err = events.NewRedis(redisClient, events.DefaultChannel)
		if err != nil {
			log.Error("event publisher init failed", "error", err)
			return err
		}
		log.Info("load-event publishing enabled", "channel", events.DefaultChannel)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	tracker, err := status.New(pgStore)
	if err != nil {
		log.Error("status tracker init failed", "error", err)
		return err
	}
	loader, err := service.New(service.Config{
		Threshold:      cfg.ErrorThreshold,
		CommitAttempts: cfg.RetryAttempts,
		CommitBackoff:  cfg.RetryBackoff,
		Workers:        cfg.Workers,
		Identity:       cfg.LoaderIdentity,
	}, pgStore, tracker, publisher, m, log)
	if err != nil {
		log.Error("loader service init failed", "error", err)
		return err
	}
	queries, err := query.New(pgStore)
	if err != nil {
		log.Error("query service init failed", "error", err)
		return err
	}
	handler, err := httptransport.New(loader, queries, pgStore, log)
	if err != nil {
		log.Error("handler init failed", "error", err)
		return err
	}

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, registry))
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error("server failed", "error", err)
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
		return err
	}
	log.Info("shutdown complete")
	return nil
}
