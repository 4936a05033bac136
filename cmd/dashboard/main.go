package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"zapboard/internal/api"
	"zapboard/internal/cache"
	"zapboard/internal/client"
	"zapboard/internal/config"
	"zapboard/internal/dispatch"
	"zapboard/internal/events"
	"zapboard/internal/metrics"
	"zapboard/internal/phone"
	"zapboard/internal/scheduler"
	"zapboard/internal/stats"
	"zapboard/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	scheduledStore, err := store.Open(filepath.Join(cfg.Storage.DataDir, "scheduled_messages.json"))
	if err != nil {
		slog.Error("failed to open scheduled message store", "err", err)
		os.Exit(1)
	}
	statsStore, err := stats.Open(filepath.Join(cfg.Storage.DataDir, "stats.json"))
	if err != nil {
		slog.Error("failed to open statistics store", "err", err)
		os.Exit(1)
	}

	scheduledStore.WithPendingHook(func(pending int) {
		metrics.PendingScheduled.Set(float64(pending))
		if err := statsStore.SetScheduledCount(pending); err != nil {
			slog.Error("failed to persist pending count", "err", err)
		}
	})

	// Reconcile the cached pending count with whatever survived restart.
	pending := scheduledStore.PendingCount()
	metrics.PendingScheduled.Set(float64(pending))
	if err := statsStore.SetScheduledCount(pending); err != nil {
		slog.Error("failed to persist pending count", "err", err)
	}

	bridge := client.NewBridgeClient(cfg.Bridge.URL, cfg.Bridge.Timeout)
	hub := events.NewHub()

	dispatcher := dispatch.New(scheduledStore, statsStore, bridge, phone.NewNormalizer(cfg.Phone.CountryPrefix), hub)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		dispatcher.WithReceiptCache(cache.NewRedisCache(rdb, cfg.Redis.TTL))
		slog.Info("receipt cache enabled", "addr", cfg.Redis.Address)
	}

	sched, err := scheduler.New(cfg.Scheduler.Interval, dispatcher.Tick)
	if err != nil {
		slog.Error("failed to create scheduler", "err", err)
		os.Exit(1)
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.Router(api.NewHandler(scheduledStore, statsStore, bridge, hub)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("dashboard api listening",
			"addr", cfg.Server.Address,
			"interval", cfg.Scheduler.Interval.String(),
			"bridge", cfg.Bridge.URL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "err", err)
	}
}
