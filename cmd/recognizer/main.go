// Command recognizer drains the recognition queue filled by
// "facilityctl recognize-batch" and reports outcomes as Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facility/internal/batch"
	"facility/internal/config"
	"facility/internal/facility"
	"facility/internal/logging"
	"facility/internal/metrics"
	"facility/internal/queue"
	"facility/internal/store"
	"facility/internal/transport"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "recognizer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App, log logging.Logger) error {
	reg := prometheus.NewRegistry()
	clientMetrics, err := metrics.NewClient(reg)
	if err != nil {
		return err
	}
	batchMetrics, err := metrics.NewBatch(reg)
	if err != nil {
		return err
	}

	client, closer, err := facility.Open(ctx, cfg,
		transport.WithLogger(log),
		transport.WithObserver(clientMetrics),
	)
	if err != nil {
		return err
	}
	defer closer.Close()

	if ok, err := client.Session().Authenticated(ctx); err != nil {
		return fmt.Errorf("read session: %w", err)
	} else if !ok {
		log.Warn(ctx, "no stored token; run facilityctl login first")
	}

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	if cfg.QueueBackend == "redis" && !redisClient.Healthy(ctx) {
		log.Warn(ctx, "redis not reachable yet", "addr", cfg.RedisAddr)
	}

	q, err := queue.Open(cfg.QueueBackend, redisClient.Client, cfg.QueueKey)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	w := &batch.Worker{
		Queue:      q,
		Recognizer: client.Recognition,
		Workers:    cfg.Workers,
		Log:        log,
		Tracker:    batchMetrics,
	}
	log.Info(ctx, "recognizer started", "queue", cfg.QueueKey, "backend", cfg.QueueBackend, "workers", cfg.Workers)
	n, err := w.Run(ctx)
	log.Info(context.Background(), "recognizer stopped", "processed", n)
	return err
}
