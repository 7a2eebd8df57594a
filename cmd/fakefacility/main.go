package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facility/internal/config"
	"facility/internal/fakefacility"
	"facility/internal/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "stub server failed", "error", err)
		os.Exit(1)
	}
}

// parseSeed reads "name:email:password[:prison]".
func parseSeed(s string) (name, email, password, prison string, err error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return "", "", "", "", fmt.Errorf("SEED_OFFICER must be name:email:password[:prison], got %d fields", len(parts))
	}
	if len(parts) == 4 {
		prison = parts[3]
	}
	return parts[0], parts[1], parts[2], prison, nil
}

func run(cfg config.App, log logging.Logger) error {
	ctx := context.Background()
	stub := fakefacility.New(fakefacility.Config{
		SigningKey:    cfg.JWTSigningKey,
		Issuer:        cfg.JWTIssuer,
		TokenTTL:      cfg.AccessTTL,
		Cooldown:      cfg.RecognitionCooldown,
		AllowedEmails: cfg.AllowedEmails,
		RatePerMinute: cfg.RateLimitPerMin,
		CORSOrigins:   cfg.CORSOrigins,
	}, log)

	if cfg.SeedOfficer != "" {
		name, email, password, prison, err := parseSeed(cfg.SeedOfficer)
		if err != nil {
			return err
		}
		u, err := stub.SeedOfficer(name, email, password, prison)
		if err != nil {
			return fmt.Errorf("seed officer: %w", err)
		}
		log.Info(ctx, "seeded officer", "email", u.Email, "id", u.ID)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", stub.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "stub facility API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}
