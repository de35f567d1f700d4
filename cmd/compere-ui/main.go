// Package main provides the local web UI for Compere.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/config"
	"github.com/raphaelgruber/compere-go/internal/metrics"
	"github.com/raphaelgruber/compere-go/internal/router"
	"github.com/raphaelgruber/compere-go/internal/server"
	"github.com/raphaelgruber/compere-go/internal/session"
	"github.com/raphaelgruber/compere-go/internal/store"
	"github.com/raphaelgruber/compere-go/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()

	// Initialize logging
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)

	sess, err := session.New(session.NewFileStore(cfg.SessionFile))
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := client.New(client.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.APITimeout,
		Session: sess,
		Logger:  logger,
		Metrics: metrics.NewCollector(reg),
	})

	auth := store.NewAuth(api.Auth, sess, logger)
	views, err := web.New(web.Config{
		Entities:    store.NewEntities(api.Entities),
		Comparisons: store.NewComparisons(api.Comparisons, api.Ratings, api.MAB),
		Auth:        auth,
		Health:      api.Health,
		Logger:      logger,
		Pacing:      cfg.SimulationPacing,
	})
	if err != nil {
		return fmt.Errorf("create views: %w", err)
	}

	// Setup routes
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Mount("/", router.New(views.Pages()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Validate a stored token in the background
	auth.Start(ctx)

	slog.Info("Web UI available", "url", fmt.Sprintf("http://localhost:%s/", cfg.UIPort), "api", cfg.APIURL)
	return server.New(":"+cfg.UIPort, mux, logger).Run(ctx)
}
