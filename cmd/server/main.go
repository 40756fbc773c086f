// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor


// Package main is the entry point for the Corridor server.
//
// Corridor serves a corridor map and a travel-time chart that share one
// selection per session. Components start in this order:
//
//  1. Configuration (defaults, config.yaml, CORRIDOR_* environment)
//  2. Logging
//  3. DuckDB store, optionally seeded with the demo corridor
//  4. Membership cache, chart service and event bus
//  5. Session manager and WebSocket hub
//  6. Supervisor tree with the janitors, the hub, the event forwarder
//     and the HTTP server
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
// server first, then the messaging layer, then the data layer.
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

	"github.com/tomtom215/corridor/internal/api"
	"github.com/tomtom215/corridor/internal/chart"
	"github.com/tomtom215/corridor/internal/config"
	"github.com/tomtom215/corridor/internal/database"
	"github.com/tomtom215/corridor/internal/dimension"
	"github.com/tomtom215/corridor/internal/events"
	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/session"
	"github.com/tomtom215/corridor/internal/supervisor"
	"github.com/tomtom215/corridor/internal/supervisor/services"
	ws "github.com/tomtom215/corridor/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().Msg("Starting Corridor...")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Corridor exited with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.SeedDemo {
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		seeded, err := db.Seed(seedCtx, database.SeedOptions{})
		seedCancel()
		if err != nil {
			return fmt.Errorf("failed to seed demo corridor: %w", err)
		}
		logging.Info().Bool("seeded", seeded).Msg("Demo corridor checked")
	}

	dimCache := dimension.New(db, cfg.Dimensions.CacheSize, cfg.Dimensions.CacheTTL)
	charts := chart.NewService(db, cfg.Chart)

	bus := events.NewBus(logging.NewWatermillAdapter(logging.WithComponent("events")))
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event bus")
		}
	}()

	manager := session.NewManager(dimCache, charts, bus, cfg.Sessions)
	hub := ws.NewHub(manager, cfg.WebSocket)
	forwarder := events.NewForwarder(bus, hub)

	handler := api.NewHandler(manager, db, charts, hub, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewJanitorService("session-janitor", cfg.Sessions.SweepInterval, manager.Sweep))
	tree.AddDataService(services.NewJanitorService("dimension-janitor", cfg.Dimensions.CacheTTL, func(context.Context) int {
		return dimCache.Cleanup()
	}))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(forwarder)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := tree.ServeBackground(ctx)
	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree started")

	var serveErr error
	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
		serveErr = <-errCh
	case serveErr = <-errCh:
		cancel()
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to get unstopped service report")
	}
	if len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services failed to stop within timeout")
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return nil
}
