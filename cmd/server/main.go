// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

// Package main is the entry point for the FitnessOverlays server.
//
// FitnessOverlays is a caching sync layer in front of the Strava v3 API. It
// authenticates athletes via Strava OAuth, stores their tokens and activity
// data in DuckDB, and serves profile, activity list and activity detail
// endpoints cache-first so repeated requests stay within Strava's
// 100-requests-per-15-minutes application quota.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (env > config.yaml > defaults)
//  2. Logging: zerolog, JSON or console format
//  3. Database: DuckDB credential and cache tables
//  4. Strava clients: OAuth token client and a rate-limited, circuit-broken
//     REST client
//  5. Token provider: access token lifecycle with optional AES-GCM
//     encryption at rest
//  6. Sync service: cache-first resource accessors with ownership checks
//  7. HTTP server: Chi router with session auth, health and /metrics
//
// # Configuration
//
// Required settings:
//   - STRAVA_CLIENT_ID / STRAVA_CLIENT_SECRET: Strava API application
//   - SECURITY_SESSION_SECRET: 32+ character secret for the session JWT
//
// Optional:
//   - SECURITY_TOKEN_ENCRYPTION_KEY: base64 master key enabling token
//     encryption at rest
//   - DATABASE_PATH: DuckDB file location (default /data/fitnessoverlays.duckdb)
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops accepting
// connections, drains in-flight requests for up to 10 seconds, then closes
// the database.
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

	"github.com/fitnessoverlays/fitnessoverlays/internal/api"
	"github.com/fitnessoverlays/fitnessoverlays/internal/auth"
	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/database"
	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
	"github.com/fitnessoverlays/fitnessoverlays/internal/strava"
	syncsvc "github.com/fitnessoverlays/fitnessoverlays/internal/sync"
	"github.com/fitnessoverlays/fitnessoverlays/internal/tokens"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Path).
		Msg("Starting FitnessOverlays server")

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	encryptor, err := tokens.NewEncryptor(cfg.Security.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("token encryption: %w", err)
	}
	if encryptor != nil {
		logging.Info().Msg("Token encryption at rest enabled")
	}

	oauthClient := strava.NewOAuthClient(&cfg.Strava)
	tokenProvider := tokens.NewProvider(db, oauthClient, encryptor)

	upstream := strava.NewBreakerClient(strava.NewClient(&cfg.Strava))
	service := syncsvc.NewService(db, tokenProvider, upstream, cfg.Sync)

	sessions, err := auth.NewSessionManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}
	flow := auth.NewFlowHandler(cfg, sessions, oauthClient, tokenProvider, db)

	handler := api.NewHandler(service, db, cfg.Sync)
	router := api.NewRouter(cfg, handler, sessions, flow)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logging.Info().Msg("Server stopped")
	return nil
}
