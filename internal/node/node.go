// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/husky/activity"
	"github.com/blinklabs-io/husky/cache"
	"github.com/blinklabs-io/husky/contentstore"
	"github.com/blinklabs-io/husky/event"
	"github.com/blinklabs-io/husky/identity"
	"github.com/blinklabs-io/husky/internal/config"
	"github.com/blinklabs-io/husky/internal/devnet"
	"github.com/blinklabs-io/husky/modelsync"
	"github.com/blinklabs-io/husky/state"
	"github.com/blinklabs-io/husky/wallet"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const refreshInterval = 60 * time.Second

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	// Only the in-memory devnet transport is available in-process;
	// other networks need an external chain transport wired in
	if !cfg.RunMode.IsDevMode() {
		return fmt.Errorf(
			"run mode %q requires an external chain transport; use dev mode",
			cfg.RunMode,
		)
	}
	networkId, err := cfg.NetworkId()
	if err != nil {
		return err
	}
	if networkId != devnet.DevnetNetworkId {
		return fmt.Errorf(
			"dev mode only serves the devnet network, got %q",
			cfg.Network,
		)
	}

	// Parse timeouts
	shutdownTimeout := 30 * time.Second
	if cfg.ShutdownTimeout != "" {
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}
	var gatewayTimeout time.Duration
	if cfg.GatewayTimeout != "" {
		gatewayTimeout, err = time.ParseDuration(cfg.GatewayTimeout)
		if err != nil {
			return fmt.Errorf("invalid gateway timeout: %w", err)
		}
	}

	promRegistry := prometheus.DefaultRegisterer

	db, err := cache.New(cache.Config{
		DataDir:      cfg.DataDir,
		Logger:       logger,
		PromRegistry: promRegistry,
	})
	if err != nil {
		return fmt.Errorf("opening local cache: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("cache close error", "error", err)
		}
	}()

	bus := event.NewEventBus(promRegistry, logger)
	defer bus.Stop()

	content, err := contentstore.New(contentstore.Config{
		Logger:         logger,
		PromRegistry:   promRegistry,
		Cache:          db,
		Gateways:       cfg.Gateways,
		PinningURL:     cfg.PinningUrl,
		PinningToken:   cfg.PinningToken,
		RequestTimeout: gatewayTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating content store: %w", err)
	}

	session := wallet.NewSession(wallet.SessionConfig{
		Logger:   logger,
		Bus:      bus,
		Provider: devnet.NewProvider(),
	})

	store := state.NewStore(state.StoreConfig{
		Logger:       logger,
		PromRegistry: promRegistry,
		Bus:          bus,
		Session:      session,
		Dialer:       devnet.NewDialer(),
		Identity: identity.NewSyncer(identity.SyncerConfig{
			Logger:  logger,
			Cache:   db,
			Content: content,
		}),
		Models: modelsync.NewSyncer(modelsync.SyncerConfig{
			Logger:       logger,
			PromRegistry: promRegistry,
			Content:      content,
			Concurrency:  cfg.SyncConcurrency,
		}),
		Activity: activity.NewProjector(activity.ProjectorConfig{
			Logger:       logger,
			PromRegistry: promRegistry,
		}),
	})

	// Metrics listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		"component",
		"node",
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
			os.Exit(1)
		}
	}()

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Reconnect silently in the background; the connected event drives
	// the initial full sync
	go func() {
		if session.Resume(signalCtx) {
			logger.Info(
				"session resumed",
				"component", "node",
				"address", session.Address(),
			)
		}
	}()

	// Periodic refresh keeps the derived state converging on chain
	// state while a session is active
	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()
	go func() {
		for {
			select {
			case <-signalCtx.Done():
				return
			case <-refreshTicker.C:
				if !session.Connected() {
					continue
				}
				if result := store.Refresh(signalCtx); !result.Success {
					logger.Warn(
						"periodic refresh failed",
						"component", "node",
						"error", result.Error,
					)
				}
			}
		}
	}()

	<-signalCtx.Done()
	logger.Info("signal received, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
	session.Disconnect()
	logger.Info("shutdown complete")
	return nil
}
