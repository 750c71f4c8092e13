/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/api"
	"github.com/The-x-35/vibegame-sub000/internal/common"
	"github.com/The-x-35/vibegame-sub000/internal/config"
	"github.com/The-x-35/vibegame-sub000/internal/listener"

	"go.uber.org/zap"
)

func main() {
	noReconciler := flag.Bool("no-reconciler", false, "Do not start the checkpoint reconciler in this process")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if err := config.Validate(cfg); err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting transaction pipeline server")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var reconciler *listener.Reconciler
	if cfg.Reconciler.Enabled && !*noReconciler {
		reconciler = listener.NewReconciler(listener.ReconcilerConfig{
			Journal:         services.DbService,
			Ledger:          services.Broadcaster,
			PollingInterval: cfg.Reconciler.PollingInterval,
			MaxAge:          cfg.Reconciler.MaxAge,
			BatchSize:       cfg.Reconciler.BatchSize,
		})
		if err := reconciler.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start reconciler", zap.Error(err))
		}
	} else {
		zap.L().Info("Checkpoint reconciler disabled")
	}

	server := api.NewServer(services.Pipeline, services.Verifier, cfg.Server,
		api.HealthCheck{Name: "database", Check: services.DbService.Ping},
		api.HealthCheck{Name: "ledger", Check: func(ctx context.Context) error {
			_, err := services.RPC.GetHealth(ctx)
			return err
		}},
	)

	stopCleanup := make(chan struct{})
	server.Limiter().StartCleanup(10*time.Minute, stopCleanup)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, draining requests...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	close(stopCleanup)

	// In-flight requests may be waiting on confirmations; let them finish.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		if reconciler != nil {
			reconciler.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Server stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
