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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eco-loop-rewards-go/internal/auction"
	"eco-loop-rewards-go/internal/common"
	"eco-loop-rewards-go/internal/config"
	"eco-loop-rewards-go/internal/httpapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting Eco-Loop rewards server")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if _, err := services.Catalog.SeedHubs(ctx, services.Program.Hubs); err != nil {
		zap.L().Warn("Failed to seed hubs", zap.Error(err))
	}

	var sweeper *auction.Sweeper
	if cfg.Sweeper.Enabled {
		sweeper = auction.NewSweeper(services.Auction, cfg.Sweeper.Interval)
		if err := sweeper.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start auction sweeper", zap.Error(err))
		}
	}

	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router, limiter := httpapi.NewRouter(&httpapi.Handler{
		Ledger:    services.Ledger,
		Referral:  services.Referral,
		Streak:    services.Streak,
		Auction:   services.Auction,
		Catalog:   services.Catalog,
		Publisher: services.Publisher,
	}, cfg.Server)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping server...")

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
		return
	}
	zap.L().Info("Server stopped gracefully")
}
