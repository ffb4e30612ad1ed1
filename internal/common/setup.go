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

package common

import (
	"context"
	"log"
	"strings"

	"eco-loop-rewards-go/internal/auction"
	"eco-loop-rewards-go/internal/catalog"
	"eco-loop-rewards-go/internal/database"
	"eco-loop-rewards-go/internal/events"
	"eco-loop-rewards-go/internal/formance"
	"eco-loop-rewards-go/internal/ledger"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/referral"
	"eco-loop-rewards-go/internal/streak"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is everything a binary needs, built once and passed down.
type Services struct {
	Program   models.ProgramConfig
	Points    *database.Service
	Catalog   *catalog.Store
	Ledger    *ledger.Service
	Referral  *referral.Service
	Streak    *streak.Service
	Auction   *auction.Service
	Mirror    *formance.Mirror
	Publisher events.Publisher
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	program, err := LoadProgramConfig(cfg.ProgramFile)
	if err != nil {
		return nil, err
	}

	points, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	catalogDB, err := catalog.InitDB(cfg.Catalog.Path)
	if err != nil {
		points.Close()
		return nil, err
	}

	services := &Services{
		Program:   program,
		Points:    points,
		Publisher: events.Nop{},
	}
	services.Ledger = ledger.NewService(points)
	services.Catalog = catalog.NewStore(catalogDB, services.Ledger)

	if cfg.Formance.Enabled {
		mirror, err := formance.NewMirror(ctx, cfg.Formance)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Mirror = mirror
		points.AddObserver(mirror)
	}

	if cfg.Events.Enabled {
		publisher, err := events.NewAMQPPublisher(cfg.Events)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Publisher = publisher
		points.AddObserver(events.NewLedgerObserver(publisher))
	}

	services.Referral = referral.NewService(points, program.Referral)
	services.Streak = streak.NewService(points, streak.NewSettings(program.Streak))
	services.Auction = auction.NewService(points, points, services.Catalog, program.Auction)
	services.Auction.SetPublisher(services.Publisher)

	zap.L().Info("Services initialized",
		zap.String("database", cfg.Database.Path),
		zap.String("catalog", cfg.Catalog.Path),
		zap.Bool("formance_mirror", services.Mirror != nil),
		zap.Bool("events", cfg.Events.Enabled))
	return services, nil
}

// InitializeDatabaseOnly opens just the points database, for read-only
// tools like the balance report.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// Close shuts the points store first so queued ledger notifications reach
// the publisher before it goes away.
func (cs *Services) Close() {
	if cs.Points != nil {
		cs.Points.Close()
	}
	if cs.Publisher != nil {
		if err := cs.Publisher.Close(); err != nil {
			zap.L().Warn("Failed to close event publisher", zap.Error(err))
		}
	}
	if cs.Catalog != nil {
		cs.Catalog.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
