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
	"flag"

	"eco-loop-rewards-go/internal/common"
	"eco-loop-rewards-go/internal/config"
	"eco-loop-rewards-go/internal/models"

	"go.uber.org/zap"
)

func seedCatalog(ctx context.Context, services *common.Services) {
	hubs, err := services.Catalog.SeedHubs(ctx, services.Program.Hubs)
	if err != nil {
		zap.L().Fatal("Failed to seed hubs", zap.Error(err))
	}

	impact, err := services.Catalog.SeedImpact(ctx, services.Program.Impact)
	if err != nil {
		zap.L().Fatal("Failed to seed impact records", zap.Error(err))
	}

	zap.L().Info("Catalog seeded",
		zap.Int("hubs_added", hubs),
		zap.Int("impact_rows_added", impact))
}

// syncMembers pushes every local member to the Formance mirror.
func syncMembers(ctx context.Context, services *common.Services) {
	if services.Mirror == nil {
		zap.L().Info("Formance mirror disabled, skipping member sync")
		return
	}

	users, err := services.Points.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read members from database", zap.Error(err))
	}

	var failed []string
	for _, user := range users {
		if err := services.Mirror.SyncMember(ctx, user); err != nil {
			zap.L().Error("Failed to sync member",
				zap.String("user_id", user.Id),
				zap.Error(err))
			failed = append(failed, user.Id)
		}
	}

	if len(failed) > 0 {
		zap.L().Warn("Member sync completed with failures",
			zap.Int("synced", len(users)-len(failed)),
			zap.Strings("failed_members", failed))
		return
	}
	zap.L().Info("Member sync completed", zap.Int("synced", len(users)))
}

func runAuctions(ctx context.Context, services *common.Services) {
	ctx = models.WithRequestContext(ctx, &models.RequestContext{Source: models.SourceCLI})

	opened, err := services.Auction.ConvertEligible(ctx)
	if err != nil {
		zap.L().Fatal("Failed to convert eligible items", zap.Error(err))
	}
	settled, err := services.Auction.Finalize(ctx)
	if err != nil {
		zap.L().Fatal("Failed to finalize auctions", zap.Error(err))
	}

	zap.L().Info("Auction pass complete",
		zap.Int("opened", opened),
		zap.Int("settled", len(settled)))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	auctionsFlag := flag.Bool("auctions", false, "Also open eligible auctions and settle expired ones")
	syncFlag := flag.Bool("sync", false, "Push all members to the Formance mirror")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	seedCatalog(ctx, services)

	if *syncFlag {
		syncMembers(ctx, services)
	}
	if *auctionsFlag {
		runAuctions(ctx, services)
	}

	zap.L().Info("Setup complete")
}
