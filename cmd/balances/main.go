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
	"fmt"

	"eco-loop-rewards-go/internal/common"
	"eco-loop-rewards-go/internal/config"
	"eco-loop-rewards-go/internal/formance"
	"eco-loop-rewards-go/internal/ledger"
	"eco-loop-rewards-go/internal/models"

	"go.uber.org/zap"
)

type reportStats struct {
	totalMembers      int
	membersWithPoints int
	totalOutstanding  int64
	mirrorMismatches  int
}

func printTransactions(txs []models.Transaction) {
	for i, tx := range txs {
		fmt.Printf("%s %-26s %8s  -> %-8s %-15s %s\n",
			common.BoxPrefix(i == len(txs)-1),
			tx.RuleKey,
			common.FormatDelta(tx.PointsDelta),
			common.FormatPoints(tx.BalanceAfter),
			common.ShortId(tx.Id),
			tx.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func processMember(ctx context.Context, user common.UserInfo, ledgerService *ledger.Service, mirror *formance.Mirror, limit int, stats *reportStats) error {
	balance, err := ledgerService.Balance(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	txs, err := ledgerService.RecentTransactions(ctx, user.Id, limit)
	if err != nil {
		return fmt.Errorf("failed to get transactions: %w", err)
	}

	if balance != 0 {
		stats.membersWithPoints++
		stats.totalOutstanding += balance
	}

	common.PrintMemberHeader(user, balance, 78)
	if len(txs) == 0 {
		fmt.Println("└  no transactions")
	}
	printTransactions(txs)

	if mirror != nil {
		ok, err := mirror.Verify(ctx, user.Id, balance)
		if err != nil {
			return fmt.Errorf("failed to verify against Formance: %w", err)
		}
		if !ok {
			stats.mirrorMismatches++
			fmt.Println("   ! Formance balance differs from the local ledger")
		}
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by member email (optional)")
	userIdFlag := flag.String("user-id", "", "Filter by member id (optional)")
	limitFlag := flag.Int("limit", 10, "Recent transactions shown per member")
	verifyFlag := flag.Bool("verify", false, "Compare balances with the Formance mirror")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	var mirror *formance.Mirror
	if *verifyFlag {
		if !cfg.Formance.Enabled {
			logger.Fatal("--verify needs FORMANCE_ENABLED=true")
		}
		mirror, err = formance.NewMirror(ctx, cfg.Formance)
		if err != nil {
			logger.Fatal("Failed to connect to Formance", zap.Error(err))
		}
	}

	users, err := common.ResolveUsers(ctx, dbService, common.UserFilter{
		UserId: *userIdFlag,
		Email:  *emailFlag,
	})
	if err != nil {
		logger.Fatal("Failed to resolve members", zap.Error(err))
	}

	ledgerService := ledger.NewService(dbService)
	common.PrintHeader("ECOPOINTS BALANCE REPORT", common.DefaultWidth)

	stats := reportStats{}
	for _, user := range users {
		stats.totalMembers++
		if err := processMember(ctx, user, ledgerService, mirror, *limitFlag, &stats); err != nil {
			logger.Error("Failed to process member",
				zap.String("user_id", user.Id),
				zap.Error(err))
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d of %d members hold points, %s EcoPoints outstanding",
		stats.membersWithPoints, stats.totalMembers, common.FormatPoints(stats.totalOutstanding))
	if mirror != nil {
		summary += fmt.Sprintf(", %d mirror mismatches", stats.mirrorMismatches)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.Int("members", stats.totalMembers),
		zap.Int("members_with_points", stats.membersWithPoints),
		zap.Int64("outstanding", stats.totalOutstanding))
}
