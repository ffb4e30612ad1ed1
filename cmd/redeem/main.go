package main

import (
	"context"
	"flag"
	"fmt"

	"eco-loop-rewards-go/internal/common"
	"eco-loop-rewards-go/internal/config"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userIdFlag := flag.String("user-id", "", "Member id to debit (required)")
	pointsFlag := flag.Int64("points", 0, "Points to deduct (required)")
	ruleFlag := flag.String("rule", string(rules.EcoPointsRedemption), "Debit rule key")
	reasonFlag := flag.String("reason", "", "Note stored with the transaction (optional)")
	flag.Parse()

	if *userIdFlag == "" || *pointsFlag <= 0 {
		zap.L().Fatal("Both flags are required: --user-id and a positive --points")
	}

	ruleKey, ok := rules.Parse(*ruleFlag)
	if !ok {
		zap.L().Fatal("Unknown rule key", zap.String("rule", *ruleFlag))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var metadata map[string]string
	if *reasonFlag != "" {
		metadata = map[string]string{"reason": *reasonFlag}
	}

	ctx = models.WithRequestContext(ctx, &models.RequestContext{Source: models.SourceCLI})
	result, err := services.Ledger.Debit(ctx, *userIdFlag, *pointsFlag, ruleKey, metadata)
	if err != nil {
		zap.L().Fatal("Debit failed", zap.Error(err))
	}

	common.PrintHeader("ECOPOINTS REDEMPTION", common.DefaultWidth)
	if !result.Success {
		fmt.Printf("Rejected:     %s\n", result.Reason)
		fmt.Printf("Message:      %s\n", result.Message)
		fmt.Printf("Balance:      %s\n", common.FormatPoints(result.NewBalance))
		common.PrintSeparator("=", common.DefaultWidth)
		return
	}
	fmt.Printf("Transaction:  %s\n", result.TransactionId)
	fmt.Printf("Deducted:     %s\n", common.FormatPoints(result.PointsDeducted))
	fmt.Printf("New balance:  %s\n", common.FormatPoints(result.NewBalance))
	common.PrintSeparator("=", common.DefaultWidth)
}
