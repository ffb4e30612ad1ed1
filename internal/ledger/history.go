package ledger

import (
	"context"
	"fmt"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"

	"go.uber.org/zap"
)

// Balance returns the member's current balance; unknown members have 0.
func (s *Service) Balance(ctx context.Context, userId string) (int64, error) {
	if userId == "" {
		return 0, fmt.Errorf("user_id is required")
	}

	balance, err := s.store.GetBalance(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("user_id", userId), zap.Error(err))
		return 0, fmt.Errorf("failed to retrieve balance: %w", err)
	}
	return balance, nil
}

// Transactions returns the member's history in insertion order, filtered
// by rule-key prefix when one is given.
func (s *Service) Transactions(ctx context.Context, userId, rulePrefix string) ([]models.Transaction, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	transactions, err := s.store.GetTransactions(ctx, userId, rulePrefix, 0)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("user_id", userId),
			zap.String("rule_prefix", rulePrefix),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return transactions, nil
}

func (s *Service) TransactionsByLevel(ctx context.Context, userId string, level int) ([]models.Transaction, error) {
	return s.Transactions(ctx, userId, rules.LevelPrefix(level))
}

// RecentTransactions returns at most limit of the newest entries, oldest first.
func (s *Service) RecentTransactions(ctx context.Context, userId string, limit int) ([]models.Transaction, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.GetTransactions(ctx, userId, "", limit)
}

func (s *Service) Stats(ctx context.Context, userId string) (*models.LedgerStats, error) {
	balance, err := s.Balance(ctx, userId)
	if err != nil {
		return nil, err
	}
	transactions, err := s.Transactions(ctx, userId, "")
	if err != nil {
		return nil, err
	}

	stats := &models.LedgerStats{
		TotalBalance:      balance,
		TotalTransactions: len(transactions),
	}
	for _, tx := range transactions {
		switch {
		case tx.RuleKey.HasLevel(3):
			stats.Level3Actions++
		case tx.RuleKey.HasLevel(4):
			stats.Level4Actions++
		}
	}
	if n := len(transactions); n > 0 {
		last := transactions[n-1]
		stats.LastTransaction = &last
	}
	return stats, nil
}

// Reset wipes the member's balance, history and idempotency marks. Without
// the confirmation token nothing changes.
func (s *Service) Reset(ctx context.Context, userId, token string) (*models.ResetResult, error) {
	if token != ResetToken {
		zap.L().Warn("Ledger reset refused, bad confirmation token", zap.String("user_id", userId))
		return &models.ResetResult{Success: false, Reason: models.ReasonInvalidToken}, nil
	}
	if userId == "" {
		return &models.ResetResult{Success: false, Reason: models.ReasonInvalidRequest}, nil
	}

	if err := s.store.ResetAccount(ctx, userId); err != nil {
		return nil, fmt.Errorf("failed to reset ledger: %w", err)
	}
	return &models.ResetResult{Success: true}, nil
}
