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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Debit deducts points under a debit rule. An empty rule key means
// ECOPOINTS_REDEMPTION. Debits carry no idempotency key: every call that
// passes the balance check is applied.
func (s *Service) Debit(ctx context.Context, userId string, points int64, ruleKey rules.Key, metadata map[string]string) (*models.DebitResult, error) {
	if ruleKey == "" {
		ruleKey = rules.EcoPointsRedemption
	}

	zap.L().Info("Processing debit",
		zap.String("user_id", userId),
		zap.String("rule_key", ruleKey.String()),
		zap.Int64("points", points))

	if userId == "" || points <= 0 {
		zap.L().Error("Invalid debit parameters",
			zap.String("user_id", userId),
			zap.Int64("points", points))
		return &models.DebitResult{
			Success: false,
			UserId:  userId,
			Reason:  models.ReasonInvalidRequest,
			Message: "user_id and a positive points amount are required",
		}, nil
	}

	rule, ok := rules.Lookup(ruleKey)
	if !ok || rule.Kind != rules.Debit {
		zap.L().Warn("Invalid debit rule", zap.String("rule_key", ruleKey.String()))
		return &models.DebitResult{
			Success: false,
			UserId:  userId,
			RuleKey: ruleKey,
			Reason:  models.ReasonInvalidRule,
			Message: fmt.Sprintf("Invalid rule key: %s", ruleKey),
		}, nil
	}

	transactionId := DebitTransactionId(rule.Key, time.Now())
	tx, err := s.store.PostDebit(ctx, store.EntryParams{
		TransactionId: transactionId,
		UserId:        userId,
		RuleKey:       rule.Key,
		Points:        points,
		Label:         rule.Label,
		Metadata:      metadata,
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			balance, berr := s.store.GetBalance(ctx, userId)
			if berr != nil {
				return nil, fmt.Errorf("failed to read balance after rejected debit: %w", berr)
			}
			zap.L().Info("Debit rejected for insufficient balance",
				zap.String("user_id", userId),
				zap.Int64("points", points),
				zap.Int64("balance", balance))
			return &models.DebitResult{
				Success:    false,
				UserId:     userId,
				RuleKey:    rule.Key,
				NewBalance: balance,
				Reason:     models.ReasonInsufficientBalance,
				Message:    fmt.Sprintf("Insufficient points. Need %d, have %d", points, balance),
			}, nil
		}

		zap.L().Error("Debit processing failed",
			zap.String("user_id", userId),
			zap.Int64("points", points),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Debit processed successfully",
		zap.String("user_id", userId),
		zap.String("transaction_id", tx.Id),
		zap.Int64("new_balance", tx.BalanceAfter))

	return &models.DebitResult{
		Success:        true,
		UserId:         userId,
		RuleKey:        rule.Key,
		TransactionId:  tx.Id,
		PointsDeducted: points,
		NewBalance:     tx.BalanceAfter,
		Message:        fmt.Sprintf("-%d EcoPoints for %s", points, rule.Label),
	}, nil
}

// DebitTransactionId builds <RULEKEY>_<unixmillis>_<8 hex>.
func DebitTransactionId(ruleKey rules.Key, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", ruleKey, at.UnixMilli(), suffix)
}
