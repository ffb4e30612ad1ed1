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

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"

	"go.uber.org/zap"
)

// Credit awards the points of a credit rule once per transaction id.
func (s *Service) Credit(ctx context.Context, userId string, ruleKey rules.Key, transactionId string, metadata map[string]string) (*models.CreditResult, error) {
	zap.L().Info("Processing credit",
		zap.String("user_id", userId),
		zap.String("rule_key", ruleKey.String()),
		zap.String("transaction_id", transactionId))

	if userId == "" || transactionId == "" {
		zap.L().Error("Invalid credit parameters",
			zap.String("user_id", userId),
			zap.String("transaction_id", transactionId))
		return &models.CreditResult{
			Success: false,
			Reason:  models.ReasonInvalidRequest,
			Message: "user_id and transaction_id are required",
		}, nil
	}

	rule, ok := rules.Lookup(ruleKey)
	if !ok || rule.Kind != rules.Credit {
		zap.L().Warn("Invalid credit rule", zap.String("rule_key", ruleKey.String()))
		return &models.CreditResult{
			Success: false,
			UserId:  userId,
			RuleKey: ruleKey,
			Reason:  models.ReasonInvalidRule,
			Message: fmt.Sprintf("Invalid rule key: %s", ruleKey),
		}, nil
	}

	tx, err := s.store.PostCredit(ctx, store.EntryParams{
		TransactionId: transactionId,
		UserId:        userId,
		RuleKey:       rule.Key,
		Points:        rule.Points,
		Label:         rule.Label,
		Metadata:      metadata,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			zap.L().Info("Duplicate credit ignored",
				zap.String("user_id", userId),
				zap.String("transaction_id", transactionId))

			balance, berr := s.store.GetBalance(ctx, userId)
			if berr != nil {
				return nil, fmt.Errorf("failed to read balance after duplicate: %w", berr)
			}
			return &models.CreditResult{
				Success:       false,
				UserId:        userId,
				RuleKey:       rule.Key,
				TransactionId: transactionId,
				NewBalance:    balance,
				Reason:        models.ReasonDuplicate,
				Message:       "Transaction already processed",
			}, nil
		}

		zap.L().Error("Credit processing failed",
			zap.String("user_id", userId),
			zap.String("transaction_id", transactionId),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Credit processed successfully",
		zap.String("user_id", userId),
		zap.String("rule_key", rule.Key.String()),
		zap.Int64("points", rule.Points),
		zap.Int64("new_balance", tx.BalanceAfter))

	return &models.CreditResult{
		Success:       true,
		UserId:        userId,
		RuleKey:       rule.Key,
		TransactionId: tx.Id,
		PointsAwarded: rule.Points,
		NewBalance:    tx.BalanceAfter,
		Message:       fmt.Sprintf("+%d EcoPoints earned for %s", rule.Points, rule.Label),
	}, nil
}
