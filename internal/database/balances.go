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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eco-loop-rewards-go/internal/models"

	"go.uber.org/zap"
)

// GetBalance returns a member's balance; members without an account have zero
func (s *Service) GetBalance(ctx context.Context, userId string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, queryGetBalance, userId).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// GetAccountBalance returns the full balance row, or a zero row if none exists yet
func (s *Service) GetAccountBalance(ctx context.Context, userId string) (*models.AccountBalance, error) {
	var balance models.AccountBalance
	err := s.db.QueryRowContext(ctx, queryGetAccountBalanceRow, userId).Scan(
		&balance.Id, &balance.UserId, &balance.Balance, &balance.LastTransactionId, &balance.Version, &balance.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.AccountBalance{UserId: userId}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}
	return &balance, nil
}

// GetAllBalances returns every account, highest balance first
func (s *Service) GetAllBalances(ctx context.Context) ([]models.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllBalances)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		var balance models.AccountBalance
		err := rows.Scan(&balance.Id, &balance.UserId, &balance.Balance, &balance.LastTransactionId, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, balance)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	return balances, nil
}

// ReconcileBalance verifies the stored balance equals the sum of the transaction log
func (s *Service) ReconcileBalance(ctx context.Context, userId string) error {
	var calculated int64
	if err := s.db.QueryRowContext(ctx, queryReconcileBalance, userId).Scan(&calculated); err != nil {
		return fmt.Errorf("failed to calculate balance from transactions: %w", err)
	}

	stored, err := s.GetBalance(ctx, userId)
	if err != nil {
		return err
	}

	if calculated != stored {
		zap.L().Error("Balance mismatch detected",
			zap.String("user_id", userId),
			zap.Int64("stored", stored),
			zap.Int64("calculated", calculated))
		return fmt.Errorf("balance mismatch for user %s: stored=%d, calculated=%d", userId, stored, calculated)
	}

	zap.L().Debug("Balance reconciled", zap.String("user_id", userId), zap.Int64("balance", stored))
	return nil
}

// ResetAccount wipes a member's balance, history, idempotency marks and journal
func (s *Service) ResetAccount(ctx context.Context, userId string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Journal rows reference transactions, so they go first
	for _, q := range []string{queryDeleteJournalForUser, queryDeleteTransactionsForUser, queryDeleteProcessedForUser, queryDeleteBalanceForUser} {
		if _, err := tx.ExecContext(ctx, q, userId); err != nil {
			return fmt.Errorf("failed to reset account: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	zap.L().Warn("Ledger reset for user", zap.String("user_id", userId))
	return nil
}
