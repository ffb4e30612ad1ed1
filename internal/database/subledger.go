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

	"eco-loop-rewards-go/internal/store"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors for database operations
var (
	ErrDuplicateTransaction   = store.ErrDuplicateTransaction
	ErrConcurrentModification = store.ErrConcurrentModification
	ErrInsufficientBalance    = store.ErrInsufficientBalance
	ErrUserNotFound           = store.ErrUserNotFound
	ErrUserExists             = store.ErrUserExists
)

// SubledgerService handles the points subledger: balances, the append-only
// transaction log, the idempotency set and journal entries.
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

// InitSchema creates the subledger tables
func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Current balance per member (hot data)
	CREATE TABLE IF NOT EXISTS account_balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		last_transaction_id TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Append-only points history (cold data); seq preserves insertion order
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		rule_key TEXT NOT NULL,
		points_delta INTEGER NOT NULL,
		label TEXT NOT NULL,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		source TEXT NOT NULL DEFAULT 'internal',
		created_at TIMESTAMP NOT NULL
	);

	-- Idempotency set: one row per credited transaction id
	CREATE TABLE IF NOT EXISTS processed_transactions (
		transaction_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		processed_at TIMESTAMP NOT NULL
	);

	-- Double-entry journal
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		account_id TEXT NOT NULL,
		debit_points INTEGER NOT NULL DEFAULT 0,
		credit_points INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_seq ON transactions(user_id, seq);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_rule ON transactions(user_id, rule_key);
	CREATE INDEX IF NOT EXISTS idx_processed_user ON processed_transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_journal_transaction ON journal_entries(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_type, account_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// IsProcessed reports whether a transaction id is already in the idempotency set
func (s *SubledgerService) IsProcessed(ctx context.Context, transactionId string) (bool, error) {
	var existing string
	err := s.db.QueryRowContext(ctx, queryCheckProcessedTransaction, transactionId).Scan(&existing)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// isConstraintError reports whether err is a SQLite UNIQUE/PRIMARY KEY violation
func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique)
}
