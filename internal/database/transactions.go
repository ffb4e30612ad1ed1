package database

import (
	"context"
	"database/sql"
	"encoding/json"
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

// postOptions tweaks postEntryTx for composite operations.
type postOptions struct {
	// skipDuplicate returns (nil, nil) for an already-processed credit
	// instead of ErrDuplicateTransaction, leaving the surrounding tx usable.
	skipDuplicate bool
}

// postEntryTx applies one credit or debit inside tx: idempotency mark (credits
// only), balance compare-and-swap, transaction row and journal entries.
func (s *SubledgerService) postEntryTx(ctx context.Context, tx *sql.Tx, params store.EntryParams, kind rules.Kind, now time.Time, source string, opts postOptions) (*models.Transaction, error) {
	if params.UserId == "" || params.TransactionId == "" {
		return nil, fmt.Errorf("user id and transaction id are required")
	}
	if params.Points <= 0 {
		return nil, fmt.Errorf("points must be positive, got %d", params.Points)
	}

	zap.L().Info("Processing transaction",
		zap.String("user_id", params.UserId),
		zap.String("rule_key", params.RuleKey.String()),
		zap.String("type", kind.String()),
		zap.Int64("points", params.Points),
		zap.String("transaction_id", params.TransactionId))

	if kind == rules.Credit {
		_, err := tx.ExecContext(ctx, queryMarkProcessedTransaction, params.TransactionId, params.UserId, now)
		if err != nil {
			if isConstraintError(err) {
				if opts.skipDuplicate {
					zap.L().Info("Credit already processed, skipping",
						zap.String("transaction_id", params.TransactionId))
					return nil, nil
				}
				return nil, fmt.Errorf("%w: transaction_id %s already processed", ErrDuplicateTransaction, params.TransactionId)
			}
			return nil, fmt.Errorf("failed to mark transaction processed: %w", err)
		}
	}

	// Get current balance, creating the account on first touch
	var accountId string
	var currentBalance, version int64
	err := tx.QueryRowContext(ctx, queryGetAccountBalance, params.UserId).Scan(&accountId, &currentBalance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		accountId = uuid.New().String()
		currentBalance = 0
		version = 1

		if _, err := tx.ExecContext(ctx, queryInsertAccountBalance, accountId, params.UserId, now); err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	delta := params.Points
	if kind == rules.Debit {
		delta = -params.Points
	}
	newBalance := currentBalance + delta
	if newBalance < 0 {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, params.Points, currentBalance)
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	transaction := &models.Transaction{
		Id:            params.TransactionId,
		UserId:        params.UserId,
		RuleKey:       params.RuleKey,
		PointsDelta:   delta,
		Label:         params.Label,
		BalanceBefore: currentBalance,
		BalanceAfter:  newBalance,
		Metadata:      metadata,
		Source:        source,
		CreatedAt:     now,
	}

	err = tx.QueryRowContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.UserId, transaction.RuleKey.String(), transaction.PointsDelta,
		transaction.Label, transaction.BalanceBefore, transaction.BalanceAfter,
		string(metadataJSON), transaction.Source, now).Scan(&transaction.Seq)
	if err != nil {
		if isConstraintError(err) {
			return nil, fmt.Errorf("%w: transaction_id %s already recorded", ErrDuplicateTransaction, params.TransactionId)
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance, transaction.Id, now, params.UserId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", ErrConcurrentModification)
	}

	if err := s.addJournalEntries(ctx, tx, transaction); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	return transaction, nil
}

// postEntry wraps postEntryTx in its own database transaction
func (s *SubledgerService) postEntry(ctx context.Context, params store.EntryParams, kind rules.Kind) (*models.Transaction, error) {
	// Fast path: most duplicates are caught before taking the write lock
	if kind == rules.Credit && params.TransactionId != "" {
		processed, err := s.IsProcessed(ctx, params.TransactionId)
		if err != nil {
			return nil, fmt.Errorf("failed to check for duplicate transaction: %w", err)
		}
		if processed {
			zap.L().Warn("Duplicate transaction id detected, skipping",
				zap.String("transaction_id", params.TransactionId))
			return nil, fmt.Errorf("%w: transaction_id %s already processed", ErrDuplicateTransaction, params.TransactionId)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transaction, err := s.postEntryTx(ctx, tx, params, kind, time.Now().UTC(), models.SourceFromContext(ctx), postOptions{})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transaction processed successfully",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", transaction.UserId),
		zap.Int64("old_balance", transaction.BalanceBefore),
		zap.Int64("new_balance", transaction.BalanceAfter))

	return transaction, nil
}

// addJournalEntries creates double-entry bookkeeping entries
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	type journalLine struct {
		accountType  string
		accountId    string
		debitPoints  int64
		creditPoints int64
	}

	var lines []journalLine
	if transaction.PointsDelta > 0 {
		// Program issues points: expense debit, member liability credit
		lines = []journalLine{
			{"rewards_issued", transaction.RuleKey.String(), transaction.PointsDelta, 0},
			{"user_points", transaction.UserId, 0, transaction.PointsDelta},
		}
	} else {
		// Member spends points: liability debit, redemption credit
		points := -transaction.PointsDelta
		lines = []journalLine{
			{"user_points", transaction.UserId, points, 0},
			{"points_redeemed", transaction.RuleKey.String(), 0, points},
		}
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), transaction.Id, line.accountType, line.accountId, line.debitPoints, line.creditPoints)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetTransactions returns a member's history in insertion order, optionally
// filtered by rule-key prefix. limit <= 0 returns everything.
func (s *SubledgerService) GetTransactions(ctx context.Context, userId, rulePrefix string, limit int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("user_id", userId),
		zap.String("rule_prefix", rulePrefix),
		zap.Int("limit", limit))

	rows, err := s.db.QueryContext(ctx, queryGetTransactions, userId, likePrefix(rulePrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	// Keep the most recent entries while preserving insertion order
	if limit > 0 && len(transactions) > limit {
		transactions = transactions[len(transactions)-limit:]
	}

	return transactions, nil
}

// GetTransaction returns a single transaction by id
func (s *SubledgerService) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, queryGetTransactionById, transactionId)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction not found: %s", transactionId)
		}
		return nil, err
	}
	return tx, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var ruleKey, metadataJSON string
	err := row.Scan(&tx.Seq, &tx.Id, &tx.UserId, &ruleKey, &tx.PointsDelta, &tx.Label,
		&tx.BalanceBefore, &tx.BalanceAfter, &metadataJSON, &tx.Source, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	tx.RuleKey = rules.Key(ruleKey)

	// Corrupt metadata fails the read rather than being dropped
	if err := json.Unmarshal([]byte(metadataJSON), &tx.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for transaction %s: %w", tx.Id, err)
	}
	return &tx, nil
}

// likePrefix turns a rule-key prefix into an escaped LIKE pattern
func likePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(strings.ToUpper(prefix)) + "%"
}
