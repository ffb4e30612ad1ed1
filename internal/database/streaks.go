package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"

	"go.uber.org/zap"
)

// GetStreak returns the member's streak and its version. A member with no
// streak yet gets (nil, 0, nil).
func (s *Service) GetStreak(ctx context.Context, userId string) (*models.StreakRecord, int64, error) {
	var record models.StreakRecord
	var lastAction sql.NullTime
	var version int64

	err := s.db.QueryRowContext(ctx, queryGetStreak, userId).Scan(
		&record.UserId, &lastAction, &record.CurrentCount, &record.LastWeekKey,
		&record.MilestoneReached, &record.LongestCount, &version, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get streak: %w", err)
	}
	if lastAction.Valid {
		record.LastActionDate = lastAction.Time
	}
	return &record, version, nil
}

// SaveStreak writes a streak transition guarded by ExpectedVersion (0 means
// the row must not exist yet) and posts its credits in the same transaction.
// Credits already in the processed set are skipped; only the applied ones are
// returned.
func (s *Service) SaveStreak(ctx context.Context, params store.SaveStreakParams) ([]models.Transaction, error) {
	record := params.Record
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lastAction any
	if !record.LastActionDate.IsZero() {
		lastAction = record.LastActionDate.UTC()
	}

	if params.ExpectedVersion == 0 {
		_, err := tx.ExecContext(ctx, queryInsertStreak,
			record.UserId, lastAction, record.CurrentCount, record.LastWeekKey,
			record.MilestoneReached, record.LongestCount, now)
		if err != nil {
			if isConstraintError(err) {
				return nil, fmt.Errorf("streak insert failed - %w", ErrConcurrentModification)
			}
			return nil, fmt.Errorf("failed to insert streak: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx, queryUpdateStreak,
			lastAction, record.CurrentCount, record.LastWeekKey, record.MilestoneReached,
			record.LongestCount, now, record.UserId, params.ExpectedVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to update streak: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, fmt.Errorf("streak update failed - %w", ErrConcurrentModification)
		}
	}

	source := models.SourceFromContext(ctx)
	var applied []*models.Transaction
	for _, credit := range params.Credits {
		transaction, err := s.subledger.postEntryTx(ctx, tx, credit, rules.Credit, now, source, postOptions{skipDuplicate: true})
		if err != nil {
			return nil, fmt.Errorf("failed to credit streak reward: %w", err)
		}
		if transaction != nil {
			applied = append(applied, transaction)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit streak: %w", err)
	}

	zap.L().Info("Streak saved",
		zap.String("user_id", record.UserId),
		zap.Int("current_count", record.CurrentCount),
		zap.String("week_key", record.LastWeekKey),
		zap.Int("credits_applied", len(applied)))

	s.notifyCommitted(ctx, applied...)

	transactions := make([]models.Transaction, 0, len(applied))
	for _, t := range applied {
		transactions = append(transactions, *t)
	}
	return transactions, nil
}

func (s *Service) DeleteStreak(ctx context.Context, userId string) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteStreak, userId); err != nil {
		return fmt.Errorf("failed to delete streak: %w", err)
	}
	return nil
}
