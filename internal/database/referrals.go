package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	referredBonusTransactionPrefix = "referral_referred_"
	referrerBonusTransactionPrefix = "referral_referrer_"
)

// CreateReferralUser inserts a referral record. An accepted referral bumps the
// referrer's counter and writes its audit row in the same transaction.
func (s *Service) CreateReferralUser(ctx context.Context, params store.NewReferralUserParams) (*models.ReferralUser, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, queryInsertReferralUser,
		params.UserId, params.ReferralCode, params.ReferredByUserId, params.ReferredByCode, params.DeviceFingerprint, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return nil, fmt.Errorf("%w: %s", store.ErrReferralUserExists, params.UserId)
		}
		if isConstraintError(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrReferralCodeTaken, params.ReferralCode)
		}
		return nil, fmt.Errorf("failed to insert referral user: %w", err)
	}

	if params.ReferredByUserId != "" {
		limit := params.MaxReferrals
		if limit <= 0 {
			limit = math.MaxInt32
		}
		result, err := tx.ExecContext(ctx, queryAcceptReferral, params.ReferredByUserId, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to update referrer stats: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, fmt.Errorf("%w: %s", store.ErrReferralLimitReached, params.ReferredByUserId)
		}
	}

	if params.AuditEventType != "" {
		if err := appendAuditTx(ctx, tx, params.AuditEventType, params.AuditData, params.AuditLimit, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit referral user: %w", err)
	}

	zap.L().Info("Referral user created",
		zap.String("user_id", params.UserId),
		zap.String("referral_code", params.ReferralCode),
		zap.String("referred_by", params.ReferredByUserId))

	return s.GetReferralUser(ctx, params.UserId)
}

func (s *Service) GetReferralUser(ctx context.Context, userId string) (*models.ReferralUser, error) {
	user, err := scanReferralUser(s.db.QueryRowContext(ctx, queryGetReferralUser, userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userId)
	}
	return user, err
}

func (s *Service) GetReferralUserByCode(ctx context.Context, code string) (*models.ReferralUser, error) {
	user, err := scanReferralUser(s.db.QueryRowContext(ctx, queryGetReferralUserByCode, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: referral code %s", ErrUserNotFound, code)
	}
	return user, err
}

func (s *Service) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	return s.exists(ctx, queryReferralCodeExists, code)
}

// HasDeviceReferral reports whether a member on this device was already referred by referrerId
func (s *Service) HasDeviceReferral(ctx context.Context, deviceFingerprint, referrerId string) (bool, error) {
	return s.exists(ctx, queryHasDeviceReferral, deviceFingerprint, referrerId, referrerId)
}

func (s *Service) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("existence check failed: %w", err)
	}
	return true, nil
}

func (s *Service) ListReferredUsers(ctx context.Context, referrerId string) ([]models.ReferralUser, error) {
	rows, err := s.db.QueryContext(ctx, queryListReferredUsers, referrerId)
	if err != nil {
		return nil, fmt.Errorf("failed to list referred users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.ReferralUser
	for rows.Next() {
		user, err := scanReferralUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral rows: %w", err)
	}
	return users, nil
}

// CompleteFirstAction records a member's first qualifying action. When the
// member was referred and not yet rewarded, both bonuses, the reward flag,
// referrer stats and the audit row commit together or not at all.
func (s *Service) CompleteFirstAction(ctx context.Context, params store.FirstActionParams) (*store.FirstActionOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := params.CompletedAt.UTC()
	if params.CompletedAt.IsZero() {
		now = time.Now().UTC()
	}

	result, err := tx.ExecContext(ctx, queryMarkFirstAction, now, params.UserId)
	if err != nil {
		return nil, fmt.Errorf("failed to mark first action: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	var referredBy string
	var rewardGiven bool
	err = tx.QueryRowContext(ctx, queryGetReferralLink, params.UserId).Scan(&referredBy, &rewardGiven)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, params.UserId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read referral link: %w", err)
	}

	if rowsAffected == 0 {
		return &store.FirstActionOutcome{AlreadyCompleted: true, ReferrerId: referredBy}, nil
	}

	outcome := &store.FirstActionOutcome{ReferrerId: referredBy}
	if referredBy != "" && !rewardGiven {
		var referrerLink string
		var referrerRewarded bool
		err := tx.QueryRowContext(ctx, queryGetReferralLink, referredBy).Scan(&referrerLink, &referrerRewarded)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			zap.L().Warn("Referrer missing, first action recorded without bonus",
				zap.String("user_id", params.UserId),
				zap.String("referrer_id", referredBy))
		case err != nil:
			return nil, fmt.Errorf("failed to read referrer: %w", err)
		default:
			if err := s.distributeReferralReward(ctx, tx, params, referredBy, now, outcome); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit first action: %w", err)
	}

	if outcome.RewardApplied {
		zap.L().Info("Referral reward distributed",
			zap.String("referred_user_id", params.UserId),
			zap.String("referrer_id", referredBy))
		s.notifyCommitted(ctx, outcome.ReferredTx, outcome.ReferrerTx)
	}
	return outcome, nil
}

func (s *Service) distributeReferralReward(ctx context.Context, tx *sql.Tx, params store.FirstActionParams, referrerId string, now time.Time, outcome *store.FirstActionOutcome) error {
	referredRule, _ := rules.Lookup(rules.ReferralReferredBonus)
	referrerRule, _ := rules.Lookup(rules.ReferralReferrerBonus)
	source := models.SourceFromContext(ctx)

	referredTx, err := s.subledger.postEntryTx(ctx, tx, store.EntryParams{
		TransactionId: referredBonusTransactionPrefix + params.UserId,
		UserId:        params.UserId,
		RuleKey:       referredRule.Key,
		Points:        referredRule.Points,
		Label:         referredRule.Label,
		Metadata:      map[string]string{"referrer_id": referrerId, "action_type": params.ActionType},
	}, rules.Credit, now, source, postOptions{})
	if err != nil {
		return fmt.Errorf("failed to credit referred user: %w", err)
	}

	referrerTx, err := s.subledger.postEntryTx(ctx, tx, store.EntryParams{
		TransactionId: referrerBonusTransactionPrefix + params.UserId,
		UserId:        referrerId,
		RuleKey:       referrerRule.Key,
		Points:        referrerRule.Points,
		Label:         referrerRule.Label,
		Metadata:      map[string]string{"referred_user_id": params.UserId, "action_type": params.ActionType},
	}, rules.Credit, now, source, postOptions{})
	if err != nil {
		return fmt.Errorf("failed to credit referrer: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryMarkReferralRewardGiven, params.UserId)
	if err != nil {
		return fmt.Errorf("failed to flag referral reward: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return fmt.Errorf("referral reward flag update failed - %w", ErrConcurrentModification)
	}

	if _, err := tx.ExecContext(ctx, queryCreditReferrerStats, referrerRule.Points, referrerId); err != nil {
		return fmt.Errorf("failed to update referrer stats: %w", err)
	}

	err = appendAuditTx(ctx, tx, store.AuditReferralRewardDistributed, map[string]string{
		"referredUserId":    params.UserId,
		"referrerId":        referrerId,
		"referredUserBonus": strconv.FormatInt(referredRule.Points, 10),
		"referrerBonus":     strconv.FormatInt(referrerRule.Points, 10),
		"actionType":        params.ActionType,
	}, params.AuditLimit, now)
	if err != nil {
		return err
	}

	outcome.RewardApplied = true
	outcome.ReferredTx = referredTx
	outcome.ReferrerTx = referrerTx
	return nil
}

// AppendReferralAudit writes one audit row and prunes all but the newest keep rows
func (s *Service) AppendReferralAudit(ctx context.Context, eventType string, data map[string]string, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := appendAuditTx(ctx, tx, eventType, data, keep, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func appendAuditTx(ctx context.Context, tx *sql.Tx, eventType string, data map[string]string, keep int, now time.Time) error {
	if data == nil {
		data = map[string]string{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode audit data: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryInsertReferralAudit, uuid.New().String(), eventType, string(payload), now); err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	if keep > 0 {
		if _, err := tx.ExecContext(ctx, queryPruneReferralAudit, keep); err != nil {
			return fmt.Errorf("failed to prune audit log: %w", err)
		}
	}
	return nil
}

// ListReferralAudit returns the newest audit events first
func (s *Service) ListReferralAudit(ctx context.Context, limit int) ([]models.ReferralAuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, queryListReferralAudit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var events []models.ReferralAuditEvent
	for rows.Next() {
		var event models.ReferralAuditEvent
		var payload string
		if err := rows.Scan(&event.Id, &event.EventType, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &event.Data); err != nil {
			return nil, fmt.Errorf("failed to parse audit event %s: %w", event.Id, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return events, nil
}

func scanReferralUser(row rowScanner) (*models.ReferralUser, error) {
	var user models.ReferralUser
	var firstAction sql.NullTime
	err := row.Scan(&user.UserId, &user.ReferralCode, &user.ReferredByUserId, &user.ReferredByCode,
		&user.ReferralRewardGiven, &firstAction, &user.DeviceFingerprint,
		&user.Stats.TotalReferralsAccepted, &user.Stats.TotalReferralsRewarded, &user.Stats.TotalPointsEarned,
		&user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan referral user: %w", err)
	}
	if firstAction.Valid {
		t := firstAction.Time
		user.FirstActionCompletedAt = &t
	}
	return &user, nil
}
