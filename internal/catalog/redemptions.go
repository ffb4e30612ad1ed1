package catalog

import (
	"context"
	"errors"
	"fmt"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ReasonItemUnavailable = "item_unavailable"

// Pickup status moves one step at a time.
var nextRedemptionStatus = map[string]string{
	models.RedemptionPending:  models.RedemptionPickedUp,
	models.RedemptionPickedUp: models.RedemptionCompleted,
}

// Redeem spends the item's cost from the member's points and queues the item
// for pickup. The item is claimed before the debit and released again if the
// debit is refused, so two members can never pay for the same item. Items
// under auction are not available and cannot be claimed here.
func (s *Store) Redeem(ctx context.Context, itemId, userId string) (*models.RedeemResult, error) {
	if userId == "" {
		return nil, invalid("userId is required")
	}
	if s.ledger == nil {
		return nil, errors.New("catalog store has no ledger configured")
	}

	item, err := s.GetItem(ctx, itemId)
	if err != nil {
		return nil, err
	}

	claim := s.db.WithContext(ctx).Model(&models.ThriftItem{}).
		Where("id = ? AND status = ?", item.ID, models.ItemAvailable).
		Update("status", models.ItemRedeemed)
	if claim.Error != nil {
		return nil, fmt.Errorf("failed to claim item: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return &models.RedeemResult{
			Success: false,
			Reason:  ReasonItemUnavailable,
			Message: "Item is no longer available",
		}, nil
	}

	debit, err := s.ledger.Debit(ctx, userId, item.EcoPointsCost, rules.ThriftLoopRedeem, map[string]string{
		"item_id":   item.ID,
		"item_name": item.ItemName,
		"hub_id":    item.HubID,
	})
	if err != nil || !debit.Success {
		if rerr := s.releaseItem(ctx, item.ID); rerr != nil {
			zap.L().Error("Failed to release claimed item",
				zap.String("item_id", item.ID),
				zap.Error(rerr))
		}
		if err != nil {
			return nil, err
		}
		return &models.RedeemResult{
			Success:    false,
			NewBalance: debit.NewBalance,
			Reason:     debit.Reason,
			Message:    debit.Message,
		}, nil
	}

	redemption := models.Redemption{
		ID:            uuid.New().String(),
		ItemID:        item.ID,
		UserID:        userId,
		PointsSpent:   item.EcoPointsCost,
		TransactionID: debit.TransactionId,
		Status:        models.RedemptionPending,
	}
	if err := s.db.WithContext(ctx).Create(&redemption).Error; err != nil {
		zap.L().Error("Points spent but redemption not recorded",
			zap.String("item_id", item.ID),
			zap.String("user_id", userId),
			zap.String("transaction_id", debit.TransactionId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	zap.L().Info("Item redeemed",
		zap.String("item_id", item.ID),
		zap.String("user_id", userId),
		zap.Int64("points", item.EcoPointsCost))

	return &models.RedeemResult{
		Success:    true,
		Redemption: &redemption,
		NewBalance: debit.NewBalance,
		Message:    fmt.Sprintf("Redeemed %s for %d EcoPoints", item.ItemName, item.EcoPointsCost),
	}, nil
}

func (s *Store) releaseItem(ctx context.Context, itemId string) error {
	return s.db.WithContext(ctx).Model(&models.ThriftItem{}).
		Where("id = ? AND status = ?", itemId, models.ItemRedeemed).
		Update("status", models.ItemAvailable).Error
}

func (s *Store) ListRedemptions(ctx context.Context, userId string) ([]models.Redemption, error) {
	redemptions := []models.Redemption{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userId).Order("created_at DESC").Find(&redemptions).Error; err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	return redemptions, nil
}

// UpdateRedemptionStatus advances a redemption to status, which must be the
// next step after its current one.
func (s *Store) UpdateRedemptionStatus(ctx context.Context, id, status string) (*models.Redemption, error) {
	var redemption models.Redemption
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&redemption).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRedemptionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}

	if nextRedemptionStatus[redemption.Status] != status {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, redemption.Status, status)
	}

	result := s.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("id = ? AND status = ?", id, redemption.Status).
		Update("status", status)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update redemption: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s changed concurrently", ErrInvalidStatusChange, id)
	}

	redemption.Status = status
	return &redemption, nil
}
