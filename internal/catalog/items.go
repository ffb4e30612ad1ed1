package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eco-loop-rewards-go/internal/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MinItemCost = 30
	MaxItemCost = 60
)

type NewItemParams struct {
	ItemName      string `json:"item_name"`
	Category      string `json:"category"`
	EcoPointsCost int64  `json:"eco_points_cost"`
	HubID         string `json:"hub_id"`
	Description   string `json:"description"`
	Condition     string `json:"condition"`
	ImageURL      string `json:"image_url"`
	Size          string `json:"size"`
	Color         string `json:"color"`
}

// AddItem lists a new available item at a hub.
func (s *Store) AddItem(ctx context.Context, params NewItemParams) (*models.ThriftItem, error) {
	name := strings.TrimSpace(params.ItemName)
	if name == "" || strings.TrimSpace(params.Category) == "" || params.EcoPointsCost == 0 || params.HubID == "" {
		return nil, invalid("Missing required fields")
	}
	if params.EcoPointsCost < MinItemCost || params.EcoPointsCost > MaxItemCost {
		return nil, invalid("EcoPoints must be %d-%d", MinItemCost, MaxItemCost)
	}
	if params.Condition == "" {
		params.Condition = "good"
	}

	id := uuid.New().String()
	now := s.now()
	item := models.ThriftItem{
		ID:            id,
		Slug:          fmt.Sprintf("%s-%s", slug.Make(name), id[:8]),
		ItemName:      name,
		Category:      params.Category,
		Description:   params.Description,
		Condition:     params.Condition,
		ImageURL:      params.ImageURL,
		Size:          params.Size,
		Color:         params.Color,
		EcoPointsCost: params.EcoPointsCost,
		HubID:         params.HubID,
		Status:        models.ItemAvailable,
		ListedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	zap.L().Info("Thrift item listed",
		zap.String("item_id", item.ID),
		zap.String("slug", item.Slug),
		zap.String("hub_id", item.HubID))
	return &item, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*models.ThriftItem, error) {
	var item models.ThriftItem
	err := s.db.WithContext(ctx).Where("id = ? OR slug = ?", id, id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// ListAvailableItems returns available items newest first, optionally for one hub.
func (s *Store) ListAvailableItems(ctx context.Context, hubId string) ([]models.ThriftItem, error) {
	items := []models.ThriftItem{}
	query := s.db.WithContext(ctx).Where("status = ?", models.ItemAvailable)
	if hubId != "" {
		query = query.Where("hub_id = ?", hubId)
	}
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// DeleteItem removes an item. Items under auction stay until settled.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, models.ItemInAuction).
		Delete(&models.ThriftItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete item: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ThriftItem{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s is %s", ErrItemUnavailable, id, models.ItemInAuction)
	}
	return fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// ListStaleItems returns available items listed at or before listedBefore.
func (s *Store) ListStaleItems(ctx context.Context, listedBefore time.Time) ([]models.InventoryItem, error) {
	var items []models.ThriftItem
	err := s.db.WithContext(ctx).
		Where("status = ? AND listed_at <= ?", models.ItemAvailable, listedBefore.UTC()).
		Order("listed_at").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale items: %w", err)
	}

	stale := make([]models.InventoryItem, 0, len(items))
	for _, item := range items {
		stale = append(stale, models.InventoryItem{
			Id:       item.ID,
			Name:     item.ItemName,
			HubId:    item.HubID,
			ListedAt: item.ListedAt,
		})
	}
	return stale, nil
}

// ReserveForAuction moves an available item to in_auction so it can no
// longer be redeemed or deleted. It reports false when the item is gone or
// already taken.
func (s *Store) ReserveForAuction(ctx context.Context, itemId string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.ThriftItem{}).
		Where("id = ? AND status = ?", itemId, models.ItemAvailable).
		Update("status", models.ItemInAuction)
	if result.Error != nil {
		return false, fmt.Errorf("failed to reserve item: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ReleaseFromAuction puts an in_auction item back on the shelf with a fresh
// listing date.
func (s *Store) ReleaseFromAuction(ctx context.Context, itemId string) error {
	result := s.db.WithContext(ctx).Model(&models.ThriftItem{}).
		Where("id = ? AND status = ?", itemId, models.ItemInAuction).
		Updates(map[string]any{"status": models.ItemAvailable, "listed_at": s.now()})
	if result.Error != nil {
		return fmt.Errorf("failed to release item: %w", result.Error)
	}
	return nil
}

// MarkAuctionWon takes a settled item off the shelf and queues it for pickup
// by the winner. Repeating it for the same item is a no-op.
func (s *Store) MarkAuctionWon(ctx context.Context, settlement models.SettlementResult) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.ThriftItem
		if err := tx.Where("id = ?", settlement.ItemId).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrItemNotFound, settlement.ItemId)
			}
			return err
		}
		if item.Status == models.ItemAuctionWon {
			return nil
		}
		if item.Status != models.ItemInAuction && item.Status != models.ItemAvailable {
			return fmt.Errorf("%w: %s is %s", ErrItemUnavailable, item.ID, item.Status)
		}

		if err := tx.Model(&item).Update("status", models.ItemAuctionWon).Error; err != nil {
			return err
		}
		return tx.Create(&models.Redemption{
			ID:            uuid.New().String(),
			ItemID:        item.ID,
			UserID:        settlement.WinnerId,
			PointsSpent:   settlement.FinalBid,
			TransactionID: settlement.TransactionId,
			Status:        models.RedemptionPending,
		}).Error
	})
}
