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

// Package auction runs upcycle auctions over aged, unclaimed inventory and
// settles each one to a single winner charged through the points ledger.
package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eco-loop-rewards-go/internal/events"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/store"

	"go.uber.org/zap"
)

// Bid rejection reasons
const (
	ReasonNotFound = "Auction not found"
	ReasonEnded    = "Auction has ended"
)

const maxBidAttempts = 3

// Inventory is the catalog side of the auction house. An item is reserved
// for the whole bidding window and either handed to the winner or released
// back to the shelf when the auction settles.
type Inventory interface {
	ListStaleItems(ctx context.Context, listedBefore time.Time) ([]models.InventoryItem, error)
	ReserveForAuction(ctx context.Context, itemId string) (bool, error)
	ReleaseFromAuction(ctx context.Context, itemId string) error
	MarkAuctionWon(ctx context.Context, settlement models.SettlementResult) error
}

// BalanceReader reports a member's spendable points.
type BalanceReader interface {
	GetBalance(ctx context.Context, userId string) (int64, error)
}

type Service struct {
	store     store.AuctionStore
	balances  BalanceReader
	inventory Inventory
	settings  models.AuctionSettings
	publisher events.Publisher
	now       func() time.Time
}

func NewService(s store.AuctionStore, balances BalanceReader, inventory Inventory, settings models.AuctionSettings) *Service {
	defaults := models.DefaultProgramConfig().Auction
	if settings.Duration <= 0 {
		settings.Duration = defaults.Duration
	}
	if settings.MinStartingBid <= 0 {
		settings.MinStartingBid = defaults.MinStartingBid
	}
	if settings.MinIncrement <= 0 {
		settings.MinIncrement = defaults.MinIncrement
	}
	if settings.EligibilityAge <= 0 {
		settings.EligibilityAge = defaults.EligibilityAge
	}

	return &Service{
		store:     s,
		balances:  balances,
		inventory: inventory,
		settings:  settings,
		publisher: events.Nop{},
		now:       time.Now,
	}
}

// SetPublisher routes auction.settled events to p.
func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// ConvertEligible opens an auction for every inventory item that has sat
// unclaimed for at least the eligibility age. The item is reserved first so
// it cannot be redeemed while bids are open. Items already auctioned once go
// back on the shelf. Returns the number of auctions opened.
func (s *Service) ConvertEligible(ctx context.Context) (int, error) {
	if s.inventory == nil {
		return 0, nil
	}

	now := s.now().UTC()
	items, err := s.inventory.ListStaleItems(ctx, now.Add(-s.settings.EligibilityAge))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale inventory: %w", err)
	}

	opened := 0
	for _, item := range items {
		reserved, err := s.inventory.ReserveForAuction(ctx, item.Id)
		if err != nil {
			return opened, err
		}
		if !reserved {
			continue
		}

		created, err := s.store.CreateAuction(ctx, models.Auction{
			ItemId:      item.Id,
			ItemName:    item.Name,
			HubId:       item.HubId,
			StartDate:   now,
			EndDate:     now.Add(s.settings.Duration),
			StartingBid: s.settings.MinStartingBid,
		})
		if err != nil || !created {
			if rerr := s.inventory.ReleaseFromAuction(ctx, item.Id); rerr != nil {
				zap.L().Error("Failed to release reserved item",
					zap.String("item_id", item.Id),
					zap.Error(rerr))
			}
		}
		if err != nil {
			return opened, err
		}
		if created {
			opened++
			zap.L().Info("Auction opened",
				zap.String("item_id", item.Id),
				zap.String("item_name", item.Name),
				zap.Time("listed_at", item.ListedAt))
		}
	}
	return opened, nil
}

// PlaceBid validates and records a bid. Rejections come back in BidResult.
func (s *Service) PlaceBid(ctx context.Context, itemId, bidderId string, amount int64) (*models.BidResult, error) {
	if itemId == "" || bidderId == "" {
		return nil, fmt.Errorf("item_id and bidder_id are required")
	}

	for attempt := 1; ; attempt++ {
		result, err := s.placeBid(ctx, itemId, bidderId, amount)
		if !errors.Is(err, store.ErrBidConflict) {
			return result, err
		}
		if attempt >= maxBidAttempts {
			zap.L().Warn("Bid lost too many races",
				zap.String("item_id", itemId),
				zap.String("bidder_id", bidderId))
			return nil, err
		}
	}
}

func (s *Service) placeBid(ctx context.Context, itemId, bidderId string, amount int64) (*models.BidResult, error) {
	result := &models.BidResult{ItemId: itemId, BidderId: bidderId, Amount: amount}

	auction, err := s.store.GetAuction(ctx, itemId)
	if errors.Is(err, store.ErrAuctionNotFound) {
		result.Reason = ReasonNotFound
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.CurrentBid = auction.CurrentBid

	now := s.now().UTC()
	if auction.Status != models.AuctionActive || !now.Before(auction.EndDate) {
		result.Reason = ReasonEnded
		return result, nil
	}

	minBid := auction.CurrentBid + s.settings.MinIncrement
	if amount < minBid {
		result.Reason = fmt.Sprintf("Bid must be at least %d EcoPoints (current: %d)", minBid, auction.CurrentBid)
		return result, nil
	}

	balance, err := s.balances.GetBalance(ctx, bidderId)
	if err != nil {
		return nil, fmt.Errorf("failed to read bidder balance: %w", err)
	}
	if balance < amount {
		result.Reason = fmt.Sprintf("Insufficient EcoPoints balance (have %d, need %d)", balance, amount)
		return result, nil
	}

	if _, err := s.store.RecordBid(ctx, store.RecordBidParams{
		ItemId:             itemId,
		BidderId:           bidderId,
		Amount:             amount,
		ExpectedCurrentBid: auction.CurrentBid,
		ExpectedBidderId:   auction.HighestBidderId,
		PlacedAt:           now,
	}); err != nil {
		return nil, err
	}

	result.Success = true
	result.CurrentBid = amount
	return result, nil
}

// Finalize settles every active auction whose end time has passed. Settling
// is guarded by status, so running it again is a no-op.
func (s *Service) Finalize(ctx context.Context) ([]models.SettlementResult, error) {
	now := s.now().UTC()
	expired, err := s.store.ListExpiredAuctions(ctx, now)
	if err != nil {
		return nil, err
	}

	var settled []models.SettlementResult
	for _, auction := range expired {
		result, err := s.store.SettleAuction(ctx, auction.ItemId, now)
		if err != nil {
			return settled, fmt.Errorf("failed to settle auction %s: %w", auction.ItemId, err)
		}
		if result == nil {
			continue
		}
		settled = append(settled, *result)
		events.Emit(ctx, s.publisher, events.AuctionSettled, map[string]any{
			"itemId":   result.ItemId,
			"itemName": auction.ItemName,
			"status":   string(result.Status),
			"winnerId": result.WinnerId,
			"finalBid": result.FinalBid,
			"note":     result.Note,
		})

		if s.inventory != nil {
			s.settleInventory(ctx, *result)
		}
	}
	return settled, nil
}

// settleInventory hands the item to the winner or puts it back on the shelf.
// The ledger side is already committed, so failures are logged for repair.
func (s *Service) settleInventory(ctx context.Context, result models.SettlementResult) {
	if result.Status == models.AuctionWinnerDetermined {
		if err := s.inventory.MarkAuctionWon(ctx, result); err != nil {
			zap.L().Error("Failed to mark inventory item as won",
				zap.String("item_id", result.ItemId),
				zap.String("winner_id", result.WinnerId),
				zap.Error(err))
		}
		return
	}
	if err := s.inventory.ReleaseFromAuction(ctx, result.ItemId); err != nil {
		zap.L().Error("Failed to release unsold auction item",
			zap.String("item_id", result.ItemId),
			zap.Error(err))
	}
}

// List settles anything overdue, then returns auctions in the given status
// (all statuses when empty).
func (s *Service) List(ctx context.Context, status models.AuctionStatus) ([]models.Auction, error) {
	if _, err := s.Finalize(ctx); err != nil {
		return nil, err
	}
	auctions, err := s.store.ListAuctions(ctx, status)
	if err != nil {
		return nil, err
	}
	if auctions == nil {
		auctions = []models.Auction{}
	}
	return auctions, nil
}

func (s *Service) Get(ctx context.Context, itemId string) (*models.Auction, error) {
	if _, err := s.Finalize(ctx); err != nil {
		return nil, err
	}
	return s.store.GetAuction(ctx, itemId)
}

func (s *Service) UserWins(ctx context.Context, userId string) ([]models.Auction, error) {
	if _, err := s.Finalize(ctx); err != nil {
		return nil, err
	}
	return s.store.ListWonAuctions(ctx, userId)
}

func (s *Service) UserBidHistory(ctx context.Context, userId string) ([]models.Bid, error) {
	return s.store.ListBidsByBidder(ctx, userId)
}

func (s *Service) Stats(ctx context.Context) (*models.AuctionStats, error) {
	return s.store.GetAuctionStats(ctx)
}
