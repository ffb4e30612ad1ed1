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
	"strconv"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	auctionWinTransactionPrefix = "auction_win_"

	SettlementNoteNoBids              = "no_bids"
	SettlementNoteInsufficientBalance = "winner_insufficient_balance"
)

// CreateAuction opens an auction unless one already exists for the item
func (s *Service) CreateAuction(ctx context.Context, auction models.Auction) (bool, error) {
	result, err := s.db.ExecContext(ctx, queryInsertAuction,
		auction.ItemId, auction.ItemName, auction.HubId,
		auction.StartDate.UTC(), auction.EndDate.UTC(),
		auction.StartingBid, auction.StartingBid)
	if err != nil {
		return false, fmt.Errorf("failed to create auction: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (s *Service) GetAuction(ctx context.Context, itemId string) (*models.Auction, error) {
	auction, err := scanAuction(s.db.QueryRowContext(ctx, queryGetAuction, itemId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrAuctionNotFound, itemId)
	}
	if err != nil {
		return nil, err
	}

	bids, err := s.listBids(ctx, queryListBidsForItem, itemId)
	if err != nil {
		return nil, err
	}
	auction.Bids = bids
	return auction, nil
}

// ListAuctions returns auctions with their bid history; an empty status lists all
func (s *Service) ListAuctions(ctx context.Context, status models.AuctionStatus) ([]models.Auction, error) {
	auctions, err := s.listAuctions(ctx, queryListAuctions, string(status), string(status))
	if err != nil {
		return nil, err
	}
	for i := range auctions {
		bids, err := s.listBids(ctx, queryListBidsForItem, auctions[i].ItemId)
		if err != nil {
			return nil, err
		}
		auctions[i].Bids = bids
	}
	return auctions, nil
}

func (s *Service) ListExpiredAuctions(ctx context.Context, now time.Time) ([]models.Auction, error) {
	return s.listAuctions(ctx, queryListExpiredAuctions, now.UTC())
}

func (s *Service) ListWonAuctions(ctx context.Context, winnerId string) ([]models.Auction, error) {
	return s.listAuctions(ctx, queryListWonAuctions, winnerId)
}

func (s *Service) ListBidsByBidder(ctx context.Context, bidderId string) ([]models.Bid, error) {
	return s.listBids(ctx, queryListBidsByBidder, bidderId)
}

// RecordBid raises the current bid and appends the bid in one transaction.
// ErrBidConflict means the auction moved on from the expected bid or has
// closed; callers re-read and re-validate.
func (s *Service) RecordBid(ctx context.Context, params store.RecordBidParams) (*models.Bid, error) {
	placedAt := params.PlacedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, queryUpdateAuctionBid,
		params.Amount, params.BidderId, params.ItemId, placedAt, params.ExpectedCurrentBid, params.ExpectedBidderId)
	if err != nil {
		return nil, fmt.Errorf("failed to update auction bid: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: item %s", store.ErrBidConflict, params.ItemId)
	}

	bid := &models.Bid{
		Id:       uuid.New().String(),
		ItemId:   params.ItemId,
		BidderId: params.BidderId,
		Amount:   params.Amount,
		PlacedAt: placedAt,
	}
	if _, err := tx.ExecContext(ctx, queryInsertBid, bid.Id, bid.ItemId, bid.BidderId, bid.Amount, bid.PlacedAt); err != nil {
		return nil, fmt.Errorf("failed to insert bid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bid: %w", err)
	}

	zap.L().Info("Bid recorded",
		zap.String("item_id", bid.ItemId),
		zap.String("bidder_id", bid.BidderId),
		zap.Int64("amount", bid.Amount))
	return bid, nil
}

// SettleAuction closes an ended auction. The winner's AUCTION_WIN debit and
// the status change commit together; a winner who can no longer pay leaves
// the auction with no winner. Returns (nil, nil) if it was already settled.
func (s *Service) SettleAuction(ctx context.Context, itemId string, now time.Time) (*models.SettlementResult, error) {
	now = now.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	auction, err := scanAuction(tx.QueryRowContext(ctx, queryGetAuction, itemId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrAuctionNotFound, itemId)
	}
	if err != nil {
		return nil, err
	}
	if auction.Status != models.AuctionActive {
		return nil, nil
	}
	if now.Before(auction.EndDate) {
		return nil, fmt.Errorf("auction %s is open until %s", itemId, auction.EndDate.Format(time.RFC3339))
	}

	settlement := &models.SettlementResult{
		ItemId: itemId,
		Status: models.AuctionNoWinner,
		Note:   SettlementNoteNoBids,
	}

	var debit *models.Transaction
	if auction.HighestBidderId != "" {
		rule, _ := rules.Lookup(rules.AuctionWin)
		debit, err = s.subledger.postEntryTx(ctx, tx, store.EntryParams{
			TransactionId: auctionWinTransactionPrefix + itemId,
			UserId:        auction.HighestBidderId,
			RuleKey:       rule.Key,
			Points:        auction.CurrentBid,
			Label:         rule.Label,
			Metadata: map[string]string{
				"item_id":   itemId,
				"item_name": auction.ItemName,
				"final_bid": strconv.FormatInt(auction.CurrentBid, 10),
			},
		}, rules.Debit, now, models.SourceFromContext(ctx), postOptions{})

		switch {
		case errors.Is(err, ErrInsufficientBalance):
			zap.L().Warn("Auction winner cannot cover final bid",
				zap.String("item_id", itemId),
				zap.String("bidder_id", auction.HighestBidderId),
				zap.Int64("final_bid", auction.CurrentBid))
			settlement.Note = SettlementNoteInsufficientBalance
		case err != nil:
			return nil, fmt.Errorf("failed to debit auction winner: %w", err)
		default:
			settlement.Status = models.AuctionWinnerDetermined
			settlement.WinnerId = auction.HighestBidderId
			settlement.FinalBid = auction.CurrentBid
			settlement.TransactionId = debit.Id
			settlement.Note = ""
		}
	}

	result, err := tx.ExecContext(ctx, querySettleAuction,
		string(settlement.Status), settlement.WinnerId, settlement.FinalBid, now, settlement.Note, itemId)
	if err != nil {
		return nil, fmt.Errorf("failed to settle auction: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	zap.L().Info("Auction settled",
		zap.String("item_id", itemId),
		zap.String("status", string(settlement.Status)),
		zap.String("winner_id", settlement.WinnerId),
		zap.Int64("final_bid", settlement.FinalBid))

	s.notifyCommitted(ctx, debit)
	return settlement, nil
}

func (s *Service) GetAuctionStats(ctx context.Context) (*models.AuctionStats, error) {
	var stats models.AuctionStats
	err := s.db.QueryRowContext(ctx, queryAuctionStats).Scan(
		&stats.TotalAuctions, &stats.ActiveAuctions, &stats.CompletedAuctions, &stats.TotalPointsSpent)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, queryCountBids).Scan(&stats.TotalBids); err != nil {
		return nil, fmt.Errorf("failed to count bids: %w", err)
	}
	return &stats, nil
}

func (s *Service) listAuctions(ctx context.Context, query string, args ...any) ([]models.Auction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var auctions []models.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, *auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auction rows: %w", err)
	}
	return auctions, nil
}

func (s *Service) listBids(ctx context.Context, query string, arg string) ([]models.Bid, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var bids []models.Bid
	for rows.Next() {
		var bid models.Bid
		if err := rows.Scan(&bid.Id, &bid.ItemId, &bid.BidderId, &bid.Amount, &bid.PlacedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bid rows: %w", err)
	}
	return bids, nil
}

func scanAuction(row rowScanner) (*models.Auction, error) {
	var auction models.Auction
	var status string
	var settledAt sql.NullTime
	err := row.Scan(&auction.ItemId, &auction.ItemName, &auction.HubId, &auction.StartDate, &auction.EndDate,
		&auction.StartingBid, &auction.CurrentBid, &auction.HighestBidderId, &status, &auction.WinnerId,
		&auction.FinalBid, &settledAt, &auction.SettlementNote)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan auction: %w", err)
	}
	auction.Status = models.AuctionStatus(status)
	if settledAt.Valid {
		t := settledAt.Time
		auction.SettledAt = &t
	}
	return &auction, nil
}
