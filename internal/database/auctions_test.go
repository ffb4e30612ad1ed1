package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"
)

func openTestAuction(t *testing.T, service *Service, itemId string, start time.Time) {
	t.Helper()
	created, err := service.CreateAuction(context.Background(), models.Auction{
		ItemId:      itemId,
		ItemName:    "Vintage lamp",
		HubId:       "hub-1",
		StartDate:   start,
		EndDate:     start.Add(72 * time.Hour),
		StartingBid: 5,
	})
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}
	if !created {
		t.Fatalf("Expected auction %s to be created", itemId)
	}
}

func TestCreateAuction_Idempotent(t *testing.T) {
	service := setupTestService(t)
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	openTestAuction(t, service, "item-1", start)

	created, err := service.CreateAuction(context.Background(), models.Auction{
		ItemId: "item-1", ItemName: "Other", StartDate: start, EndDate: start.Add(time.Hour), StartingBid: 9,
	})
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}
	if created {
		t.Error("Expected second CreateAuction to be ignored")
	}

	auction, err := service.GetAuction(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("GetAuction failed: %v", err)
	}
	if auction.CurrentBid != 5 || auction.Status != models.AuctionActive {
		t.Errorf("Unexpected auction %+v", auction)
	}

	_, err = service.GetAuction(context.Background(), "missing")
	if !errors.Is(err, store.ErrAuctionNotFound) {
		t.Errorf("Expected ErrAuctionNotFound, got %v", err)
	}
}

func TestRecordBid_CompareAndSwap(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	openTestAuction(t, service, "item-1", start)

	bid, err := service.RecordBid(ctx, store.RecordBidParams{
		ItemId: "item-1", BidderId: "alice", Amount: 6, ExpectedCurrentBid: 5, PlacedAt: start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("RecordBid failed: %v", err)
	}
	if bid.Amount != 6 {
		t.Errorf("Expected bid amount 6, got %d", bid.Amount)
	}

	// Stale expectation
	_, err = service.RecordBid(ctx, store.RecordBidParams{
		ItemId: "item-1", BidderId: "bob", Amount: 7, ExpectedCurrentBid: 5, PlacedAt: start.Add(2 * time.Hour),
	})
	if !errors.Is(err, store.ErrBidConflict) {
		t.Errorf("Expected ErrBidConflict, got %v", err)
	}

	// After the end date
	_, err = service.RecordBid(ctx, store.RecordBidParams{
		ItemId: "item-1", BidderId: "bob", Amount: 7, ExpectedCurrentBid: 6, ExpectedBidderId: "alice", PlacedAt: start.Add(73 * time.Hour),
	})
	if !errors.Is(err, store.ErrBidConflict) {
		t.Errorf("Expected ErrBidConflict after end, got %v", err)
	}

	auction, _ := service.GetAuction(ctx, "item-1")
	if auction.CurrentBid != 6 || auction.HighestBidderId != "alice" || len(auction.Bids) != 1 {
		t.Errorf("Unexpected auction state %+v", auction)
	}

	history, err := service.ListBidsByBidder(ctx, "alice")
	if err != nil || len(history) != 1 {
		t.Errorf("Expected one bid for alice, got %d (%v)", len(history), err)
	}
}

func TestSettleAuction_WinnerDebited(t *testing.T) {
	service := setupTestService(t)
	observer := &recordingObserver{}
	service.AddObserver(observer)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	openTestAuction(t, service, "item-1", start)

	if _, err := service.PostCredit(ctx, creditParams("t1", "alice", rules.Level4Transaction)); err != nil {
		t.Fatalf("PostCredit failed: %v", err)
	}
	if _, err := service.RecordBid(ctx, store.RecordBidParams{
		ItemId: "item-1", BidderId: "alice", Amount: 12, ExpectedCurrentBid: 5, PlacedAt: start.Add(time.Hour),
	}); err != nil {
		t.Fatalf("RecordBid failed: %v", err)
	}

	if _, err := service.SettleAuction(ctx, "item-1", start.Add(time.Hour)); err == nil {
		t.Error("Expected error settling an open auction")
	}

	end := start.Add(72 * time.Hour)
	expired, err := service.ListExpiredAuctions(ctx, end)
	if err != nil || len(expired) != 1 {
		t.Fatalf("Expected one expired auction, got %d (%v)", len(expired), err)
	}

	result, err := service.SettleAuction(ctx, "item-1", end)
	if err != nil {
		t.Fatalf("SettleAuction failed: %v", err)
	}
	if result.Status != models.AuctionWinnerDetermined || result.WinnerId != "alice" || result.FinalBid != 12 {
		t.Errorf("Unexpected settlement %+v", result)
	}
	if result.TransactionId != "auction_win_item-1" {
		t.Errorf("Expected auction_win_item-1, got %s", result.TransactionId)
	}

	balance, _ := service.GetBalance(ctx, "alice")
	if balance != 38 {
		t.Errorf("Expected balance 38, got %d", balance)
	}

	again, err := service.SettleAuction(ctx, "item-1", end.Add(time.Hour))
	if err != nil {
		t.Fatalf("Second SettleAuction failed: %v", err)
	}
	if again != nil {
		t.Errorf("Expected no-op on second settlement, got %+v", again)
	}
	balance, _ = service.GetBalance(ctx, "alice")
	if balance != 38 {
		t.Errorf("Expected balance to stay 38, got %d", balance)
	}

	won, err := service.ListWonAuctions(ctx, "alice")
	if err != nil || len(won) != 1 || won[0].SettledAt == nil {
		t.Errorf("Expected one won auction with settled_at, got %+v (%v)", won, err)
	}

	service.flushObservers()
	ids := observer.ids()
	if len(ids) != 2 || ids[1] != "auction_win_item-1" {
		t.Errorf("Expected credit then auction debit observed, got %v", ids)
	}

	stats, err := service.GetAuctionStats(ctx)
	if err != nil {
		t.Fatalf("GetAuctionStats failed: %v", err)
	}
	if stats.TotalAuctions != 1 || stats.CompletedAuctions != 1 || stats.TotalBids != 1 || stats.TotalPointsSpent != 12 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestSettleAuction_NoWinner(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)
	openTestAuction(t, service, "quiet", start)
	openTestAuction(t, service, "broke", start)

	if _, err := service.RecordBid(ctx, store.RecordBidParams{
		ItemId: "broke", BidderId: "bob", Amount: 20, ExpectedCurrentBid: 5, PlacedAt: start.Add(time.Hour),
	}); err != nil {
		t.Fatalf("RecordBid failed: %v", err)
	}

	quiet, err := service.SettleAuction(ctx, "quiet", end)
	if err != nil {
		t.Fatalf("SettleAuction failed: %v", err)
	}
	if quiet.Status != models.AuctionNoWinner || quiet.Note != SettlementNoteNoBids {
		t.Errorf("Unexpected settlement %+v", quiet)
	}

	broke, err := service.SettleAuction(ctx, "broke", end)
	if err != nil {
		t.Fatalf("SettleAuction failed: %v", err)
	}
	if broke.Status != models.AuctionNoWinner || broke.Note != SettlementNoteInsufficientBalance || broke.WinnerId != "" {
		t.Errorf("Unexpected settlement %+v", broke)
	}

	auctions, err := service.ListAuctions(ctx, models.AuctionNoWinner)
	if err != nil || len(auctions) != 2 {
		t.Errorf("Expected two no_winner auctions, got %d (%v)", len(auctions), err)
	}
	active, _ := service.ListAuctions(ctx, models.AuctionActive)
	if len(active) != 0 {
		t.Errorf("Expected no active auctions, got %d", len(active))
	}
	all, _ := service.ListAuctions(ctx, "")
	if len(all) != 2 {
		t.Errorf("Expected two auctions in total, got %d", len(all))
	}
}
