package auction

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"eco-loop-rewards-go/internal/database"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"
)

type fakeInventory struct {
	mu       sync.Mutex
	items    []models.InventoryItem
	status   map[string]string
	won      map[string]string
	released []string
}

func (f *fakeInventory) ListStaleItems(_ context.Context, listedBefore time.Time) ([]models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stale []models.InventoryItem
	for _, item := range f.items {
		if status, ok := f.status[item.Id]; ok && status != models.ItemAvailable {
			continue
		}
		if !item.ListedAt.After(listedBefore) {
			stale = append(stale, item)
		}
	}
	return stale, nil
}

func (f *fakeInventory) ReserveForAuction(_ context.Context, itemId string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.status[itemId]; ok && status != models.ItemAvailable {
		return false, nil
	}
	f.status[itemId] = models.ItemInAuction
	return true, nil
}

func (f *fakeInventory) ReleaseFromAuction(_ context.Context, itemId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status[itemId] == models.ItemInAuction {
		f.status[itemId] = models.ItemAvailable
		f.released = append(f.released, itemId)
	}
	return nil
}

func (f *fakeInventory) MarkAuctionWon(_ context.Context, settlement models.SettlementResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[settlement.ItemId] = models.ItemAuctionWon
	f.won[settlement.ItemId] = settlement.WinnerId
	return nil
}

var start = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func setupAuctionService(t *testing.T) (*Service, *database.Service, *fakeInventory, *time.Time) {
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "points.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(db.Close)

	inventory := &fakeInventory{
		items: []models.InventoryItem{
			{Id: "item-old", Name: "Vintage Lamp", HubId: "hub-downtown", ListedAt: start.AddDate(0, 0, -45)},
			{Id: "item-new", Name: "Desk Chair", HubId: "hub-central", ListedAt: start.AddDate(0, 0, -3)},
		},
		status: map[string]string{},
		won:    map[string]string{},
	}

	clock := start
	service := NewService(db, db, inventory, models.DefaultProgramConfig().Auction)
	service.now = func() time.Time { return clock }
	return service, db, inventory, &clock
}

func fund(t *testing.T, db *database.Service, userId string, key rules.Key, txId string) {
	rule, _ := rules.Lookup(key)
	if _, err := db.PostCredit(context.Background(), store.EntryParams{
		TransactionId: txId,
		UserId:        userId,
		RuleKey:       rule.Key,
		Points:        rule.Points,
		Label:         rule.Label,
	}); err != nil {
		t.Fatalf("Failed to fund %s: %v", userId, err)
	}
}

func TestConvertEligible_Idempotent(t *testing.T) {
	service, _, inventory, _ := setupAuctionService(t)
	ctx := context.Background()

	opened, err := service.ConvertEligible(ctx)
	if err != nil {
		t.Fatalf("ConvertEligible failed: %v", err)
	}
	if opened != 1 {
		t.Fatalf("Expected 1 auction opened, got %d", opened)
	}
	if inventory.status["item-old"] != models.ItemInAuction {
		t.Errorf("Expected item-old reserved, got %q", inventory.status["item-old"])
	}

	opened, err = service.ConvertEligible(ctx)
	if err != nil {
		t.Fatalf("ConvertEligible failed: %v", err)
	}
	if opened != 0 {
		t.Errorf("Expected no new auctions on the second run, got %d", opened)
	}

	auction, err := service.Get(ctx, "item-old")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if auction.Status != models.AuctionActive || auction.CurrentBid != 5 || !auction.EndDate.Equal(start.Add(72*time.Hour)) {
		t.Errorf("Unexpected auction %+v", auction)
	}
}

func TestPlaceBid_Rejections(t *testing.T) {
	service, db, _, clock := setupAuctionService(t)
	ctx := context.Background()
	fund(t, db, "alice", rules.Level3SmallReturn, "fund-alice")

	if _, err := service.ConvertEligible(ctx); err != nil {
		t.Fatalf("ConvertEligible failed: %v", err)
	}

	tests := []struct {
		name   string
		itemId string
		amount int64
		reason string
	}{
		{"unknown item", "nope", 10, ReasonNotFound},
		{"equal to starting bid", "item-old", 5, "Bid must be at least 6 EcoPoints (current: 5)"},
		{"over balance", "item-old", 11, "Insufficient EcoPoints balance (have 10, need 11)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.PlaceBid(ctx, tt.itemId, "alice", tt.amount)
			if err != nil {
				t.Fatalf("PlaceBid failed: %v", err)
			}
			if result.Success || result.Reason != tt.reason {
				t.Errorf("Expected %q, got %+v", tt.reason, result)
			}
		})
	}

	ok, err := service.PlaceBid(ctx, "item-old", "alice", 6)
	if err != nil {
		t.Fatalf("PlaceBid failed: %v", err)
	}
	if !ok.Success || ok.CurrentBid != 6 {
		t.Fatalf("Expected bid accepted, got %+v", ok)
	}

	low, _ := service.PlaceBid(ctx, "item-old", "alice", 6)
	if low.Success || low.Reason != "Bid must be at least 7 EcoPoints (current: 6)" {
		t.Errorf("Expected increment rejection, got %+v", low)
	}

	*clock = clock.Add(72 * time.Hour)
	ended, _ := service.PlaceBid(ctx, "item-old", "alice", 8)
	if ended.Success || ended.Reason != ReasonEnded {
		t.Errorf("Expected ended rejection, got %+v", ended)
	}
}

func TestFinalize_ChargesWinnerOnce(t *testing.T) {
	service, db, inventory, clock := setupAuctionService(t)
	ctx := context.Background()
	fund(t, db, "alice", rules.Level3MediumReturn, "fund-alice")
	fund(t, db, "bob", rules.Level3CommunityDrive, "fund-bob")

	if _, err := service.ConvertEligible(ctx); err != nil {
		t.Fatalf("ConvertEligible failed: %v", err)
	}
	for _, bid := range []struct {
		bidder string
		amount int64
	}{{"alice", 8}, {"bob", 12}, {"alice", 15}} {
		result, err := service.PlaceBid(ctx, "item-old", bid.bidder, bid.amount)
		if err != nil || !result.Success {
			t.Fatalf("Bid %+v failed: %v %+v", bid, err, result)
		}
	}

	// Not yet ended.
	settled, err := service.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(settled) != 0 {
		t.Fatalf("Expected nothing settled before end, got %+v", settled)
	}

	*clock = clock.Add(73 * time.Hour)
	settled, err = service.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(settled) != 1 || settled[0].WinnerId != "alice" || settled[0].FinalBid != 15 {
		t.Fatalf("Unexpected settlement %+v", settled)
	}

	again, err := service.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("Expected second finalize to be a no-op, got %+v", again)
	}

	balance, _ := db.GetBalance(ctx, "alice")
	if balance != 5 {
		t.Errorf("Expected alice balance 5, got %d", balance)
	}
	bobBalance, _ := db.GetBalance(ctx, "bob")
	if bobBalance != 30 {
		t.Errorf("Expected bob balance untouched at 30, got %d", bobBalance)
	}
	if inventory.won["item-old"] != "alice" || inventory.status["item-old"] != models.ItemAuctionWon {
		t.Errorf("Expected inventory marked won by alice, got %+v", inventory.won)
	}

	wins, err := service.UserWins(ctx, "alice")
	if err != nil {
		t.Fatalf("UserWins failed: %v", err)
	}
	if len(wins) != 1 || wins[0].ItemId != "item-old" {
		t.Errorf("Unexpected wins %+v", wins)
	}
	bids, _ := service.UserBidHistory(ctx, "alice")
	if len(bids) != 2 {
		t.Errorf("Expected 2 bids for alice, got %d", len(bids))
	}
}

func TestList_FinalizesLazily(t *testing.T) {
	service, _, inventory, clock := setupAuctionService(t)
	ctx := context.Background()

	if _, err := service.ConvertEligible(ctx); err != nil {
		t.Fatalf("ConvertEligible failed: %v", err)
	}

	*clock = clock.Add(80 * time.Hour)
	active, err := service.List(ctx, models.AuctionActive)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected no active auctions after end, got %+v", active)
	}

	all, err := service.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 || all[0].Status != models.AuctionNoWinner {
		t.Errorf("Expected one no_winner auction, got %+v", all)
	}
	if inventory.status["item-old"] != models.ItemAvailable || len(inventory.won) != 0 {
		t.Errorf("Expected unsold item back on the shelf, got %+v", inventory.status)
	}

	stats, err := service.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalAuctions != 1 || stats.ActiveAuctions != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestSweeper_Sweep(t *testing.T) {
	service, _, _, _ := setupAuctionService(t)
	ctx := context.Background()

	NewSweeper(service, time.Minute).Sweep(ctx)

	auctions, err := service.List(ctx, models.AuctionActive)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(auctions) != 1 {
		t.Errorf("Expected sweep to open 1 auction, got %d", len(auctions))
	}
}
