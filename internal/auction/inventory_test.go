package auction

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"eco-loop-rewards-go/internal/catalog"
	"eco-loop-rewards-go/internal/database"
	"eco-loop-rewards-go/internal/ledger"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
)

func setupCatalogAuction(t *testing.T) (*Service, *catalog.Store, *database.Service, *time.Time) {
	t.Helper()
	points, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "points.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open points database: %v", err)
	}
	t.Cleanup(points.Close)

	gdb, err := catalog.InitDB(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Failed to open catalog database: %v", err)
	}
	items := catalog.NewStore(gdb, ledger.NewService(points))
	t.Cleanup(items.Close)

	clock := time.Now().UTC().AddDate(0, 0, 31)
	service := NewService(points, points, items, models.DefaultProgramConfig().Auction)
	service.now = func() time.Time { return clock }
	return service, items, points, &clock
}

func listItem(t *testing.T, items *catalog.Store, name string) *models.ThriftItem {
	t.Helper()
	item, err := items.AddItem(context.Background(), catalog.NewItemParams{
		ItemName:      name,
		Category:      "furniture",
		EcoPointsCost: 40,
		HubID:         "hub-downtown",
	})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	return item
}

func TestAuctionedItemCannotBeRedeemed(t *testing.T) {
	service, items, points, clock := setupCatalogAuction(t)
	ctx := context.Background()
	item := listItem(t, items, "Oak Dresser")
	fund(t, points, "bidder", rules.Level4MaterialMatch, "fund-bidder")
	fund(t, points, "buyer", rules.Level4Transaction, "fund-buyer")

	opened, err := service.ConvertEligible(ctx)
	if err != nil || opened != 1 {
		t.Fatalf("Expected one auction opened, got %d %v", opened, err)
	}
	bid, err := service.PlaceBid(ctx, item.ID, "bidder", 40)
	if err != nil || !bid.Success {
		t.Fatalf("Bid failed: %v %+v", err, bid)
	}

	redeem, err := items.Redeem(ctx, item.ID, "buyer")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if redeem.Success || redeem.Reason != catalog.ReasonItemUnavailable {
		t.Errorf("Expected redeem of an auctioned item to be refused, got %+v", redeem)
	}
	if err := items.DeleteItem(ctx, item.ID); !errors.Is(err, catalog.ErrItemUnavailable) {
		t.Errorf("Expected delete of an auctioned item to be refused, got %v", err)
	}
	if balance, _ := points.GetBalance(ctx, "buyer"); balance != 50 {
		t.Errorf("Expected buyer balance untouched at 50, got %d", balance)
	}

	*clock = clock.Add(73 * time.Hour)
	settled, err := service.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(settled) != 1 || settled[0].WinnerId != "bidder" {
		t.Fatalf("Unexpected settlement %+v", settled)
	}

	pickups, err := items.ListRedemptions(ctx, "bidder")
	if err != nil {
		t.Fatalf("ListRedemptions failed: %v", err)
	}
	if len(pickups) != 1 || pickups[0].PointsSpent != 40 || pickups[0].ItemID != item.ID {
		t.Errorf("Expected one pickup for the winner, got %+v", pickups)
	}
	won, _ := items.GetItem(ctx, item.ID)
	if won.Status != models.ItemAuctionWon {
		t.Errorf("Expected item %s, got %s", models.ItemAuctionWon, won.Status)
	}
	if balance, _ := points.GetBalance(ctx, "bidder"); balance != 0 {
		t.Errorf("Expected bidder charged to 0, got %d", balance)
	}
}

func TestUnsoldItemReturnsToShelf(t *testing.T) {
	service, items, points, clock := setupCatalogAuction(t)
	ctx := context.Background()
	item := listItem(t, items, "Brass Lamp")
	fund(t, points, "buyer", rules.Level4Transaction, "fund-buyer")

	if _, err := service.ConvertEligible(ctx); err != nil {
		t.Fatalf("ConvertEligible failed: %v", err)
	}
	*clock = clock.Add(73 * time.Hour)
	settled, err := service.Finalize(ctx)
	if err != nil || len(settled) != 1 || settled[0].Status != models.AuctionNoWinner {
		t.Fatalf("Expected a no_winner settlement, got %+v %v", settled, err)
	}

	// Already auctioned once, so a later sweep leaves it on the shelf.
	if opened, err := service.ConvertEligible(ctx); err != nil || opened != 0 {
		t.Fatalf("Expected no new auction, got %d %v", opened, err)
	}

	redeem, err := items.Redeem(ctx, item.ID, "buyer")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if !redeem.Success {
		t.Errorf("Expected unsold item to be redeemable, got %+v", redeem)
	}
}
