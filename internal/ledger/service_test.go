package ledger

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"eco-loop-rewards-go/internal/database"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
)

func setupTestLedger(t *testing.T) (*Service, func()) {
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "points.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return NewService(db), db.Close
}

func TestCredit_DuplicatePrevention(t *testing.T) {
	service, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	result, err := service.Credit(ctx, "user1", rules.Level3SmallReturn, "tx1", map[string]string{})
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if !result.Success || result.NewBalance != 10 || result.PointsAwarded != 10 {
		t.Fatalf("Unexpected credit result %+v", result)
	}
	if result.Message != "+10 EcoPoints earned for Small item return/donation" {
		t.Errorf("Unexpected message %q", result.Message)
	}

	again, err := service.Credit(ctx, "user1", rules.Level3SmallReturn, "tx1", nil)
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if again.Success || again.Reason != models.ReasonDuplicate {
		t.Errorf("Expected duplicate rejection, got %+v", again)
	}

	balance, err := service.Balance(ctx, "user1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 10 {
		t.Errorf("Expected balance 10, got %d", balance)
	}
}

func TestCredit_InvalidRule(t *testing.T) {
	service, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	for _, key := range []rules.Key{"NOT_A_RULE", rules.AuctionWin} {
		result, err := service.Credit(ctx, "user1", key, "tx-"+string(key), nil)
		if err != nil {
			t.Fatalf("Credit failed: %v", err)
		}
		if result.Success || result.Reason != models.ReasonInvalidRule {
			t.Errorf("Expected invalid_rule for %s, got %+v", key, result)
		}
	}

	result, _ := service.Credit(ctx, "user1", rules.Level3SmallReturn, "", nil)
	if result.Reason != models.ReasonInvalidRequest {
		t.Errorf("Expected invalid_request for empty transaction id, got %+v", result)
	}

	balance, _ := service.Balance(ctx, "user1")
	if balance != 0 {
		t.Errorf("Expected balance 0, got %d", balance)
	}
}

func TestDebit(t *testing.T) {
	service, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.Credit(ctx, "user1", rules.Level3MediumReturn, "tx1", nil); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	rejected, err := service.Debit(ctx, "user1", 25, "", nil)
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if rejected.Success || rejected.Reason != models.ReasonInsufficientBalance {
		t.Fatalf("Expected insufficient balance, got %+v", rejected)
	}
	if rejected.Message != "Insufficient points. Need 25, have 20" {
		t.Errorf("Unexpected message %q", rejected.Message)
	}

	result, err := service.Debit(ctx, "user1", 15, rules.ThriftLoopRedeem, map[string]string{"item_id": "i1"})
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if !result.Success || result.NewBalance != 5 || result.PointsDeducted != 15 {
		t.Fatalf("Unexpected debit result %+v", result)
	}
	if !regexp.MustCompile(`^THRIFTLOOP_REDEEM_\d+_[0-9a-f]{8}$`).MatchString(result.TransactionId) {
		t.Errorf("Unexpected transaction id %s", result.TransactionId)
	}

	invalid, _ := service.Debit(ctx, "user1", 1, rules.Level3SmallReturn, nil)
	if invalid.Reason != models.ReasonInvalidRule {
		t.Errorf("Expected invalid_rule for credit rule, got %+v", invalid)
	}
	zero, _ := service.Debit(ctx, "user1", 0, "", nil)
	if zero.Reason != models.ReasonInvalidRequest {
		t.Errorf("Expected invalid_request for zero points, got %+v", zero)
	}

	history, err := service.Transactions(ctx, "user1", "")
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(history) != 2 || history[1].PointsDelta != -15 || history[1].Metadata["item_id"] != "i1" {
		t.Errorf("Unexpected history %+v", history)
	}
}

func TestTransactionsByLevelAndStats(t *testing.T) {
	service, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	credits := []struct {
		key rules.Key
		id  string
	}{
		{rules.Level3SmallReturn, "a"},
		{rules.Level4Transaction, "b"},
		{rules.Level3CommunityDrive, "c"},
		{rules.WeeklyStreak, "d"},
	}
	for _, c := range credits {
		if _, err := service.Credit(ctx, "user1", c.key, c.id, nil); err != nil {
			t.Fatalf("Credit failed: %v", err)
		}
	}

	level3, err := service.TransactionsByLevel(ctx, "user1", 3)
	if err != nil {
		t.Fatalf("TransactionsByLevel failed: %v", err)
	}
	if len(level3) != 2 {
		t.Errorf("Expected 2 LEVEL3 entries, got %d", len(level3))
	}

	stats, err := service.Stats(ctx, "user1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalBalance != 95 || stats.TotalTransactions != 4 || stats.Level3Actions != 2 || stats.Level4Actions != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if stats.LastTransaction == nil || stats.LastTransaction.RuleKey != rules.WeeklyStreak {
		t.Errorf("Expected last transaction WEEKLY_STREAK, got %+v", stats.LastTransaction)
	}

	empty, err := service.Transactions(ctx, "nobody", "")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil history, got %v (%v)", empty, err)
	}
}

func TestReset(t *testing.T) {
	service, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.Credit(ctx, "user1", rules.Level4Transaction, "tx1", nil); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	refused, err := service.Reset(ctx, "user1", "yes please")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if refused.Success || refused.Reason != models.ReasonInvalidToken {
		t.Errorf("Expected invalid_token, got %+v", refused)
	}
	balance, _ := service.Balance(ctx, "user1")
	if balance != 50 {
		t.Errorf("Expected balance untouched at 50, got %d", balance)
	}

	done, err := service.Reset(ctx, "user1", ResetToken)
	if err != nil || !done.Success {
		t.Fatalf("Expected reset to succeed, got %+v (%v)", done, err)
	}
	balance, _ = service.Balance(ctx, "user1")
	if balance != 0 {
		t.Errorf("Expected balance 0 after reset, got %d", balance)
	}

	if err := service.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
