package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
)

func TestPostCredit_SmallReturn(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	tx, err := service.PostCredit(ctx, creditParams("t1", "user_a", rules.Level3SmallReturn))
	if err != nil {
		t.Fatalf("PostCredit failed: %v", err)
	}

	if tx.PointsDelta != 10 {
		t.Errorf("Expected delta 10, got %d", tx.PointsDelta)
	}
	if tx.BalanceBefore != 0 || tx.BalanceAfter != 10 {
		t.Errorf("Expected balance 0 -> 10, got %d -> %d", tx.BalanceBefore, tx.BalanceAfter)
	}
	if tx.Source != models.SourceInternal {
		t.Errorf("Expected source %s, got %s", models.SourceInternal, tx.Source)
	}

	balance, err := service.GetBalance(ctx, "user_a")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 10 {
		t.Errorf("Expected balance 10, got %d", balance)
	}

	processed, err := service.IsProcessed(ctx, "t1")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !processed {
		t.Error("Expected t1 to be in the processed set")
	}

	var journalCount int
	if err := service.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journal_entries WHERE transaction_id = ?", "t1").Scan(&journalCount); err != nil {
		t.Fatalf("Failed to count journal entries: %v", err)
	}
	if journalCount != 2 {
		t.Errorf("Expected 2 journal entries, got %d", journalCount)
	}
}

func TestPostCredit_DuplicateHandling(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	if _, err := service.PostCredit(ctx, creditParams("dup", "user_a", rules.Level3SmallReturn)); err != nil {
		t.Fatalf("First PostCredit failed: %v", err)
	}

	_, err := service.PostCredit(ctx, creditParams("dup", "user_a", rules.Level3SmallReturn))
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("Expected duplicate transaction error, got: %v", err)
	}

	// Same id for another member is still a duplicate
	_, err = service.PostCredit(ctx, creditParams("dup", "user_b", rules.Level3SmallReturn))
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("Expected duplicate transaction error, got: %v", err)
	}

	balance, _ := service.GetBalance(ctx, "user_a")
	if balance != 10 {
		t.Errorf("Expected balance 10, got %d", balance)
	}
	history, err := service.GetTransactions(ctx, "user_a", "", 0)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("Expected 1 transaction, got %d", len(history))
	}
}

func TestPostDebit_InsufficientBalance(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	if _, err := service.PostCredit(ctx, creditParams("t1", "user_a", rules.Level3MediumReturn)); err != nil {
		t.Fatalf("PostCredit failed: %v", err)
	}

	_, err := service.PostDebit(ctx, debitParams("d1", "user_a", rules.EcoPointsRedemption, 25))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected insufficient balance error, got: %v", err)
	}

	balance, _ := service.GetBalance(ctx, "user_a")
	if balance != 20 {
		t.Errorf("Expected balance 20, got %d", balance)
	}

	tx, err := service.PostDebit(ctx, debitParams("d2", "user_a", rules.EcoPointsRedemption, 20))
	if err != nil {
		t.Fatalf("PostDebit failed: %v", err)
	}
	if tx.PointsDelta != -20 || tx.BalanceAfter != 0 {
		t.Errorf("Expected delta -20 and balance 0, got %d and %d", tx.PointsDelta, tx.BalanceAfter)
	}
	if err := service.ReconcileBalance(ctx, "user_a"); err != nil {
		t.Errorf("ReconcileBalance failed: %v", err)
	}
}

func TestPostDebit_UnknownMemberHasNothing(t *testing.T) {
	service := setupTestService(t)

	_, err := service.PostDebit(context.Background(), debitParams("d1", "ghost", rules.ThriftLoopRedeem, 1))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected insufficient balance error, got: %v", err)
	}
}

func TestPostEntry_RejectsNonPositivePoints(t *testing.T) {
	service := setupTestService(t)

	params := creditParams("t0", "user_a", rules.Level3SmallReturn)
	params.Points = 0
	if _, err := service.PostCredit(context.Background(), params); err == nil {
		t.Fatal("Expected error for zero points")
	}
}

func TestGetTransactions_PrefixAndLimit(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	keys := []rules.Key{rules.Level3SmallReturn, rules.Level4MaterialMatch, rules.Level3CommunityDrive, rules.WeeklyStreak}
	for i, key := range keys {
		if _, err := service.PostCredit(ctx, creditParams(string(rune('a'+i)), "user_a", key)); err != nil {
			t.Fatalf("PostCredit %s failed: %v", key, err)
		}
	}

	level3, err := service.GetTransactions(ctx, "user_a", "LEVEL3", 0)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(level3) != 2 {
		t.Fatalf("Expected 2 LEVEL3 transactions, got %d", len(level3))
	}
	if level3[0].RuleKey != rules.Level3SmallReturn || level3[1].RuleKey != rules.Level3CommunityDrive {
		t.Errorf("Unexpected LEVEL3 order: %s, %s", level3[0].RuleKey, level3[1].RuleKey)
	}

	latest, err := service.GetTransactions(ctx, "user_a", "", 2)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(latest))
	}
	if latest[0].RuleKey != rules.Level3CommunityDrive || latest[1].RuleKey != rules.WeeklyStreak {
		t.Errorf("Expected the two most recent in order, got %s, %s", latest[0].RuleKey, latest[1].RuleKey)
	}
	if latest[1].BalanceAfter != 10+40+30+5 {
		t.Errorf("Expected running balance 85, got %d", latest[1].BalanceAfter)
	}
}

func TestPostCredit_NotifiesObservers(t *testing.T) {
	service := setupTestService(t)
	observer := &recordingObserver{}
	service.AddObserver(observer)
	ctx := context.Background()

	if _, err := service.PostCredit(ctx, creditParams("t1", "user_a", rules.Level3SmallReturn)); err != nil {
		t.Fatalf("PostCredit failed: %v", err)
	}
	_, _ = service.PostCredit(ctx, creditParams("t1", "user_a", rules.Level3SmallReturn))
	_, _ = service.PostDebit(ctx, debitParams("d1", "user_a", rules.EcoPointsRedemption, 100))

	service.flushObservers()
	ids := observer.ids()
	if len(ids) != 1 || ids[0] != "t1" {
		t.Errorf("Expected only t1 to be observed, got %v", ids)
	}
}

type delivery struct {
	txs []models.Transaction
	err error
}

type blockingObserver struct {
	release chan struct{}
	seen    chan delivery
}

func (o *blockingObserver) TransactionsCommitted(ctx context.Context, txs []models.Transaction) {
	select {
	case <-o.release:
	case <-ctx.Done():
	}
	o.seen <- delivery{txs: txs, err: ctx.Err()}
}

func TestPostCredit_DoesNotWaitForObservers(t *testing.T) {
	service := setupTestService(t)
	observer := &blockingObserver{release: make(chan struct{}), seen: make(chan delivery, 2)}
	service.AddObserver(observer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := service.PostCredit(ctx, creditParams("slow-1", "user_a", rules.Level3SmallReturn))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PostCredit failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("PostCredit blocked on a stalled observer")
	}

	// The request is over; delivery must not inherit its cancellation.
	cancel()
	close(observer.release)
	select {
	case got := <-observer.seen:
		if got.err != nil {
			t.Errorf("Expected a live context for delivery, got %v", got.err)
		}
		if len(got.txs) != 1 || got.txs[0].Id != "slow-1" {
			t.Errorf("Expected slow-1 delivered, got %+v", got.txs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Observer never received the committed transaction")
	}
}

func TestPostDebit_ConcurrentNeverOverdraws(t *testing.T) {
	service := setupFileService(t)
	ctx := context.Background()

	for i, key := range []rules.Key{rules.Level4Transaction, rules.Level4Transaction} {
		if _, err := service.PostCredit(ctx, creditParams(string(rune('a'+i)), "user_a", key)); err != nil {
			t.Fatalf("PostCredit failed: %v", err)
		}
	}

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.PostDebit(ctx, debitParams(string(rune('A'+i)), "user_a", rules.ThriftLoopRedeem, 20))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientBalance):
				insufficient++
			default:
				t.Errorf("Unexpected debit error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 5 || insufficient != 5 {
		t.Errorf("Expected 5 successes and 5 rejections, got %d and %d", succeeded, insufficient)
	}
	balance, err := service.GetBalance(ctx, "user_a")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("Expected balance 0, got %d", balance)
	}
	if err := service.ReconcileBalance(ctx, "user_a"); err != nil {
		t.Errorf("ReconcileBalance failed: %v", err)
	}
}
