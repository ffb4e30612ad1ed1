package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is a fresh database
	db.SetMaxOpenConns(1)

	service, err := newServiceWithDB(db, false)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(service.Close)
	return service
}

func setupFileService(t *testing.T) *Service {
	t.Helper()

	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "points.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func creditParams(txId, userId string, key rules.Key) store.EntryParams {
	rule, _ := rules.Lookup(key)
	return store.EntryParams{
		TransactionId: txId,
		UserId:        userId,
		RuleKey:       rule.Key,
		Points:        rule.Points,
		Label:         rule.Label,
	}
}

func debitParams(txId, userId string, key rules.Key, points int64) store.EntryParams {
	rule, _ := rules.Lookup(key)
	return store.EntryParams{
		TransactionId: txId,
		UserId:        userId,
		RuleKey:       rule.Key,
		Points:        points,
		Label:         rule.Label,
	}
}

type recordingObserver struct {
	mu  sync.Mutex
	txs []models.Transaction
}

func (o *recordingObserver) TransactionsCommitted(_ context.Context, txs []models.Transaction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.txs = append(o.txs, txs...)
}

func (o *recordingObserver) ids() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.txs))
	for _, tx := range o.txs {
		ids = append(ids, tx.Id)
	}
	return ids
}

func TestNewService_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := NewService(ctx, models.DatabaseConfig{}); err == nil {
		t.Error("Expected error for empty path")
	}
	if _, err := NewService(ctx, models.DatabaseConfig{Path: "x.db"}); err == nil {
		t.Error("Expected error for zero max open connections")
	}
	if _, err := NewService(ctx, models.DatabaseConfig{Path: "x.db", MaxOpenConns: 1}); err == nil {
		t.Error("Expected error for zero ping timeout")
	}
}

func TestDSN(t *testing.T) {
	got := dsn("/tmp/points.db", 2*time.Second)
	want := "/tmp/points.db?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=2000&_txlock=immediate&_foreign_keys=1"
	if got != want {
		t.Errorf("Expected dsn %s, got %s", want, got)
	}
}
