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
	"fmt"
	"sync"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.PointsStore.
var _ store.PointsStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService

	observersMu sync.RWMutex
	observers   []store.CommitObserver

	notifyMu   sync.RWMutex
	notify     chan commitBatch
	notifyDone chan struct{}
	closed     bool
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dsn(cfg.Path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(cerr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service, err := newServiceWithDB(db, cfg.CreateDummyUsers)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(cerr))
		}
		return nil, err
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// newServiceWithDB wires the service around an open handle and creates all tables.
func newServiceWithDB(db *sql.DB, createDummyUsers bool) (*Service, error) {
	subledger := NewSubledgerService(db)
	service := &Service{db: db, subledger: subledger}

	if err := subledger.InitSchema(); err != nil {
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}
	if err := service.initSchema(createDummyUsers); err != nil {
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}
	service.startNotifier()
	return service, nil
}

// Close delivers queued commit notifications and closes the database.
func (s *Service) Close() {
	s.stopNotifier()
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) initSchema(createDummyUsers bool) error {
	schema := `
	-- Program members
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Referral records; referred_by_user_id is set only at creation
	CREATE TABLE IF NOT EXISTS referral_users (
		user_id TEXT PRIMARY KEY,
		referral_code TEXT NOT NULL UNIQUE,
		referred_by_user_id TEXT,
		referred_by_code TEXT,
		referral_reward_given BOOLEAN NOT NULL DEFAULT 0,
		first_action_completed_at TIMESTAMP,
		device_fingerprint TEXT NOT NULL DEFAULT '',
		total_referrals_accepted INTEGER NOT NULL DEFAULT 0,
		total_referrals_rewarded INTEGER NOT NULL DEFAULT 0,
		total_points_earned INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_referral_users_referrer ON referral_users(referred_by_user_id);
	CREATE INDEX IF NOT EXISTS idx_referral_users_device ON referral_users(device_fingerprint);

	CREATE TABLE IF NOT EXISTS referral_audit (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	);

	-- Weekly streaks
	CREATE TABLE IF NOT EXISTS streaks (
		user_id TEXT PRIMARY KEY,
		last_action_date TIMESTAMP,
		current_count INTEGER NOT NULL DEFAULT 0,
		last_week_key TEXT NOT NULL DEFAULT '',
		milestone_reached INTEGER NOT NULL DEFAULT 0,
		longest_count INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL
	);

	-- Upcycle auctions
	CREATE TABLE IF NOT EXISTS auctions (
		item_id TEXT PRIMARY KEY,
		item_name TEXT NOT NULL,
		hub_id TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		starting_bid INTEGER NOT NULL,
		current_bid INTEGER NOT NULL,
		highest_bidder_id TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		winner_id TEXT,
		final_bid INTEGER NOT NULL DEFAULT 0,
		settled_at TIMESTAMP,
		settlement_note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_auctions_status_end ON auctions(status, end_date);
	CREATE INDEX IF NOT EXISTS idx_auctions_winner ON auctions(winner_id);

	CREATE TABLE IF NOT EXISTS bids (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		item_id TEXT NOT NULL REFERENCES auctions(item_id),
		bidder_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		placed_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bids_item ON bids(item_id);
	CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder_id);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return err
	}

	// Insert 3 dummy members for testing if configured to do so
	if createDummyUsers {
		users := []struct {
			id    string
			name  string
			email string
		}{
			{uuid.New().String(), "Alice Johnson", "alice.johnson@example.com"},
			{uuid.New().String(), "Bob Smith", "bob.smith@example.com"},
			{uuid.New().String(), "Carol Williams", "carol.williams@example.com"},
		}

		for _, user := range users {
			_, err := s.db.Exec(queryInsertUser, user.id, user.name, user.email)
			if err != nil {
				zap.L().Error("Failed to insert dummy user", zap.String("name", user.name), zap.Error(err))
			} else {
				zap.L().Info("Dummy user created", zap.String("id", user.id), zap.String("name", user.name))
			}
		}
	} else {
		zap.L().Info("Skipping dummy user creation (CREATE_DUMMY_USERS=false)")
	}

	return nil
}
