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

// Package catalog persists the ThriftLoop side of the platform: hubs, thrift
// items and their redemptions, contact messages and impact records.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrItemNotFound        = errors.New("item not found")
	ErrItemUnavailable     = errors.New("item is not available")
	ErrMessageNotFound     = errors.New("message not found")
	ErrRedemptionNotFound  = errors.New("redemption not found")
	ErrInvalidStatusChange = errors.New("invalid redemption status change")
)

// ValidationError is a request the caller must fix; Message is client-safe.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Debiter spends a member's points.
type Debiter interface {
	Debit(ctx context.Context, userId string, points int64, ruleKey rules.Key, metadata map[string]string) (*models.DebitResult, error)
}

type Store struct {
	db     *gorm.DB
	ledger Debiter
	now    func() time.Time
}

// InitDB opens the catalog database and migrates its tables. A bare path
// gets the busy timeout and WAL parameters; a DSN with a query string is
// used as-is.
func InitDB(path string) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(path, "?") {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run catalog migrations: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Hub{},
		&models.ThriftItem{},
		&models.Redemption{},
		&models.ContactMessage{},
		&models.ImpactRecord{},
	)
}

// NewStore wraps an opened catalog database. ledger may be nil for tools
// that never redeem.
func NewStore(db *gorm.DB, ledger Debiter) *Store {
	return &Store{
		db:     db,
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *Store) ListHubs(ctx context.Context) ([]models.Hub, error) {
	hubs := []models.Hub{}
	if err := s.db.WithContext(ctx).Order("id").Find(&hubs).Error; err != nil {
		return nil, fmt.Errorf("failed to list hubs: %w", err)
	}
	return hubs, nil
}
