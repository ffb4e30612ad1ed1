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

// Package ledger is the points ledger API used by the reward subsystems,
// the HTTP layer and the CLIs. Business rejections come back as result
// structs; errors are reserved for infrastructure failures.
package ledger

import (
	"context"
	"fmt"

	"eco-loop-rewards-go/internal/store"
)

// ResetToken must accompany every reset request.
const ResetToken = "RESET_CONFIRMED"

type Service struct {
	store store.LedgerStore
}

func NewService(s store.LedgerStore) *Service {
	return &Service{
		store: s,
	}
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if _, err := s.store.GetUsers(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
