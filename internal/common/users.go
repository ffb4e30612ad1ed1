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

package common

import (
	"context"
	"fmt"

	"eco-loop-rewards-go/internal/store"

	"go.uber.org/zap"
)

// UserInfo is the member summary shown by command-line tools
type UserInfo struct {
	Id    string
	Name  string
	Email string
}

// UserFilter narrows a member lookup; the zero value selects everyone.
type UserFilter struct {
	UserId string
	Email  string
}

// ResolveUsers returns the members selected by filter. A user id wins over
// an email when both are set.
func ResolveUsers(ctx context.Context, ledgerStore store.LedgerStore, filter UserFilter) ([]UserInfo, error) {
	switch {
	case filter.UserId != "":
		zap.L().Info("Looking up member by id", zap.String("user_id", filter.UserId))
		user, err := ledgerStore.GetUserById(ctx, filter.UserId)
		if err != nil {
			return nil, fmt.Errorf("member not found: %w", err)
		}
		return []UserInfo{{Id: user.Id, Name: user.Name, Email: user.Email}}, nil

	case filter.Email != "":
		zap.L().Info("Looking up member by email", zap.String("email", filter.Email))
		user, err := ledgerStore.GetUserByEmail(ctx, filter.Email)
		if err != nil {
			return nil, fmt.Errorf("member not found: %w", err)
		}
		return []UserInfo{{Id: user.Id, Name: user.Name, Email: user.Email}}, nil
	}

	all, err := ledgerStore.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	users := make([]UserInfo, 0, len(all))
	for _, u := range all {
		users = append(users, UserInfo{Id: u.Id, Name: u.Name, Email: u.Email})
	}

	zap.L().Info("Retrieved members", zap.Int("count", len(users)))
	return users, nil
}
