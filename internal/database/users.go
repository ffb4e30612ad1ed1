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
	"errors"
	"fmt"
	"strings"

	"eco-loop-rewards-go/internal/models"

	"go.uber.org/zap"
)

func scanMember(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.Id, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// GetUsers lists members ordered by signup.
func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryGetActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("unable to query members: %w", err)
	}
	defer rows.Close()

	members := []models.User{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan member row: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.findMember(ctx, queryGetUserById, userId)
}

// GetUserByEmail matches case-insensitively; emails are stored lower-cased.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findMember(ctx, queryGetUserByEmail, normalizeEmail(email))
}

func (s *Service) findMember(ctx context.Context, query, key string) (*models.User, error) {
	member, err := scanMember(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query member: %w", err)
	}
	return &member, nil
}

// CreateUser registers a member. A taken id or email yields ErrUserExists.
func (s *Service) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if userId == "" || name == "" || email == "" {
		return nil, fmt.Errorf("member id, name and email are required")
	}

	result, err := s.db.ExecContext(ctx, queryInsertUser, userId, name, email)
	if err != nil {
		return nil, fmt.Errorf("unable to insert member: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("%w: id %s or email %s", ErrUserExists, userId, email)
	}

	zap.L().Info("Member created", zap.String("user_id", userId), zap.String("email", email))
	return s.GetUserById(ctx, userId)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
