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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"eco-loop-rewards-go/internal/common"
	"eco-loop-rewards-go/internal/config"
	"eco-loop-rewards-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "Member's full name (required)")
	emailFlag := flag.String("email", "", "Member's email address (required)")
	deviceFlag := flag.String("device", "", "Device fingerprint used for referral checks (optional)")
	codeFlag := flag.String("code", "", "Referral code the member signed up with (optional)")
	flag.Parse()

	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	userId := uuid.New().String()
	user, err := services.Points.CreateUser(ctx, userId, *nameFlag, *emailFlag)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			zap.L().Fatal("Member already exists with this email", zap.String("email", *emailFlag))
		}
		zap.L().Fatal("Failed to create member", zap.Error(err))
	}

	signup, err := services.Referral.Register(ctx, user.Id, *deviceFlag, *codeFlag)
	if err != nil {
		zap.L().Fatal("Failed to register referral profile", zap.Error(err))
	}

	if services.Mirror != nil {
		if err := services.Mirror.SyncMember(ctx, *user); err != nil {
			zap.L().Warn("Failed to sync member to Formance", zap.Error(err))
		}
	}

	common.PrintHeader("MEMBER CREATED", common.DefaultWidth)
	fmt.Printf("ID:             %s\n", user.Id)
	fmt.Printf("Name:           %s\n", user.Name)
	fmt.Printf("Email:          %s\n", user.Email)
	fmt.Printf("Referral code:  %s\n", signup.User.ReferralCode)
	switch {
	case signup.ReferralApplied:
		fmt.Printf("Referred by:    %s\n", signup.User.ReferredByCode)
	case signup.Reason != "":
		fmt.Printf("Referral code rejected: %s\n", signup.Reason)
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("Member created successfully",
		zap.String("id", user.Id),
		zap.String("referral_code", signup.User.ReferralCode))
}
