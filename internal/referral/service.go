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

package referral

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"

	"go.uber.org/zap"
)

// Rejection reasons for referral codes
const (
	ReasonInvalidFormat   = "Invalid referral code format"
	ReasonCodeNotFound    = "Referral code not found"
	ReasonSelfReferral    = "Cannot refer yourself"
	ReasonDuplicateDevice = "Duplicate registration detected"
	ReasonLimitExceeded   = "Referral limit exceeded for this code"
)

// First-action types that can unlock the referral bonus
const (
	ActionReturn   = "return"
	ActionDonation = "donation"
)

type Service struct {
	store    store.ReferralStore
	settings models.ReferralSettings
	pattern  *regexp.Regexp
	now      func() time.Time
	generate func() (string, error)
}

func NewService(s store.ReferralStore, settings models.ReferralSettings) *Service {
	defaults := models.DefaultProgramConfig().Referral
	if settings.CodePrefix == "" {
		settings.CodePrefix = defaults.CodePrefix
	}
	if settings.CodeLength <= 0 {
		settings.CodeLength = defaults.CodeLength
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaults.MaxAttempts
	}
	if settings.MaxReferralsPerUser <= 0 {
		settings.MaxReferralsPerUser = defaults.MaxReferralsPerUser
	}
	if settings.AuditLogLimit <= 0 {
		settings.AuditLogLimit = defaults.AuditLogLimit
	}

	service := &Service{
		store:    s,
		settings: settings,
		pattern:  codePattern(settings.CodePrefix, settings.CodeLength),
		now:      time.Now,
	}
	service.generate = func() (string, error) {
		return randomCode(settings.CodePrefix, settings.CodeLength)
	}
	return service
}

// IsValidCodeFormat reports whether code matches PREFIX-XXXX after normalization.
func (s *Service) IsValidCodeFormat(code string) bool {
	return s.pattern.MatchString(NormalizeCode(code))
}

// GenerateCode returns a code no member holds yet.
func (s *Service) GenerateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.settings.MaxAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return "", err
		}
		exists, err := s.store.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	zap.L().Error("Referral code space exhausted", zap.Int("attempts", s.settings.MaxAttempts))
	return "", ErrGenerationExhausted
}

// Register returns the member's referral record, creating it on first call.
// A supplied code that fails validation does not block signup: the member is
// created without a referrer and the rejection is audited.
func (s *Service) Register(ctx context.Context, userId, deviceFingerprint, code string) (*models.ReferralSignupResult, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	existing, err := s.store.GetReferralUser(ctx, userId)
	if err == nil {
		return &models.ReferralSignupResult{User: existing}, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	code = NormalizeCode(code)
	var validation *models.ReferralValidation
	if code != "" {
		validation, err = s.validate(ctx, userId, deviceFingerprint, code)
		if err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < s.settings.MaxAttempts; attempt++ {
		newCode, err := s.GenerateCode(ctx)
		if err != nil {
			return nil, err
		}

		params := store.NewReferralUserParams{
			UserId:            userId,
			ReferralCode:      newCode,
			DeviceFingerprint: deviceFingerprint,
			MaxReferrals:      s.settings.MaxReferralsPerUser,
			AuditLimit:        s.settings.AuditLogLimit,
		}
		if validation != nil && validation.Success {
			params.ReferredByUserId = validation.ReferrerId
			params.ReferredByCode = validation.ReferralCode
			params.AuditEventType = store.AuditReferralAccepted
			params.AuditData = map[string]string{
				"newUserId":    userId,
				"referralCode": code,
				"referrerId":   validation.ReferrerId,
			}
		}

		user, err := s.store.CreateReferralUser(ctx, params)
		switch {
		case err == nil:
			return s.finishSignup(ctx, user, code, validation)
		case errors.Is(err, store.ErrReferralCodeTaken):
			continue
		case errors.Is(err, store.ErrReferralUserExists):
			existing, gerr := s.store.GetReferralUser(ctx, userId)
			if gerr != nil {
				return nil, gerr
			}
			return &models.ReferralSignupResult{User: existing}, nil
		case errors.Is(err, store.ErrReferralLimitReached):
			// The referrer filled up between validation and insert
			validation = &models.ReferralValidation{Success: false, Reason: ReasonLimitExceeded}
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrGenerationExhausted
}

func (s *Service) finishSignup(ctx context.Context, user *models.ReferralUser, code string, validation *models.ReferralValidation) (*models.ReferralSignupResult, error) {
	result := &models.ReferralSignupResult{User: user, Created: true}

	switch {
	case validation == nil:
	case validation.Success:
		result.ReferralApplied = true
		zap.L().Info("Referral code applied",
			zap.String("user_id", user.UserId),
			zap.String("referral_code", code),
			zap.String("referrer_id", validation.ReferrerId))
	default:
		result.Reason = validation.Reason
		zap.L().Warn("Referral code rejected",
			zap.String("user_id", user.UserId),
			zap.String("referral_code", code),
			zap.String("reason", validation.Reason))
		err := s.store.AppendReferralAudit(ctx, store.AuditReferralRejected, map[string]string{
			"newUserId":    user.UserId,
			"referralCode": code,
			"reason":       validation.Reason,
		}, s.settings.AuditLogLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to audit rejected referral: %w", err)
		}
	}
	return result, nil
}

// ValidateCode runs the signup checks without creating anything.
func (s *Service) ValidateCode(ctx context.Context, userId, deviceFingerprint, code string) (*models.ReferralValidation, error) {
	return s.validate(ctx, userId, deviceFingerprint, NormalizeCode(code))
}

func (s *Service) validate(ctx context.Context, userId, deviceFingerprint, code string) (*models.ReferralValidation, error) {
	if !s.pattern.MatchString(code) {
		return &models.ReferralValidation{Reason: ReasonInvalidFormat}, nil
	}

	referrer, err := s.store.GetReferralUserByCode(ctx, code)
	if errors.Is(err, store.ErrUserNotFound) {
		return &models.ReferralValidation{Reason: ReasonCodeNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	if referrer.UserId == userId {
		return &models.ReferralValidation{Reason: ReasonSelfReferral}, nil
	}

	if deviceFingerprint != "" {
		duplicate, err := s.store.HasDeviceReferral(ctx, deviceFingerprint, referrer.UserId)
		if err != nil {
			return nil, err
		}
		if duplicate {
			return &models.ReferralValidation{Reason: ReasonDuplicateDevice}, nil
		}
	}

	if referrer.Stats.TotalReferralsAccepted >= s.settings.MaxReferralsPerUser {
		return &models.ReferralValidation{Reason: ReasonLimitExceeded}, nil
	}

	return &models.ReferralValidation{
		Success:      true,
		ReferrerId:   referrer.UserId,
		ReferralCode: code,
	}, nil
}

// ProcessFirstActionReward records the member's first return or donation and,
// for a referred member, pays both referral bonuses exactly once.
func (s *Service) ProcessFirstActionReward(ctx context.Context, userId, actionType string) (*models.FirstActionResult, error) {
	if userId == "" || (actionType != ActionReturn && actionType != ActionDonation) {
		zap.L().Error("Invalid parameters for first action reward",
			zap.String("user_id", userId),
			zap.String("action_type", actionType))
		return &models.FirstActionResult{Success: false}, nil
	}

	outcome, err := s.store.CompleteFirstAction(ctx, store.FirstActionParams{
		UserId:      userId,
		ActionType:  actionType,
		CompletedAt: s.now(),
		AuditLimit:  s.settings.AuditLogLimit,
	})
	if errors.Is(err, store.ErrUserNotFound) {
		zap.L().Warn("User not found for first action processing", zap.String("user_id", userId))
		return &models.FirstActionResult{Success: false}, nil
	}
	if err != nil {
		return nil, err
	}

	if outcome.AlreadyCompleted {
		zap.L().Info("User already completed first action", zap.String("user_id", userId))
		return &models.FirstActionResult{Success: false, AlreadyCompleted: true}, nil
	}
	if !outcome.RewardApplied {
		return &models.FirstActionResult{Success: true}, nil
	}

	referred, _ := rules.Lookup(rules.ReferralReferredBonus)
	referrer, _ := rules.Lookup(rules.ReferralReferrerBonus)
	return &models.FirstActionResult{
		Success:               true,
		ReferralRewardApplied: true,
		BonusPoints:           referred.Points,
		ReferredByUserId:      outcome.ReferrerId,
		ReferrerReward:        referrer.Points,
		Messages: []string{
			fmt.Sprintf("Welcome! You earned %d bonus EcoPoints for your first circular action!", referred.Points),
		},
	}, nil
}

func (s *Service) Stats(ctx context.Context, userId string) (*models.ReferralStats, error) {
	user, err := s.store.GetReferralUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	referred, err := s.store.ListReferredUsers(ctx, userId)
	if err != nil {
		return nil, err
	}

	stats := &models.ReferralStats{
		ReferralCode:         user.ReferralCode,
		TotalReferrals:       len(referred),
		TotalPointsEarned:    user.Stats.TotalPointsEarned,
		ReferredByUserId:     user.ReferredByUserId,
		ReferredByCode:       user.ReferredByCode,
		FirstActionCompleted: user.FirstActionCompletedAt != nil,
		CreatedAt:            user.CreatedAt,
	}
	for _, r := range referred {
		if r.ReferralRewardGiven {
			stats.TotalRewarded++
		}
	}
	if user.ReferralRewardGiven {
		bonus, _ := rules.Lookup(rules.ReferralReferredBonus)
		stats.BonusPointsReceived = bonus.Points
	}
	return stats, nil
}

func (s *Service) ValidateUserStatus(ctx context.Context, userId string) (*models.ReferralStatus, error) {
	user, err := s.store.GetReferralUser(ctx, userId)
	if errors.Is(err, store.ErrUserNotFound) {
		return &models.ReferralStatus{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.ReferralStatus{
		Exists:               true,
		ReferralCode:         user.ReferralCode,
		FirstActionDone:      user.FirstActionCompletedAt != nil,
		ReferralBonusApplied: user.ReferralRewardGiven,
		ReferredByCode:       user.ReferredByCode,
	}, nil
}

// AuditLog returns up to limit audit events, newest first. A non-empty
// userId keeps only events that mention that member.
func (s *Service) AuditLog(ctx context.Context, userId string, limit int) ([]models.ReferralAuditEvent, error) {
	if limit <= 0 || limit > s.settings.AuditLogLimit {
		limit = s.settings.AuditLogLimit
	}
	events, err := s.store.ListReferralAudit(ctx, limit)
	if err != nil {
		return nil, err
	}
	if userId == "" {
		return events, nil
	}

	filtered := make([]models.ReferralAuditEvent, 0, len(events))
	for _, e := range events {
		if e.Data["userId"] == userId || e.Data["newUserId"] == userId ||
			e.Data["referredUserId"] == userId || e.Data["referrerId"] == userId {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}
