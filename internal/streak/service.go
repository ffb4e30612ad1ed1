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

package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"

	"go.uber.org/zap"
)

const maxSaveAttempts = 3

type Service struct {
	store    store.StreakStore
	settings Settings
	now      func() time.Time
}

func NewService(s store.StreakStore, settings Settings) *Service {
	return &Service{
		store:    s,
		settings: settings,
		now:      time.Now,
	}
}

// RecordAction advances the member's weekly streak and credits any bonus.
// State and credits commit together; a lost race is retried from a fresh read.
func (s *Service) RecordAction(ctx context.Context, userId string) (*models.StreakResult, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	for attempt := 1; ; attempt++ {
		result, err := s.recordAction(ctx, userId)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, store.ErrConcurrentModification) || attempt >= maxSaveAttempts {
			zap.L().Error("Failed to record streak action",
				zap.String("user_id", userId),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, err
		}
		zap.L().Warn("Streak update raced, retrying",
			zap.String("user_id", userId),
			zap.Int("attempt", attempt))
	}
}

func (s *Service) recordAction(ctx context.Context, userId string) (*models.StreakResult, error) {
	current, version, err := s.store.GetStreak(ctx, userId)
	if err != nil {
		return nil, err
	}
	state := models.StreakRecord{UserId: userId}
	if current != nil {
		state = *current
	}

	outcome := Advance(state, s.now().UTC(), s.settings)
	weekKey := outcome.State.LastWeekKey
	if !outcome.Incremented {
		return &models.StreakResult{
			StreakCount: state.CurrentCount,
			WeekKey:     weekKey,
			Message:     outcome.Message,
		}, nil
	}

	var credits []store.EntryParams
	if outcome.BaseAwarded {
		credits = append(credits, creditFor(rules.WeeklyStreak, fmt.Sprintf("streak_%s_%s", userId, weekKey), userId, outcome.State))
	}
	if outcome.MilestoneAwarded {
		credits = append(credits, creditFor(rules.StreakMilestoneBonus, fmt.Sprintf("streak_milestone_%s_%s", userId, weekKey), userId, outcome.State))
	}

	applied, err := s.store.SaveStreak(ctx, store.SaveStreakParams{
		Record:          outcome.State,
		ExpectedVersion: version,
		Credits:         credits,
	})
	if err != nil {
		return nil, err
	}

	// Credits already paid for this week are skipped by the store
	var awarded int64
	for _, tx := range applied {
		awarded += tx.PointsDelta
	}

	zap.L().Info("Streak action recorded",
		zap.String("user_id", userId),
		zap.Int("streak_count", outcome.State.CurrentCount),
		zap.Bool("reset", outcome.Reset),
		zap.Bool("milestone", outcome.MilestoneAwarded),
		zap.Int64("points_awarded", awarded))

	return &models.StreakResult{
		StreakIncremented: true,
		PointsAwarded:     awarded,
		StreakCount:       outcome.State.CurrentCount,
		MilestoneReached:  outcome.MilestoneAwarded,
		WeekKey:           weekKey,
		Message:           outcome.Message,
	}, nil
}

func creditFor(key rules.Key, transactionId, userId string, state models.StreakRecord) store.EntryParams {
	rule, _ := rules.Lookup(key)
	return store.EntryParams{
		TransactionId: transactionId,
		UserId:        userId,
		RuleKey:       rule.Key,
		Points:        rule.Points,
		Label:         rule.Label,
		Metadata: map[string]string{
			"week_key":     state.LastWeekKey,
			"streak_count": fmt.Sprint(state.CurrentCount),
		},
	}
}

// Status returns the stored streak, or an empty one for a new member.
func (s *Service) Status(ctx context.Context, userId string) (*models.StreakRecord, error) {
	record, _, err := s.store.GetStreak(ctx, userId)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &models.StreakRecord{UserId: userId}, nil
	}
	return record, nil
}

func (s *Service) CheckMilestone(ctx context.Context, userId string) (*models.MilestoneCheck, error) {
	record, err := s.Status(ctx, userId)
	if err != nil {
		return nil, err
	}
	return s.milestoneCheck(record), nil
}

func (s *Service) milestoneCheck(record *models.StreakRecord) *models.MilestoneCheck {
	alreadyReached := record.MilestoneReached >= s.settings.MilestoneWeeks
	return &models.MilestoneCheck{
		CanReachMilestone: !alreadyReached && record.CurrentCount < s.settings.MilestoneWeeks,
		WeeksRemaining:    max(0, s.settings.MilestoneWeeks-record.CurrentCount),
		CurrentStreak:     record.CurrentCount,
		AlreadyReached:    alreadyReached,
	}
}

func (s *Service) Analytics(ctx context.Context, userId string) (*models.StreakAnalytics, error) {
	record, err := s.Status(ctx, userId)
	if err != nil {
		return nil, err
	}
	milestone := s.milestoneCheck(record)

	total := int64(record.CurrentCount) * s.settings.BasePoints
	if milestone.AlreadyReached {
		total += s.settings.MilestonePoints
	}

	analytics := &models.StreakAnalytics{
		CurrentStreak:          record.CurrentCount,
		LongestStreak:          record.LongestCount,
		CurrentWeek:            WeekKey(s.now().UTC()),
		TotalPointsFromStreaks: total,
		Milestone:              *milestone,
		NextMilestone:          s.settings.MilestoneWeeks,
	}
	if !record.LastActionDate.IsZero() {
		last := record.LastActionDate
		analytics.LastActionDate = &last
	}
	return analytics, nil
}

// Reset clears the streak; ledger credits already paid stay.
func (s *Service) Reset(ctx context.Context, userId string) error {
	if err := s.store.DeleteStreak(ctx, userId); err != nil {
		return err
	}
	zap.L().Info("Streak reset", zap.String("user_id", userId))
	return nil
}
