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

package models

import (
	"time"

	"eco-loop-rewards-go/internal/rules"
)

// Rejection reasons shared by the ledger result types.
const (
	ReasonDuplicate           = "duplicate"
	ReasonInvalidRule         = "invalid_rule"
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonInvalidRequest      = "invalid_request"
	ReasonInvalidToken        = "invalid_token"
)

// CreditResult represents the result of awarding points
type CreditResult struct {
	Success       bool      `json:"success"`
	UserId        string    `json:"user_id,omitempty"`
	RuleKey       rules.Key `json:"rule_key,omitempty"`
	TransactionId string    `json:"transaction_id,omitempty"`
	PointsAwarded int64     `json:"points_awarded"`
	NewBalance    int64     `json:"new_balance"`
	Reason        string    `json:"reason,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// DebitResult represents the result of deducting points
type DebitResult struct {
	Success        bool      `json:"success"`
	UserId         string    `json:"user_id,omitempty"`
	RuleKey        rules.Key `json:"rule_key,omitempty"`
	TransactionId  string    `json:"transaction_id,omitempty"`
	PointsDeducted int64     `json:"points_deducted"`
	NewBalance     int64     `json:"new_balance"`
	Reason         string    `json:"reason,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// ResetResult represents the result of a ledger reset request
type ResetResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// LedgerStats summarises one member's ledger
type LedgerStats struct {
	TotalBalance      int64        `json:"total_balance"`
	TotalTransactions int          `json:"total_transactions"`
	Level3Actions     int          `json:"level3_actions"`
	Level4Actions     int          `json:"level4_actions"`
	LastTransaction   *Transaction `json:"last_transaction,omitempty"`
}

// ReferralValidation is the outcome of checking a referral code
type ReferralValidation struct {
	Success      bool   `json:"success"`
	ReferrerId   string `json:"referrer_id,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// ReferralSignupResult is returned by referral registration
type ReferralSignupResult struct {
	User            *ReferralUser `json:"user"`
	Created         bool          `json:"created"`
	ReferralApplied bool          `json:"referral_applied"`
	Reason          string        `json:"reason,omitempty"`
}

// FirstActionResult is returned when a member completes a qualifying action
type FirstActionResult struct {
	Success               bool     `json:"success"`
	ReferralRewardApplied bool     `json:"referral_reward_applied"`
	BonusPoints           int64    `json:"bonus_points"`
	ReferredByUserId      string   `json:"referred_by_user_id,omitempty"`
	ReferrerReward        int64    `json:"referrer_reward"`
	AlreadyCompleted      bool     `json:"already_completed"`
	Messages              []string `json:"messages,omitempty"`
}

// ReferralStats is the referral dashboard for one member
type ReferralStats struct {
	ReferralCode         string    `json:"referral_code"`
	TotalReferrals       int       `json:"total_referrals"`
	TotalRewarded        int       `json:"total_rewarded"`
	TotalPointsEarned    int64     `json:"total_points_earned"`
	ReferredByUserId     string    `json:"referred_by_user_id,omitempty"`
	ReferredByCode       string    `json:"referred_by_code,omitempty"`
	BonusPointsReceived  int64     `json:"bonus_points_received"`
	FirstActionCompleted bool      `json:"first_action_completed"`
	CreatedAt            time.Time `json:"created_at"`
}

// ReferralStatus reports whether a member exists and what they have unlocked
type ReferralStatus struct {
	Exists               bool   `json:"exists"`
	ReferralCode         string `json:"referral_code,omitempty"`
	FirstActionDone      bool   `json:"first_action_done"`
	ReferralBonusApplied bool   `json:"referral_bonus_applied"`
	ReferredByCode       string `json:"referred_by_code,omitempty"`
}

// StreakResult is returned after recording a qualifying action
type StreakResult struct {
	StreakIncremented bool   `json:"streak_incremented"`
	PointsAwarded     int64  `json:"points_awarded"`
	StreakCount       int    `json:"streak_count"`
	MilestoneReached  bool   `json:"milestone_reached"`
	WeekKey           string `json:"week_key"`
	Message           string `json:"message"`
}

// MilestoneCheck reports progress toward the streak milestone
type MilestoneCheck struct {
	CanReachMilestone bool `json:"can_reach_milestone"`
	WeeksRemaining    int  `json:"weeks_remaining"`
	CurrentStreak     int  `json:"current_streak"`
	AlreadyReached    bool `json:"already_reached"`
}

// StreakAnalytics is the dashboard view of a member's streak
type StreakAnalytics struct {
	CurrentStreak          int            `json:"current_streak"`
	LongestStreak          int            `json:"longest_streak"`
	LastActionDate         *time.Time     `json:"last_action_date,omitempty"`
	CurrentWeek            string         `json:"current_week"`
	TotalPointsFromStreaks int64          `json:"total_points_from_streaks"`
	Milestone              MilestoneCheck `json:"milestone"`
	NextMilestone          int            `json:"next_milestone"`
}

// BidResult is the outcome of a bid attempt
type BidResult struct {
	Success    bool   `json:"success"`
	ItemId     string `json:"item_id"`
	BidderId   string `json:"bidder_id,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	CurrentBid int64  `json:"current_bid"`
	Reason     string `json:"reason,omitempty"`
}

// SettlementResult describes one auction moved to a terminal status
type SettlementResult struct {
	ItemId        string        `json:"item_id"`
	Status        AuctionStatus `json:"status"`
	WinnerId      string        `json:"winner_id,omitempty"`
	FinalBid      int64         `json:"final_bid,omitempty"`
	TransactionId string        `json:"transaction_id,omitempty"`
	Note          string        `json:"note,omitempty"`
}

// AuctionStats summarises the auction house
type AuctionStats struct {
	TotalAuctions     int   `json:"total_auctions"`
	ActiveAuctions    int   `json:"active_auctions"`
	CompletedAuctions int   `json:"completed_auctions"`
	TotalBids         int   `json:"total_bids"`
	TotalPointsSpent  int64 `json:"total_points_spent"`
}
