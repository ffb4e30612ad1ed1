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

// User represents a program member
type User struct {
	Id        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id                string    `db:"id" json:"id"`
	UserId            string    `db:"user_id" json:"user_id"`
	Balance           int64     `db:"balance" json:"balance"`
	LastTransactionId string    `db:"last_transaction_id" json:"last_transaction_id"`
	Version           int64     `db:"version" json:"version"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction represents immutable points history (cold data)
type Transaction struct {
	Seq           int64             `db:"seq" json:"-"`
	Id            string            `db:"id" json:"id"`
	UserId        string            `db:"user_id" json:"user_id"`
	RuleKey       rules.Key         `db:"rule_key" json:"rule_key"`
	PointsDelta   int64             `db:"points_delta" json:"points_delta"`
	Label         string            `db:"label" json:"label"`
	BalanceBefore int64             `db:"balance_before" json:"balance_before"`
	BalanceAfter  int64             `db:"balance_after" json:"balance_after"`
	Metadata      map[string]string `db:"metadata" json:"metadata,omitempty"`
	Source        string            `db:"source" json:"source,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"timestamp"`
}

// IsCredit reports whether the transaction added points.
func (t Transaction) IsCredit() bool { return t.PointsDelta > 0 }

// ReferralCounters are the per-user referral statistics
type ReferralCounters struct {
	TotalReferralsAccepted int   `db:"total_referrals_accepted" json:"total_referrals_accepted"`
	TotalReferralsRewarded int   `db:"total_referrals_rewarded" json:"total_referrals_rewarded"`
	TotalPointsEarned      int64 `db:"total_points_earned" json:"total_points_earned"`
}

// ReferralUser is a member's referral record. ReferredByUserId is empty when
// the member signed up without an accepted code.
type ReferralUser struct {
	UserId                 string           `db:"user_id" json:"user_id"`
	ReferralCode           string           `db:"referral_code" json:"referral_code"`
	ReferredByUserId       string           `db:"referred_by_user_id" json:"referred_by_user_id,omitempty"`
	ReferredByCode         string           `db:"referred_by_code" json:"referred_by_code,omitempty"`
	ReferralRewardGiven    bool             `db:"referral_reward_given" json:"referral_reward_given"`
	FirstActionCompletedAt *time.Time       `db:"first_action_completed_at" json:"first_action_completed_at,omitempty"`
	DeviceFingerprint      string           `db:"device_fingerprint" json:"device_fingerprint,omitempty"`
	Stats                  ReferralCounters `json:"referral_stats"`
	CreatedAt              time.Time        `db:"created_at" json:"created_at"`
}

// ReferralAuditEvent is one row of the referral audit trail
type ReferralAuditEvent struct {
	Id        string            `db:"id" json:"id"`
	EventType string            `db:"event_type" json:"event_type"`
	Data      map[string]string `db:"data" json:"data"`
	CreatedAt time.Time         `db:"created_at" json:"timestamp"`
}

// StreakRecord is the persisted weekly streak state. A zero LastActionDate
// means no qualifying action yet.
type StreakRecord struct {
	UserId           string    `db:"user_id" json:"user_id"`
	LastActionDate   time.Time `db:"last_action_date" json:"last_action_date"`
	CurrentCount     int       `db:"current_count" json:"current_count"`
	LastWeekKey      string    `db:"last_week_key" json:"last_week_key"`
	MilestoneReached int       `db:"milestone_reached" json:"milestone_reached"`
	LongestCount     int       `db:"longest_count" json:"longest_count"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

type AuctionStatus string

const (
	AuctionActive           AuctionStatus = "active"
	AuctionWinnerDetermined AuctionStatus = "winner_determined"
	AuctionNoWinner         AuctionStatus = "no_winner"
)

// Auction is a time-boxed bidding window over one aged inventory item
type Auction struct {
	ItemId          string        `db:"item_id" json:"item_id"`
	ItemName        string        `db:"item_name" json:"item_name"`
	HubId           string        `db:"hub_id" json:"hub_id,omitempty"`
	StartDate       time.Time     `db:"start_date" json:"auction_start_date"`
	EndDate         time.Time     `db:"end_date" json:"auction_end_date"`
	StartingBid     int64         `db:"starting_bid" json:"starting_bid"`
	CurrentBid      int64         `db:"current_bid" json:"current_bid"`
	HighestBidderId string        `db:"highest_bidder_id" json:"highest_bidder_id,omitempty"`
	Status          AuctionStatus `db:"status" json:"status"`
	WinnerId        string        `db:"winner_id" json:"winner_id,omitempty"`
	FinalBid        int64         `db:"final_bid" json:"final_bid,omitempty"`
	SettledAt       *time.Time    `db:"settled_at" json:"settled_at,omitempty"`
	SettlementNote  string        `db:"settlement_note" json:"settlement_note,omitempty"`
	Bids            []Bid         `json:"bid_history,omitempty"`
}

// Bid is an accepted bid; bid history is append-only
type Bid struct {
	Id       string    `db:"id" json:"id"`
	ItemId   string    `db:"item_id" json:"item_id"`
	BidderId string    `db:"bidder_id" json:"bidder_id"`
	Amount   int64     `db:"amount" json:"amount"`
	PlacedAt time.Time `db:"placed_at" json:"timestamp"`
}

// InventoryItem is the auction view of an unclaimed catalog item
type InventoryItem struct {
	Id       string
	Name     string
	HubId    string
	ListedAt time.Time
}
