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

// Package rules holds the static EcoPoints reward table. Keys form a closed
// set: anything arriving as a string from outside is converted with Parse.
package rules

import (
	"fmt"
	"strings"
)

// Key identifies a reward or redemption rule.
type Key string

const (
	Level3SmallReturn    Key = "LEVEL3_SMALL_RETURN"
	Level3MediumReturn   Key = "LEVEL3_MEDIUM_RETURN"
	Level3CommunityDrive Key = "LEVEL3_COMMUNITY_DRIVE"
	Level4MaterialMatch  Key = "LEVEL4_MATERIAL_MATCH"
	Level4Transaction    Key = "LEVEL4_TRANSACTION"

	ReferralReferredBonus Key = "REFERRAL_REFERRED_BONUS"
	ReferralReferrerBonus Key = "REFERRAL_REFERRER_BONUS"

	WeeklyStreak         Key = "WEEKLY_STREAK"
	StreakMilestoneBonus Key = "STREAK_MILESTONE_BONUS"

	EcoPointsRedemption Key = "ECOPOINTS_REDEMPTION"
	ThriftLoopRedeem    Key = "THRIFTLOOP_REDEEM"
	AuctionWin          Key = "AUCTION_WIN"
)

// Kind tells whether a rule adds or removes points.
type Kind int

const (
	Credit Kind = iota
	Debit
)

func (k Kind) String() string {
	if k == Debit {
		return "debit"
	}
	return "credit"
}

// Rule is one row of the reward table. Points is the fixed award for credit
// rules; debit rules carry a caller-supplied amount and leave it zero.
type Rule struct {
	Key    Key
	Points int64
	Label  string
	Kind   Kind
}

var table = []Rule{
	{Level3SmallReturn, 10, "Small item return/donation", Credit},
	{Level3MediumReturn, 20, "Medium bulk return", Credit},
	{Level3CommunityDrive, 30, "Community drive participation", Credit},
	{Level4MaterialMatch, 40, "Industrial material listing matched", Credit},
	{Level4Transaction, 50, "Successful material reuse transaction", Credit},
	{ReferralReferredBonus, 30, "Referral welcome bonus", Credit},
	{ReferralReferrerBonus, 10, "Referral reward", Credit},
	{WeeklyStreak, 5, "Weekly streak bonus", Credit},
	{StreakMilestoneBonus, 100, "Streak milestone bonus", Credit},
	{EcoPointsRedemption, 0, "EcoPoints Redemption", Debit},
	{ThriftLoopRedeem, 0, "ThriftLoop item redemption", Debit},
	{AuctionWin, 0, "Upcycle auction win", Debit},
}

var byKey = func() map[Key]Rule {
	m := make(map[Key]Rule, len(table))
	for _, r := range table {
		m[r.Key] = r
	}
	return m
}()

// Lookup returns the rule for key.
func Lookup(key Key) (Rule, bool) {
	r, ok := byKey[key]
	return r, ok
}

// Parse converts an external rule name into a Key. Matching is exact after
// trimming and upper-casing.
func Parse(s string) (Key, bool) {
	key := Key(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := byKey[key]; !ok {
		return "", false
	}
	return key, true
}

// All returns the table in declaration order.
func All() []Rule {
	out := make([]Rule, len(table))
	copy(out, table)
	return out
}

// LevelPrefix is the rule-key prefix shared by every action of a program level.
func LevelPrefix(level int) string {
	return fmt.Sprintf("LEVEL%d", level)
}

func (k Key) String() string { return string(k) }

// HasLevel reports whether the key belongs to the given program level.
func (k Key) HasLevel(level int) bool {
	return strings.HasPrefix(string(k), LevelPrefix(level))
}
