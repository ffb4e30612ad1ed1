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

import "time"

// ProgramConfig is the YAML program file: tunable reward parameters and seed data.
type ProgramConfig struct {
	Referral ReferralSettings `yaml:"referral"`
	Streak   StreakSettings   `yaml:"streak"`
	Auction  AuctionSettings  `yaml:"auction"`
	Hubs     []HubConfig      `yaml:"hubs"`
	Impact   []ImpactSeed     `yaml:"impact_seed"`
}

type ReferralSettings struct {
	CodePrefix          string `yaml:"code_prefix"`
	CodeLength          int    `yaml:"code_length"`
	MaxAttempts         int    `yaml:"max_attempts"`
	MaxReferralsPerUser int    `yaml:"max_referrals_per_user"`
	AuditLogLimit       int    `yaml:"audit_log_limit"`
}

type StreakSettings struct {
	MilestoneWeeks int `yaml:"milestone_weeks"`
}

type AuctionSettings struct {
	Duration       time.Duration `yaml:"duration"`
	MinStartingBid int64         `yaml:"min_starting_bid"`
	MinIncrement   int64         `yaml:"min_increment"`
	EligibilityAge time.Duration `yaml:"eligibility_age"`
}

type HubConfig struct {
	Id       string `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Distance string `yaml:"distance"`
}

// ImpactSeed is a starting impact row; quantities are decimal strings.
type ImpactSeed struct {
	Category        string `yaml:"category"`
	Outcome         string `yaml:"outcome"`
	Items           int    `yaml:"items"`
	WasteDivertedKg string `yaml:"waste_diverted_kg"`
	Co2SavedKg      string `yaml:"co2_saved_kg"`
	Month           string `yaml:"month"`
}

// DefaultProgramConfig returns the built-in program parameters.
func DefaultProgramConfig() ProgramConfig {
	return ProgramConfig{
		Referral: ReferralSettings{
			CodePrefix:          "LOOP",
			CodeLength:          4,
			MaxAttempts:         100,
			MaxReferralsPerUser: 50,
			AuditLogLimit:       1000,
		},
		Streak: StreakSettings{
			MilestoneWeeks: 10,
		},
		Auction: AuctionSettings{
			Duration:       72 * time.Hour,
			MinStartingBid: 5,
			MinIncrement:   1,
			EligibilityAge: 30 * 24 * time.Hour,
		},
		Hubs: []HubConfig{
			{Id: "hub-downtown", Name: "Downtown Eco Hub", Location: "123 Main St, Downtown", Distance: "0.5 km"},
			{Id: "hub-westside", Name: "Westside Community Center", Location: "456 West Ave, Westside", Distance: "2.3 km"},
			{Id: "hub-central", Name: "Central Library Hub", Location: "789 Central Blvd, Midtown", Distance: "1.2 km"},
		},
	}
}
