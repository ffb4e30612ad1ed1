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

	"github.com/shopspring/decimal"
)

// Catalog item statuses
const (
	ItemAvailable  = "available"
	ItemRedeemed   = "redeemed"
	ItemInAuction  = "in_auction"
	ItemAuctionWon = "auction_won"
)

// Redemption pickup statuses
const (
	RedemptionPending   = "pending"
	RedemptionPickedUp  = "picked-up"
	RedemptionCompleted = "completed"
)

// ContactMessage is a message submitted through the contact form
type ContactMessage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"not null" json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Organization string    `json:"organization,omitempty"`
	Message      string    `gorm:"not null" json:"message"`
	IsRead       bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// Hub is a drop-off and pickup location
type Hub struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Location string `json:"location"`
	Distance string `json:"distance"`
}

// ThriftItem is a second-hand item redeemable for EcoPoints
type ThriftItem struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Slug          string    `gorm:"uniqueIndex" json:"slug"`
	ItemName      string    `gorm:"not null" json:"item_name"`
	Category      string    `gorm:"not null;index" json:"category"`
	Description   string    `json:"description"`
	Condition     string    `json:"condition"`
	ImageURL      string    `json:"image_url,omitempty"`
	Size          string    `json:"size,omitempty"`
	Color         string    `json:"color,omitempty"`
	EcoPointsCost int64     `gorm:"not null" json:"eco_points_cost"`
	HubID         string    `gorm:"not null;index" json:"hub_id"`
	Status        string    `gorm:"not null;index;default:available" json:"status"`
	ListedAt      time.Time `json:"listed_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Redemption records an item claimed with EcoPoints
type Redemption struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	ItemID        string    `gorm:"not null;index" json:"item_id"`
	UserID        string    `gorm:"not null;index" json:"user_id"`
	PointsSpent   int64     `gorm:"not null" json:"points_spent"`
	TransactionID string    `gorm:"uniqueIndex" json:"transaction_id"`
	Status        string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ImpactRecord is one environmental-impact row
type ImpactRecord struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Category        string          `gorm:"index" json:"category"`
	Outcome         string          `gorm:"index" json:"outcome"`
	Items           int             `json:"items"`
	WasteDivertedKg decimal.Decimal `gorm:"type:decimal(12,3)" json:"waste_diverted_kg"`
	Co2SavedKg      decimal.Decimal `gorm:"type:decimal(12,3)" json:"co2_saved_kg"`
	Month           string          `gorm:"index" json:"month"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ImpactDashboard is the aggregate returned by the dashboard endpoint
type ImpactDashboard struct {
	ItemsReused       int              `json:"items_reused"`
	WasteDivertedKg   decimal.Decimal  `json:"waste_diverted"`
	Co2SavedKg        decimal.Decimal  `json:"co2_saved"`
	ReuseTransactions int              `json:"reuse_transactions"`
	WasteOutcomes     map[string]int   `json:"waste_outcomes"`
	GrowthData        ImpactGrowthData `json:"growth_data"`
	Fallback          bool             `json:"fallback"`
}

type ImpactGrowthData struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// RedeemResult reports a ThriftLoop redemption. Rejections carry a Reason
// and leave the item available.
type RedeemResult struct {
	Success    bool        `json:"success"`
	Redemption *Redemption `json:"redemption,omitempty"`
	NewBalance int64       `json:"new_balance"`
	Reason     string      `json:"reason,omitempty"`
	Message    string      `json:"message,omitempty"`
}
