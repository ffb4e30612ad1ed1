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

// Package httpapi exposes the rewards engine and the ThriftLoop catalog over
// a JSON HTTP API.
package httpapi

import (
	"time"

	"eco-loop-rewards-go/internal/auction"
	"eco-loop-rewards-go/internal/catalog"
	"eco-loop-rewards-go/internal/events"
	"eco-loop-rewards-go/internal/ledger"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/referral"
	"eco-loop-rewards-go/internal/streak"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handler holds the services behind every route.
type Handler struct {
	Ledger    *ledger.Service
	Referral  *referral.Service
	Streak    *streak.Service
	Auction   *auction.Service
	Catalog   *catalog.Store
	Publisher events.Publisher
}

// NewRouter builds the engine with middleware and routes. The returned
// limiter must be stopped on shutdown.
func NewRouter(h *Handler, cfg models.ServerConfig) (*gin.Engine, *RateLimiter) {
	if h.Publisher == nil {
		h.Publisher = events.Nop{}
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestContext(), RequestLogger())

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIdHeader},
		ExposeHeaders: []string{"Content-Length", requestIdHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	limiter := NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	router.Use(limiter.Middleware())

	RegisterRoutes(router, h)
	return router, limiter
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")

	api.GET("/health", h.health)

	users := api.Group("/users/:userId")
	{
		users.GET("/balance", h.getBalance)
		users.GET("/transactions", h.getTransactions)
		users.GET("/stats", h.getLedgerStats)
		users.POST("/credit", h.credit)
		users.POST("/debit", h.debit)
		users.POST("/reset", h.resetAccount)

		users.POST("/first-action", h.firstAction)
		users.GET("/referral-stats", h.getReferralStats)
		users.GET("/referral-status", h.getReferralStatus)

		users.POST("/streak/action", h.recordStreakAction)
		users.GET("/streak", h.getStreak)
		users.DELETE("/streak", h.resetStreak)

		users.GET("/auction-wins", h.getAuctionWins)
		users.GET("/bids", h.getBidHistory)
		users.GET("/redemptions", h.getRedemptions)
	}

	api.POST("/referrals/register", h.registerReferral)
	api.POST("/referrals/validate", h.validateReferral)

	api.GET("/auctions", h.listAuctions)
	api.GET("/auctions/stats", h.getAuctionStats)
	api.GET("/auctions/:itemId", h.getAuction)
	api.POST("/auctions/:itemId/bids", h.placeBid)

	api.POST("/contact-admin", h.submitContact)
	api.GET("/items", h.listItems)
	api.POST("/items/:id/redeem", h.redeemItem)
	api.GET("/hubs", h.listHubs)
	api.GET("/impact/dashboard", h.impactDashboard)
	api.POST("/impact/records", h.recordImpact)

	admin := api.Group("/admin")
	{
		admin.GET("/messages", h.listMessages)
		admin.PATCH("/messages/:id/read", h.markMessageRead)
		admin.POST("/add-item", h.addItem)
		admin.DELETE("/item/:id", h.deleteItem)
		admin.PATCH("/redemptions/:id", h.updateRedemption)
		admin.GET("/referral-audit", h.getReferralAudit)
		admin.POST("/auctions/sweep", h.sweepAuctions)
	}
}
