package httpapi

import (
	"net/http"
	"strings"

	"eco-loop-rewards-go/internal/auction"
	"eco-loop-rewards-go/internal/models"

	"github.com/gin-gonic/gin"
)

type bidRequest struct {
	BidderId string `json:"bidderId"`
	Amount   int64  `json:"amount"`
}

func (h *Handler) listAuctions(c *gin.Context) {
	status := models.AuctionStatus(c.Query("status"))
	switch status {
	case "", models.AuctionActive, models.AuctionWinnerDetermined, models.AuctionNoWinner:
	default:
		badRequest(c, "unknown auction status")
		return
	}

	auctions, err := h.Auction.List(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions, "count": len(auctions)})
}

func (h *Handler) getAuction(c *gin.Context) {
	a, err := h.Auction.Get(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) getAuctionStats(c *gin.Context) {
	stats, err := h.Auction.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) placeBid(c *gin.Context) {
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.BidderId == "" || req.Amount <= 0 {
		badRequest(c, "bidderId and a positive amount are required")
		return
	}

	result, err := h.Auction.PlaceBid(c.Request.Context(), c.Param("itemId"), req.BidderId, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(bidStatus(result), result)
}

func bidStatus(result *models.BidResult) int {
	switch {
	case result.Success:
		return http.StatusOK
	case result.Reason == auction.ReasonNotFound:
		return http.StatusNotFound
	case result.Reason == auction.ReasonEnded:
		return http.StatusConflict
	case strings.HasPrefix(result.Reason, "Insufficient"):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) getAuctionWins(c *gin.Context) {
	wins, err := h.Auction.UserWins(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if wins == nil {
		wins = []models.Auction{}
	}
	c.JSON(http.StatusOK, gin.H{"auctions": wins, "count": len(wins)})
}

func (h *Handler) getBidHistory(c *gin.Context) {
	bids, err := h.Auction.UserBidHistory(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids, "count": len(bids)})
}

// sweepAuctions runs the scheduled sweep on demand.
func (h *Handler) sweepAuctions(c *gin.Context) {
	ctx := c.Request.Context()
	opened, err := h.Auction.ConvertEligible(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	settled, err := h.Auction.Finalize(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if settled == nil {
		settled = []models.SettlementResult{}
	}
	c.JSON(http.StatusOK, gin.H{"opened": opened, "settled": settled})
}
