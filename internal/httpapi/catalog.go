package httpapi

import (
	"net/http"
	"strconv"

	"eco-loop-rewards-go/internal/catalog"
	"eco-loop-rewards-go/internal/events"
	"eco-loop-rewards-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type contactRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Message      string `json:"message"`
}

type redeemRequest struct {
	UserId string `json:"userId"`
}

type redemptionStatusRequest struct {
	Status string `json:"status"`
}

type impactRequest struct {
	Category        string          `json:"category"`
	Outcome         string          `json:"outcome"`
	Items           int             `json:"items"`
	WasteDivertedKg decimal.Decimal `json:"waste_diverted_kg"`
	Co2SavedKg      decimal.Decimal `json:"co2_saved_kg"`
	Month           string          `json:"month"`
}

func (h *Handler) submitContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required fields")
		return
	}

	msg, err := h.Catalog.CreateMessage(c.Request.Context(), models.ContactMessage{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Organization: req.Organization,
		Message:      req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.publish(c, events.ContactMessageReceived, map[string]any{
		"messageId": msg.ID,
		"email":     msg.Email,
	})
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Contact message submitted",
		"messageId": msg.ID,
	})
}

func (h *Handler) listMessages(c *gin.Context) {
	messages, unread, err := h.Catalog.ListMessages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"total_messages": len(messages),
		"unread_count":   unread,
		"messages":       messages,
	})
}

func (h *Handler) markMessageRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}
	if err := h.Catalog.MarkMessageRead(c.Request.Context(), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listItems(c *gin.Context) {
	items, err := h.Catalog.ListAvailableItems(c.Request.Context(), c.Query("hub_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []models.ThriftItem{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "count": len(items)})
}

func (h *Handler) addItem(c *gin.Context) {
	var params catalog.NewItemParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, "Missing required fields")
		return
	}

	item, err := h.Catalog.AddItem(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "item": item})
}

func (h *Handler) deleteItem(c *gin.Context) {
	if err := h.Catalog.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) redeemItem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserId == "" {
		badRequest(c, "userId is required")
		return
	}

	result, err := h.Catalog.Redeem(c.Request.Context(), c.Param("id"), req.UserId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(resultStatus(result.Success, result.Reason), result)
}

func (h *Handler) getRedemptions(c *gin.Context) {
	redemptions, err := h.Catalog.ListRedemptions(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if redemptions == nil {
		redemptions = []models.Redemption{}
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": redemptions, "count": len(redemptions)})
}

func (h *Handler) updateRedemption(c *gin.Context) {
	var req redemptionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		badRequest(c, "status is required")
		return
	}

	redemption, err := h.Catalog.UpdateRedemptionStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "redemption": redemption})
}

func (h *Handler) listHubs(c *gin.Context) {
	hubs, err := h.Catalog.ListHubs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if hubs == nil {
		hubs = []models.Hub{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "hubs": hubs})
}

func (h *Handler) impactDashboard(c *gin.Context) {
	dashboard, err := h.Catalog.ImpactDashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"metrics": gin.H{
			"items_reused":       dashboard.ItemsReused,
			"waste_diverted":     dashboard.WasteDivertedKg,
			"co2_saved":          dashboard.Co2SavedKg,
			"reuse_transactions": dashboard.ReuseTransactions,
		},
		"waste_outcomes": dashboard.WasteOutcomes,
		"growth_data": gin.H{
			"labels": dashboard.GrowthData.Labels,
			"data":   dashboard.GrowthData.Values,
		},
		"fallback": dashboard.Fallback,
	})
}

func (h *Handler) recordImpact(c *gin.Context) {
	var req impactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	record, err := h.Catalog.RecordImpact(c.Request.Context(), models.ImpactRecord{
		Category:        req.Category,
		Outcome:         req.Outcome,
		Items:           req.Items,
		WasteDivertedKg: req.WasteDivertedKg,
		Co2SavedKg:      req.Co2SavedKg,
		Month:           req.Month,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "record": record})
}
