package httpapi

import (
	"net/http"

	"eco-loop-rewards-go/internal/events"

	"github.com/gin-gonic/gin"
)

type referralRequest struct {
	UserId            string `json:"userId"`
	DeviceFingerprint string `json:"deviceFingerprint"`
	ReferralCode      string `json:"referralCode"`
}

type firstActionRequest struct {
	ActionType string `json:"actionType"`
}

func (h *Handler) registerReferral(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserId == "" {
		badRequest(c, "userId is required")
		return
	}

	result, err := h.Referral.Register(c.Request.Context(), req.UserId, req.DeviceFingerprint, req.ReferralCode)
	if err != nil {
		respondError(c, err)
		return
	}

	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	c.JSON(code, result)
}

func (h *Handler) validateReferral(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.Referral.ValidateCode(c.Request.Context(), req.UserId, req.DeviceFingerprint, req.ReferralCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) firstAction(c *gin.Context) {
	var req firstActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	userId := c.Param("userId")
	result, err := h.Referral.ProcessFirstActionReward(c.Request.Context(), userId, req.ActionType)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.ReferralRewardApplied {
		h.publish(c, events.ReferralRewardDistributed, map[string]any{
			"userId":         userId,
			"referrerId":     result.ReferredByUserId,
			"actionType":     req.ActionType,
			"bonusPoints":    result.BonusPoints,
			"referrerReward": result.ReferrerReward,
		})
	}

	code := http.StatusOK
	switch {
	case result.AlreadyCompleted:
		code = http.StatusConflict
	case !result.Success:
		code = http.StatusBadRequest
	}
	c.JSON(code, result)
}

func (h *Handler) getReferralStats(c *gin.Context) {
	stats, err := h.Referral.Stats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) getReferralStatus(c *gin.Context) {
	status, err := h.Referral.ValidateUserStatus(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) getReferralAudit(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		badRequest(c, "limit must be an integer")
		return
	}

	entries, err := h.Referral.AuditLog(c.Request.Context(), c.Query("user_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": entries, "count": len(entries)})
}
