package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) recordStreakAction(c *gin.Context) {
	result, err := h.Streak.RecordAction(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getStreak(c *gin.Context) {
	analytics, err := h.Streak.Analytics(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (h *Handler) resetStreak(c *gin.Context) {
	if err := h.Streak.Reset(c.Request.Context(), c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
