package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"eco-loop-rewards-go/internal/catalog"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps an error to a status. Unknown errors are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, catalog.ErrMessageNotFound),
		errors.Is(err, catalog.ErrRedemptionNotFound),
		errors.Is(err, store.ErrAuctionNotFound),
		errors.Is(err, store.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, catalog.ErrInvalidStatusChange),
		errors.Is(err, catalog.ErrItemUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		zap.L().Error("Request error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// resultStatus picks the status for a business result.
func resultStatus(success bool, reason string) int {
	if success {
		return http.StatusOK
	}
	switch reason {
	case models.ReasonDuplicate, catalog.ReasonItemUnavailable:
		return http.StatusConflict
	case models.ReasonInsufficientBalance:
		return http.StatusUnprocessableEntity
	case models.ReasonInvalidToken:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func queryInt(c *gin.Context, key string, defaultValue int) (int, bool) {
	value := c.Query(key)
	if value == "" {
		return defaultValue, true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}
