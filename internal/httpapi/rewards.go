package httpapi

import (
	"net/http"
	"strconv"

	"eco-loop-rewards-go/internal/events"
	"eco-loop-rewards-go/internal/rules"

	"github.com/gin-gonic/gin"
)

type creditRequest struct {
	RuleKey       string            `json:"ruleKey"`
	TransactionId string            `json:"transactionId"`
	Metadata      map[string]string `json:"metadata"`
}

type debitRequest struct {
	Points   int64             `json:"points"`
	RuleKey  string            `json:"ruleKey"`
	Metadata map[string]string `json:"metadata"`
}

type resetRequest struct {
	Token string `json:"token"`
}

func (h *Handler) health(c *gin.Context) {
	status := gin.H{"status": "ok", "ledger": "ok", "catalog": "ok"}
	code := http.StatusOK

	if err := h.Ledger.HealthCheck(c.Request.Context()); err != nil {
		status["status"] = "degraded"
		status["ledger"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if h.Catalog != nil {
		if err := h.Catalog.Ping(c.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["catalog"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, status)
}

func (h *Handler) getBalance(c *gin.Context) {
	userId := c.Param("userId")
	balance, err := h.Ledger.Balance(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userId, "balance": balance})
}

// getTransactions filters by rule prefix or by program level, not both.
func (h *Handler) getTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	userId := c.Param("userId")

	if raw := c.Query("level"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 1 {
			badRequest(c, "level must be a positive integer")
			return
		}
		txs, err := h.Ledger.TransactionsByLevel(ctx, userId, level)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
		return
	}

	limit, ok := queryInt(c, "limit", 0)
	if !ok || limit < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return
	}
	if limit > 0 && c.Query("prefix") == "" {
		txs, err := h.Ledger.RecentTransactions(ctx, userId, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
		return
	}

	txs, err := h.Ledger.Transactions(ctx, userId, c.Query("prefix"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}

func (h *Handler) getLedgerStats(c *gin.Context) {
	stats, err := h.Ledger.Stats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) credit(c *gin.Context) {
	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	// Unknown keys still reach the ledger so the rejection is logged and
	// reported as invalid_rule.
	key, ok := rules.Parse(req.RuleKey)
	if !ok {
		key = rules.Key(req.RuleKey)
	}

	result, err := h.Ledger.Credit(c.Request.Context(), c.Param("userId"), key, req.TransactionId, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(resultStatus(result.Success, result.Reason), result)
}

func (h *Handler) debit(c *gin.Context) {
	var req debitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	key, ok := rules.Parse(req.RuleKey)
	if !ok {
		key = rules.Key(req.RuleKey)
	}

	result, err := h.Ledger.Debit(c.Request.Context(), c.Param("userId"), req.Points, key, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(resultStatus(result.Success, result.Reason), result)
}

func (h *Handler) resetAccount(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.Ledger.Reset(c.Request.Context(), c.Param("userId"), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(resultStatus(result.Success, result.Reason), result)
}

func (h *Handler) publish(c *gin.Context, eventType string, data map[string]any) {
	events.Emit(c.Request.Context(), h.Publisher, eventType, data)
}
