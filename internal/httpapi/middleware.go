package httpapi

import (
	"net/http"
	"sync"
	"time"

	"eco-loop-rewards-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIdHeader = "X-Request-Id"

// RateLimiter applies a token bucket per client IP. Buckets are dropped
// periodically so idle clients do not accumulate.
type RateLimiter struct {
	limiters      map[string]*rate.Limiter
	mu            sync.Mutex
	limit         rate.Limit
	burst         int
	cleanupTicker *time.Ticker
	done          chan struct{}
	stopOnce      sync.Once
}

// NewRateLimiter allows perSecond requests per IP with the given burst. A
// non-positive rate disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	rl := &RateLimiter{
		limiters:      make(map[string]*rate.Limiter),
		limit:         limit,
		burst:         burst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
		done:          make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.mu.Lock()
			rl.limiters = make(map[string]*rate.Limiter)
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.done)
	})
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[ip] = limiter
	}
	return limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// RequestContext tags the request context with a request id and the HTTP
// source so ledger rows record where they came from.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(requestIdHeader)
		if requestId == "" {
			requestId = uuid.New().String()
		}
		c.Header(requestIdHeader, requestId)

		ctx := models.WithRequestContext(c.Request.Context(), &models.RequestContext{
			RequestId: requestId,
			Source:    models.SourceHTTP,
			ClientIP:  c.ClientIP(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if rc := models.GetRequestContext(c.Request.Context()); rc != nil {
			fields = append(fields, zap.String("request_id", rc.RequestId))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			zap.L().Error("Request failed", fields...)
			return
		}
		zap.L().Debug("Request handled", fields...)
	}
}
