package main

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an id, echoed back in X-Request-ID,
// and logs it once handled
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		logger.Info("request handled",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware allows cross-origin GETs from origins. A "*" entry allows any origin.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

const (
	// clients idle this long are forgotten, unless their bucket needs longer to refill
	rateLimiterIdleTTL = 10 * time.Minute
	rateLimiterSweep   = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// ipRateLimiter keeps one token bucket per client IP. Idle buckets are
// dropped once they would have refilled to full anyway.
type ipRateLimiter struct {
	limiters  sync.Map
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
	logger    *slog.Logger
}

func newIPRateLimiter(r rate.Limit, burst int, logger *slog.Logger) *ipRateLimiter {
	idleTTL := rateLimiterIdleTTL
	if r > 0 {
		if refill := time.Duration(float64(burst) / float64(r) * float64(time.Second)); refill > idleTTL {
			idleTTL = refill
		}
	}

	l := &ipRateLimiter{
		rate:    r,
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		logger:  logger.With("component", "rate-limiter"),
	}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

func (l *ipRateLimiter) limiter(ip string) *rate.Limiter {
	now := l.now()
	l.sweep(now)

	v, ok := l.limiters.Load(ip)
	if !ok {
		entry := &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		v, _ = l.limiters.LoadOrStore(ip, entry)
	}
	entry := v.(*clientLimiter)
	entry.lastSeen.Store(now.UnixNano())
	return entry.limiter
}

// sweep drops idle clients, at most once per rateLimiterSweep
func (l *ipRateLimiter) sweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(rateLimiterSweep) || !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-l.idleTTL).UnixNano()
	removed := 0
	l.limiters.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < cutoff {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		l.logger.Debug("dropped idle clients", "count", removed)
	}
}

// middleware rejects requests over the limit with 429
func (l *ipRateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.limiter(ip).Allow() {
			l.logger.Warn("rate limit exceeded", "client_ip", ip, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
