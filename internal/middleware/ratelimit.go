package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"adboard-backend/pkg/utils"
)

// IPRateLimiter manages rate limiters per IP
type IPRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    b,
	}
}

// GetLimiter returns the rate limiter for an IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(i.rate, i.burst)
		i.limiters[ip] = limiter
	}
	return limiter
}

// failedAttemptTracker backs the progressive login block.
type failedAttemptTracker struct {
	Count        int
	LastFailed   time.Time
	BlockedUntil *time.Time
}

type rateLimiters struct {
	login   *IPRateLimiter
	general *IPRateLimiter

	mu             sync.RWMutex
	failedAttempts map[string]*failedAttemptTracker
}

var limiters = &rateLimiters{
	login:          NewIPRateLimiter(rate.Every(time.Minute), 5),
	general:        NewIPRateLimiter(rate.Every(time.Second), 30),
	failedAttempts: make(map[string]*failedAttemptTracker),
}

func progressiveDelay(count int) time.Duration {
	switch {
	case count >= 10:
		return 30 * time.Minute
	case count >= 5:
		return 10 * time.Minute
	case count >= 3:
		return 5 * time.Minute
	default:
		return 0
	}
}

func (rl *rateLimiters) isBlocked(ip string) (bool, time.Duration) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	tracker, exists := rl.failedAttempts[ip]
	if !exists || tracker.BlockedUntil == nil {
		return false, 0
	}
	if time.Now().Before(*tracker.BlockedUntil) {
		return true, time.Until(*tracker.BlockedUntil)
	}
	return false, 0
}

// RecordFailedLoginAttempt escalates the block window for an IP after each
// failed login.
func RecordFailedLoginAttempt(c *gin.Context) {
	ip := getClientIP(c)

	limiters.mu.Lock()
	tracker, exists := limiters.failedAttempts[ip]
	if !exists {
		tracker = &failedAttemptTracker{}
		limiters.failedAttempts[ip] = tracker
	}
	tracker.Count++
	tracker.LastFailed = time.Now()

	var newlyBlocked bool
	if delay := progressiveDelay(tracker.Count); delay > 0 {
		until := time.Now().Add(delay)
		newlyBlocked = tracker.BlockedUntil == nil || !time.Now().Before(*tracker.BlockedUntil)
		tracker.BlockedUntil = &until
	}
	count := tracker.Count
	limiters.mu.Unlock()

	if newlyBlocked {
		utils.CaptureSentryError(c, nil, "rate_limit.login_blocked", map[string]interface{}{
			"client_ip":       ip,
			"failed_attempts": count,
		})
	}
}

// RecordSuccessfulLoginAttempt resets failed login tracking for an IP.
func RecordSuccessfulLoginAttempt(c *gin.Context) {
	ip := getClientIP(c)
	limiters.mu.Lock()
	if tracker, exists := limiters.failedAttempts[ip]; exists {
		tracker.Count = 0
		tracker.BlockedUntil = nil
	}
	limiters.mu.Unlock()
}

// LoginRateLimit throttles login attempts per IP with progressive blocking.
func LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := getClientIP(c)

		if blocked, delay := limiters.isBlocked(ip); blocked {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many failed login attempts. IP temporarily blocked.",
				"retry_after": fmt.Sprintf("%.0f seconds", delay.Seconds()),
			})
			c.Abort()
			return
		}

		if !limiters.login.GetLimiter(ip).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many login attempts. Please try again later.",
				"retry_after": "60 seconds",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GeneralRateLimit throttles all API traffic per IP. Health and metrics
// endpoints are exempt so probes never get throttled.
func GeneralRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		ip := getClientIP(c)
		if blocked, delay := limiters.isBlocked(ip); blocked {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many failed attempts. IP temporarily blocked.",
				"retry_after": fmt.Sprintf("%.0f seconds", delay.Seconds()),
			})
			c.Abort()
			return
		}

		if !limiters.general.GetLimiter(ip).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please slow down.",
				"retry_after": "1 second",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// StartCleanup periodically drops stale failed-attempt trackers.
func StartCleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				utils.CaptureSentryPanic("middleware.StartCleanup", r)
			}
		}()
		for range ticker.C {
			cutoff := time.Now().Add(-24 * time.Hour)
			limiters.mu.Lock()
			for ip, tracker := range limiters.failedAttempts {
				if tracker.LastFailed.Before(cutoff) {
					delete(limiters.failedAttempts, ip)
				}
			}
			limiters.mu.Unlock()
		}
	}()
}

func getClientIP(c *gin.Context) string {
	if cfIP := c.GetHeader("CF-Connecting-IP"); cfIP != "" {
		return strings.TrimSpace(cfIP)
	}

	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return c.ClientIP()
}
