package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kkin1995/bmtc-transit-app/internal/metrics"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
	"github.com/kkin1995/bmtc-transit-app/pkg/response"
)

// rateBucketKey resolves the identity the quota applies to: the privacy
// bucket when the client sends one, the client IP otherwise.
func rateBucketKey(c *gin.Context) string {
	if bucket := c.GetHeader("X-Device-Bucket"); bucket != "" {
		return bucket
	}
	return "ip:" + c.ClientIP()
}

// RateLimit enforces the persisted hourly token bucket. Storage failures
// fail open: a broken limiter must not take down ingestion.
func RateLimit(repo *repository.RateLimitRepository, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		allowed, remaining, reset, err := repo.Take(rateBucketKey(c), now)
		if err != nil {
			log.Printf("rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(repo.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			collector.RateLimited.Inc()
			retryAfter := int64(time.Until(reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, http.StatusTooManyRequests, "rate_limited", "submission quota exhausted, retry later")
			c.Abort()
			return
		}

		c.Next()
	}
}
