package middleware

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kkin1995/bmtc-transit-app/internal/metrics"
	"github.com/kkin1995/bmtc-transit-app/internal/repository"
	"github.com/kkin1995/bmtc-transit-app/pkg/response"
)

// Context keys set for the handler when a new idempotency key passes through.
const (
	CtxIdempotencyKey      = "idempotency_key"
	CtxIdempotencyBodyHash = "idempotency_body_hash"
)

// Idempotency replays cached responses for repeated Idempotency-Key headers.
// Runs before the rate limiter so replays answer from cache without spending
// a token; quota headers on a replay come from Peek. Reusing a key with a
// different body is a 409. Cache read failures fail open.
func Idempotency(repo *repository.IdempotencyRepository, rates *repository.RateLimitRepository, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Idempotency-Key")
		if key == "" {
			c.Next()
			return
		}
		if _, err := uuid.Parse(key); err != nil {
			response.BadRequest(c, "Idempotency-Key must be a UUID")
			c.Abort()
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			response.BadRequest(c, "failed to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		bodyHash := repository.HashBody(body)

		now := time.Now()
		rec, err := repo.Get(key, now)
		if err != nil {
			log.Printf("idempotency cache unavailable, processing request: %v", err)
			c.Next()
			return
		}

		if rec != nil {
			if rec.BodyHash != bodyHash {
				response.Conflict(c, "idempotency_conflict", "Idempotency-Key reused with a different request body")
				c.Abort()
				return
			}
			if remaining, reset, err := rates.Peek(rateBucketKey(c), now); err == nil {
				c.Header("X-RateLimit-Limit", strconv.Itoa(rates.Limit()))
				c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
				c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			}
			collector.IdempotentReplays.Inc()
			c.Header("X-Idempotent-Replay", "true")
			c.Data(http.StatusOK, "application/json", []byte(rec.ResponseJSON))
			c.Abort()
			return
		}

		c.Set(CtxIdempotencyKey, key)
		c.Set(CtxIdempotencyBodyHash, bodyHash)
		c.Next()
	}
}
