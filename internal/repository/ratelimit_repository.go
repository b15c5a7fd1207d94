package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
)

// RateLimitRepository implements a per-bucket token bucket with hourly
// refill, persisted in SQLite so limits survive restarts and apply across
// processes.
type RateLimitRepository struct {
	db    *sql.DB
	limit int
}

const refillInterval = time.Hour

// NewRateLimitRepository creates a new rate limit repository
func NewRateLimitRepository(db *sql.DB, limit int) *RateLimitRepository {
	return &RateLimitRepository{db: db, limit: limit}
}

// Take atomically spends one token for the bucket, creating or refilling it
// as needed. Returns whether the request is allowed, the remaining tokens
// and the next refill time.
func (r *RateLimitRepository) Take(bucketID string, now time.Time) (allowed bool, remaining int, reset time.Time, err error) {
	reset = now.Add(refillInterval)

	err = database.Transaction(r.db, func(tx *sql.Tx) error {
		var tokens int
		var lastRefill int64
		scanErr := tx.QueryRow(
			"SELECT tokens, last_refill FROM rate_limit_buckets WHERE bucket_id = ?", bucketID,
		).Scan(&tokens, &lastRefill)

		switch {
		case scanErr == sql.ErrNoRows:
			tokens = r.limit - 1
			lastRefill = now.Unix()
		case scanErr != nil:
			return fmt.Errorf("failed to read rate limit bucket: %w", scanErr)
		case now.Unix()-lastRefill >= int64(refillInterval.Seconds()):
			tokens = r.limit - 1
			lastRefill = now.Unix()
		default:
			tokens--
		}

		// Clamp at -1 so exhaustion is distinguishable from "last token"
		if tokens < -1 {
			tokens = -1
		}

		if _, err := tx.Exec(
			`INSERT INTO rate_limit_buckets (bucket_id, tokens, last_refill)
			VALUES (?, ?, ?)
			ON CONFLICT(bucket_id) DO UPDATE SET tokens = excluded.tokens, last_refill = excluded.last_refill`,
			bucketID, tokens, lastRefill,
		); err != nil {
			return fmt.Errorf("failed to update rate limit bucket: %w", err)
		}

		allowed = tokens >= 0
		remaining = tokens
		if remaining < 0 {
			remaining = 0
		}
		reset = time.Unix(lastRefill, 0).Add(refillInterval)
		return nil
	})
	if err != nil {
		return false, 0, reset, err
	}

	return allowed, remaining, reset, nil
}

// Peek reports the bucket state without spending a token. Used when a cached
// idempotent response is replayed.
func (r *RateLimitRepository) Peek(bucketID string, now time.Time) (remaining int, reset time.Time, err error) {
	reset = now.Add(refillInterval)

	var tokens int
	var lastRefill int64
	scanErr := r.db.QueryRow(
		"SELECT tokens, last_refill FROM rate_limit_buckets WHERE bucket_id = ?", bucketID,
	).Scan(&tokens, &lastRefill)

	switch {
	case scanErr == sql.ErrNoRows:
		return r.limit, reset, nil
	case scanErr != nil:
		return 0, reset, fmt.Errorf("failed to read rate limit bucket: %w", scanErr)
	}

	if now.Unix()-lastRefill >= int64(refillInterval.Seconds()) {
		return r.limit, reset, nil
	}
	if tokens < 0 {
		tokens = 0
	}
	return tokens, time.Unix(lastRefill, 0).Add(refillInterval), nil
}

// Limit returns the configured hourly quota.
func (r *RateLimitRepository) Limit() int { return r.limit }
