package repository

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kkin1995/bmtc-transit-app/internal/database"
)

// IdempotencyRecord is a stored submission keyed by the client's
// Idempotency-Key header.
type IdempotencyRecord struct {
	Key          string
	BodyHash     string
	ResponseJSON string
	SubmittedAt  int64
}

// IdempotencyRepository handles replay detection for ride submissions.
type IdempotencyRepository struct {
	db  database.DBTX
	ttl time.Duration
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db database.DBTX, ttl time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{db: db, ttl: ttl}
}

// HashBody returns the SHA-256 hex digest of a request body, used to detect
// key reuse with a different payload.
func HashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Get returns the stored record for a key if it exists and is inside the
// TTL. Returns (nil, nil) for unknown or expired keys.
func (r *IdempotencyRepository) Get(key string, now time.Time) (*IdempotencyRecord, error) {
	minSubmitted := now.Add(-r.ttl).Unix()

	var rec IdempotencyRecord
	err := r.db.QueryRow(
		`SELECT key, body_hash, response_json, submitted_at
		FROM idempotency_keys
		WHERE key = ? AND submitted_at >= ?`,
		key, minSubmitted,
	).Scan(&rec.Key, &rec.BodyHash, &rec.ResponseJSON, &rec.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	return &rec, nil
}

// Store saves a key with its body hash and serialized response.
func (r *IdempotencyRepository) Store(key, bodyHash, responseJSON string, now time.Time) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO idempotency_keys (key, body_hash, response_json, submitted_at)
		VALUES (?, ?, ?, ?)`,
		key, bodyHash, responseJSON, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// DeleteExpired removes keys older than the TTL and returns how many were
// deleted.
func (r *IdempotencyRepository) DeleteExpired(now time.Time) (int64, error) {
	res, err := r.db.Exec(
		"DELETE FROM idempotency_keys WHERE submitted_at < ?",
		now.Add(-r.ttl).Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency keys: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted idempotency keys: %w", err)
	}
	return n, nil
}
