package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IdempotencyCacheEntry is a claimed key. StatusCode stays zero until the
// claiming request completes.
type IdempotencyCacheEntry struct {
	Key          string
	PersonID     int64
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (e *IdempotencyCacheEntry) Pending() bool {
	return e.StatusCode == 0
}

type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get returns nil without error when no live entry exists.
func (r *IdempotencyRepository) Get(ctx context.Context, key string, personID int64) (*IdempotencyCacheEntry, error) {
	var e IdempotencyCacheEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT idempotency_key, person_id, request_hash, status_code, response_body, created_at, expires_at
		FROM idempotency_cache
		WHERE idempotency_key = $1 AND person_id = $2 AND expires_at > now()`,
		key, personID,
	).Scan(&e.Key, &e.PersonID, &e.RequestHash, &e.StatusCode, &e.ResponseBody, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &e, nil
}

// Claim inserts a pending entry and reports whether this caller owns the key.
// A live entry, pending or completed, makes the claim fail; an expired one is
// taken over.
func (r *IdempotencyRepository) Claim(ctx context.Context, entry *IdempotencyCacheEntry) (bool, error) {
	var key string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO idempotency_cache (idempotency_key, person_id, request_hash, status_code, response_body, created_at, expires_at)
		VALUES ($1, $2, $3, 0, ''::bytea, $4, $5)
		ON CONFLICT (idempotency_key, person_id) DO UPDATE
		SET request_hash = EXCLUDED.request_hash,
			status_code = 0,
			response_body = ''::bytea,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_cache.expires_at <= now()
		RETURNING idempotency_key`,
		entry.Key, entry.PersonID, entry.RequestHash, entry.CreatedAt, entry.ExpiresAt,
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("Claim: %w", err)
	}
	return true, nil
}

// Complete stores the response for a key this caller claimed.
func (r *IdempotencyRepository) Complete(ctx context.Context, entry *IdempotencyCacheEntry) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE idempotency_cache
		SET status_code = $1, response_body = $2, expires_at = $3
		WHERE idempotency_key = $4 AND person_id = $5 AND status_code = 0`,
		entry.StatusCode, entry.ResponseBody, entry.ExpiresAt, entry.Key, entry.PersonID,
	)
	if err != nil {
		return fmt.Errorf("Complete: %w", err)
	}
	return nil
}

// Release drops a pending claim so the key can be retried.
func (r *IdempotencyRepository) Release(ctx context.Context, key string, personID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_cache WHERE idempotency_key = $1 AND person_id = $2 AND status_code = 0`,
		key, personID,
	)
	if err != nil {
		return fmt.Errorf("Release: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) CleanExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("CleanExpired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("CleanExpired: rows affected: %w", err)
	}
	return n, nil
}
