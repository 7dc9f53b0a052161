package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/josh-kwaku/money-tracker/internal/auth"
	"github.com/josh-kwaku/money-tracker/internal/handler"
	"github.com/josh-kwaku/money-tracker/internal/logging"
	"github.com/josh-kwaku/money-tracker/internal/repository"
)

type idempotencyRepository interface {
	Get(ctx context.Context, key string, personID int64) (*repository.IdempotencyCacheEntry, error)
	Claim(ctx context.Context, entry *repository.IdempotencyCacheEntry) (bool, error)
	Complete(ctx context.Context, entry *repository.IdempotencyCacheEntry) error
	Release(ctx context.Context, key string, personID int64) error
}

const (
	idempotencyTTL = 24 * time.Hour
	// A claim whose request never completes frees the key after this long.
	pendingClaimTTL = time.Minute
)

// Idempotency replays the stored response for a repeated Idempotency-Key on
// ledger writes. The key is claimed before the handler runs, so concurrent
// requests with one key reach the handler at most once. The key is optional;
// requests without one pass through.
func Idempotency(repo idempotencyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > 255 {
				handler.RespondValidationError(w, []handler.FieldError{{Field: "Idempotency-Key", Message: "must be at most 255 characters"}})
				return
			}

			personID, ok := auth.PersonIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			log := logging.FromContext(r.Context())

			body, err := io.ReadAll(r.Body)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			now := time.Now().UTC()
			entry := &repository.IdempotencyCacheEntry{
				Key:         key,
				PersonID:    personID,
				RequestHash: computeHash(r.Method, r.URL.Path, body),
				CreatedAt:   now,
				ExpiresAt:   now.Add(pendingClaimTTL),
			}

			claimed, err := repo.Claim(r.Context(), entry)
			if err != nil {
				log.Error("idempotency claim failed", "error", err, "idempotency_key", key)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
				return
			}
			if !claimed {
				replay(w, r, repo, entry)
				return
			}

			// The outcome is recorded even if the client has gone away.
			storeCtx := context.WithoutCancel(r.Context())
			settled := false
			defer func() {
				if !settled {
					if err := repo.Release(storeCtx, key, personID); err != nil {
						log.Error("idempotency release failed", "error", err, "idempotency_key", key)
					}
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Only successful writes are replayable; a failed attempt may be retried.
			if rec.statusCode >= 300 {
				return
			}

			// The write happened, so the claim is never released from here on.
			settled = true
			entry.StatusCode = rec.statusCode
			entry.ResponseBody = rec.body.Bytes()
			entry.ExpiresAt = time.Now().UTC().Add(idempotencyTTL)
			if err := repo.Complete(storeCtx, entry); err != nil {
				log.Error("idempotency cache store failed", "error", err, "idempotency_key", key)
			}
		})
	}
}

// replay answers a request whose key is already held by another request.
func replay(w http.ResponseWriter, r *http.Request, repo idempotencyRepository, entry *repository.IdempotencyCacheEntry) {
	log := logging.FromContext(r.Context())

	cached, err := repo.Get(r.Context(), entry.Key, entry.PersonID)
	if err != nil {
		log.Error("idempotency cache lookup failed", "error", err, "idempotency_key", entry.Key)
		handler.RespondAppError(w, handler.ErrInternalError, nil)
		return
	}

	switch {
	case cached == nil:
		// The holder released or expired between the claim and the lookup.
		handler.RespondAppError(w, handler.ErrIdempotencyInProgress, nil)
	case cached.RequestHash != entry.RequestHash:
		handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
	case cached.Pending():
		handler.RespondAppError(w, handler.ErrIdempotencyInProgress, nil)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Idempotent-Replayed", "true")
		w.WriteHeader(cached.StatusCode)
		if _, err := w.Write(cached.ResponseBody); err != nil {
			log.Error("failed to write idempotent replay", "error", err, "idempotency_key", entry.Key)
		}
	}
}

func computeHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return fmt.Sprintf("%x", h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
