package auth

import (
	"sync"
	"time"
)

// RevocationRegistry records tokens invalidated before their natural expiry.
type RevocationRegistry interface {
	Revoke(token string, expiresAt time.Time)
	IsRevoked(token string) bool
}

// MemoryRegistry is a process-local RevocationRegistry. Entries are keyed by
// the raw token and kept until Sweep observes that the token has expired on
// its own.
type MemoryRegistry struct {
	entries sync.Map // token -> time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

func (r *MemoryRegistry) Revoke(token string, expiresAt time.Time) {
	r.entries.LoadOrStore(token, expiresAt)
}

func (r *MemoryRegistry) IsRevoked(token string) bool {
	_, ok := r.entries.Load(token)
	return ok
}

// Sweep drops entries whose token expired at or before now and returns how
// many were removed.
func (r *MemoryRegistry) Sweep(now time.Time) int {
	removed := 0
	r.entries.Range(func(key, value any) bool {
		if expiresAt, ok := value.(time.Time); ok && !expiresAt.After(now) {
			r.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (r *MemoryRegistry) Len() int {
	n := 0
	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
