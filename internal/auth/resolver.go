package auth

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/logging"
)

type tokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Resolver turns a bearer token into the Identity acting on a request.
type Resolver struct {
	tokens  tokenVerifier
	revoked RevocationRegistry
}

func NewResolver(tokens tokenVerifier, revoked RevocationRegistry) *Resolver {
	return &Resolver{tokens: tokens, revoked: revoked}
}

// Resolve collapses every token failure into domain.ErrUnauthenticated. The
// underlying reason is only logged.
func (r *Resolver) Resolve(ctx context.Context, token string) (Identity, error) {
	log := logging.FromContext(ctx)

	claims, err := r.tokens.Verify(token)
	if err != nil {
		log.Debug("token rejected", "reason", err)
		return Identity{}, fmt.Errorf("Resolve: %w", domain.ErrUnauthenticated)
	}
	if claims.Kind != KindAccess {
		log.Debug("token rejected", "reason", "not an access token", "kind", claims.Kind)
		return Identity{}, fmt.Errorf("Resolve: %w", domain.ErrUnauthenticated)
	}
	if r.revoked.IsRevoked(token) {
		log.Debug("token rejected", "reason", "revoked", "person_id", claims.Subject)
		return Identity{}, fmt.Errorf("Resolve: %w", domain.ErrUnauthenticated)
	}

	return Identity{PersonID: claims.Subject, Role: claims.Role}, nil
}
