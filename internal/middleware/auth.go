package middleware

import (
	"context"
	"net/http"

	"github.com/josh-kwaku/money-tracker/internal/auth"
	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/handler"
	"github.com/josh-kwaku/money-tracker/internal/logging"
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
}

func Auth(resolver identityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, ok := auth.BearerToken(header)
			if !ok {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			if meta := metaFromContext(r.Context()); meta != nil {
				meta.personID = id.PersonID
			}

			ctx := auth.ContextWithIdentity(r.Context(), id)
			ctx = logging.With(ctx, "person_id", id.PersonID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission must run after Auth.
func RequirePermission(p domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}
			if !id.Role.Can(p) {
				logging.FromContext(r.Context()).Warn("permission denied", "role", id.Role, "permission", p)
				handler.RespondAppError(w, handler.ErrForbidden, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
