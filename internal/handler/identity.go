package handler

import (
	"net/http"
	"strconv"

	"github.com/josh-kwaku/money-tracker/internal/auth"
)

func personFromContext(r *http.Request) (int64, *AppError) {
	id, ok := auth.PersonIDFromContext(r.Context())
	if !ok {
		return 0, ErrMissingToken
	}
	return id, nil
}

// idFromPath treats an unparseable id as a missing resource.
func idFromPath(r *http.Request, name string) (int64, *AppError) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrResourceNotFound
	}
	return id, nil
}
