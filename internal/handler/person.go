package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/logging"
	"github.com/josh-kwaku/money-tracker/internal/service"
)

type personReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Person, error)
	GetByUsername(ctx context.Context, username string) (*domain.Person, error)
	List(ctx context.Context, limit, offset int) ([]domain.Person, int, error)
}

type profileUpdater interface {
	Update(ctx context.Context, personID int64, req service.ProfileUpdate) (*domain.Person, error)
}

type PersonHandler struct {
	persons  personReader
	profiles profileUpdater
}

func NewPersonHandler(persons personReader, profiles profileUpdater) *PersonHandler {
	return &PersonHandler{persons: persons, profiles: profiles}
}

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

func (r updateProfileRequest) Validate() []FieldError {
	var errs []FieldError
	if r.FullName == nil && r.Email == nil {
		errs = append(errs, FieldError{Field: "body", Message: "full_name or email is required"})
	}
	if r.Email != nil && !validEmail(*r.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if r.FullName != nil && utf8.RuneCountInString(*r.FullName) > 100 {
		errs = append(errs, FieldError{Field: "full_name", Message: "must be at most 100 characters"})
	}
	return errs
}

func (h *PersonHandler) Me(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	p, err := h.persons.GetByID(r.Context(), personID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get person", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPersonDTO(p))
}

func (h *PersonHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	personID, appErr := personFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p, err := h.profiles.Update(r.Context(), personID, service.ProfileUpdate{FullName: req.FullName, Email: req.Email})
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateIdentity) {
			logging.FromContext(r.Context()).Error("failed to update profile", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPersonDTO(p))
}

// Get and GetByUsername are admin-only, like List.
func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	p, err := h.persons.GetByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.FromContext(r.Context()).Error("failed to get person", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPersonDTO(p))
}

func (h *PersonHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	p, err := h.persons.GetByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.FromContext(r.Context()).Error("failed to get person", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPersonDTO(p))
}

// List is admin-only; the route is guarded by RequirePermission.
func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, fields := parsePage(r.URL.Query())
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	if limit == 0 {
		limit = 50
	}
	limit = min(limit, 200)

	persons, total, err := h.persons.List(r.Context(), limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list persons", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]personDTO, len(persons))
	for i := range persons {
		dtos[i] = toPersonDTO(&persons[i])
	}

	RespondSuccess(w, http.StatusOK, pageDTO[personDTO]{Items: dtos, Total: total, Limit: limit, Offset: offset})
}
