package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/josh-kwaku/money-tracker/internal/auth"
	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/logging"
	"github.com/josh-kwaku/money-tracker/internal/service"
)

type authService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*domain.Person, error)
	Login(ctx context.Context, identifier, password string) (*service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*service.Session, error)
	Logout(ctx context.Context, tokens ...string)
}

type AuthHandler struct {
	auth authService
}

func NewAuthHandler(auth authService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (r registerRequest) Validate() []FieldError {
	var errs []FieldError
	if !usernamePattern.MatchString(strings.TrimSpace(r.Username)) {
		errs = append(errs, FieldError{Field: "username", Message: "3-50 letters, digits, '.', '_' or '-'"})
	}
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	} else if !validEmail(r.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	// bcrypt ignores input past 72 bytes.
	if n := len(r.Password); n < 8 || n > 72 {
		errs = append(errs, FieldError{Field: "password", Message: "must be 8-72 bytes"})
	}
	if utf8.RuneCountInString(r.FullName) > 100 {
		errs = append(errs, FieldError{Field: "full_name", Message: "must be at most 100 characters"})
	}
	return errs
}

// validEmail accepts a bare address only, without a display name.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == strings.TrimSpace(s) && len(s) <= 255
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (r loginRequest) identifier() string {
	for _, v := range []string{r.Identifier, r.Username, r.Email} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r loginRequest) Validate() []FieldError {
	var errs []FieldError
	if r.identifier() == "" {
		errs = append(errs, FieldError{Field: "identifier", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type personDTO struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

func toPersonDTO(p *domain.Person) personDTO {
	return personDTO{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      string(p.Role),
		Balance:   p.Balance.StringFixed(2),
		CreatedAt: p.CreatedAt,
	}
}

type sessionDTO struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	Person       personDTO `json:"person"`
}

func toSessionDTO(s *service.Session) sessionDTO {
	return sessionDTO{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.ExpiresIn / time.Second),
		Person:       toPersonDTO(s.Person),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p, err := h.auth.Register(r.Context(), service.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateIdentity) {
			logging.FromContext(r.Context()).Error("failed to register", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toPersonDTO(p))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	session, err := h.auth.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			logging.FromContext(r.Context()).Error("failed to log in", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toSessionDTO(session))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.RefreshToken == "" {
		RespondValidationError(w, []FieldError{{Field: "refresh_token", Message: "required"}})
		return
	}

	session, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthenticated) {
			logging.FromContext(r.Context()).Error("failed to refresh session", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toSessionDTO(session))
}

// Logout revokes the bearer token and, when supplied, the refresh token.
// The body is optional.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	access, _ := auth.BearerToken(r.Header.Get("Authorization"))

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	h.auth.Logout(r.Context(), access, req.RefreshToken)
	RespondSuccess(w, http.StatusOK, map[string]bool{"logged_out": true})
}
