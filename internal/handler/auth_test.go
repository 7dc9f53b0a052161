package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/service"
)

type mockAuthService struct {
	registered   *service.RegisterRequest
	registerErr  error
	loginID      string
	session      *service.Session
	loginErr     error
	refreshToken string
	refreshErr   error
	loggedOut    []string
}

func (m *mockAuthService) Register(_ context.Context, req service.RegisterRequest) (*domain.Person, error) {
	m.registered = &req
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &domain.Person{ID: 1, Username: req.Username, Email: req.Email, FullName: req.FullName, Role: domain.RoleUser, Balance: decimal.Zero}, nil
}

func (m *mockAuthService) Login(_ context.Context, identifier, _ string) (*service.Session, error) {
	m.loginID = identifier
	return m.session, m.loginErr
}

func (m *mockAuthService) Refresh(_ context.Context, token string) (*service.Session, error) {
	m.refreshToken = token
	return m.session, m.refreshErr
}

func (m *mockAuthService) Logout(_ context.Context, tokens ...string) {
	m.loggedOut = tokens
}

func testSession() *service.Session {
	return &service.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    time.Hour,
		Person:       &domain.Person{ID: 7, Username: "alice", Email: "alice@example.com", Role: domain.RoleUser, Balance: decimal.RequireFromString("12.5")},
	}
}

func TestRegisterHandler(t *testing.T) {
	valid := `{"username":"bob","email":"bob@example.com","password":"password123","full_name":"Bob"}`

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{name: "created", body: valid, wantStatus: http.StatusCreated},
		{name: "malformed json", body: `{"username":`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "short username", body: `{"username":"bo","email":"bob@example.com","password":"password123"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "bad email", body: `{"username":"bob","email":"not-an-email","password":"password123"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "display-name email", body: `{"username":"bob","email":"Bob <bob@example.com>","password":"password123"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "short password", body: `{"username":"bob","email":"bob@example.com","password":"short"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "duplicate", body: valid, serviceErr: fmt.Errorf("Register: %w", domain.ErrDuplicateIdentity), wantStatus: http.StatusConflict, wantCode: "DUPLICATE_IDENTITY"},
		{name: "store failure", body: valid, serviceErr: fmt.Errorf("db down"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAuthService{registerErr: tc.serviceErr}
			h := NewAuthHandler(svc)
			rec := httptest.NewRecorder()

			h.Register(rec, newRequest(http.MethodPost, "/api/v1/auth/register", tc.body, 0))

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(t, rec))
				return
			}
			p := decodeData[personDTO](t, rec)
			assert.Equal(t, "bob", p.Username)
			assert.Equal(t, "0.00", p.Balance)
			assert.Equal(t, "USER", p.Role)
		})
	}
}

func TestRegisterHandler_ValidationReportsEveryField(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	rec := httptest.NewRecorder()

	h.Register(rec, newRequest(http.MethodPost, "/api/v1/auth/register", `{"username":"","email":"","password":""}`, 0))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error struct {
			Details []FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	fields := body.Error.Details

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	assert.ElementsMatch(t, []string{"username", "email", "password"}, names)
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		loginErr   error
		wantStatus int
		wantCode   string
		wantID     string
	}{
		{name: "identifier", body: `{"identifier":"alice","password":"pw"}`, wantStatus: http.StatusOK, wantID: "alice"},
		{name: "email field fallback", body: `{"email":"alice@example.com","password":"pw"}`, wantStatus: http.StatusOK, wantID: "alice@example.com"},
		{name: "missing password", body: `{"identifier":"alice"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "bad credentials", body: `{"identifier":"alice","password":"nope"}`, loginErr: fmt.Errorf("Login: %w", domain.ErrInvalidCredentials), wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS", wantID: "alice"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAuthService{session: testSession(), loginErr: tc.loginErr}
			if tc.loginErr != nil {
				svc.session = nil
			}
			h := NewAuthHandler(svc)
			rec := httptest.NewRecorder()

			h.Login(rec, newRequest(http.MethodPost, "/api/v1/auth/login", tc.body, 0))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantID, svc.loginID)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(t, rec))
				return
			}
			s := decodeData[sessionDTO](t, rec)
			assert.Equal(t, "access", s.AccessToken)
			assert.Equal(t, "refresh", s.RefreshToken)
			assert.Equal(t, "Bearer", s.TokenType)
			assert.Equal(t, int64(3600), s.ExpiresIn)
			assert.Equal(t, "12.50", s.Person.Balance)
		})
	}
}

func TestRefreshHandler(t *testing.T) {
	t.Run("rotates", func(t *testing.T) {
		svc := &mockAuthService{session: testSession()}
		rec := httptest.NewRecorder()

		NewAuthHandler(svc).Refresh(rec, newRequest(http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"r1"}`, 0))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "r1", svc.refreshToken)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewAuthHandler(&mockAuthService{}).Refresh(rec, newRequest(http.MethodPost, "/api/v1/auth/refresh", `{}`, 0))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
	})

	t.Run("rejected token", func(t *testing.T) {
		svc := &mockAuthService{refreshErr: fmt.Errorf("Refresh: %w", domain.ErrUnauthenticated)}
		rec := httptest.NewRecorder()

		NewAuthHandler(svc).Refresh(rec, newRequest(http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"stale"}`, 0))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
	})
}

func TestLogoutHandler(t *testing.T) {
	t.Run("revokes bearer and refresh token", func(t *testing.T) {
		svc := &mockAuthService{}
		req := newRequest(http.MethodPost, "/api/v1/auth/logout", `{"refresh_token":"r1"}`, 7)
		req.Header.Set("Authorization", "Bearer a1")
		rec := httptest.NewRecorder()

		NewAuthHandler(svc).Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"a1", "r1"}, svc.loggedOut)
	})

	t.Run("body is optional", func(t *testing.T) {
		svc := &mockAuthService{}
		req := newRequest(http.MethodPost, "/api/v1/auth/logout", "", 7)
		req.Header.Set("Authorization", "Bearer a1")
		rec := httptest.NewRecorder()

		NewAuthHandler(svc).Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"a1", ""}, svc.loggedOut)
	})

	t.Run("refresh token without bearer", func(t *testing.T) {
		svc := &mockAuthService{}
		req := newRequest(http.MethodPost, "/api/v1/auth/logout", `{"refresh_token":"r1"}`, 0)
		rec := httptest.NewRecorder()

		NewAuthHandler(svc).Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"", "r1"}, svc.loggedOut)
	})

	t.Run("expired bearer still revokes refresh token", func(t *testing.T) {
		svc := &mockAuthService{}
		req := newRequest(http.MethodPost, "/api/v1/auth/logout", `{"refresh_token":"r1"}`, 0)
		req.Header.Set("Authorization", "Bearer expired")
		rec := httptest.NewRecorder()

		NewAuthHandler(svc).Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"expired", "r1"}, svc.loggedOut)
	})
}
