package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/money-tracker/internal/auth"
	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/logging"
)

type RegisterRequest struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Session is the token pair handed out by Login and Refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Person       *domain.Person
}

type Authenticator struct {
	persons    personStore
	hasher     PasswordHasher
	tokens     tokenCodec
	revoked    auth.RevocationRegistry
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Compared against on unknown identifiers so login latency does not
	// reveal whether an account exists.
	dummyDigest string
}

func NewAuthenticator(
	persons personStore,
	hasher PasswordHasher,
	tokens tokenCodec,
	revoked auth.RevocationRegistry,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) (*Authenticator, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("NewAuthenticator: dummy digest: %w", err)
	}
	return &Authenticator{
		persons:     persons,
		hasher:      hasher,
		tokens:      tokens,
		revoked:     revoked,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		dummyDigest: dummy,
	}, nil
}

func (s *Authenticator) Register(ctx context.Context, req RegisterRequest) (*domain.Person, error) {
	log := logging.FromContext(ctx)

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	usernameTaken, err := s.persons.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	emailTaken, err := s.persons.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	if usernameTaken || emailTaken {
		log.Info("registration rejected: identity taken",
			"username_taken", usernameTaken,
			"email_taken", emailTaken,
		)
		return nil, fmt.Errorf("Register: %w", domain.ErrDuplicateIdentity)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	p := &domain.Person{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         domain.RoleUser,
	}
	if err := s.persons.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	log.Info("person registered", "person_id", p.ID, "username", p.Username)
	return p, nil
}

// Login accepts a username or an email as identifier.
func (s *Authenticator) Login(ctx context.Context, identifier, password string) (*Session, error) {
	log := logging.FromContext(ctx)

	p, err := s.persons.GetByUsernameOrEmail(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.Verify(password, s.dummyDigest)
			log.Info("login failed", "reason", "unknown identifier")
			return nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("Login: %w", err)
	}

	if !s.hasher.Verify(password, p.PasswordHash) {
		log.Info("login failed", "reason", "password mismatch", "person_id", p.ID)
		return nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
	}

	session, err := s.issueSession(p)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}

	log.Info("login succeeded", "person_id", p.ID)
	return session, nil
}

// Refresh exchanges a live refresh token for a new pair and revokes the old
// refresh token.
func (s *Authenticator) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	log := logging.FromContext(ctx)

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		log.Debug("refresh rejected", "reason", err)
		return nil, fmt.Errorf("Refresh: %w", domain.ErrUnauthenticated)
	}
	if claims.Kind != auth.KindRefresh || s.revoked.IsRevoked(refreshToken) {
		log.Debug("refresh rejected", "reason", "wrong kind or revoked", "person_id", claims.Subject)
		return nil, fmt.Errorf("Refresh: %w", domain.ErrUnauthenticated)
	}

	p, err := s.persons.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Refresh: %w", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("Refresh: %w", err)
	}

	s.revoked.Revoke(refreshToken, claims.ExpiresAt)

	session, err := s.issueSession(p)
	if err != nil {
		return nil, fmt.Errorf("Refresh: %w", err)
	}
	return session, nil
}

// Logout revokes every verifiable token until its natural expiry. Tokens that
// fail verification are already unusable and are skipped.
func (s *Authenticator) Logout(ctx context.Context, tokens ...string) {
	log := logging.FromContext(ctx)

	for _, token := range tokens {
		if token == "" {
			continue
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			log.Debug("logout skipped unverifiable token", "reason", err)
			continue
		}
		s.revoked.Revoke(token, claims.ExpiresAt)
		log.Info("token revoked", "person_id", claims.Subject, "kind", claims.Kind)
	}
}

func (s *Authenticator) issueSession(p *domain.Person) (*Session, error) {
	access, err := s.tokens.Issue(p.ID, p.Role, auth.KindAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issueSession: access: %w", err)
	}
	refresh, err := s.tokens.Issue(p.ID, p.Role, auth.KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issueSession: refresh: %w", err)
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.accessTTL,
		Person:       p,
	}, nil
}
