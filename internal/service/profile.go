package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/logging"
)

// ProfileUpdate carries the fields a person may change about themselves.
// Nil fields are left as they are.
type ProfileUpdate struct {
	FullName *string
	Email    *string
}

type Profiles struct {
	persons profileStore
}

func NewProfiles(persons profileStore) *Profiles {
	return &Profiles{persons: persons}
}

func (s *Profiles) Update(ctx context.Context, personID int64, req ProfileUpdate) (*domain.Person, error) {
	log := logging.FromContext(ctx)

	p, err := s.persons.GetByID(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	fullName, email := p.FullName, p.Email
	if req.FullName != nil {
		fullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*req.Email))
	}

	if email != p.Email {
		taken, err := s.persons.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("Update: %w", err)
		}
		if taken {
			log.Info("profile update rejected: email taken", "person_id", personID)
			return nil, fmt.Errorf("Update: %w", domain.ErrDuplicateIdentity)
		}
	}

	updated, err := s.persons.UpdateProfile(ctx, personID, fullName, email)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	log.Info("profile updated", "person_id", personID, "email_changed", email != p.Email)
	return updated, nil
}
