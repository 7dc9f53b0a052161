package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/money-tracker/internal/domain"
)

func ptr(s string) *string { return &s }

func TestProfilesUpdate(t *testing.T) {
	ctx := context.Background()
	store := newMemPersonStore()
	for _, p := range []*domain.Person{
		{Username: "frank", Email: "frank@example.com", FullName: "Frank", Role: domain.RoleUser},
		{Username: "grace", Email: "grace@example.com", FullName: "Grace", Role: domain.RoleUser},
	} {
		require.NoError(t, store.Create(ctx, p))
	}
	profiles := NewProfiles(store)

	tests := []struct {
		name         string
		personID     int64
		req          ProfileUpdate
		wantErr      error
		wantFullName string
		wantEmail    string
	}{
		{
			name:         "full name only",
			personID:     1,
			req:          ProfileUpdate{FullName: ptr("  Frank Sinatra ")},
			wantFullName: "Frank Sinatra",
			wantEmail:    "frank@example.com",
		},
		{
			name:         "email is normalised",
			personID:     1,
			req:          ProfileUpdate{Email: ptr("Frankie@Example.com")},
			wantFullName: "Frank Sinatra",
			wantEmail:    "frankie@example.com",
		},
		{
			name:         "own email again",
			personID:     1,
			req:          ProfileUpdate{Email: ptr("FRANKIE@example.com")},
			wantFullName: "Frank Sinatra",
			wantEmail:    "frankie@example.com",
		},
		{
			name:     "email held by someone else",
			personID: 1,
			req:      ProfileUpdate{Email: ptr("grace@example.com")},
			wantErr:  domain.ErrDuplicateIdentity,
		},
		{
			name:     "unknown person",
			personID: 42,
			req:      ProfileUpdate{FullName: ptr("Nobody")},
			wantErr:  domain.ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := profiles.Update(ctx, tc.personID, tc.req)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantFullName, p.FullName)
			assert.Equal(t, tc.wantEmail, p.Email)
		})
	}

	stored, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "frankie@example.com", stored.Email, "a rejected update leaves the row untouched")
}
