package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/money-tracker/internal/domain"
)

func TestResolve(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	codec := newTestCodec(t, testSecret, clock)
	registry := NewMemoryRegistry()
	resolver := NewResolver(codec, registry)
	ctx := context.Background()

	access, err := codec.Issue(11, domain.RoleUser, KindAccess, time.Hour)
	require.NoError(t, err)

	id, err := resolver.Resolve(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, Identity{PersonID: 11, Role: domain.RoleUser}, id)

	t.Run("revoked before expiry", func(t *testing.T) {
		revoked, err := codec.Issue(11, domain.RoleUser, KindAccess, time.Hour)
		require.NoError(t, err)

		registry.Revoke(revoked, baseTime.Add(time.Hour))

		_, err = resolver.Resolve(ctx, revoked)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = resolver.Resolve(ctx, access)
		assert.NoError(t, err, "other tokens of the same person stay valid")
	})

	t.Run("refresh token cannot authenticate", func(t *testing.T) {
		refresh, err := codec.Issue(11, domain.RoleUser, KindRefresh, 24*time.Hour)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, refresh)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("invalid tokens collapse to unauthenticated", func(t *testing.T) {
		for _, tok := range []string{"", "garbage", access + "x"} {
			_, err := resolver.Resolve(ctx, tok)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
			assert.NotErrorIs(t, err, ErrTokenMalformed)
		}
	})

	t.Run("expired", func(t *testing.T) {
		clock.now = baseTime.Add(90 * time.Minute)
		defer func() { clock.now = baseTime }()

		_, err := resolver.Resolve(ctx, access)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		{header: "Bearer   abc ", want: "abc", ok: true},
		{header: "Bearer ", ok: false},
		{header: "Basic dXNlcjpwYXNz", ok: false},
		{header: "", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			got, ok := BearerToken(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
