package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/money-tracker/internal/domain"
	"github.com/josh-kwaku/money-tracker/internal/repository"
	"github.com/josh-kwaku/money-tracker/internal/testutil"
)

func TestIdempotencyRepository_ClaimLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)
	ctx := context.Background()

	p := testutil.SeedPerson(t, db, "judy", domain.RoleUser)
	now := time.Now().UTC()
	pending := func() *repository.IdempotencyCacheEntry {
		return &repository.IdempotencyCacheEntry{
			Key: "k-1", PersonID: p.ID, RequestHash: "h1", CreatedAt: now, ExpiresAt: now.Add(time.Minute),
		}
	}

	const racers = 8
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Claim(ctx, pending())
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load(), "exactly one claim wins")

	got, err := repo.Get(ctx, "k-1", p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Pending())

	t.Run("release frees the key", func(t *testing.T) {
		require.NoError(t, repo.Release(ctx, "k-1", p.ID))
		got, err := repo.Get(ctx, "k-1", p.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		ok, err := repo.Claim(ctx, pending())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("completed entry is kept and replayable", func(t *testing.T) {
		done := pending()
		done.StatusCode = 201
		done.ResponseBody = []byte(`{"success":true}`)
		done.ExpiresAt = now.Add(24 * time.Hour)
		require.NoError(t, repo.Complete(ctx, done))

		require.NoError(t, repo.Release(ctx, "k-1", p.ID))
		got, err := repo.Get(ctx, "k-1", p.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 201, got.StatusCode)
		assert.JSONEq(t, `{"success":true}`, string(got.ResponseBody))

		ok, err := repo.Claim(ctx, pending())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired entry can be reclaimed", func(t *testing.T) {
		stale := &repository.IdempotencyCacheEntry{
			Key: "k-2", PersonID: p.ID, RequestHash: "h2", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute),
		}
		ok, err := repo.Claim(ctx, stale)
		require.NoError(t, err)
		require.True(t, ok)

		fresh := &repository.IdempotencyCacheEntry{
			Key: "k-2", PersonID: p.ID, RequestHash: "h2", CreatedAt: now, ExpiresAt: now.Add(time.Minute),
		}
		ok, err = repo.Claim(ctx, fresh)
		require.NoError(t, err)
		assert.True(t, ok)

		n, err := repo.CleanExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

