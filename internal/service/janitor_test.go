package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/josh-kwaku/money-tracker/internal/auth"
)

type stubCleaner struct {
	calls int
	err   error
}

func (s *stubCleaner) CleanExpired(context.Context) (int64, error) {
	s.calls++
	return 3, s.err
}

type countingPruner struct{ calls int }

func (p *countingPruner) Prune() int {
	p.calls++
	return 1
}

func TestJanitorSweep(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	registry := auth.NewMemoryRegistry()
	registry.Revoke("old", now.Add(-time.Second))
	registry.Revoke("fresh", now.Add(time.Hour))

	cleaner := &stubCleaner{}
	pruner := &countingPruner{}
	j := NewJanitor(registry, cleaner, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute).WithLimiters(pruner)
	j.now = func() time.Time { return now }

	j.sweep(context.Background())

	assert.Equal(t, 1, cleaner.calls)
	assert.Equal(t, 1, pruner.calls)
	assert.False(t, registry.IsRevoked("old"))
	assert.True(t, registry.IsRevoked("fresh"))

	cleaner.err = errors.New("db down")
	j.sweep(context.Background())
	assert.Equal(t, 2, cleaner.calls)
	assert.Equal(t, 2, pruner.calls)
}

func TestJanitorStart_StopsOnCancel(t *testing.T) {
	cleaner := &stubCleaner{}
	j := NewJanitor(auth.NewMemoryRegistry(), cleaner, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
