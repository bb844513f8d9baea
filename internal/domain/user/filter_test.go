package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-store/internal/domain"
)

func TestFilteredRepository_Warm(t *testing.T) {
	ctx := context.Background()
	inner := newMockUserRepo()
	require.NoError(t, inner.Create(ctx, &User{Username: "obi"}))
	require.NoError(t, inner.Create(ctx, &User{Username: "luke"}))

	repo := NewFilteredRepository(inner, 1000, 0.001)
	n, err := repo.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u, err := repo.FindByUsername(ctx, "obi")
	require.NoError(t, err)
	assert.Equal(t, "obi", u.Username)
	assert.Equal(t, 1, inner.lookups)
}

func TestFilteredRepository_MissFallsThrough(t *testing.T) {
	ctx := context.Background()
	inner := newMockUserRepo()
	repo := NewFilteredRepository(inner, 1000, 0.001)

	_, err := repo.FindByUsername(ctx, "vader")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, inner.lookups)
	assert.False(t, repo.filter.TestString("vader"), "unknown names are not recorded")
}

func TestFilteredRepository_SharedStorage(t *testing.T) {
	ctx := context.Background()
	shared := newMockUserRepo()
	a := NewFilteredRepository(shared, 1000, 0.001)
	b := NewFilteredRepository(shared, 1000, 0.001)
	_, err := b.Warm(ctx)
	require.NoError(t, err)

	// Created through replica a after b warmed up.
	require.NoError(t, a.Create(ctx, &User{Username: "obi"}))
	require.False(t, b.filter.TestString("obi"))

	u, err := b.FindByUsername(ctx, "obi")
	require.NoError(t, err)
	assert.Equal(t, "obi", u.Username)
	assert.True(t, b.filter.TestString("obi"), "found names are recorded")

	err = b.Create(ctx, &User{Username: "obi"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestFilteredRepository_CreateRecordsUsername(t *testing.T) {
	ctx := context.Background()
	inner := newMockUserRepo()
	repo := NewFilteredRepository(inner, 1000, 0.001)

	require.NoError(t, repo.Create(ctx, &User{Username: "obi"}))

	u, err := repo.FindByUsername(ctx, "obi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
}

func TestFilteredRepository_DuplicateCreate(t *testing.T) {
	ctx := context.Background()
	inner := newMockUserRepo()
	repo := NewFilteredRepository(inner, 1000, 0.001)

	require.NoError(t, repo.Create(ctx, &User{Username: "obi"}))
	err := repo.Create(ctx, &User{Username: "obi"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
