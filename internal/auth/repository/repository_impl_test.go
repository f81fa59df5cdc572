package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/trailbook/internal/auth/domain"
	"github.com/smallbiznis/trailbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := New(testutil.OpenDB(t))
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	first := domain.AdminUser{ID: testutil.Node().Generate(), Username: "ops", PasswordHash: "h1", Role: domain.RoleAdmin, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, &first))

	second := domain.AdminUser{ID: testutil.Node().Generate(), Username: "ops", PasswordHash: "h2", Role: domain.RoleStaff, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, repo.Create(ctx, &second), domain.ErrUsernameTaken)
}

func TestSaveKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := New(testutil.OpenDB(t))
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	user := domain.AdminUser{ID: testutil.Node().Generate(), Username: "guide", PasswordHash: "h1", Role: domain.RoleStaff, CreatedAt: created, UpdatedAt: created}
	require.NoError(t, repo.Create(ctx, &user))

	user.PasswordHash = "h2"
	user.Role = domain.RoleAdmin
	user.UpdatedAt = created.Add(time.Hour)
	user.CreatedAt = time.Time{}
	require.NoError(t, repo.Save(ctx, &user))

	got, err := repo.FindByUsername(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.True(t, got.CreatedAt.Equal(created))

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	missing := domain.AdminUser{ID: testutil.Node().Generate()}
	assert.ErrorIs(t, repo.Save(ctx, &missing), domain.ErrUserNotFound)
}
