package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/trailbook/internal/auth/domain"
	"github.com/smallbiznis/trailbook/internal/auth/password"
	"github.com/smallbiznis/trailbook/internal/auth/repository"
	"github.com/smallbiznis/trailbook/internal/clock"
	"github.com/smallbiznis/trailbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	svc := New(Params{
		Log:   zap.NewNop(),
		Repo:  repository.New(testutil.OpenDB(t)),
		GenID: testutil.Node(),
		Clock: clk,
	})
	return svc, clk
}

func TestUpsertThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	created, err := svc.Upsert(ctx, "  Ops ", "correct-horse", "")
	require.NoError(t, err)
	assert.Equal(t, "ops", created.Username)
	assert.Equal(t, domain.RoleAdmin, created.Role)
	assert.NotContains(t, created.PasswordHash, "correct-horse")

	user, err := svc.Authenticate(ctx, "OPS", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(ctx, "ops", "wrong-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUpsertRotatesPasswordAndRole(t *testing.T) {
	ctx := context.Background()
	svc, clk := newService(t)

	first, err := svc.Upsert(ctx, "guide", "first-password", domain.RoleStaff)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	second, err := svc.Upsert(ctx, "guide", "second-password", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.RoleAdmin, second.Role)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	_, err = svc.Authenticate(ctx, "guide", "first-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "guide", "second-password")
	assert.NoError(t, err)
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Upsert(ctx, "", "long-enough", "")
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)

	_, err = svc.Upsert(ctx, "a:b", "long-enough", "")
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)

	_, err = svc.Upsert(ctx, "ops", "short", "")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	_, err = svc.Upsert(ctx, "ops", "long-enough", "owner")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestAuthenticateUpgradesOldHashes(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.New(db)
	svc := New(Params{
		Log:   zap.NewNop(),
		Repo:  repo,
		GenID: testutil.Node(),
		Clock: clock.NewFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)),
	})

	current := password.Current
	t.Cleanup(func() { password.Current = current })
	password.Current = password.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
	_, err := svc.Upsert(ctx, "guide", "trail-mix-42", domain.RoleStaff)
	require.NoError(t, err)
	password.Current = current

	_, err = svc.Authenticate(ctx, "guide", "trail-mix-42")
	require.NoError(t, err)

	stored, err := repo.FindByUsername(ctx, "guide")
	require.NoError(t, err)
	assert.False(t, password.NeedsRehash(stored.PasswordHash))
	assert.True(t, password.Verify("trail-mix-42", stored.PasswordHash))
}
