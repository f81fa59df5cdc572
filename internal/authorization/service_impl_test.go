package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/trailbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(testutil.OpenDB(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoles(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	cases := []struct {
		name    string
		role    string
		object  string
		action  string
		allowed bool
	}{
		{"admin archives events", "admin", ObjectEvent, ActionArchive, true},
		{"admin reads stats", "admin", ObjectStats, ActionView, true},
		{"admin reads audit log", "admin", ObjectAuditLog, ActionView, true},
		{"staff edits events", "staff", ObjectEvent, ActionUpdate, true},
		{"staff reads bookings", "staff", ObjectBooking, ActionView, true},
		{"admin cancels bookings", "admin", ObjectBooking, ActionCancel, true},
		{"staff cannot archive", "staff", ObjectEvent, ActionArchive, false},
		{"staff cannot cancel bookings", "staff", ObjectBooking, ActionCancel, false},
		{"staff cannot read stats", "staff", ObjectStats, ActionView, false},
		{"unknown role", "guest", ObjectEvent, ActionView, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, "user-"+tc.role, tc.role, tc.object, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizeFollowsRoleChange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.Authorize(ctx, "maya", "admin", ObjectStats, ActionView))
	assert.ErrorIs(t, svc.Authorize(ctx, "maya", "staff", ObjectStats, ActionView), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, "maya", "staff", ObjectEvent, ActionCreate))
}

func TestAuthorizeValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	assert.ErrorIs(t, svc.Authorize(ctx, " ", "admin", ObjectEvent, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "maya", "", ObjectEvent, ActionView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "maya", "admin", "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "maya", "admin", ObjectEvent, ""), ErrInvalidAction)
}

func TestSeedPoliciesIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	first, err := NewEnforcer(db)
	require.NoError(t, err)
	before, err := first.GetPolicy()
	require.NoError(t, err)

	second, err := NewEnforcer(db)
	require.NoError(t, err)
	after, err := second.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}
