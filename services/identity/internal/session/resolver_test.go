package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProfiles struct {
	profile *Profile
	err     error
	delay   time.Duration
	calls   atomic.Int64
}

func (s *stubProfiles) Profile(ctx context.Context, userID int64) (*Profile, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.profile, s.err
}

type stubRoles struct {
	roles []Role
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (s *stubRoles) Roles(ctx context.Context, userID int64) ([]Role, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.roles, s.err
}

func newTestResolver(profiles ProfileLookup, roles RoleLookup, allowlist ...string) *Resolver {
	return NewResolver(profiles, roles, ResolverConfig{
		AdminEmails:    allowlist,
		LookupTimeout:  200 * time.Millisecond,
		ResolveTimeout: 400 * time.Millisecond,
	})
}

func TestResolveNilSession(t *testing.T) {
	r := newTestResolver(&stubProfiles{}, &stubRoles{})

	id := r.Resolve(context.Background(), nil)

	assert.Nil(t, id.Profile)
	assert.False(t, id.IsAdmin)
	assert.False(t, id.IsBAC)
}

func TestResolveBACRole(t *testing.T) {
	// a bac assignment grants isBAC but never isAdmin
	profiles := &stubProfiles{profile: &Profile{UserID: 7, Email: "clerk@lgu.gov.ph"}}
	roles := &stubRoles{roles: []Role{RoleBAC}}
	r := newTestResolver(profiles, roles)

	id := r.Resolve(context.Background(), &Session{UserID: 7, Email: "clerk@lgu.gov.ph"})

	assert.False(t, id.IsAdmin)
	assert.True(t, id.IsBAC)
	require.NotNil(t, id.Profile)
	assert.Equal(t, int64(7), id.Profile.UserID)
	assert.Equal(t, []Role{RoleBAC}, id.Roles)
}

func TestResolveAdminRole(t *testing.T) {
	roles := &stubRoles{roles: []Role{RoleAdmin}}
	r := newTestResolver(&stubProfiles{}, roles)

	id := r.Resolve(context.Background(), &Session{UserID: 1, Email: "mayor@lgu.gov.ph"})

	assert.True(t, id.IsAdmin)
	assert.False(t, id.IsBAC)
}

func TestResolveAllowlistOverride(t *testing.T) {
	// allowlist wins even when the roles fetch errors entirely
	profiles := &stubProfiles{profile: &Profile{UserID: 3, Email: "Admin@Example.Gov"}}
	roles := &stubRoles{err: errors.New("network unreachable")}
	r := newTestResolver(profiles, roles, "admin@example.gov")

	id := r.Resolve(context.Background(), &Session{UserID: 3, Email: "Admin@Example.Gov"})

	assert.True(t, id.IsAdmin)
	assert.False(t, id.IsBAC)
	assert.Empty(t, id.Roles)
}

func TestResolveAllowlistCaseInsensitive(t *testing.T) {
	roles := &stubRoles{roles: []Role{}}
	r := newTestResolver(&stubProfiles{}, roles, "ADMIN@example.GOV")

	id := r.Resolve(context.Background(), &Session{UserID: 3, Email: "admin@EXAMPLE.gov"})

	assert.True(t, id.IsAdmin)
}

func TestResolveFailSafeDegradation(t *testing.T) {
	// permission-denied on the roles fetch never grants table-derived
	// flags; only the allowlist can still grant admin
	roles := &stubRoles{err: errors.New("permission denied for function list_user_roles")}
	r := newTestResolver(&stubProfiles{err: errors.New("permission denied")}, roles)

	id := r.Resolve(context.Background(), &Session{UserID: 9, Email: "citizen@example.com"})

	assert.False(t, id.IsAdmin)
	assert.False(t, id.IsBAC)
	assert.Nil(t, id.Profile)
	assert.Empty(t, id.Roles)
}

func TestResolveTimeoutBound(t *testing.T) {
	// lookups that never answer must not hang the resolution
	profiles := &stubProfiles{delay: 10 * time.Second}
	roles := &stubRoles{delay: 10 * time.Second}
	r := newTestResolver(profiles, roles, "admin@example.gov")

	start := time.Now()
	id := r.Resolve(context.Background(), &Session{UserID: 5, Email: "admin@example.gov"})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second)
	assert.True(t, id.IsAdmin) // allowlist still applies
	assert.Nil(t, id.Profile)
}

func TestResolveConcurrentCallsCoalesce(t *testing.T) {
	profiles := &stubProfiles{profile: &Profile{UserID: 11}, delay: 50 * time.Millisecond}
	roles := &stubRoles{roles: []Role{RoleModerator}, delay: 50 * time.Millisecond}
	r := newTestResolver(profiles, roles)

	sess := &Session{UserID: 11, Email: "mod@lgu.gov.ph"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Resolve(context.Background(), sess)
			assert.Equal(t, []Role{RoleModerator}, id.Roles)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), profiles.calls.Load())
	assert.Equal(t, int64(1), roles.calls.Load())
}

func TestResolveIsDeterministic(t *testing.T) {
	profiles := &stubProfiles{profile: &Profile{UserID: 2, DisplayName: "Treasurer"}}
	roles := &stubRoles{roles: []Role{RoleModerator, RoleBAC}}
	r := newTestResolver(profiles, roles)

	sess := &Session{UserID: 2, Email: "treasurer@lgu.gov.ph"}
	first := r.Resolve(context.Background(), sess)
	second := r.Resolve(context.Background(), sess)

	assert.Equal(t, first, second)
}

func TestRoleParsing(t *testing.T) {
	for _, code := range []string{"user", "moderator", "admin", "bac", "superadmin"} {
		role, ok := ParseRole(code)
		assert.True(t, ok, code)
		assert.True(t, role.Valid())
	}

	_, ok := ParseRole("root")
	assert.False(t, ok)
	assert.False(t, Role("root").Valid())

	assert.True(t, RoleAdmin.Privileged())
	assert.True(t, RoleSuperAdmin.Privileged())
	assert.False(t, RoleModerator.Privileged())
	assert.False(t, RoleBAC.Privileged())
}
