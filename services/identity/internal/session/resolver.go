package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civicms/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultLookupTimeout  = 5 * time.Second
	defaultResolveTimeout = 8 * time.Second
)

// ResolverConfig bounds the resolver and carries the admin allowlist.
type ResolverConfig struct {
	AdminEmails    []string
	LookupTimeout  time.Duration
	ResolveTimeout time.Duration
}

// Resolver turns a session into an Identity. It never returns an
// error: failed lookups degrade to an allowlist-only identity, and the
// whole resolution is bounded by the resolve timeout.
type Resolver struct {
	profiles ProfileLookup
	roles    RoleLookup
	allow    map[string]struct{}

	lookupTimeout  time.Duration
	resolveTimeout time.Duration

	group singleflight.Group
}

// NewResolver creates a resolver. Allowlist emails match
// case-insensitively.
func NewResolver(profiles ProfileLookup, roles RoleLookup, cfg ResolverConfig) *Resolver {
	allow := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allow[email] = struct{}{}
		}
	}

	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	resolveTimeout := cfg.ResolveTimeout
	if resolveTimeout <= 0 {
		resolveTimeout = defaultResolveTimeout
	}

	return &Resolver{
		profiles:       profiles,
		roles:          roles,
		allow:          allow,
		lookupTimeout:  lookupTimeout,
		resolveTimeout: resolveTimeout,
	}
}

// Resolve computes the identity of a session. A nil session resolves
// to an anonymous identity immediately. Concurrent calls for the same
// user share one resolution.
func (r *Resolver) Resolve(ctx context.Context, sess *Session) Identity {
	if sess == nil {
		return Identity{}
	}

	key := fmt.Sprintf("%d|%s", sess.UserID, strings.ToLower(sess.Email))
	v, _, _ := r.group.Do(key, func() (any, error) {
		return r.resolve(ctx, sess), nil
	})
	return v.(Identity)
}

func (r *Resolver) resolve(ctx context.Context, sess *Session) Identity {
	ctx, cancel := context.WithTimeout(ctx, r.resolveTimeout)
	defer cancel()

	profileCh := make(chan *Profile, 1)
	rolesCh := make(chan []Role, 1)

	go func() {
		lctx, lcancel := context.WithTimeout(ctx, r.lookupTimeout)
		defer lcancel()

		profile, err := r.profiles.Profile(lctx, sess.UserID)
		if err != nil {
			logger.Warn("profile lookup failed",
				zap.Int64("userId", sess.UserID),
				zap.Error(err),
			)
			profileCh <- nil
			return
		}
		profileCh <- profile
	}()

	go func() {
		lctx, lcancel := context.WithTimeout(ctx, r.lookupTimeout)
		defer lcancel()

		roles, err := r.roles.Roles(lctx, sess.UserID)
		if err != nil {
			logger.Warn("role lookup failed, degrading to allowlist",
				zap.Int64("userId", sess.UserID),
				zap.Error(err),
			)
			rolesCh <- nil
			return
		}
		rolesCh <- roles
	}()

	var profile *Profile
	var roles []Role

	// Both branches answer within the lookup timeout; ctx.Done is the
	// hard stop for lookups that ignore cancellation.
	for remaining := 2; remaining > 0; {
		select {
		case profile = <-profileCh:
			remaining--
		case roles = <-rolesCh:
			remaining--
		case <-ctx.Done():
			logger.Warn("session resolution timed out",
				zap.Int64("userId", sess.UserID),
			)
			remaining = 0
		}
	}

	return r.buildIdentity(sess, profile, roles)
}

func (r *Resolver) buildIdentity(sess *Session, profile *Profile, roles []Role) Identity {
	isAdmin := r.allowlisted(sess.Email)
	isBAC := false

	for _, role := range roles {
		if role.Privileged() {
			isAdmin = true
		}
		if role == RoleBAC {
			isBAC = true
		}
	}

	if roles == nil {
		roles = []Role{}
	}

	return Identity{
		Profile: profile,
		Roles:   roles,
		IsAdmin: isAdmin,
		IsBAC:   isBAC,
	}
}

func (r *Resolver) allowlisted(email string) bool {
	_, ok := r.allow[strings.ToLower(strings.TrimSpace(email))]
	return ok
}
