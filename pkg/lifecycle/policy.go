package lifecycle

import "sync"

// PolicyCache holds the role-to-route policies broadcast by the
// identity service, so other services can guard admin routes without
// querying the policy store themselves.
type PolicyCache struct {
	policies RolePolicyMap
	ready    bool
	mu       sync.RWMutex
}

// NewPolicyCache creates an empty cache.
func NewPolicyCache() *PolicyCache {
	return &PolicyCache{
		policies: make(RolePolicyMap),
	}
}

// Update replaces the cached policies.
func (pc *PolicyCache) Update(policies RolePolicyMap) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.policies = policies
	pc.ready = true
}

// PermissionsForRoles aggregates and deduplicates the permissions of
// the given role codes.
func (pc *PolicyCache) PermissionsForRoles(roles []string) []Permission {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Permission
	for _, role := range roles {
		for _, perm := range pc.policies[role] {
			key := perm.Resource + "|" + perm.Action
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, perm)
		}
	}
	return result
}

// RolesKnown reports whether the role code has any policy.
func (pc *PolicyCache) RolesKnown(role string) bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	_, ok := pc.policies[role]
	return ok
}

// IsReady reports whether policies were received at least once.
func (pc *PolicyCache) IsReady() bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.ready
}

// BindTo subscribes the cache to identity-module broadcasts, loading
// any snapshot already present in the space.
func (pc *PolicyCache) BindTo(cb *CacheBroadcaster) {
	space := cb.GetSpace(ModuleIdentity)

	var policies RolePolicyMap
	if err := space.Get(KeyRolePolicies, &policies); err == nil {
		pc.Update(policies)
	}

	cb.Subscribe(ModuleIdentity, func(msg *CacheMessage) {
		if msg.Key != KeyRolePolicies {
			return
		}
		var updated RolePolicyMap
		if err := space.Get(KeyRolePolicies, &updated); err != nil {
			return
		}
		pc.Update(updated)
	})
}
