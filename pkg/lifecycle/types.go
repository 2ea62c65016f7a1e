package lifecycle

// Module identifiers used for cache broadcasts.
const (
	// ModuleIdentity covers users, roles and policies.
	ModuleIdentity = "identity"
	// ModuleNav covers navigation entries and trees.
	ModuleNav = "nav"
	// ModuleContent covers articles, events, documents, pages and settings.
	ModuleContent = "content"
)

// Cache keys within the module spaces.
const (
	// KeyRolePolicies maps role codes to their route permissions.
	KeyRolePolicies = "role_policies"
	// KeyNavTree prefixes per-group navigation tree entries.
	KeyNavTree = "nav_tree"
	// KeySettings holds the site settings map.
	KeySettings = "settings"
	// KeySocialFeed holds the scraped social feed posts.
	KeySocialFeed = "social_feed"
)

// Permission is one route grant carried in cache broadcasts.
type Permission struct {
	Resource string `json:"resource"` // route pattern, e.g. /api/v1/articles/*
	Action   string `json:"action"`   // HTTP verb or *
}

// RolePolicyMap maps role codes to their permissions.
type RolePolicyMap map[string][]Permission
