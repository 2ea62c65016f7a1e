package auth

// Role codes shared across services. The identity session package
// wraps these in its closed Role enum; middleware and controllers
// reference the constants instead of raw strings.
const (
	RoleUser       = "user"
	RoleModerator  = "moderator"
	RoleAdmin      = "admin"
	RoleBAC        = "bac"
	RoleSuperAdmin = "superadmin"
)
