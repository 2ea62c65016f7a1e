package session

import "github.com/civicms/pkg/auth"

// Role is a closed set of role codes. Call sites compare against the
// constants, never raw strings; the codes themselves are shared with
// middleware and controllers through pkg/auth.
type Role string

const (
	RoleUser       Role = auth.RoleUser
	RoleModerator  Role = auth.RoleModerator
	RoleAdmin      Role = auth.RoleAdmin
	RoleBAC        Role = auth.RoleBAC
	RoleSuperAdmin Role = auth.RoleSuperAdmin
)

var knownRoles = map[Role]struct{}{
	RoleUser:       {},
	RoleModerator:  {},
	RoleAdmin:      {},
	RoleBAC:        {},
	RoleSuperAdmin: {},
}

// ParseRole maps a stored code onto the enum; ok is false for codes
// outside the set.
func ParseRole(code string) (Role, bool) {
	r := Role(code)
	_, ok := knownRoles[r]
	return r, ok
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// Privileged reports whether the role grants full admin access.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// String returns the role code.
func (r Role) String() string {
	return string(r)
}

// Session identifies an authenticated caller.
type Session struct {
	UserID int64
	Email  string
}

// Profile is the public slice of a user record.
type Profile struct {
	UserID      int64  `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Identity is the resolved view of a session: who the caller is and
// what they may do. Flags are derived, never stored.
type Identity struct {
	Profile *Profile `json:"profile"`
	Roles   []Role   `json:"roles"`
	IsAdmin bool     `json:"isAdmin"`
	IsBAC   bool     `json:"isBac"`
}

// HasRole reports whether the identity holds the role.
func (id *Identity) HasRole(role Role) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleStrings returns the role codes as plain strings, for JWT claims.
func (id *Identity) RoleStrings() []string {
	out := make([]string, 0, len(id.Roles))
	for _, r := range id.Roles {
		out = append(out, string(r))
	}
	return out
}
