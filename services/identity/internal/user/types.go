package user

import "github.com/civicms/pkg/dal"

// CreateRequest creates a user account.
type CreateRequest struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	DisplayName string   `json:"displayName"`
	Avatar      string   `json:"avatar"`
	Status      int      `json:"status"`
	Roles       []string `json:"roles"`
}

// UpdateRequest updates a user account.
type UpdateRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Status      int    `json:"status"`
}

// ListRequest lists users with filter/sort/page parameters.
type ListRequest = dal.ListParams

// SetRolesRequest replaces a user's role assignments.
type SetRolesRequest struct {
	Roles []string `json:"roles"`
}

// ChangePasswordRequest changes the caller's own password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ResetPasswordRequest resets another user's password.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}
