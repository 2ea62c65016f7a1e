package auth

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v3"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/civicms/pkg/config"
	"gorm.io/gorm"
)

var (
	enforcerOnce sync.Once
	enforcer     *casbin.Enforcer
)

// InitCasbin initializes the enforcer with the gorm adapter once.
func InitCasbin(db *gorm.DB, cfg *config.CasbinConfig) error {
	var err error
	enforcerOnce.Do(func() {
		adapter, adapterErr := gormadapter.NewAdapterByDB(db)
		if adapterErr != nil {
			err = fmt.Errorf("failed to create casbin adapter: %w", adapterErr)
			return
		}

		enforcer, err = casbin.NewEnforcer(cfg.ModelPath, adapter)
		if err != nil {
			err = fmt.Errorf("failed to create casbin enforcer: %w", err)
			return
		}

		if err = enforcer.LoadPolicy(); err != nil {
			err = fmt.Errorf("failed to load casbin policy: %w", err)
			return
		}
	})
	return err
}

// GetEnforcer returns the enforcer.
func GetEnforcer() *casbin.Enforcer {
	if enforcer == nil {
		panic("casbin enforcer not initialized, call InitCasbin first")
	}
	return enforcer
}

// CasbinService wraps the enforcer with role/policy helpers.
type CasbinService struct {
	enforcer *casbin.Enforcer
}

// NewCasbinService creates a service over the global enforcer.
func NewCasbinService() *CasbinService {
	return &CasbinService{
		enforcer: GetEnforcer(),
	}
}

// Enforce checks sub/obj/act against the policy.
func (s *CasbinService) Enforce(sub, obj, act string) (bool, error) {
	return s.enforcer.Enforce(sub, obj, act)
}

// AddPolicy adds one policy rule.
func (s *CasbinService) AddPolicy(sub, obj, act string) (bool, error) {
	return s.enforcer.AddPolicy(sub, obj, act)
}

// RemovePolicy removes one policy rule.
func (s *CasbinService) RemovePolicy(sub, obj, act string) (bool, error) {
	return s.enforcer.RemovePolicy(sub, obj, act)
}

// AddPolicies adds policy rules in bulk.
func (s *CasbinService) AddPolicies(rules [][]string) (bool, error) {
	return s.enforcer.AddPolicies(rules)
}

// GetPoliciesForRole lists the rules of one role subject.
func (s *CasbinService) GetPoliciesForRole(role string) [][]string {
	policies, _ := s.enforcer.GetFilteredPolicy(0, role)
	return policies
}

// AddRoleForUser links a user subject to a role subject.
func (s *CasbinService) AddRoleForUser(user, role string) (bool, error) {
	return s.enforcer.AddGroupingPolicy(user, role)
}

// RemoveRoleForUser unlinks a user from a role.
func (s *CasbinService) RemoveRoleForUser(user, role string) (bool, error) {
	return s.enforcer.RemoveGroupingPolicy(user, role)
}

// GetRolesForUser lists a user's roles.
func (s *CasbinService) GetRolesForUser(user string) ([]string, error) {
	return s.enforcer.GetRolesForUser(user)
}

// DeleteRolesForUser removes every role of a user.
func (s *CasbinService) DeleteRolesForUser(user string) (bool, error) {
	return s.enforcer.DeleteRolesForUser(user)
}

// CheckUserPermission checks a user subject including role inheritance.
func (s *CasbinService) CheckUserPermission(userID int64, resource, action string) bool {
	user := fmt.Sprintf("user:%d", userID)
	ok, _ := s.enforcer.Enforce(user, resource, action)
	return ok
}

// CheckRolePermission checks a role subject.
func (s *CasbinService) CheckRolePermission(roleCode, resource, action string) bool {
	role := fmt.Sprintf("role:%s", roleCode)
	ok, _ := s.enforcer.Enforce(role, resource, action)
	return ok
}

// SetUserRoles replaces a user's role links.
func (s *CasbinService) SetUserRoles(userID int64, roleCodes []string) error {
	user := fmt.Sprintf("user:%d", userID)

	if _, err := s.enforcer.DeleteRolesForUser(user); err != nil {
		return err
	}

	for _, code := range roleCodes {
		role := fmt.Sprintf("role:%s", code)
		if _, err := s.enforcer.AddGroupingPolicy(user, role); err != nil {
			return err
		}
	}
	return nil
}

// SetRolePermissions replaces a role's policy rules.
func (s *CasbinService) SetRolePermissions(roleCode string, permissions []Permission) error {
	role := fmt.Sprintf("role:%s", roleCode)

	if _, err := s.enforcer.DeletePermissionsForUser(role); err != nil {
		return err
	}

	for _, perm := range permissions {
		if _, err := s.enforcer.AddPolicy(role, perm.Resource, perm.Action); err != nil {
			return err
		}
	}

	return nil
}

// SavePolicy persists the policy through the adapter.
func (s *CasbinService) SavePolicy() error {
	return s.enforcer.SavePolicy()
}

// LoadPolicy reloads the policy from the adapter.
func (s *CasbinService) LoadPolicy() error {
	return s.enforcer.LoadPolicy()
}

// Permission is one resource/action pair granted to a role.
type Permission struct {
	Resource string `json:"resource"` // route pattern, e.g. /api/v1/articles/*
	Action   string `json:"action"`   // HTTP verb or *
}
