package policy

import (
	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"go.uber.org/zap"
)

// rolePolicies is the seed policy table: what each role may reach
// through the gateway. Admin wildcards everything; superadmin
// inherits the admin bypass in the middleware.
var rolePolicies = map[string][]auth.Permission{
	auth.RoleAdmin: {
		{Resource: "/api/v1/*", Action: "*"},
	},
	auth.RoleModerator: {
		{Resource: "/api/v1/articles/*", Action: "*"},
		{Resource: "/api/v1/events/*", Action: "*"},
		{Resource: "/api/v1/pages/*", Action: "*"},
		{Resource: "/api/v1/categories/*", Action: "GET"},
	},
	auth.RoleBAC: {
		{Resource: "/api/v1/documents/*", Action: "*"},
	},
}

// Seed writes the role policies into casbin when missing.
func Seed(casbinSvc *auth.CasbinService) error {
	for role, perms := range rolePolicies {
		subject := "role:" + role
		if existing := casbinSvc.GetPoliciesForRole(subject); len(existing) > 0 {
			continue
		}
		if err := casbinSvc.SetRolePermissions(role, perms); err != nil {
			return err
		}
		logger.Info("seeded role policies",
			zap.String("role", role),
			zap.Int("rules", len(perms)),
		)
	}
	return casbinSvc.SavePolicy()
}

// BuildPolicyMap reads the current role policies out of casbin into
// the broadcast shape.
func BuildPolicyMap(casbinSvc *auth.CasbinService) lifecycle.RolePolicyMap {
	policyMap := make(lifecycle.RolePolicyMap, len(rolePolicies))

	for role := range rolePolicies {
		rules := casbinSvc.GetPoliciesForRole("role:" + role)
		perms := make([]lifecycle.Permission, 0, len(rules))
		for _, rule := range rules {
			if len(rule) < 3 {
				continue
			}
			perms = append(perms, lifecycle.Permission{
				Resource: rule[1],
				Action:   rule[2],
			})
		}
		policyMap[role] = perms
	}

	return policyMap
}

// Broadcast publishes the role policies so sibling services can
// authorize without a database round trip.
func Broadcast(sc *lifecycle.ServiceContext, casbinSvc *auth.CasbinService) error {
	policyMap := BuildPolicyMap(casbinSvc)
	return sc.Broadcast(lifecycle.ModuleIdentity, lifecycle.KeyRolePolicies, policyMap)
}
