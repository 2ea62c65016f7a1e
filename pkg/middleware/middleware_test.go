package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicms/pkg/auth"
)

func newGuardedApp(roles []string, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/guarded",
		func(c *fiber.Ctx) error {
			c.Locals("roles", roles)
			return c.Next()
		},
		guard,
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) },
	)
	return app
}

func TestRequireRolesMatchesHeldRole(t *testing.T) {
	app := newGuardedApp([]string{auth.RoleModerator}, RequireRoles(auth.RoleModerator))

	resp, err := app.Test(httptest.NewRequest("GET", "/guarded", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRolesRejectsUnlistedRole(t *testing.T) {
	app := newGuardedApp([]string{auth.RoleUser}, RequireRoles(auth.RoleModerator))

	resp, err := app.Test(httptest.NewRequest("GET", "/guarded", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRolesAdminBypass(t *testing.T) {
	for _, role := range []string{auth.RoleAdmin, auth.RoleSuperAdmin} {
		app := newGuardedApp([]string{role}, RequireRoles(auth.RoleBAC))

		resp, err := app.Test(httptest.NewRequest("GET", "/guarded", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, role)
	}
}

func TestRequireRolesRejectsAnonymous(t *testing.T) {
	app := newGuardedApp(nil, RequireRoles(auth.RoleAdmin))

	resp, err := app.Test(httptest.NewRequest("GET", "/guarded", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
