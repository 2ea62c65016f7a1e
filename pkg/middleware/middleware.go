package middleware

import (
	"strings"
	"time"

	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/errors"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWTAuth verifies the bearer token and stores the claims in locals.
func JWTAuth(jwtManager *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			return response.Error(c, 401, "missing auth token")
		}

		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			return response.Error(c, 401, "invalid auth token")
		}

		c.Locals("userId", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("email", claims.Email)
		c.Locals("roles", claims.Roles)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// OptionalJWTAuth parses the bearer token when present but lets
// anonymous requests through. Used on public routes whose response
// widens for privileged callers.
func OptionalJWTAuth(jwtManager *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		if token == "" {
			return c.Next()
		}

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			return c.Next()
		}

		c.Locals("userId", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("email", claims.Email)
		c.Locals("roles", claims.Roles)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequireRoles allows the request only when the caller holds at least
// one of the given roles. Admin and superadmin always pass.
func RequireRoles(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles := GetRoles(c)
		if len(roles) == 0 {
			return response.Forbidden(c, "")
		}

		for _, role := range roles {
			if role == auth.RoleAdmin || role == auth.RoleSuperAdmin {
				return c.Next()
			}
			for _, req := range required {
				if role == req {
					return c.Next()
				}
			}
		}

		return response.Forbidden(c, "")
	}
}

// OperationLogFunc records one admin operation.
type OperationLogFunc func(userID int64, username, module, action, method, path, ip, userAgent, reqBody string, status int, respBody string, latency time.Duration)

// OperationLog records every mutating request through logFunc.
func OperationLog(logFunc OperationLogFunc, moduleName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()

		var reqBody string
		if c.Method() != fiber.MethodGet {
			reqBody = string(c.Body())
		}

		if err := c.Next(); err != nil {
			return err
		}

		latency := time.Since(startTime)

		userID := c.Locals("userId")
		username := c.Locals("username")

		userIDInt := int64(0)
		if userID != nil {
			userIDInt = userID.(int64)
		}
		usernameStr := ""
		if username != nil {
			usernameStr = username.(string)
		}

		action := getActionByMethod(c.Method())

		if logFunc != nil {
			logFunc(
				userIDInt,
				usernameStr,
				moduleName,
				action,
				c.Method(),
				c.Path(),
				c.IP(),
				c.Get("User-Agent"),
				reqBody,
				c.Response().StatusCode(),
				string(c.Response().Body()),
				latency,
			)
		}

		return nil
	}
}

func getActionByMethod(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	case "GET":
		return "read"
	default:
		return "other"
	}
}

// Recovery turns panics into 500 responses.
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
				)
				_ = response.Error(c, 500, "internal server error")
			}
		}()
		return c.Next()
	}
}

// Cors handles cross-origin requests and preflight.
func Cors() fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		origin := c.Get("Origin")

		if origin != "" {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.Set("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Content-Type")
			c.Set("Access-Control-Allow-Credentials", "true")
		}

		if method == "OPTIONS" {
			return c.SendStatus(204)
		}

		return c.Next()
	}
}

// RateLimiter is a token-bucket limiter.
type RateLimiter struct {
	rate     int
	burst    int
	tokens   chan struct{}
	interval time.Duration
}

// NewRateLimiter creates a limiter allowing rate requests per second
// with the given burst.
func NewRateLimiter(rate, burst int) *RateLimiter {
	rl := &RateLimiter{
		rate:     rate,
		burst:    burst,
		tokens:   make(chan struct{}, burst),
		interval: time.Second / time.Duration(rate),
	}

	for i := 0; i < burst; i++ {
		rl.tokens <- struct{}{}
	}

	go rl.refillTokens()

	return rl
}

func (rl *RateLimiter) refillTokens() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for range ticker.C {
		select {
		case rl.tokens <- struct{}{}:
		default:
		}
	}
}

// Middleware returns the limiting handler.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		select {
		case <-rl.tokens:
			return c.Next()
		default:
			return response.Error(c, 429, "too many requests")
		}
	}
}

// RequestID tags every request with an id, preserving an inbound one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals("requestId", requestID)
		c.Set("X-Request-ID", requestID)
		return c.Next()
	}
}

// GetUserID reads the authenticated user id from locals.
func GetUserID(c *fiber.Ctx) int64 {
	userID := c.Locals("userId")
	if userID == nil {
		return 0
	}
	return userID.(int64)
}

// GetUsername reads the authenticated username from locals.
func GetUsername(c *fiber.Ctx) string {
	username := c.Locals("username")
	if username == nil {
		return ""
	}
	return username.(string)
}

// GetEmail reads the authenticated email from locals.
func GetEmail(c *fiber.Ctx) string {
	email := c.Locals("email")
	if email == nil {
		return ""
	}
	return email.(string)
}

// GetRoles reads the authenticated role codes from locals.
func GetRoles(c *fiber.Ctx) []string {
	roles := c.Locals("roles")
	if roles == nil {
		return nil
	}
	return roles.([]string)
}

// HasRole reports whether the caller holds the role.
func HasRole(c *fiber.Ctx, role string) bool {
	for _, r := range GetRoles(c) {
		if r == role {
			return true
		}
	}
	return false
}

// ErrorHandler converts returned AppErrors into envelope responses.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			switch e := err.(type) {
			case *errors.AppError:
				_ = response.Error(c, e.Code, e.Message)
			default:
				_ = response.Error(c, 500, "internal server error")
			}
			return nil
		}
		return nil
	}
}

// PolicyAuth authorizes requests against the broadcast role policies.
// The caller's roles come from the JWT; the policies come from the
// identity service through the PolicyCache.
func PolicyAuth(policyCache *lifecycle.PolicyCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles := GetRoles(c)
		if len(roles) == 0 {
			return response.Error(c, 401, "missing user identity")
		}

		if !policyCache.IsReady() {
			logger.Warn("policy cache not ready")
			return response.Error(c, 500, "authorization data still loading, retry shortly")
		}

		permissions := policyCache.PermissionsForRoles(roles)

		path := c.Path()
		method := c.Method()

		hasPermission := false
		for _, perm := range permissions {
			if matchPermission(perm, path, method) {
				hasPermission = true
				break
			}
		}

		if !hasPermission {
			return response.Error(c, 403, "access denied")
		}

		c.Locals("permissions", permissions)

		return c.Next()
	}
}

func matchPermission(perm lifecycle.Permission, path, method string) bool {
	if !matchPath(perm.Resource, path) {
		return false
	}

	if perm.Action != "*" && !strings.EqualFold(perm.Action, method) {
		return false
	}

	return true
}

// matchPath matches exact paths and trailing /* wildcards.
func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return strings.HasPrefix(path, prefix)
	}

	if pattern == "**" || pattern == "/*" {
		return true
	}

	return false
}

// GetPermissions reads the matched permissions from locals.
func GetPermissions(c *fiber.Ctx) []lifecycle.Permission {
	permissions := c.Locals("permissions")
	if permissions == nil {
		return []lifecycle.Permission{}
	}
	return permissions.([]lifecycle.Permission)
}
