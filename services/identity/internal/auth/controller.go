package auth

import (
	"strings"

	pkgauth "github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/middleware"
	"github.com/civicms/pkg/response"
	"github.com/civicms/services/identity/internal/loginlog"
	"github.com/civicms/services/identity/internal/model"
	"github.com/civicms/services/identity/internal/session"
	"github.com/civicms/services/identity/internal/user"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoginRequest is a credential pair. Username also accepts the email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the token and the resolved identity.
type LoginResponse struct {
	Token    *pkgauth.TokenInfo `json:"token"`
	Identity session.Identity   `json:"identity"`
}

// Controller serves the auth endpoints.
type Controller struct {
	users    user.Repository
	logs     loginlog.Repository
	jwt      *pkgauth.JWTManager
	resolver *session.Resolver
}

// NewController creates an auth controller.
func NewController(users user.Repository, logs loginlog.Repository, jwt *pkgauth.JWTManager, resolver *session.Resolver) *Controller {
	return &Controller{users: users, logs: logs, jwt: jwt, resolver: resolver}
}

// RegisterRoutes mounts the auth routes.
func (c *Controller) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	auth := r.Group("/auth")
	auth.Post("/login", c.Login)
	auth.Post("/logout", jwtMiddleware, c.Logout)
	auth.Post("/refresh", c.Refresh)
	auth.Get("/me", jwtMiddleware, c.Me)
}

// Login verifies credentials, issues a token and records the attempt.
func (c *Controller) Login(ctx *fiber.Ctx) error {
	var req LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.ValidateError(ctx, err.Error())
	}

	u, err := c.users.FindByUsername(ctx.UserContext(), req.Username)
	if err != nil {
		return response.ServerError(ctx, err.Error())
	}
	if u == nil && strings.Contains(req.Username, "@") {
		u, err = c.users.FindByEmail(ctx.UserContext(), req.Username)
		if err != nil {
			return response.ServerError(ctx, err.Error())
		}
	}

	if u == nil || !pkgauth.CheckPassword(req.Password, u.Password) {
		c.record(ctx, u, req.Username, false, "invalid credentials")
		return response.Unauthorized(ctx, "invalid username or password")
	}

	if u.Status != 1 {
		c.record(ctx, u, req.Username, false, "account disabled")
		return response.Forbidden(ctx, "account is disabled")
	}

	identity := c.resolver.Resolve(ctx.UserContext(), &session.Session{
		UserID: u.ID,
		Email:  u.Email,
	})

	token, err := c.jwt.CreateTokenInfo(u.ID, u.Username, u.Email, identity.RoleStrings())
	if err != nil {
		return response.ServerError(ctx, "failed to issue token: "+err.Error())
	}

	c.record(ctx, u, req.Username, true, "")

	return response.Success(ctx, &LoginResponse{
		Token:    token,
		Identity: identity,
	})
}

// Logout acknowledges the sign-out; tokens are stateless.
func (c *Controller) Logout(ctx *fiber.Ctx) error {
	logger.Info("user logged out",
		zap.Int64("userId", middleware.GetUserID(ctx)),
		zap.String("username", middleware.GetUsername(ctx)),
	)
	return response.Success(ctx, nil)
}

// Refresh reissues a token, accepting an expired one.
func (c *Controller) Refresh(ctx *fiber.Ctx) error {
	token := strings.TrimPrefix(ctx.Get("Authorization"), "Bearer ")
	if token == "" {
		return response.Unauthorized(ctx, "missing token")
	}

	newToken, err := c.jwt.RefreshToken(token)
	if err != nil {
		return response.Unauthorized(ctx, err.Error())
	}

	return response.Success(ctx, &pkgauth.TokenInfo{
		AccessToken: newToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(c.jwt.GetExpireIn().Seconds()),
	})
}

// Me resolves the caller's identity. The resolver never errors, so
// this always answers within the resolve timeout.
func (c *Controller) Me(ctx *fiber.Ctx) error {
	identity := c.resolver.Resolve(ctx.UserContext(), &session.Session{
		UserID: middleware.GetUserID(ctx),
		Email:  middleware.GetEmail(ctx),
	})

	return response.Success(ctx, identity)
}

// record writes the login log without blocking the response.
func (c *Controller) record(ctx *fiber.Ctx, u *model.User, username string, success bool, message string) {
	entry := &model.LoginLog{
		Username:  username,
		IP:        ctx.IP(),
		UserAgent: ctx.Get("User-Agent"),
		Success:   success,
		Message:   message,
	}
	if u != nil {
		entry.UserID = u.ID
		entry.Username = u.Username
	}

	go func() {
		if err := c.logs.Record(entry); err != nil {
			logger.Warn("failed to record login attempt", zap.Error(err))
		}
	}()
}
