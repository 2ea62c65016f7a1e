package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	pkgauth "github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/config"
	"github.com/civicms/pkg/database"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/middleware"
	pkgregistry "github.com/civicms/pkg/registry"
	"github.com/civicms/pkg/utils"
	authctrl "github.com/civicms/services/identity/internal/auth"
	"github.com/civicms/services/identity/internal/loginlog"
	"github.com/civicms/services/identity/internal/model"
	"github.com/civicms/services/identity/internal/policy"
	"github.com/civicms/services/identity/internal/session"
	"github.com/civicms/services/identity/internal/user"
)

const (
	serviceName = "identity-service"
	servicePort = 8081
	basePath    = "identity"
)

func main() {
	if err := config.Init(""); err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	logger.Init(&cfg.Log)
	defer logger.Sync()

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("failed to init database", zap.Error(err))
	}
	if err := database.InitRedis(&cfg.Redis); err != nil {
		logger.Fatal("failed to init redis", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, servicePort)

	reg := pkgregistry.NewRedisRegistry()

	svcInfo := pkgregistry.NewServiceBuilder(serviceName, cfg.App.Version).
		WithAddress(addr).
		WithBasePath(basePath).
		AddPublicRoute("/auth/login", "POST").
		AddPublicRoute("/auth/refresh", "POST").
		AddProtectedRoute("/auth").
		AddProtectedRoute("/users").
		AddProtectedRoute("/profile").
		AddProtectedRoute("/login-logs").
		Build()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(middleware.Recovery())
	app.Use(middleware.Cors())
	app.Use(middleware.RequestID())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(200).JSON(fiber.Map{
			"status":  "healthy",
			"service": serviceName,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	var casbinSvc *pkgauth.CasbinService

	err := lifecycle.NewBuilder(serviceName).
		WithAddress(addr).
		WithRegistry(reg).
		WithService(svcInfo).
		WithApp(app).
		OnStart(func(sc *lifecycle.ServiceContext) error {
			db := database.Get()
			if err := db.AutoMigrate(
				&model.User{},
				&model.RoleAssignment{},
				&model.LoginLog{},
			); err != nil {
				return fmt.Errorf("migrate identity tables: %w", err)
			}

			if err := pkgauth.InitCasbin(db, &cfg.Casbin); err != nil {
				return fmt.Errorf("init casbin: %w", err)
			}
			casbinSvc = pkgauth.NewCasbinService()

			if err := policy.Seed(casbinSvc); err != nil {
				return fmt.Errorf("seed role policies: %w", err)
			}

			if err := seedSuperAdmin(db); err != nil {
				return fmt.Errorf("seed superadmin: %w", err)
			}

			jwtManager := pkgauth.NewJWTManager(&cfg.JWT)
			jwtMiddleware := middleware.JWTAuth(jwtManager)

			userRepo := user.NewRepository()
			logRepo := loginlog.NewRepository()

			resolver := session.NewResolver(
				session.NewTableProfileLookup(db),
				session.Fallback(
					session.NewProcRoleLookup(db),
					session.NewTableRoleLookup(db),
				),
				session.ResolverConfig{
					AdminEmails:    cfg.Auth.AdminEmails,
					LookupTimeout:  cfg.Auth.LookupTimeoutDuration(),
					ResolveTimeout: cfg.Auth.ResolveTimeoutDuration(),
				},
			)

			userCtrl := user.NewController(userRepo, casbinSvc)
			authCtrl := authctrl.NewController(userRepo, logRepo, jwtManager, resolver)
			logCtrl := loginlog.NewController(logRepo)

			api := app.Group("/")
			authCtrl.RegisterRoutes(api, jwtMiddleware)
			userCtrl.RegisterRoutes(api, jwtMiddleware)
			logCtrl.RegisterRoutes(api, jwtMiddleware)

			return nil
		}).
		OnReady(func(sc *lifecycle.ServiceContext) error {
			// sibling services authorize against this broadcast
			if err := policy.Broadcast(sc, casbinSvc); err != nil {
				logger.Error("failed to broadcast role policies", zap.Error(err))
			}
			logger.Info("identity service ready", zap.String("addr", addr))
			return nil
		}).
		OnStop(func(sc *lifecycle.ServiceContext) error {
			logger.Info("identity service shutting down")
			database.CloseRedis()
			return database.Close()
		}).
		Run()

	if err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

// seedSuperAdmin creates the initial account when the user table is
// empty. The password comes from CIVICMS_ADMIN_PASSWORD or falls back
// to a generated one printed once to the log.
func seedSuperAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("CIVICMS_ADMIN_PASSWORD")
	generated := false
	if password == "" {
		password = utils.RandomString(16)
		generated = true
	}

	hashed, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username:    "superadmin",
		Email:       "admin@civicms.local",
		Password:    hashed,
		DisplayName: "System Administrator",
		Status:      1,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}
	if err := db.Create(&model.RoleAssignment{UserID: admin.ID, Role: pkgauth.RoleSuperAdmin}).Error; err != nil {
		return err
	}

	if generated {
		logger.Warn("generated initial superadmin password",
			zap.String("username", admin.Username),
			zap.String("password", password),
		)
	}

	return nil
}
