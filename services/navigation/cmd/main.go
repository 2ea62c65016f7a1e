package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	pkgauth "github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/config"
	"github.com/civicms/pkg/database"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/middleware"
	pkgregistry "github.com/civicms/pkg/registry"
	"github.com/civicms/services/navigation/internal/model"
	"github.com/civicms/services/navigation/internal/nav"
)

const (
	serviceName = "navigation-service"
	servicePort = 8082
	basePath    = "navigation"
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
		AddPublicRoute("/menus", "GET").
		AddProtectedRoute("/entries").
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

	err := lifecycle.NewBuilder(serviceName).
		WithAddress(addr).
		WithRegistry(reg).
		WithService(svcInfo).
		WithApp(app).
		OnStart(func(sc *lifecycle.ServiceContext) error {
			db := database.Get()
			if err := db.AutoMigrate(&model.NavEntry{}); err != nil {
				return fmt.Errorf("migrate nav tables: %w", err)
			}
			if err := nav.Seed(db); err != nil {
				return fmt.Errorf("seed nav menus: %w", err)
			}

			jwtManager := pkgauth.NewJWTManager(&cfg.JWT)
			jwtMiddleware := middleware.JWTAuth(jwtManager)

			navCtrl := nav.NewController(nav.NewRepository(), sc)
			navCtrl.BindBroadcasts(sc.Cache())
			navCtrl.RegisterRoutes(app.Group("/"), jwtMiddleware)

			return nil
		}).
		OnReady(func(sc *lifecycle.ServiceContext) error {
			logger.Info("navigation service ready", zap.String("addr", addr))
			return nil
		}).
		OnStop(func(sc *lifecycle.ServiceContext) error {
			logger.Info("navigation service shutting down")
			database.CloseRedis()
			return database.Close()
		}).
		Run()

	if err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}
