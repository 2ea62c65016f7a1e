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
	"github.com/civicms/services/gateway/internal/gateway"
)

const (
	serviceName = "gateway-service"
	servicePort = 8080
)

func main() {
	if err := config.Init(""); err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	logger.Init(&cfg.Log)
	defer logger.Sync()

	if err := database.InitRedis(&cfg.Redis); err != nil {
		logger.Fatal("failed to init redis", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, servicePort)

	reg := pkgregistry.NewRedisRegistry()

	gw := gateway.New(reg, pkgauth.NewJWTManager(&cfg.JWT))

	svcInfo := pkgregistry.NewServiceBuilder(serviceName, cfg.App.Version).
		WithAddress(addr).
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
	app.Get("/services", gw.ServicesStatus)
	app.All("/api/v1/*", gw.Handler())

	err := lifecycle.NewBuilder(serviceName).
		WithAddress(addr).
		WithRegistry(reg).
		WithService(svcInfo).
		WithApp(app).
		OnStart(func(sc *lifecycle.ServiceContext) error {
			if err := gw.SyncRoutes(); err != nil {
				logger.Warn("initial route sync failed", zap.Error(err))
			}
			gw.StartSync()
			return nil
		}).
		OnReady(func(sc *lifecycle.ServiceContext) error {
			logger.Info("gateway ready", zap.String("addr", addr))
			return nil
		}).
		OnStop(func(sc *lifecycle.ServiceContext) error {
			logger.Info("gateway shutting down")
			gw.Stop()
			database.CloseRedis()
			return nil
		}).
		Run()

	if err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}
