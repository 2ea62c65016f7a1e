package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	pkgauth "github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/config"
	"github.com/civicms/pkg/database"
	"github.com/civicms/pkg/lifecycle"
	"github.com/civicms/pkg/logger"
	"github.com/civicms/pkg/middleware"
	pkgregistry "github.com/civicms/pkg/registry"
	"github.com/civicms/services/content/internal/article"
	"github.com/civicms/services/content/internal/category"
	"github.com/civicms/services/content/internal/document"
	"github.com/civicms/services/content/internal/event"
	"github.com/civicms/services/content/internal/model"
	"github.com/civicms/services/content/internal/page"
	"github.com/civicms/services/content/internal/setting"
	"github.com/civicms/services/content/internal/social"
)

const (
	serviceName = "content-service"
	servicePort = 8083
	basePath    = "content"
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
		AddPublicRoute("/articles", "GET").
		AddPublicRoute("/events", "GET").
		AddPublicRoute("/documents", "GET").
		AddPublicRoute("/pages", "GET").
		AddPublicRoute("/categories", "GET").
		AddPublicRoute("/settings", "GET").
		AddPublicRoute("/social", "GET").
		AddProtectedRoute("/admin").
		Build()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             int(cfg.Storage.MaxUploadSize) + 1024*1024,
	})

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

	scheduler := cron.New()

	err := lifecycle.NewBuilder(serviceName).
		WithAddress(addr).
		WithRegistry(reg).
		WithService(svcInfo).
		WithApp(app).
		OnStart(func(sc *lifecycle.ServiceContext) error {
			db := database.Get()
			if err := db.AutoMigrate(
				&model.Category{},
				&model.Article{},
				&model.Event{},
				&model.Document{},
				&model.Page{},
				&model.Setting{},
			); err != nil {
				return fmt.Errorf("migrate content tables: %w", err)
			}

			jwtManager := pkgauth.NewJWTManager(&cfg.JWT)
			jwtMiddleware := middleware.JWTAuth(jwtManager)
			optionalJWT := middleware.OptionalJWTAuth(jwtManager)

			api := app.Group("/")

			articleCtrl := article.NewController(article.NewRepository(), sc)
			articleCtrl.RegisterRoutes(api, jwtMiddleware)

			eventCtrl := event.NewController(event.NewRepository(), sc)
			eventCtrl.RegisterRoutes(api, jwtMiddleware)

			documentCtrl := document.NewController(document.NewRepository(), &cfg.Storage, sc)
			documentCtrl.RegisterRoutes(api, jwtMiddleware, optionalJWT)

			pageCtrl := page.NewController(page.NewRepository(), sc)
			pageCtrl.RegisterRoutes(api, jwtMiddleware)

			categoryCtrl := category.NewController(category.NewRepository(), sc)
			categoryCtrl.RegisterRoutes(api, jwtMiddleware)

			settingCtrl := setting.NewController(setting.NewRepository(), sc)
			settingCtrl.BindBroadcasts(sc.Cache())
			settingCtrl.RegisterRoutes(api, jwtMiddleware)

			feed := social.NewFeed(social.NewScraper(os.Getenv("CIVICMS_SOCIAL_PAGE_URL")), sc)
			if err := feed.Schedule(scheduler); err != nil {
				return fmt.Errorf("schedule social feed refresh: %w", err)
			}
			social.NewController(feed).RegisterRoutes(api)

			scheduler.Start()

			return nil
		}).
		OnReady(func(sc *lifecycle.ServiceContext) error {
			logger.Info("content service ready", zap.String("addr", addr))
			return nil
		}).
		OnStop(func(sc *lifecycle.ServiceContext) error {
			logger.Info("content service shutting down")
			scheduler.Stop()
			database.CloseRedis()
			return database.Close()
		}).
		Run()

	if err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}
