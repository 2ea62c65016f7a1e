package lifecycle

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicms/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"go-micro.dev/v5/registry"
	"go.uber.org/zap"
)

// ServiceOptions configure a Service.
type ServiceOptions struct {
	Name     string
	NodeID   string
	Address  string
	Registry registry.Registry
	Service  *registry.Service
}

// Service wraps a fiber app with lifecycle events, cache broadcasting,
// registry registration and graceful shutdown.
type Service struct {
	opts      *ServiceOptions
	app       *fiber.App
	lifecycle *Manager
	cache     *CacheBroadcaster
	ctx       *ServiceContext

	onStart []func(*ServiceContext) error
	onReady []func(*ServiceContext) error
	onStop  []func(*ServiceContext) error
}

// NewService creates a service from options.
func NewService(opts *ServiceOptions) *Service {
	s := &Service{
		opts:      opts,
		lifecycle: NewManager(opts.Name, opts.NodeID),
		cache:     NewCacheBroadcaster(opts.Name),
		onStart:   make([]func(*ServiceContext) error, 0),
		onReady:   make([]func(*ServiceContext) error, 0),
		onStop:    make([]func(*ServiceContext) error, 0),
	}
	s.ctx = newServiceContext(s)
	return s
}

// SetApp sets the fiber app to serve.
func (s *Service) SetApp(app *fiber.App) {
	s.app = app
}

// Lifecycle returns the lifecycle manager.
func (s *Service) Lifecycle() *Manager {
	return s.lifecycle
}

// Cache returns the cache broadcaster.
func (s *Service) Cache() *CacheBroadcaster {
	return s.cache
}

// Context returns the service context.
func (s *Service) Context() *ServiceContext {
	return s.ctx
}

// OnStart registers a start hook.
func (s *Service) OnStart(fn func(*ServiceContext) error) {
	s.onStart = append(s.onStart, fn)
}

// OnReady registers a ready hook.
func (s *Service) OnReady(fn func(*ServiceContext) error) {
	s.onReady = append(s.onReady, fn)
}

// OnStop registers a stop hook.
func (s *Service) OnStop(fn func(*ServiceContext) error) {
	s.onStop = append(s.onStop, fn)
}

// Run starts the service and blocks until shutdown.
func (s *Service) Run() error {
	if err := s.lifecycle.Start(); err != nil {
		return fmt.Errorf("start lifecycle manager: %w", err)
	}

	if err := s.cache.Start(); err != nil {
		return fmt.Errorf("start cache broadcaster: %w", err)
	}

	s.lifecycle.EmitStarting()

	for _, fn := range s.onStart {
		if err := fn(s.ctx); err != nil {
			return fmt.Errorf("start hook: %w", err)
		}
	}

	if s.opts.Registry != nil && s.opts.Service != nil {
		if err := s.opts.Registry.Register(s.opts.Service); err != nil {
			return fmt.Errorf("register service: %w", err)
		}
	}

	s.lifecycle.EmitStarted()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("service listening",
			zap.String("service", s.opts.Name),
			zap.String("address", s.opts.Address),
		)
		if err := s.app.Listen(s.opts.Address); err != nil {
			errCh <- err
		}
	}()

	// give the listener a moment before declaring readiness
	time.Sleep(100 * time.Millisecond)

	for _, fn := range s.onReady {
		if err := fn(s.ctx); err != nil {
			return fmt.Errorf("ready hook: %w", err)
		}
	}

	s.lifecycle.EmitReady()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	return s.Shutdown()
}

// Shutdown stops the service gracefully.
func (s *Service) Shutdown() error {
	s.lifecycle.EmitStopping()

	for _, fn := range s.onStop {
		if err := fn(s.ctx); err != nil {
			logger.Error("stop hook failed", zap.Error(err))
		}
	}

	if s.opts.Registry != nil && s.opts.Service != nil {
		if err := s.opts.Registry.Deregister(s.opts.Service); err != nil {
			logger.Error("deregister service failed", zap.Error(err))
		}
	}

	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			logger.Error("shutdown http server failed", zap.Error(err))
		}
	}

	if err := s.cache.Stop(); err != nil {
		logger.Error("stop cache broadcaster failed", zap.Error(err))
	}

	s.lifecycle.EmitStopped()

	if err := s.lifecycle.Stop(); err != nil {
		logger.Error("stop lifecycle manager failed", zap.Error(err))
	}

	logger.Info("service stopped", zap.String("service", s.opts.Name))
	return nil
}
