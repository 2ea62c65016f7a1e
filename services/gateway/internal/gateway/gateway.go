package gateway

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go-micro.dev/v5/registry"
	"go.uber.org/zap"

	"github.com/civicms/pkg/auth"
	"github.com/civicms/pkg/logger"
	pkgregistry "github.com/civicms/pkg/registry"
	"github.com/civicms/pkg/response"
)

// APIVersion is the public path prefix every proxied service lives under.
const APIVersion = "/api/v1"

// Route is one proxy rule in the gateway's table.
type Route struct {
	ServiceName  string
	PathPrefix   string // gateway-side prefix, e.g. /api/v1/content/articles
	StripPrefix  string // removed from the path before proxying
	Methods      []string
	AuthRequired bool
}

// Gateway proxies public traffic to the registered services.
type Gateway struct {
	registry registry.Registry
	jwt      *auth.JWTManager

	mu     sync.RWMutex
	routes map[string]*Route // keyed by PathPrefix

	breakerMu sync.Mutex
	breakers  map[string]*CircuitBreaker // keyed by service name

	syncInterval time.Duration
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// New creates a gateway over the given registry. The JWT manager vets
// bearer tokens on routes that demand authentication.
func New(reg registry.Registry, jwtManager *auth.JWTManager) *Gateway {
	return &Gateway{
		registry:     reg,
		jwt:          jwtManager,
		routes:       make(map[string]*Route),
		breakers:     make(map[string]*CircuitBreaker),
		syncInterval: 15 * time.Second,
		stopChan:     make(chan struct{}),
	}
}

// RegisterRoute adds or replaces a proxy rule.
func (g *Gateway) RegisterRoute(route *Route) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[route.PathPrefix] = route
	logger.Info("gateway route registered",
		zap.String("service", route.ServiceName),
		zap.String("prefix", route.PathPrefix),
		zap.Strings("methods", route.Methods),
		zap.Bool("auth", route.AuthRequired),
	)
}

// SyncRoutes rebuilds the route table from the registry.
func (g *Gateway) SyncRoutes() error {
	services, err := g.registry.ListServices()
	if err != nil {
		return err
	}

	fresh := make(map[string]*Route)
	for _, svc := range services {
		entries, err := g.registry.GetService(svc.Name)
		if err != nil {
			logger.Warn("failed to resolve service",
				zap.String("service", svc.Name),
				zap.Error(err),
			)
			continue
		}
		for _, entry := range entries {
			collectServiceRoutes(fresh, entry)
		}
	}

	g.mu.Lock()
	g.routes = fresh
	g.mu.Unlock()
	return nil
}

// collectServiceRoutes derives proxy rules from a service's metadata.
// A base path yields a catch-all authenticated rule; fine-grained route
// entries carve public or method-restricted holes out of it.
func collectServiceRoutes(table map[string]*Route, svc *registry.Service) {
	basePath, routes := pkgregistry.ParseServiceMeta(svc)
	if basePath == "" {
		return
	}

	gatewayBase := APIVersion + "/" + basePath
	table[gatewayBase] = &Route{
		ServiceName:  svc.Name,
		PathPrefix:   gatewayBase,
		StripPrefix:  gatewayBase,
		Methods:      pkgregistry.DefaultMethods,
		AuthRequired: true,
	}

	for _, rc := range routes {
		prefix := gatewayBase + rc.PathPrefix
		table[prefix] = &Route{
			ServiceName:  svc.Name,
			PathPrefix:   prefix,
			StripPrefix:  gatewayBase,
			Methods:      rc.Methods,
			AuthRequired: rc.AuthRequired,
		}
	}
}

// StartSync refreshes the route table on an interval. The redis registry
// has no watch stream, so the gateway polls.
func (g *Gateway) StartSync() {
	go func() {
		ticker := time.NewTicker(g.syncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stopChan:
				return
			case <-ticker.C:
				if err := g.SyncRoutes(); err != nil {
					logger.Warn("route sync failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the background sync loop.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() { close(g.stopChan) })
}

// matchRoute finds the most specific rule for a path. Longest prefix
// wins so a public carve-out beats the service's catch-all rule.
func (g *Gateway) matchRoute(path string) *Route {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var best *Route
	for prefix, route := range g.routes {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if best == nil || len(prefix) > len(best.PathPrefix) {
			best = route
		}
	}
	return best
}

func (g *Gateway) breakerFor(serviceName string) *CircuitBreaker {
	g.breakerMu.Lock()
	defer g.breakerMu.Unlock()
	cb, ok := g.breakers[serviceName]
	if !ok {
		cb = NewCircuitBreaker(5, 30*time.Second)
		g.breakers[serviceName] = cb
	}
	return cb
}

// Handler is the fiber handler that proxies /api/v1 traffic.
func (g *Gateway) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		route := g.matchRoute(path)
		if route == nil {
			return response.NotFound(c, "no service handles this path")
		}

		methodAllowed := false
		for _, m := range route.Methods {
			if strings.EqualFold(m, c.Method()) {
				methodAllowed = true
				break
			}
		}
		if !methodAllowed {
			return response.Abort(c, fiber.StatusMethodNotAllowed, fiber.StatusMethodNotAllowed, "method not allowed")
		}

		if route.AuthRequired && !g.authorized(c) {
			return response.Unauthorized(c, "authentication required")
		}

		breaker := g.breakerFor(route.ServiceName)
		if !breaker.Allow() {
			return response.Abort(c, fiber.StatusServiceUnavailable, fiber.StatusServiceUnavailable, "service temporarily unavailable")
		}

		entries, err := g.registry.GetService(route.ServiceName)
		if err != nil || len(entries) == 0 {
			breaker.Failure()
			logger.Error("service discovery failed",
				zap.String("service", route.ServiceName),
				zap.Error(err),
			)
			return response.Abort(c, fiber.StatusServiceUnavailable, fiber.StatusServiceUnavailable, "service unavailable")
		}

		var nodes []*registry.Node
		for _, entry := range entries {
			nodes = append(nodes, entry.Nodes...)
		}
		if len(nodes) == 0 {
			breaker.Failure()
			return response.Abort(c, fiber.StatusServiceUnavailable, fiber.StatusServiceUnavailable, "no healthy nodes")
		}

		node := nodes[time.Now().UnixNano()%int64(len(nodes))]

		if err := g.proxy(c, node.Address, route); err != nil {
			breaker.Failure()
			return err
		}
		breaker.Success()
		return nil
	}
}

// authorized reports whether the request carries a valid bearer token.
func (g *Gateway) authorized(c *fiber.Ctx) bool {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	_, err := g.jwt.ParseToken(strings.TrimPrefix(header, "Bearer "))
	return err == nil
}

// proxy forwards the request to a backend node, rewriting the path
// from the gateway prefix to the service-local one.
func (g *Gateway) proxy(c *fiber.Ctx, targetAddr string, route *Route) error {
	targetURL, err := url.Parse("http://" + targetAddr)
	if err != nil {
		logger.Error("bad target address", zap.String("addr", targetAddr), zap.Error(err))
		return response.ServerError(c, "gateway error")
	}

	rp := httputil.NewSingleHostReverseProxy(targetURL)
	originalDirector := rp.Director

	clientIP := c.IP()
	reqHost := c.Hostname()
	scheme := c.Protocol()
	stripPrefix := route.StripPrefix

	rp.Director = func(req *http.Request) {
		originalDirector(req)

		if stripPrefix != "" {
			rewritten := strings.TrimPrefix(req.URL.Path, stripPrefix)
			if !strings.HasPrefix(rewritten, "/") {
				rewritten = "/" + rewritten
			}
			req.URL.Path = rewritten
		}

		req.Header.Set("X-Forwarded-For", clientIP)
		req.Header.Set("X-Real-IP", clientIP)
		req.Header.Set("X-Forwarded-Proto", scheme)
		req.Header.Set("X-Forwarded-Host", reqHost)
	}

	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy request failed",
			zap.String("target", targetAddr),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}

	fastHandler := fasthttpadaptor.NewFastHTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rp.ServeHTTP(w, r)
	})
	fastHandler(c.Context())
	return nil
}

// ServiceStatus summarizes one registered service for the status page.
type ServiceStatus struct {
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Nodes     int      `json:"nodes"`
	Addresses []string `json:"addresses,omitempty"`
}

// ServicesStatus lists every registered service and its node health.
func (g *Gateway) ServicesStatus(c *fiber.Ctx) error {
	services, err := g.registry.ListServices()
	if err != nil {
		return response.ServerError(c, "failed to list services")
	}

	statuses := make([]ServiceStatus, 0, len(services))
	for _, svc := range services {
		entries, err := g.registry.GetService(svc.Name)
		if err != nil {
			statuses = append(statuses, ServiceStatus{Name: svc.Name, Status: "unknown"})
			continue
		}

		var addresses []string
		for _, entry := range entries {
			for _, node := range entry.Nodes {
				addresses = append(addresses, node.Address)
			}
		}

		status := "unhealthy"
		if len(addresses) > 0 {
			status = "healthy"
		}
		statuses = append(statuses, ServiceStatus{
			Name:      svc.Name,
			Status:    status,
			Nodes:     len(addresses),
			Addresses: addresses,
		})
	}

	return response.Success(c, statuses)
}

// RouteTable returns a copy of the current proxy rules.
func (g *Gateway) RouteTable() map[string]*Route {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]*Route, len(g.routes))
	for k, v := range g.routes {
		out[k] = v
	}
	return out
}

// Shutdown stops the sync loop.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.Stop()
	return nil
}
