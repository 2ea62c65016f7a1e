package registry

import (
	"encoding/json"
	"strings"

	"go-micro.dev/v5/registry"
)

// RouteConfig is a gateway route stored in service metadata.
type RouteConfig struct {
	PathPrefix   string   `json:"path_prefix"`   // gateway path prefix, e.g. /api/v1/articles
	StripPrefix  bool     `json:"strip_prefix"`  // drop the prefix before proxying
	Methods      []string `json:"methods"`       // allowed HTTP methods
	AuthRequired bool     `json:"auth_required"` // gateway demands a bearer token
}

// ServiceConfig describes one service for registration.
type ServiceConfig struct {
	Name     string
	Version  string
	NodeID   string
	Address  string
	BasePath string        // gateway proxies /api/v1/{BasePath}/* to the service
	Routes   []RouteConfig // optional fine-grained route control
}

// BuildService builds the registry entry, encoding routes as metadata.
func BuildService(cfg *ServiceConfig) *registry.Service {
	routesJSON, _ := json.Marshal(cfg.Routes)

	return &registry.Service{
		Name:    cfg.Name,
		Version: cfg.Version,
		Nodes: []*registry.Node{
			{
				Id:      cfg.NodeID,
				Address: cfg.Address,
				Metadata: map[string]string{
					"routes":    string(routesJSON),
					"base_path": cfg.BasePath,
				},
			},
		},
	}
}

// ParseServiceMeta decodes base path and routes from an entry.
func ParseServiceMeta(svc *registry.Service) (basePath string, routes []RouteConfig) {
	for _, node := range svc.Nodes {
		if bp, ok := node.Metadata["base_path"]; ok {
			basePath = bp
		}
		if routesJSON, ok := node.Metadata["routes"]; ok {
			var nodeRoutes []RouteConfig
			if err := json.Unmarshal([]byte(routesJSON), &nodeRoutes); err == nil {
				routes = append(routes, nodeRoutes...)
			}
		}
	}
	return
}

// ParseRoutes decodes only the routes of an entry.
func ParseRoutes(svc *registry.Service) []RouteConfig {
	_, routes := ParseServiceMeta(svc)
	return routes
}

// DefaultMethods are the methods of a route that names none.
var DefaultMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// NewRouteConfig creates a route with prefix stripping enabled.
func NewRouteConfig(pathPrefix string, authRequired bool, methods ...string) RouteConfig {
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	return RouteConfig{
		PathPrefix:   pathPrefix,
		StripPrefix:  true,
		Methods:      methods,
		AuthRequired: authRequired,
	}
}

// NewPublicRoute creates an unauthenticated route.
func NewPublicRoute(pathPrefix string, methods ...string) RouteConfig {
	return NewRouteConfig(pathPrefix, false, methods...)
}

// NewProtectedRoute creates an authenticated route.
func NewProtectedRoute(pathPrefix string, methods ...string) RouteConfig {
	return NewRouteConfig(pathPrefix, true, methods...)
}

// ServiceBuilder assembles a ServiceConfig fluently.
type ServiceBuilder struct {
	config *ServiceConfig
}

// NewServiceBuilder creates a builder.
func NewServiceBuilder(name, version string) *ServiceBuilder {
	return &ServiceBuilder{
		config: &ServiceConfig{
			Name:    name,
			Version: version,
			Routes:  make([]RouteConfig, 0),
		},
	}
}

// WithNodeID sets the node id.
func (b *ServiceBuilder) WithNodeID(nodeID string) *ServiceBuilder {
	b.config.NodeID = nodeID
	return b
}

// WithAddress sets the node address.
func (b *ServiceBuilder) WithAddress(addr string) *ServiceBuilder {
	b.config.Address = addr
	return b
}

// WithBasePath sets the gateway base path.
func (b *ServiceBuilder) WithBasePath(basePath string) *ServiceBuilder {
	b.config.BasePath = basePath
	return b
}

// AddRoute appends a route.
func (b *ServiceBuilder) AddRoute(route RouteConfig) *ServiceBuilder {
	b.config.Routes = append(b.config.Routes, route)
	return b
}

// AddPublicRoute appends an unauthenticated route.
func (b *ServiceBuilder) AddPublicRoute(pathPrefix string, methods ...string) *ServiceBuilder {
	return b.AddRoute(NewPublicRoute(pathPrefix, methods...))
}

// AddProtectedRoute appends an authenticated route.
func (b *ServiceBuilder) AddProtectedRoute(pathPrefix string, methods ...string) *ServiceBuilder {
	return b.AddRoute(NewProtectedRoute(pathPrefix, methods...))
}

// Build assembles the registry entry.
func (b *ServiceBuilder) Build() *registry.Service {
	if b.config.NodeID == "" {
		b.config.NodeID = b.config.Name + "-1"
	}
	return BuildService(b.config)
}

// MatchPath reports whether the path falls under the route prefix.
func (r *RouteConfig) MatchPath(path string) bool {
	return strings.HasPrefix(path, r.PathPrefix)
}

// MatchMethod reports whether the method is allowed.
func (r *RouteConfig) MatchMethod(method string) bool {
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
