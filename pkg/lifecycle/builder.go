package lifecycle

import (
	"github.com/gofiber/fiber/v2"
	"go-micro.dev/v5/registry"
)

// Hook is a lifecycle hook function.
type Hook func(*ServiceContext) error

// Builder assembles a Service fluently.
type Builder struct {
	opts    *ServiceOptions
	app     *fiber.App
	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewBuilder creates a builder for the named service.
func NewBuilder(name string) *Builder {
	return &Builder{
		opts: &ServiceOptions{
			Name:   name,
			NodeID: name + "-1",
		},
		onStart: make([]Hook, 0),
		onReady: make([]Hook, 0),
		onStop:  make([]Hook, 0),
	}
}

// WithNodeID sets the node id.
func (b *Builder) WithNodeID(nodeID string) *Builder {
	b.opts.NodeID = nodeID
	return b
}

// WithAddress sets the listen address.
func (b *Builder) WithAddress(addr string) *Builder {
	b.opts.Address = addr
	return b
}

// WithRegistry sets the service registry.
func (b *Builder) WithRegistry(reg registry.Registry) *Builder {
	b.opts.Registry = reg
	return b
}

// WithService sets the registry entry.
func (b *Builder) WithService(svc *registry.Service) *Builder {
	b.opts.Service = svc
	return b
}

// WithApp sets the fiber app.
func (b *Builder) WithApp(app *fiber.App) *Builder {
	b.app = app
	return b
}

// OnStart adds a start hook.
func (b *Builder) OnStart(fn Hook) *Builder {
	b.onStart = append(b.onStart, fn)
	return b
}

// OnReady adds a ready hook.
func (b *Builder) OnReady(fn Hook) *Builder {
	b.onReady = append(b.onReady, fn)
	return b
}

// OnStop adds a stop hook.
func (b *Builder) OnStop(fn Hook) *Builder {
	b.onStop = append(b.onStop, fn)
	return b
}

// Build assembles the service, defaulting to an mDNS registry and an
// auto-generated registry entry.
func (b *Builder) Build() *Service {
	if b.opts.Registry == nil {
		b.opts.Registry = registry.NewMDNSRegistry()
	}

	if b.opts.Service == nil && b.opts.Name != "" && b.opts.Address != "" {
		b.opts.Service = &registry.Service{
			Name:    b.opts.Name,
			Version: "1.0.0",
			Nodes: []*registry.Node{
				{
					Id:      b.opts.NodeID,
					Address: b.opts.Address,
				},
			},
		}
	}

	svc := NewService(b.opts)

	if b.app != nil {
		svc.SetApp(b.app)
	}

	for _, fn := range b.onStart {
		svc.OnStart(fn)
	}
	for _, fn := range b.onReady {
		svc.OnReady(fn)
	}
	for _, fn := range b.onStop {
		svc.OnStop(fn)
	}

	return svc
}

// Run builds and runs the service.
func (b *Builder) Run() error {
	return b.Build().Run()
}

// QuickService creates a service without registry customization.
func QuickService(name, address string, app *fiber.App) *Service {
	return NewBuilder(name).
		WithAddress(address).
		WithApp(app).
		Build()
}
