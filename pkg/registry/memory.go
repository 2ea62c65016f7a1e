package registry

import (
	"sync"

	"go-micro.dev/v5/registry"
)

// MemoryRegistry is an in-process registry for tests and single-node
// deployments.
type MemoryRegistry struct {
	services map[string]*registry.Service
	mu       sync.RWMutex
}

// NewMemoryRegistry creates an in-process registry.
func NewMemoryRegistry() registry.Registry {
	return &MemoryRegistry{
		services: make(map[string]*registry.Service),
	}
}

// Init implements registry.Registry.
func (r *MemoryRegistry) Init(opts ...registry.Option) error {
	return nil
}

// Options implements registry.Registry.
func (r *MemoryRegistry) Options() registry.Options {
	return registry.Options{}
}

// Register stores the entry.
func (r *MemoryRegistry) Register(s *registry.Service, opts ...registry.RegisterOption) error {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	r.services[s.Name] = s
	r.mu.Unlock()
	return nil
}

// Deregister removes the entry.
func (r *MemoryRegistry) Deregister(s *registry.Service, opts ...registry.DeregisterOption) error {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	delete(r.services, s.Name)
	r.mu.Unlock()
	return nil
}

// GetService loads one entry.
func (r *MemoryRegistry) GetService(name string, opts ...registry.GetOption) ([]*registry.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.services[name]; ok {
		return []*registry.Service{s}, nil
	}
	return nil, registry.ErrNotFound
}

// ListServices loads every entry.
func (r *MemoryRegistry) ListServices(opts ...registry.ListOption) ([]*registry.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]*registry.Service, 0, len(r.services))
	for _, s := range r.services {
		services = append(services, s)
	}
	return services, nil
}

// Watch returns a no-op watcher.
func (r *MemoryRegistry) Watch(opts ...registry.WatchOption) (registry.Watcher, error) {
	return &memoryWatcher{
		exit: make(chan bool),
	}, nil
}

// String returns the registry name.
func (r *MemoryRegistry) String() string {
	return "memory"
}

type memoryWatcher struct {
	exit chan bool
}

func (w *memoryWatcher) Next() (*registry.Result, error) {
	<-w.exit
	return nil, registry.ErrWatcherStopped
}

func (w *memoryWatcher) Stop() {
	select {
	case <-w.exit:
		return
	default:
		close(w.exit)
	}
}
