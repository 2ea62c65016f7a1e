package lifecycle

// ServiceContext exposes the lifecycle components to hooks and
// controllers without global singletons.
type ServiceContext struct {
	service *Service
}

func newServiceContext(svc *Service) *ServiceContext {
	return &ServiceContext{service: svc}
}

// GetService returns the owning service.
func (sc *ServiceContext) GetService() *Service {
	return sc.service
}

// Cache returns the cache broadcaster.
func (sc *ServiceContext) Cache() *CacheBroadcaster {
	if sc.service == nil {
		return nil
	}
	return sc.service.Cache()
}

// Lifecycle returns the lifecycle manager.
func (sc *ServiceContext) Lifecycle() *Manager {
	if sc.service == nil {
		return nil
	}
	return sc.service.Lifecycle()
}

// Broadcast publishes a cache update.
func (sc *ServiceContext) Broadcast(module, key string, value any) error {
	cache := sc.Cache()
	if cache == nil {
		return nil
	}
	return cache.Broadcast(module, key, value)
}

// BroadcastDelete publishes a cache removal.
func (sc *ServiceContext) BroadcastDelete(module, key string) error {
	cache := sc.Cache()
	if cache == nil {
		return nil
	}
	return cache.BroadcastDelete(module, key)
}

// GetCacheSpace returns the module's cache space.
func (sc *ServiceContext) GetCacheSpace(module string) *CacheSpace {
	cache := sc.Cache()
	if cache == nil {
		return nil
	}
	return cache.GetSpace(module)
}

// EmitEvent publishes a lifecycle event.
func (sc *ServiceContext) EmitEvent(event Event, metadata any) error {
	lc := sc.Lifecycle()
	if lc == nil {
		return nil
	}
	return lc.Emit(event, metadata)
}
