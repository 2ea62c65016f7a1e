package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/civicms/pkg/database"
	"github.com/civicms/pkg/logger"
	"github.com/redis/go-redis/v9"
	microregistry "go-micro.dev/v5/registry"
	"go.uber.org/zap"
)

const (
	servicePrefix = "registry:service:"
	ttlDuration   = 30 * time.Second
)

// RedisRegistry stores registry entries in redis with a TTL and keeps
// them alive with a heartbeat, so dead nodes expire on their own.
type RedisRegistry struct {
	client    *redis.Client
	mu        sync.RWMutex
	heartbeat map[string]*time.Ticker
}

// NewRedisRegistry creates a redis-backed registry.
func NewRedisRegistry() microregistry.Registry {
	return &RedisRegistry{
		client:    database.GetRedis(),
		heartbeat: make(map[string]*time.Ticker),
	}
}

// Init implements registry.Registry.
func (r *RedisRegistry) Init(opts ...microregistry.Option) error {
	return nil
}

// Options implements registry.Registry.
func (r *RedisRegistry) Options() microregistry.Options {
	return microregistry.Options{}
}

// Register stores the entry and starts its heartbeat.
func (r *RedisRegistry) Register(s *microregistry.Service, opts ...microregistry.RegisterOption) error {
	if s == nil || len(s.Nodes) == 0 {
		return fmt.Errorf("service or nodes cannot be empty")
	}

	key := servicePrefix + s.Name

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal service: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Set(ctx, key, data, ttlDuration).Err(); err != nil {
		return fmt.Errorf("store service entry: %w", err)
	}

	logger.Debug("service registered",
		zap.String("key", key),
		zap.String("service", s.Name),
		zap.Int("nodes", len(s.Nodes)),
	)

	r.startHeartbeat(s)

	return nil
}

// Deregister removes the entry and stops its heartbeat.
func (r *RedisRegistry) Deregister(s *microregistry.Service, opts ...microregistry.DeregisterOption) error {
	if s == nil {
		return fmt.Errorf("service cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r.client.Del(ctx, servicePrefix+s.Name)

	r.stopHeartbeat(s.Name)

	return nil
}

// GetService loads one service entry.
func (r *RedisRegistry) GetService(name string, opts ...microregistry.GetOption) ([]*microregistry.Service, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, servicePrefix+name).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, microregistry.ErrNotFound
		}
		return nil, err
	}

	var svc microregistry.Service
	if err := json.Unmarshal(data, &svc); err != nil {
		return nil, fmt.Errorf("unmarshal service: %w", err)
	}

	return []*microregistry.Service{&svc}, nil
}

// ListServices loads every registered entry.
func (r *RedisRegistry) ListServices(opts ...microregistry.ListOption) ([]*microregistry.Service, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	services := make([]*microregistry.Service, 0)

	iter := r.client.Scan(ctx, 0, servicePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}

		var svc microregistry.Service
		if err := json.Unmarshal(data, &svc); err != nil {
			logger.Warn("skip malformed service entry", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}

		services = append(services, &svc)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return services, nil
}

// Watch returns a no-op watcher; the gateway polls ListServices.
func (r *RedisRegistry) Watch(opts ...microregistry.WatchOption) (microregistry.Watcher, error) {
	return &redisWatcher{
		exit: make(chan bool),
	}, nil
}

// String returns the registry name.
func (r *RedisRegistry) String() string {
	return "redis"
}

func (r *RedisRegistry) startHeartbeat(s *microregistry.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ticker, ok := r.heartbeat[s.Name]; ok {
		ticker.Stop()
	}

	ticker := time.NewTicker(ttlDuration / 3)
	r.heartbeat[s.Name] = ticker

	go func() {
		for range ticker.C {
			data, err := json.Marshal(s)
			if err != nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = r.client.Set(ctx, servicePrefix+s.Name, data, ttlDuration).Err()
			cancel()
		}
	}()
}

func (r *RedisRegistry) stopHeartbeat(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ticker, ok := r.heartbeat[name]; ok {
		ticker.Stop()
		delete(r.heartbeat, name)
	}
}

type redisWatcher struct {
	exit chan bool
}

func (w *redisWatcher) Next() (*microregistry.Result, error) {
	<-w.exit
	return nil, microregistry.ErrWatcherStopped
}

func (w *redisWatcher) Stop() {
	select {
	case <-w.exit:
		return
	default:
		close(w.exit)
	}
}
