package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/civicms/pkg/database"
	"github.com/civicms/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheAction marks what a cache broadcast does.
type CacheAction string

const (
	CacheActionSet    CacheAction = "set"
	CacheActionDelete CacheAction = "delete"
	CacheActionClear  CacheAction = "clear"
)

// CacheMessage is the payload of one cache broadcast.
type CacheMessage struct {
	Origin    string          `json:"origin"` // publishing service
	Module    string          `json:"module"`
	Key       string          `json:"key"`
	Action    CacheAction     `json:"action"`
	Value     json.RawMessage `json:"value,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// CacheSubscriber handles cache messages of one module.
type CacheSubscriber func(msg *CacheMessage)

const cacheChannel = "service:cache"

// CacheBroadcaster keeps per-module cache spaces and propagates writes
// to every node through redis pub/sub. Received messages are applied
// to the local space before subscribers run, so a subscriber can read
// the fresh value from the space.
type CacheBroadcaster struct {
	service     string
	redis       *redis.Client
	spaces      map[string]*CacheSpace
	subscribers map[string][]CacheSubscriber
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	pubsub      *redis.PubSub
}

// NewCacheBroadcaster creates a broadcaster for the named service.
func NewCacheBroadcaster(service string) *CacheBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheBroadcaster{
		service:     service,
		redis:       database.GetRedis(),
		spaces:      make(map[string]*CacheSpace),
		subscribers: make(map[string][]CacheSubscriber),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// GetSpace returns the module's cache space, creating it when needed.
func (cb *CacheBroadcaster) GetSpace(module string) *CacheSpace {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	space, ok := cb.spaces[module]
	if !ok {
		space = NewCacheSpace(module)
		cb.spaces[module] = space
	}
	return space
}

// Subscribe registers a handler for one module's broadcasts.
func (cb *CacheBroadcaster) Subscribe(module string, fn CacheSubscriber) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.subscribers[module] = append(cb.subscribers[module], fn)
}

// Broadcast stores the value locally and publishes it to all nodes.
func (cb *CacheBroadcaster) Broadcast(module, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	space := cb.GetSpace(module)
	space.mu.Lock()
	space.data[key] = string(data)
	space.mu.Unlock()

	return cb.publish(&CacheMessage{
		Origin:    cb.service,
		Module:    module,
		Key:       key,
		Action:    CacheActionSet,
		Value:     data,
		Timestamp: time.Now(),
	})
}

// BroadcastDelete removes the key locally and on all nodes.
func (cb *CacheBroadcaster) BroadcastDelete(module, key string) error {
	cb.GetSpace(module).Delete(key)

	return cb.publish(&CacheMessage{
		Origin:    cb.service,
		Module:    module,
		Key:       key,
		Action:    CacheActionDelete,
		Timestamp: time.Now(),
	})
}

// BroadcastClear empties the module space locally and on all nodes.
func (cb *CacheBroadcaster) BroadcastClear(module string) error {
	cb.GetSpace(module).Clear()

	return cb.publish(&CacheMessage{
		Origin:    cb.service,
		Module:    module,
		Action:    CacheActionClear,
		Timestamp: time.Now(),
	})
}

func (cb *CacheBroadcaster) publish(msg *CacheMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal cache message: %w", err)
	}
	return cb.redis.Publish(cb.ctx, cacheChannel, data).Err()
}

// Start subscribes to the cache channel and begins applying messages.
func (cb *CacheBroadcaster) Start() error {
	cb.pubsub = cb.redis.Subscribe(cb.ctx, cacheChannel)

	// wait for subscription confirmation
	_, err := cb.pubsub.Receive(cb.ctx)
	if err != nil {
		return fmt.Errorf("subscribe cache channel: %w", err)
	}

	go cb.listen()

	logger.Info("cache broadcaster started", zap.String("service", cb.service))

	return nil
}

func (cb *CacheBroadcaster) listen() {
	ch := cb.pubsub.Channel()

	for {
		select {
		case <-cb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			cb.handleMessage(msg.Payload)
		}
	}
}

func (cb *CacheBroadcaster) handleMessage(payload string) {
	var msg CacheMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		logger.Error("parse cache message failed", zap.Error(err))
		return
	}

	space := cb.GetSpace(msg.Module)

	switch msg.Action {
	case CacheActionSet:
		space.mu.Lock()
		space.data[msg.Key] = string(msg.Value)
		space.mu.Unlock()
	case CacheActionDelete:
		space.Delete(msg.Key)
	case CacheActionClear:
		space.Clear()
	}

	cb.mu.RLock()
	subs := cb.subscribers[msg.Module]
	cb.mu.RUnlock()

	for _, fn := range subs {
		go fn(&msg)
	}
}

// Stop cancels the subscription.
func (cb *CacheBroadcaster) Stop() error {
	cb.cancel()
	if cb.pubsub != nil {
		return cb.pubsub.Close()
	}
	return nil
}
