package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Item is one cached entry.
type Item struct {
	Value      any
	Expiration int64 // unix nano, 0 means never
}

// Expired reports whether the item is past its expiration.
func (i *Item) Expired() bool {
	if i.Expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > i.Expiration
}

// Cache is an in-process TTL cache. Values are stored as-is; Get
// unmarshals through JSON so callers can read into typed structs.
type Cache struct {
	items   map[string]*Item
	mu      sync.RWMutex
	janitor *time.Ticker
	done    chan struct{}
}

// New creates a cache without background cleanup.
func New() *Cache {
	return &Cache{
		items: make(map[string]*Item),
	}
}

// NewWithCleanup creates a cache that evicts expired items on an
// interval.
func NewWithCleanup(interval time.Duration) *Cache {
	c := &Cache{
		items:   make(map[string]*Item),
		janitor: time.NewTicker(interval),
		done:    make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-c.janitor.C:
				c.DeleteExpired()
			case <-c.done:
				return
			}
		}
	}()

	return c
}

// Set stores a value without expiration.
func (c *Cache) Set(key string, value any) {
	c.SetWithExpiration(key, value, 0)
}

// SetWithExpiration stores a value with a TTL. Zero means never
// expire.
func (c *Cache) SetWithExpiration(key string, value any, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = &Item{Value: value, Expiration: exp}
	c.mu.Unlock()
}

// SetRaw stores a pre-serialized value.
func (c *Cache) SetRaw(key string, data []byte, ttl time.Duration) {
	c.SetWithExpiration(key, data, ttl)
}

// Get reads a value into dest through JSON.
func (c *Cache) Get(key string, dest any) bool {
	raw, ok := c.GetRaw(key)
	if !ok {
		return false
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return false
	}

	return json.Unmarshal(data, dest) == nil
}

// GetRaw reads the stored value without conversion.
func (c *Cache) GetRaw(key string) (any, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || item.Expired() {
		return nil, false
	}

	return item.Value, true
}

// GetString reads a string value.
func (c *Cache) GetString(key string) (string, bool) {
	raw, ok := c.GetRaw(key)
	if !ok {
		return "", false
	}

	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix removes every key with the prefix.
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// DeleteExpired evicts expired items.
func (c *Cache) DeleteExpired() {
	now := time.Now().UnixNano()
	c.mu.Lock()
	for k, item := range c.items {
		if item.Expiration > 0 && now > item.Expiration {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Exists reports whether a live item exists.
func (c *Cache) Exists(key string) bool {
	_, ok := c.GetRaw(key)
	return ok
}

// Keys lists the live keys with the prefix; empty prefix lists all.
func (c *Cache) Keys(prefix string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for k, item := range c.items {
		if item.Expired() {
			continue
		}
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Count returns the number of live items.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, item := range c.items {
		if !item.Expired() {
			count++
		}
	}
	return count
}

// Clear removes everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*Item)
	c.mu.Unlock()
}

// Close stops background cleanup.
func (c *Cache) Close() {
	if c.janitor != nil {
		c.janitor.Stop()
		close(c.done)
	}
}

// GetOrSet returns the cached value or computes, stores and returns
// it.
func (c *Cache) GetOrSet(key string, ttl time.Duration, fn func() (any, error)) (any, error) {
	if raw, ok := c.GetRaw(key); ok {
		return raw, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	c.SetWithExpiration(key, value, ttl)
	return value, nil
}

// SetNX stores the value only when the key is absent.
func (c *Cache) SetNX(key string, value any, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok && !item.Expired() {
		return false
	}

	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	c.items[key] = &Item{Value: value, Expiration: exp}
	return true
}

// Incr increments an integer value, creating it at delta when absent.
func (c *Cache) Incr(key string, delta int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current int64
	if item, ok := c.items[key]; ok && !item.Expired() {
		if v, ok := item.Value.(int64); ok {
			current = v
		}
	}

	current += delta
	var exp int64
	if item, ok := c.items[key]; ok {
		exp = item.Expiration
	}
	c.items[key] = &Item{Value: current, Expiration: exp}
	return current
}

// Expire resets the TTL of a live key.
func (c *Cache) Expire(key string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || item.Expired() {
		return false
	}

	if ttl > 0 {
		item.Expiration = time.Now().Add(ttl).UnixNano()
	} else {
		item.Expiration = 0
	}
	return true
}
