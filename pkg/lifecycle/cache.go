package lifecycle

import (
	"encoding/json"
	"fmt"
	"sync"
)

// CacheSpace is one module's local cache of broadcast values.
type CacheSpace struct {
	module string
	data   map[string]string // key -> raw JSON
	mu     sync.RWMutex
}

// NewCacheSpace creates a space for the module.
func NewCacheSpace(module string) *CacheSpace {
	return &CacheSpace{
		module: module,
		data:   make(map[string]string),
	}
}

// Set stores a value locally without broadcasting.
func (cs *CacheSpace) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	cs.mu.Lock()
	cs.data[key] = string(data)
	cs.mu.Unlock()

	return nil
}

// Get unmarshals the value at key into dest.
func (cs *CacheSpace) Get(key string, dest any) error {
	cs.mu.RLock()
	raw, ok := cs.data[key]
	cs.mu.RUnlock()

	if !ok {
		return fmt.Errorf("cache key not found: %s", key)
	}

	return json.Unmarshal([]byte(raw), dest)
}

// GetRaw returns the raw JSON at key.
func (cs *CacheSpace) GetRaw(key string) (string, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	raw, ok := cs.data[key]
	return raw, ok
}

// Delete removes one key.
func (cs *CacheSpace) Delete(key string) {
	cs.mu.Lock()
	delete(cs.data, key)
	cs.mu.Unlock()
}

// Clear removes every key.
func (cs *CacheSpace) Clear() {
	cs.mu.Lock()
	cs.data = make(map[string]string)
	cs.mu.Unlock()
}

// Keys lists the stored keys.
func (cs *CacheSpace) Keys() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	keys := make([]string, 0, len(cs.data))
	for k := range cs.data {
		keys = append(keys, k)
	}
	return keys
}
