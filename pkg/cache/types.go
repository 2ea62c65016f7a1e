package cache

import (
	"sync"
	"time"
)

// PrefixedCache namespaces keys in a shared cache. The navigation
// service uses one per menu group for rendered trees.
type PrefixedCache struct {
	cache  *Cache
	prefix string
}

// NewPrefixedCache wraps cache under prefix.
func NewPrefixedCache(cache *Cache, prefix string) *PrefixedCache {
	return &PrefixedCache{cache: cache, prefix: prefix}
}

func (p *PrefixedCache) key(k string) string {
	return p.prefix + ":" + k
}

// Set stores a value with a TTL.
func (p *PrefixedCache) Set(key string, value any, ttl time.Duration) {
	p.cache.SetWithExpiration(p.key(key), value, ttl)
}

// Get reads a value into dest.
func (p *PrefixedCache) Get(key string, dest any) bool {
	return p.cache.Get(p.key(key), dest)
}

// GetRaw reads the stored value without conversion.
func (p *PrefixedCache) GetRaw(key string) (any, bool) {
	return p.cache.GetRaw(p.key(key))
}

// Delete removes one key.
func (p *PrefixedCache) Delete(key string) {
	p.cache.Delete(p.key(key))
}

// Clear removes everything under the prefix.
func (p *PrefixedCache) Clear() {
	p.cache.DeletePrefix(p.prefix + ":")
}

// Keys lists live keys under the prefix, stripped of it.
func (p *PrefixedCache) Keys() []string {
	full := p.cache.Keys(p.prefix + ":")
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, k[len(p.prefix)+1:])
	}
	return keys
}

// HashCache stores a field/value map under one key. The content
// service keeps the site settings map in one.
//
// Writers copy the stored map before mutating it, so a map handed out
// earlier is never changed underneath a reader; mu serializes the
// load-copy-store cycle itself.
type HashCache struct {
	cache *Cache
	key   string
	mu    sync.Mutex
}

// NewHashCache wraps cache for the given hash key.
func NewHashCache(cache *Cache, key string) *HashCache {
	return &HashCache{cache: cache, key: key}
}

func (h *HashCache) load() map[string]any {
	raw, ok := h.cache.GetRaw(h.key)
	if !ok {
		return make(map[string]any)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return make(map[string]any)
	}
	return m
}

func copyMap[K comparable, V any](m map[K]V, extra int) map[K]V {
	out := make(map[K]V, len(m)+extra)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HSet stores one field.
func (h *HashCache) HSet(field string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := copyMap(h.load(), 1)
	m[field] = value
	h.cache.Set(h.key, m)
}

// HSetAll replaces the whole hash.
func (h *HashCache) HSetAll(values map[string]any) {
	m := make(map[string]any, len(values))
	for k, v := range values {
		m[k] = v
	}
	h.cache.Set(h.key, m)
}

// HGet reads one field.
func (h *HashCache) HGet(field string) (any, bool) {
	m := h.load()
	v, ok := m[field]
	return v, ok
}

// HGetAll returns a copy of the hash.
func (h *HashCache) HGetAll() map[string]any {
	m := h.load()
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HDel removes one field.
func (h *HashCache) HDel(field string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := copyMap(h.load(), 0)
	delete(m, field)
	h.cache.Set(h.key, m)
}

// HLen returns the field count.
func (h *HashCache) HLen() int {
	return len(h.load())
}

// Clear removes the hash.
func (h *HashCache) Clear() {
	h.cache.Delete(h.key)
}

// SetCache stores a string set under one key. The content service
// dedups social feed post ids with one. Writes copy the stored set
// under mu, same discipline as HashCache.
type SetCache struct {
	cache *Cache
	key   string
	mu    sync.Mutex
}

// NewSetCache wraps cache for the given set key.
func NewSetCache(cache *Cache, key string) *SetCache {
	return &SetCache{cache: cache, key: key}
}

func (s *SetCache) load() map[string]struct{} {
	raw, ok := s.cache.GetRaw(s.key)
	if !ok {
		return make(map[string]struct{})
	}
	m, ok := raw.(map[string]struct{})
	if !ok {
		return make(map[string]struct{})
	}
	return m
}

// Add inserts members, reporting how many were new.
func (s *SetCache) Add(members ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := copyMap(s.load(), len(members))
	added := 0
	for _, member := range members {
		if _, ok := m[member]; !ok {
			m[member] = struct{}{}
			added++
		}
	}
	s.cache.Set(s.key, m)
	return added
}

// Has reports membership.
func (s *SetCache) Has(member string) bool {
	_, ok := s.load()[member]
	return ok
}

// Remove deletes members.
func (s *SetCache) Remove(members ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := copyMap(s.load(), 0)
	for _, member := range members {
		delete(m, member)
	}
	s.cache.Set(s.key, m)
}

// Members lists the set.
func (s *SetCache) Members() []string {
	m := s.load()
	out := make([]string, 0, len(m))
	for member := range m {
		out = append(out, member)
	}
	return out
}

// Len returns the member count.
func (s *SetCache) Len() int {
	return len(s.load())
}

// Clear removes the set.
func (s *SetCache) Clear() {
	s.cache.Delete(s.key)
}
