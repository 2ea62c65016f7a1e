package cache

import (
	"sync"
	"time"
)

var (
	global     *Cache
	globalOnce sync.Once
)

// Global returns the process-wide cache, creating it on first use with
// a one-minute cleanup interval.
func Global() *Cache {
	globalOnce.Do(func() {
		global = NewWithCleanup(time.Minute)
	})
	return global
}
