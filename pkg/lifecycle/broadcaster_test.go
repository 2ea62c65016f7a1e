package lifecycle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicms/pkg/config"
	"github.com/civicms/pkg/database"
)

func initTestRedis(t *testing.T) {
	t.Helper()
	require.NoError(t, database.InitRedis(&config.RedisConfig{Mode: "memory"}))
}

func startBroadcaster(t *testing.T, service string) *CacheBroadcaster {
	t.Helper()
	cb := NewCacheBroadcaster(service)
	require.NoError(t, cb.Start())
	t.Cleanup(func() { cb.Stop() })
	return cb
}

func TestBroadcastReachesOtherNodes(t *testing.T) {
	initTestRedis(t)

	sender := startBroadcaster(t, "identity-service")
	receiver := startBroadcaster(t, "navigation-service")

	policies := map[string][]string{"role:admin": {"/api/v1/*"}}
	require.NoError(t, sender.Broadcast(ModuleIdentity, KeyRolePolicies, policies))

	require.Eventually(t, func() bool {
		var got map[string][]string
		if err := receiver.GetSpace(ModuleIdentity).Get(KeyRolePolicies, &got); err != nil {
			return false
		}
		return len(got["role:admin"]) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastDeleteClearsRemoteKey(t *testing.T) {
	initTestRedis(t)

	sender := startBroadcaster(t, "content-service")
	receiver := startBroadcaster(t, "gateway-service")

	require.NoError(t, sender.Broadcast(ModuleContent, KeySettings, map[string]string{"hotline": "123"}))
	require.Eventually(t, func() bool {
		_, ok := receiver.GetSpace(ModuleContent).GetRaw(KeySettings)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sender.BroadcastDelete(ModuleContent, KeySettings))
	require.Eventually(t, func() bool {
		_, ok := receiver.GetSpace(ModuleContent).GetRaw(KeySettings)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscriberRunsOnBroadcast(t *testing.T) {
	initTestRedis(t)

	sender := startBroadcaster(t, "navigation-service")
	receiver := startBroadcaster(t, "content-service")

	var calls atomic.Int32
	receiver.Subscribe(ModuleNav, func(msg *CacheMessage) {
		if msg.Key == KeyNavTree {
			calls.Add(1)
		}
	})

	require.NoError(t, sender.BroadcastDelete(ModuleNav, KeyNavTree))

	require.Eventually(t, func() bool {
		return calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCacheSpaceIsolation(t *testing.T) {
	space := NewCacheSpace("test")

	require.NoError(t, space.Set("a", 1))
	require.NoError(t, space.Set("b", 2))

	var v int
	require.NoError(t, space.Get("a", &v))
	assert.Equal(t, 1, v)

	space.Delete("a")
	assert.Error(t, space.Get("a", &v))

	space.Clear()
	assert.Empty(t, space.Keys())
}
