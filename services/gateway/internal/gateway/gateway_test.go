package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgregistry "github.com/civicms/pkg/registry"
)

func newSyncedGateway(t *testing.T) *Gateway {
	t.Helper()

	reg := pkgregistry.NewMemoryRegistry()

	content := pkgregistry.NewServiceBuilder("content-service", "1.0.0").
		WithAddress("127.0.0.1:8083").
		WithBasePath("content").
		AddPublicRoute("/articles", "GET").
		Build()
	require.NoError(t, reg.Register(content))

	identity := pkgregistry.NewServiceBuilder("identity-service", "1.0.0").
		WithAddress("127.0.0.1:8081").
		WithBasePath("identity").
		AddPublicRoute("/auth/login", "POST").
		Build()
	require.NoError(t, reg.Register(identity))

	gw := New(reg, nil)
	require.NoError(t, gw.SyncRoutes())
	return gw
}

func TestSyncRoutesBuildsTable(t *testing.T) {
	gw := newSyncedGateway(t)
	table := gw.RouteTable()

	base, ok := table["/api/v1/content"]
	require.True(t, ok)
	assert.Equal(t, "content-service", base.ServiceName)
	assert.True(t, base.AuthRequired)

	articles, ok := table["/api/v1/content/articles"]
	require.True(t, ok)
	assert.False(t, articles.AuthRequired)
	assert.Equal(t, []string{"GET"}, articles.Methods)

	login, ok := table["/api/v1/identity/auth/login"]
	require.True(t, ok)
	assert.False(t, login.AuthRequired)
}

func TestMatchRoutePrefersLongestPrefix(t *testing.T) {
	gw := newSyncedGateway(t)

	// public carve-out wins over the service catch-all
	route := gw.matchRoute("/api/v1/content/articles/road-closure")
	require.NotNil(t, route)
	assert.Equal(t, "/api/v1/content/articles", route.PathPrefix)
	assert.False(t, route.AuthRequired)

	route = gw.matchRoute("/api/v1/content/admin/articles")
	require.NotNil(t, route)
	assert.Equal(t, "/api/v1/content", route.PathPrefix)
	assert.True(t, route.AuthRequired)

	assert.Nil(t, gw.matchRoute("/api/v1/unknown/thing"))
}

func TestSyncRoutesDropsStaleEntries(t *testing.T) {
	reg := pkgregistry.NewMemoryRegistry()
	svc := pkgregistry.NewServiceBuilder("nav-service", "1.0.0").
		WithAddress("127.0.0.1:8082").
		WithBasePath("navigation").
		Build()
	require.NoError(t, reg.Register(svc))

	gw := New(reg, nil)
	require.NoError(t, gw.SyncRoutes())
	require.NotNil(t, gw.matchRoute("/api/v1/navigation/menus"))

	require.NoError(t, reg.Deregister(svc))
	require.NoError(t, gw.SyncRoutes())
	assert.Nil(t, gw.matchRoute("/api/v1/navigation/menus"))
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(3, 20*time.Millisecond)

	assert.True(t, cb.Allow())
	cb.Failure()
	cb.Failure()
	assert.True(t, cb.Allow())
	cb.Failure()

	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.Success()
	assert.Equal(t, StateClosed, cb.State())
}
