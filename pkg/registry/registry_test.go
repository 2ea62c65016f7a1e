package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceBuilderEncodesMetadata(t *testing.T) {
	svc := NewServiceBuilder("content-service", "1.0.0").
		WithAddress("127.0.0.1:8083").
		WithBasePath("content").
		AddPublicRoute("/articles", "GET").
		AddProtectedRoute("/admin").
		Build()

	require.Len(t, svc.Nodes, 1)
	assert.Equal(t, "content-service-1", svc.Nodes[0].Id)

	basePath, routes := ParseServiceMeta(svc)
	assert.Equal(t, "content", basePath)
	require.Len(t, routes, 2)

	assert.Equal(t, "/articles", routes[0].PathPrefix)
	assert.False(t, routes[0].AuthRequired)
	assert.Equal(t, []string{"GET"}, routes[0].Methods)

	assert.Equal(t, "/admin", routes[1].PathPrefix)
	assert.True(t, routes[1].AuthRequired)
	assert.Equal(t, DefaultMethods, routes[1].Methods)
}

func TestRouteConfigMatching(t *testing.T) {
	route := NewPublicRoute("/articles", "GET", "HEAD")

	assert.True(t, route.MatchPath("/articles/road-closure"))
	assert.False(t, route.MatchPath("/events"))

	assert.True(t, route.MatchMethod("get"))
	assert.True(t, route.MatchMethod("HEAD"))
	assert.False(t, route.MatchMethod("POST"))
}

func TestMemoryRegistryRoundTrip(t *testing.T) {
	reg := NewMemoryRegistry()

	svc := NewServiceBuilder("identity-service", "1.0.0").
		WithAddress("127.0.0.1:8081").
		WithBasePath("identity").
		Build()
	require.NoError(t, reg.Register(svc))

	got, err := reg.GetService("identity-service")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "127.0.0.1:8081", got[0].Nodes[0].Address)

	list, err := reg.ListServices()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, reg.Deregister(svc))
	_, err = reg.GetService("identity-service")
	assert.Error(t, err)
}
