package internal

import (
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
)

func TestRedirectRouteRateLimited(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})
	routes := srv.App.GetRoutes(true)

	var redirectRoute *fiber.Route
	for idx := range routes {
		route := routes[idx]
		if route.Method == fiber.MethodGet && route.Path == "/c/:code" {
			redirectRoute = &routes[idx]
			break
		}
	}

	require.NotNil(t, redirectRoute, "expected redirect route to be registered")

	// The rate limiter only bites in production; outside production the
	// conditional wrapper passes through but is still mounted.
	hasRateLimiter := false
	var handlerNames []string
	for _, handler := range redirectRoute.Handlers {
		name := runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name()
		handlerNames = append(handlerNames, name)
		if strings.Contains(name, "middleware/limiter") || strings.Contains(name, "MountAppRoutes.func") {
			hasRateLimiter = true
			break
		}
	}

	require.Truef(t, hasRateLimiter, "expected rate limiter middleware on redirect route, handlers: %v", handlerNames)
}

func TestAPIRoutesRegistered(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})
	routes := srv.App.GetRoutes(true)

	registered := make(map[string]bool)
	for _, route := range routes {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"GET /_health",
		"GET /c/:code",
		"POST /api/v1/links",
		"DELETE /api/v1/links/:code",
		"PATCH /api/v1/leads",
		"GET /api/v1/campaigns",
		"GET /api/v1/analytics",
		"GET /api/v1/analytics/timeline",
		"GET /api/v1/analytics/heatmap",
		"GET /api/v1/analytics/icp",
		"GET /api/v1/leads",
		"POST /api/v1/relay/hot-leads",
		"POST /api/v1/relay/reset",
	}
	for _, want := range expected {
		require.Truef(t, registered[want], "expected route %s to be registered", want)
	}
}
