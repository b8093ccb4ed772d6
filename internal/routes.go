package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "leadtrace/api/v1"
	"leadtrace/internal/config"
	"leadtrace/internal/http"
)

// publicCORSConfig is shared by the public endpoints. Tracked links land in
// email clients and browsers from anywhere, so redirects stay permissive.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Rate limiting only in production; in development and test it would
	// interfere with rapid iteration.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Redirect traffic is one click per recipient action; 120/min per IP
	// covers shared corporate NATs without letting a scraper hammer codes.
	redirectRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Management API is operator traffic, keep it tighter.
	apiRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(60),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// No Sec-Fetch-Site checks: redirects arrive from email clients and the
	// management API is called server-to-server, neither sends the header.
	redirectConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{redirectRateLimiter},
		CORSConfig:         publicCORSConfig,
	}

	apiConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{apiRateLimiter},
	}

	// Health check endpoint
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === REDIRECT ROUTE ===
	srv.Get("/c/:code", v1.RedirectHandler, redirectConfig)

	// === LINK MANAGEMENT ===
	srv.Post("/api/v1/links", v1.CreateLinkHandler, apiConfig)
	srv.Delete("/api/v1/links/:code", v1.DeleteLinkHandler, apiConfig)
	srv.Patch("/api/v1/leads", v1.UpdateLeadHandler, apiConfig)
	srv.Get("/api/v1/campaigns", v1.GetCampaignsHandler, apiConfig)

	// === ANALYTICS ===
	srv.Get("/api/v1/analytics", v1.GetAnalyticsHandler, apiConfig)
	srv.Get("/api/v1/analytics/timeline", v1.GetTimelineHandler, apiConfig)
	srv.Get("/api/v1/analytics/heatmap", v1.GetHeatmapHandler, apiConfig)
	srv.Get("/api/v1/analytics/icp", v1.GetICPDistributionHandler, apiConfig)
	srv.Get("/api/v1/leads", v1.GetLeadsHandler, apiConfig)

	// === HOT-LEAD RELAY ===
	srv.Post("/api/v1/relay/hot-leads", v1.TriggerHotLeadRelayHandler, apiConfig)
	srv.Post("/api/v1/relay/reset", v1.ResetRelayHandler, apiConfig)
}
