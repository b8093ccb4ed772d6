package v1

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"leadtrace/internal/analytics"
	"leadtrace/internal/config"
	"leadtrace/internal/timeframe"
)

const errInvalidRange = "Invalid range, expected one of 24h, 7d, 30d, all"

func queryIntValue(ctx *cartridge.Context, key string, fallback int) int {
	raw := ctx.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// queryParamsFromRequest builds analytics params from the range and
// campaign query string values. The dedup policy comes from configuration,
// not the request, so every endpoint reports consistent unique counts.
func queryParamsFromRequest(ctx *cartridge.Context) (analytics.QueryParams, error) {
	r, err := timeframe.ParseRange(ctx.Query("range"))
	if err != nil {
		return analytics.QueryParams{}, err
	}

	cfg := config.GetConfig()
	return analytics.NewQueryParams(r, ctx.Query("campaign"), analytics.DedupKey(cfg.DedupKey)), nil
}

// GetAnalyticsHandler returns the dashboard summary: totals with click
// rate, per-campaign breakdown, the latest clicks and the most active leads.
func GetAnalyticsHandler(ctx *cartridge.Context) error {
	params, err := queryParamsFromRequest(ctx)
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRange,
		})
	}

	db := ctx.DB()

	overview, err := analytics.GetOverviewStats(db, params)
	if err != nil {
		ctx.Logger.Error("Failed to compute overview stats", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute analytics",
		})
	}

	campaigns, err := analytics.GetCampaignBreakdown(db, params)
	if err != nil {
		ctx.Logger.Error("Failed to compute campaign breakdown", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute analytics",
		})
	}

	recent, err := analytics.GetRecentClicks(db, params)
	if err != nil {
		ctx.Logger.Error("Failed to fetch recent clicks", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute analytics",
		})
	}

	topClickers, err := analytics.GetTopClickers(db, params)
	if err != nil {
		ctx.Logger.Error("Failed to fetch top clickers", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute analytics",
		})
	}

	return ctx.JSON(fiber.Map{
		"overview":      overview,
		"campaigns":     campaigns,
		"recent_clicks": recent,
		"top_clickers":  topClickers,
	})
}

// GetTimelineHandler returns the dense bucketed click series for charting.
func GetTimelineHandler(ctx *cartridge.Context) error {
	params, err := queryParamsFromRequest(ctx)
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRange,
		})
	}

	points, err := analytics.GetClickTimeline(ctx.DB(), params)
	if err != nil {
		ctx.Logger.Error("Failed to compute click timeline", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute timeline",
		})
	}

	return ctx.JSON(fiber.Map{
		"timeline": points,
	})
}

// GetHeatmapHandler returns the weekday-by-hour first-click distribution.
func GetHeatmapHandler(ctx *cartridge.Context) error {
	params, err := queryParamsFromRequest(ctx)
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRange,
		})
	}

	cells, err := analytics.GetClickHeatmap(ctx.DB(), params)
	if err != nil {
		ctx.Logger.Error("Failed to compute click heatmap", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute heatmap",
		})
	}

	return ctx.JSON(fiber.Map{
		"heatmap": cells,
	})
}

// GetICPDistributionHandler returns click activity grouped by ICP segment.
func GetICPDistributionHandler(ctx *cartridge.Context) error {
	params, err := queryParamsFromRequest(ctx)
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRange,
		})
	}

	segments, err := analytics.GetICPDistribution(ctx.DB(), params)
	if err != nil {
		ctx.Logger.Error("Failed to compute ICP distribution", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute ICP distribution",
		})
	}

	return ctx.JSON(fiber.Map{
		"segments": segments,
	})
}

// GetLeadsHandler returns one page of leads with lifetime click rollups.
func GetLeadsHandler(ctx *cartridge.Context) error {
	status, err := analytics.ParseLeadStatus(ctx.Query("status"))
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	params := analytics.LeadQueryParams{
		Campaign: ctx.Query("campaign"),
		Status:   status,
		Search:   ctx.Query("search"),
		Page:     queryIntValue(ctx, "page", 1),
		PageSize: queryIntValue(ctx, "page_size", 0),
	}

	page, err := analytics.GetLeadPage(ctx.DB(), params)
	if err != nil {
		ctx.Logger.Error("Failed to fetch leads", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch leads",
		})
	}

	return ctx.JSON(page)
}
