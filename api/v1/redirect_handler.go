package v1

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"leadtrace/internal/clicks"
	"leadtrace/internal/links"
	"leadtrace/internal/pkg/geoip"
)

// RedirectHandler records a click against the short code and forwards the
// visitor to the destination URL. Geo resolution is best effort; a failed
// lookup still records the click with Unknown attributes.
func RedirectHandler(ctx *cartridge.Context) error {
	code := ctx.Params("code")
	if code == "" {
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "Link not found",
		})
	}

	clientIP := getClientIP(ctx.Ctx)
	country, city := geoip.Resolve(clientIP)

	input := &clicks.RecordClickInput{
		ShortCode: code,
		IPAddress: clientIP,
		UserAgent: ctx.Get("User-Agent"),
		Referer:   ctx.Get("Referer"),
		Country:   country,
		City:      city,
	}

	result, err := clicks.RecordClick(ctx.DBManager, ctx.Logger, input)
	if err != nil {
		var notFound *links.LinkNotFoundError
		if errors.As(err, &notFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Link not found",
			})
		}
		ctx.Logger.Error("Failed to record click",
			slog.String("short_code", code),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record click",
		})
	}

	ctx.Logger.Info("Click recorded",
		slog.String("short_code", code),
		slog.String("country", country),
		slog.String("city", city))

	return ctx.Redirect(result.DestinationURL, fiber.StatusFound)
}
