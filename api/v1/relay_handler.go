package v1

import (
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"leadtrace/internal/config"
	"leadtrace/internal/links"
	"leadtrace/internal/relay"
)

// TriggerRelayParams optionally overrides the click threshold and scopes
// the pass to one campaign for this run only.
type TriggerRelayParams struct {
	MinClicks int    `json:"min_clicks"`
	Campaign  string `json:"campaign"`
}

// TriggerHotLeadRelayHandler runs one relay pass on demand. Leads already
// marked sent are skipped, so repeated triggers never duplicate deliveries.
func TriggerHotLeadRelayHandler(ctx *cartridge.Context) error {
	cfg := config.GetConfig()
	if cfg.RelayWebhookURL == "" {
		return ctx.Status(http.StatusConflict).JSON(fiber.Map{
			"error": "Relay webhook is not configured",
		})
	}

	var params TriggerRelayParams
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&params); err != nil {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": errInvalidRequest,
			})
		}
	}

	sender := relay.NewWebhookSender(cfg)
	selector := relay.NewSelector(ctx.DBManager, ctx.Logger, sender, cfg)

	result, err := selector.Run(ctx.Ctx.UserContext(), relay.Options{
		MinClicks: params.MinClicks,
		Campaign:  params.Campaign,
	})
	if err != nil {
		ctx.Logger.Error("Hot-lead relay failed", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Relay run failed",
		})
	}

	return ctx.JSON(result)
}

// ResetRelayParams optionally scopes a relay reset to one lead.
type ResetRelayParams struct {
	Email string `json:"email"`
}

// ResetRelayHandler clears the relay-sent flag so leads become eligible
// again: for one lead when an email is supplied, otherwise for all.
func ResetRelayHandler(ctx *cartridge.Context) error {
	var params ResetRelayParams
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&params); err != nil {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": errInvalidRequest,
			})
		}
	}

	var (
		affected int64
		err      error
	)
	if params.Email != "" {
		affected, err = links.ResetRelaySent(ctx.DBManager, ctx.Logger, params.Email)
	} else {
		affected, err = links.ResetRelaySentAll(ctx.DBManager, ctx.Logger)
	}
	if err != nil {
		ctx.Logger.Error("Failed to reset relay flags", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset relay flags",
		})
	}

	return ctx.JSON(fiber.Map{
		"reset": affected,
	})
}
