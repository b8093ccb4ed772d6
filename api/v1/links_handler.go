package v1

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"leadtrace/internal/config"
	"leadtrace/internal/links"
)

const (
	errInvalidRequest = "Invalid request"
)

// CreateLinkParams is the request body for issuing a tracked link.
type CreateLinkParams struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	ICP            string `json:"icp"`
	Campaign       string `json:"campaign"`
	CompanyName    string `json:"company_name"`
	CompanyURL     string `json:"company_url"`
	LinkedInURL    string `json:"linkedin_url"`
	DestinationURL string `json:"destination_url"`
}

// CreateLinkHandler issues a new tracked short link for a lead.
func CreateLinkHandler(ctx *cartridge.Context) error {
	var params CreateLinkParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
		})
	}

	input := &links.CreateLinkInput{
		FirstName:      params.FirstName,
		LastName:       params.LastName,
		Email:          params.Email,
		ICP:            params.ICP,
		Campaign:       params.Campaign,
		CompanyName:    params.CompanyName,
		CompanyURL:     params.CompanyURL,
		LinkedInURL:    params.LinkedInURL,
		DestinationURL: params.DestinationURL,
	}

	link, err := links.CreateLink(ctx.DBManager, ctx.Logger, input)
	if err != nil {
		if errors.Is(err, links.ErrMissingDestination) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		ctx.Logger.Error("Failed to create link", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create link",
		})
	}

	cfg := config.GetConfig()
	return ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"short_code":      link.ShortCode,
		"short_url":       cfg.PublicBaseURL + "/c/" + link.ShortCode,
		"destination_url": link.DestinationURL,
		"campaign":        link.Campaign,
		"email":           link.Email,
	})
}

// DeleteLinkHandler removes a link and every click recorded against it.
func DeleteLinkHandler(ctx *cartridge.Context) error {
	code := ctx.Params("code")
	if code == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
		})
	}

	if err := links.DeleteCascade(ctx.DBManager, ctx.Logger, code); err != nil {
		var notFound *links.LinkNotFoundError
		if errors.As(err, &notFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Link not found",
			})
		}
		ctx.Logger.Error("Failed to delete link",
			slog.String("short_code", code),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete link",
		})
	}

	return ctx.JSON(fiber.Map{
		"message": "Link deleted",
	})
}

// UpdateLeadParams is the request body for lead enrichment updates. Only
// fields that are present in the JSON are applied.
type UpdateLeadParams struct {
	ShortCode string `json:"short_code"`
	Email     string `json:"email"`

	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	ICP         *string `json:"icp"`
	Campaign    *string `json:"campaign"`
	CompanyName *string `json:"company_name"`
	CompanyURL  *string `json:"company_url"`
	LinkedInURL *string `json:"linkedin_url"`
}

// UpdateLeadHandler applies a partial enrichment update, keyed by short code
// when supplied, otherwise by email.
func UpdateLeadHandler(ctx *cartridge.Context) error {
	var params UpdateLeadParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
		})
	}

	input := &links.UpdateLeadInput{
		ShortCode:   params.ShortCode,
		Email:       params.Email,
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		ICP:         params.ICP,
		Campaign:    params.Campaign,
		CompanyName: params.CompanyName,
		CompanyURL:  params.CompanyURL,
		LinkedInURL: params.LinkedInURL,
	}

	if err := links.UpdateLead(ctx.DBManager, ctx.Logger, input); err != nil {
		if errors.Is(err, links.ErrNoUpdateFields) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		var notFound *links.LinkNotFoundError
		if errors.As(err, &notFound) {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Lead not found",
			})
		}
		ctx.Logger.Error("Failed to update lead", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update lead",
		})
	}

	return ctx.JSON(fiber.Map{
		"message": "Lead updated",
	})
}

// GetCampaignsHandler lists the distinct campaign labels in use.
func GetCampaignsHandler(ctx *cartridge.Context) error {
	campaigns, err := links.GetDistinctCampaigns(ctx.DB())
	if err != nil {
		ctx.Logger.Error("Failed to list campaigns", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list campaigns",
		})
	}

	return ctx.JSON(fiber.Map{
		"campaigns": campaigns,
	})
}
