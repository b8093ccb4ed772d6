// Package clicks stores the append-only click event log. Rows are written
// once on the redirect path and never mutated; deletion happens only as a
// cascade from link removal.
package clicks

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"leadtrace/internal/links"
)

// GeoUnknown is recorded when geolocation cannot resolve a value.
const GeoUnknown = "Unknown"

// Click represents one recorded visit to a redirect URL.
type Click struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ShortCode string    `gorm:"index;size:16;not null" json:"short_code"`
	ClickedAt time.Time `gorm:"index;not null" json:"clicked_at"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Referer   string    `json:"referer"`
}

// RecordClickInput defines the input required to record a click event.
// Country and City are best-effort values resolved by the caller; empty
// values are normalized to GeoUnknown.
type RecordClickInput struct {
	ShortCode string
	IPAddress string
	UserAgent string
	Referer   string
	Country   string
	City      string
}

// RecordResult carries the recorded event and the redirect target.
type RecordResult struct {
	Click          *Click
	DestinationURL string
}

// RecordClick validates the short code against the link table and appends a
// click event. An unknown short code is a LinkNotFoundError, never a silent
// drop or an orphaned row.
func RecordClick(dbManager cartridge.DBManager, logger *slog.Logger, input *RecordClickInput) (*RecordResult, error) {
	db := dbManager.GetConnection()

	link, err := links.GetByShortCode(db, input.ShortCode)
	if err != nil {
		var notFound *links.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve link for click: %w", err)
	}

	country := input.Country
	if country == "" {
		country = GeoUnknown
	}
	city := input.City
	if city == "" {
		city = GeoUnknown
	}

	click := &Click{
		ShortCode: link.ShortCode,
		ClickedAt: time.Now().UTC(),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		Country:   country,
		City:      city,
		Referer:   input.Referer,
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(click).Error
	})
	if err != nil {
		logger.Error("Failed to record click",
			slog.String("short_code", input.ShortCode),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	return &RecordResult{Click: click, DestinationURL: link.DestinationURL}, nil
}

// CountForShortCode counts the click events recorded for a short code.
func CountForShortCode(db *gorm.DB, code string) (int64, error) {
	var count int64
	err := db.Model(&Click{}).Where("short_code = ?", code).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}
