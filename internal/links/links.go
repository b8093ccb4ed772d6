// Package links manages the tracked-link dimension: one row per issued
// short code, carrying the recipient metadata the analytics queries join
// against.
package links

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

const (
	// DefaultCampaign is assigned when link issuance omits a campaign label.
	DefaultCampaign = "default"

	shortCodeLength  = 8
	shortCodeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

	// The code space is small, so collisions are retried a few times before
	// giving up instead of looping forever on a corrupted uniqueness index.
	maxCodeAttempts = 5
)

// ErrMissingDestination is returned when link issuance omits the destination URL.
var ErrMissingDestination = errors.New("destination_url is required")

// ErrNoUpdateFields is returned when a lead update supplies nothing to change.
var ErrNoUpdateFields = errors.New("no update fields supplied")

// LinkNotFoundError represents an error when no link matches a short code or email.
type LinkNotFoundError struct {
	Key string
}

func (e *LinkNotFoundError) Error() string {
	return fmt.Sprintf("link not found: %s", e.Key)
}

// NewLinkNotFoundError creates a new LinkNotFoundError
func NewLinkNotFoundError(key string) *LinkNotFoundError {
	return &LinkNotFoundError{Key: key}
}

// Link represents one issued tracked link. The short code is globally unique
// and never reused; click events reference it by value.
type Link struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ShortCode      string     `gorm:"uniqueIndex;size:16;not null" json:"short_code"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `gorm:"index" json:"email"`
	ICP            string     `gorm:"column:icp" json:"icp"`
	Campaign       string     `gorm:"index" json:"campaign"`
	CompanyName    string     `json:"company_name"`
	CompanyURL     string     `json:"company_url"`
	LinkedInURL    string     `gorm:"column:linkedin_url" json:"linkedin_url"`
	DestinationURL string     `gorm:"not null" json:"destination_url"`
	RelaySent      bool       `gorm:"index;default:false" json:"relay_sent"`
	RelaySentAt    *time.Time `json:"relay_sent_at"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

// CreateLinkInput defines the input required to issue a tracked link.
type CreateLinkInput struct {
	FirstName      string
	LastName       string
	Email          string
	ICP            string
	Campaign       string
	CompanyName    string
	CompanyURL     string
	LinkedInURL    string
	DestinationURL string
}

// CreateLink issues a new tracked link with a freshly generated short code.
// Validation happens before any store mutation; a short-code collision is
// retried with a new code up to maxCodeAttempts times.
func CreateLink(dbManager cartridge.DBManager, logger *slog.Logger, input *CreateLinkInput) (*Link, error) {
	if strings.TrimSpace(input.DestinationURL) == "" {
		return nil, ErrMissingDestination
	}

	campaign := input.Campaign
	if campaign == "" {
		campaign = DefaultCampaign
	}

	db := dbManager.GetConnection()

	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateShortCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		link := &Link{
			ShortCode:      code,
			FirstName:      input.FirstName,
			LastName:       input.LastName,
			Email:          input.Email,
			ICP:            input.ICP,
			Campaign:       campaign,
			CompanyName:    input.CompanyName,
			CompanyURL:     input.CompanyURL,
			LinkedInURL:    input.LinkedInURL,
			DestinationURL: input.DestinationURL,
			CreatedAt:      time.Now().UTC(),
		}

		err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
			return tx.Create(link).Error
		})
		if err == nil {
			return link, nil
		}

		lastErr = err
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create link: %w", err)
		}

		logger.Warn("Short code collision, retrying with a new code",
			slog.String("short_code", code),
			slog.Int("attempt", attempt+1))
	}

	return nil, fmt.Errorf("failed to create link after %d attempts: %w", maxCodeAttempts, lastErr)
}

// GetByShortCode retrieves a link by its short code.
func GetByShortCode(db *gorm.DB, code string) (*Link, error) {
	var link Link
	if err := db.Where("short_code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewLinkNotFoundError(code)
		}
		return nil, fmt.Errorf("unexpected error querying link: %w", err)
	}
	return &link, nil
}

// DeleteCascade removes a link and all of its click events as one atomic
// unit. Either both deletions succeed or neither does.
func DeleteCascade(dbManager cartridge.DBManager, logger *slog.Logger, code string) error {
	db := dbManager.GetConnection()

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var link Link
		if err := tx.Where("short_code = ?", code).First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewLinkNotFoundError(code)
			}
			return fmt.Errorf("unexpected error querying link: %w", err)
		}

		// Clicks first so an interrupted delete can never orphan them.
		if err := tx.Exec("DELETE FROM clicks WHERE short_code = ?", code).Error; err != nil {
			return fmt.Errorf("failed to delete clicks for link: %w", err)
		}

		if err := tx.Delete(&link).Error; err != nil {
			return fmt.Errorf("failed to delete link: %w", err)
		}

		return nil
	})
}

// UpdateLeadInput carries an enrichment update for an existing lead,
// addressed by short code or email. Only non-nil fields are applied.
type UpdateLeadInput struct {
	ShortCode string
	Email     string

	FirstName   *string
	LastName    *string
	ICP         *string
	Campaign    *string
	CompanyName *string
	CompanyURL  *string
	LinkedInURL *string
}

// UpdateLead applies an enrichment update to the link(s) matching the input's
// short code (preferred) or email. Supplying no update fields is rejected
// before any store mutation.
func UpdateLead(dbManager cartridge.DBManager, logger *slog.Logger, input *UpdateLeadInput) error {
	updates := map[string]interface{}{}
	setField := func(column string, value *string) {
		if value != nil {
			updates[column] = *value
		}
	}
	setField("first_name", input.FirstName)
	setField("last_name", input.LastName)
	setField("icp", input.ICP)
	setField("campaign", input.Campaign)
	setField("company_name", input.CompanyName)
	setField("company_url", input.CompanyURL)
	setField("linkedin_url", input.LinkedInURL)

	if len(updates) == 0 {
		return ErrNoUpdateFields
	}
	if input.ShortCode == "" && input.Email == "" {
		return NewLinkNotFoundError("")
	}

	db := dbManager.GetConnection()

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		query := tx.Model(&Link{})
		key := input.ShortCode
		if input.ShortCode != "" {
			query = query.Where("short_code = ?", input.ShortCode)
		} else {
			query = query.Where("email = ?", input.Email)
			key = input.Email
		}

		result := query.Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update lead: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return NewLinkNotFoundError(key)
		}
		return nil
	})
}

// ResetRelaySent clears the relay-sent flag for the lead with the given
// email, making it eligible for the hot-lead relay again. Intended for
// re-testing the relay, not production re-notification.
func ResetRelaySent(dbManager cartridge.DBManager, logger *slog.Logger, email string) (int64, error) {
	db := dbManager.GetConnection()

	var affected int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Link{}).
			Where("email = ?", email).
			Updates(map[string]interface{}{"relay_sent": false, "relay_sent_at": nil})
		if result.Error != nil {
			return fmt.Errorf("failed to reset relay-sent flag: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return NewLinkNotFoundError(email)
		}
		affected = result.RowsAffected
		return nil
	})
	return affected, err
}

// ResetRelaySentAll clears the relay-sent flag for every lead.
func ResetRelaySentAll(dbManager cartridge.DBManager, logger *slog.Logger) (int64, error) {
	db := dbManager.GetConnection()

	var affected int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Link{}).
			Where("relay_sent = ?", true).
			Updates(map[string]interface{}{"relay_sent": false, "relay_sent_at": nil})
		if result.Error != nil {
			return fmt.Errorf("failed to reset relay-sent flags: %w", result.Error)
		}
		affected = result.RowsAffected
		return nil
	})
	return affected, err
}

// GetDistinctCampaigns returns the sorted list of campaign labels in use.
func GetDistinctCampaigns(db *gorm.DB) ([]string, error) {
	var campaigns []string
	err := db.Model(&Link{}).
		Distinct("campaign").
		Order("campaign ASC").
		Pluck("campaign", &campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get campaigns: %w", err)
	}
	return campaigns, nil
}

// generateShortCode generates a random URL-safe short code.
func generateShortCode() (string, error) {
	result := make([]byte, shortCodeLength)
	max := big.NewInt(int64(len(shortCodeCharset)))
	for i := range result {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = shortCodeCharset[num.Int64()]
	}
	return string(result), nil
}

// isUniqueViolation reports whether err is a short-code uniqueness conflict.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
