package clicks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadtrace/internal/clicks"
	"leadtrace/internal/links"
	"leadtrace/internal/testsupport"
)

func TestRecordClick(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateTestLink(t, db, "click001", "clicker@example.com", "")

	t.Run("records a click and returns the destination", func(t *testing.T) {
		result, err := clicks.RecordClick(dbManager, logger, &clicks.RecordClickInput{
			ShortCode: "click001",
			IPAddress: "198.51.100.7",
			UserAgent: "Mozilla/5.0 Test Browser",
			Referer:   "https://mail.google.com/",
			Country:   "Germany",
			City:      "Berlin",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/offer", result.DestinationURL)
		assert.Equal(t, "Germany", result.Click.Country)
		assert.False(t, result.Click.ClickedAt.IsZero())

		count, err := clicks.CountForShortCode(db, "click001")
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("empty geo values normalize to Unknown", func(t *testing.T) {
		result, err := clicks.RecordClick(dbManager, logger, &clicks.RecordClickInput{
			ShortCode: "click001",
			IPAddress: "198.51.100.8",
		})
		require.NoError(t, err)
		assert.Equal(t, clicks.GeoUnknown, result.Click.Country)
		assert.Equal(t, clicks.GeoUnknown, result.Click.City)
	})

	t.Run("unknown short code records nothing", func(t *testing.T) {
		_, err := clicks.RecordClick(dbManager, logger, &clicks.RecordClickInput{
			ShortCode: "ghost001",
			IPAddress: "198.51.100.9",
		})
		var notFound *links.LinkNotFoundError
		assert.ErrorAs(t, err, &notFound)

		count, err := clicks.CountForShortCode(db, "ghost001")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("repeat clicks accumulate", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := clicks.RecordClick(dbManager, logger, &clicks.RecordClickInput{
				ShortCode: "click001",
				IPAddress: "198.51.100.7",
			})
			require.NoError(t, err)
		}

		count, err := clicks.CountForShortCode(db, "click001")
		require.NoError(t, err)
		assert.EqualValues(t, 5, count)
	})
}
