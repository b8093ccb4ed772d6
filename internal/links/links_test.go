package links_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadtrace/internal/clicks"
	"leadtrace/internal/links"
	"leadtrace/internal/testsupport"
)

func strPtr(s string) *string { return &s }

func TestCreateLink(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	t.Run("issues a link with a generated short code", func(t *testing.T) {
		link, err := links.CreateLink(dbManager, logger, &links.CreateLinkInput{
			FirstName:      "Ada",
			LastName:       "Lovelace",
			Email:          "ada@example.com",
			DestinationURL: "https://example.com/landing",
		})
		require.NoError(t, err)
		assert.Len(t, link.ShortCode, 8)
		assert.Equal(t, links.DefaultCampaign, link.Campaign)
		assert.False(t, link.RelaySent)

		stored, err := links.GetByShortCode(dbManager.GetConnection(), link.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", stored.Email)
	})

	t.Run("generates distinct codes per link", func(t *testing.T) {
		first, err := links.CreateLink(dbManager, logger, &links.CreateLinkInput{
			Email:          "one@example.com",
			DestinationURL: "https://example.com/a",
		})
		require.NoError(t, err)

		second, err := links.CreateLink(dbManager, logger, &links.CreateLinkInput{
			Email:          "two@example.com",
			DestinationURL: "https://example.com/b",
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.ShortCode, second.ShortCode)
	})

	t.Run("rejects a missing destination", func(t *testing.T) {
		_, err := links.CreateLink(dbManager, logger, &links.CreateLinkInput{
			Email:          "nodest@example.com",
			DestinationURL: "   ",
		})
		assert.ErrorIs(t, err, links.ErrMissingDestination)
	})

	t.Run("keeps an explicit campaign", func(t *testing.T) {
		link, err := links.CreateLink(dbManager, logger, &links.CreateLinkInput{
			Email:          "campaign@example.com",
			Campaign:       "q3-outbound",
			DestinationURL: "https://example.com/q3",
		})
		require.NoError(t, err)
		assert.Equal(t, "q3-outbound", link.Campaign)
	})
}

func TestGetByShortCode(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateTestLink(t, db, "known001", "known@example.com", "")

	t.Run("returns the link", func(t *testing.T) {
		link, err := links.GetByShortCode(db, "known001")
		require.NoError(t, err)
		assert.Equal(t, "known@example.com", link.Email)
	})

	t.Run("unknown code is a typed not-found error", func(t *testing.T) {
		_, err := links.GetByShortCode(db, "missing1")
		var notFound *links.LinkNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestDeleteCascade(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateTestLink(t, db, "doomed01", "doomed@example.com", "")
	testsupport.CreateTestLink(t, db, "safe0001", "safe@example.com", "")
	testsupport.CreateTestClick(t, db, "doomed01", "198.51.100.1", time.Now())
	testsupport.CreateTestClick(t, db, "doomed01", "198.51.100.2", time.Now())
	testsupport.CreateTestClick(t, db, "safe0001", "198.51.100.3", time.Now())

	require.NoError(t, links.DeleteCascade(dbManager, logger, "doomed01"))

	_, err := links.GetByShortCode(db, "doomed01")
	var notFound *links.LinkNotFoundError
	assert.ErrorAs(t, err, &notFound)

	orphans, err := clicks.CountForShortCode(db, "doomed01")
	require.NoError(t, err)
	assert.Zero(t, orphans)

	// Unrelated link and its clicks survive.
	_, err = links.GetByShortCode(db, "safe0001")
	assert.NoError(t, err)
	remaining, err := clicks.CountForShortCode(db, "safe0001")
	require.NoError(t, err)
	assert.EqualValues(t, 1, remaining)

	t.Run("deleting an unknown code fails typed", func(t *testing.T) {
		err := links.DeleteCascade(dbManager, logger, "missing1")
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestUpdateLead(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateTestLink(t, db, "lead0001", "lead@example.com", "")
	testsupport.CreateTestLink(t, db, "lead0002", "lead@example.com", "")

	t.Run("updates by short code", func(t *testing.T) {
		err := links.UpdateLead(dbManager, logger, &links.UpdateLeadInput{
			ShortCode:   "lead0001",
			CompanyName: strPtr("Initech"),
			ICP:         strPtr("saas-founder"),
		})
		require.NoError(t, err)

		link, err := links.GetByShortCode(db, "lead0001")
		require.NoError(t, err)
		assert.Equal(t, "Initech", link.CompanyName)
		assert.Equal(t, "saas-founder", link.ICP)

		// Other link for the same email untouched.
		other, err := links.GetByShortCode(db, "lead0002")
		require.NoError(t, err)
		assert.Empty(t, other.CompanyName)
	})

	t.Run("updates every link for an email", func(t *testing.T) {
		err := links.UpdateLead(dbManager, logger, &links.UpdateLeadInput{
			Email:    "lead@example.com",
			LastName: strPtr("Renamed"),
		})
		require.NoError(t, err)

		for _, code := range []string{"lead0001", "lead0002"} {
			link, err := links.GetByShortCode(db, code)
			require.NoError(t, err)
			assert.Equal(t, "Renamed", link.LastName)
		}
	})

	t.Run("untouched fields keep their values", func(t *testing.T) {
		link, err := links.GetByShortCode(db, "lead0001")
		require.NoError(t, err)
		assert.Equal(t, "Initech", link.CompanyName)
	})

	t.Run("no update fields is rejected", func(t *testing.T) {
		err := links.UpdateLead(dbManager, logger, &links.UpdateLeadInput{
			ShortCode: "lead0001",
		})
		assert.ErrorIs(t, err, links.ErrNoUpdateFields)
	})

	t.Run("unknown key is typed not-found", func(t *testing.T) {
		err := links.UpdateLead(dbManager, logger, &links.UpdateLeadInput{
			Email:     "ghost@example.com",
			FirstName: strPtr("Ghost"),
		})
		var notFound *links.LinkNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestResetRelaySent(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	sentA := testsupport.CreateTestLink(t, db, "sentaa01", "a@example.com", "")
	sentB := testsupport.CreateTestLink(t, db, "sentbb01", "b@example.com", "")
	for _, link := range []links.Link{sentA, sentB} {
		require.NoError(t, db.Model(&links.Link{}).
			Where("short_code = ?", link.ShortCode).
			Updates(map[string]interface{}{"relay_sent": true, "relay_sent_at": now}).Error)
	}

	t.Run("reset by email only touches that lead", func(t *testing.T) {
		affected, err := links.ResetRelaySent(dbManager, logger, "a@example.com")
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		a, err := links.GetByShortCode(db, "sentaa01")
		require.NoError(t, err)
		assert.False(t, a.RelaySent)
		assert.Nil(t, a.RelaySentAt)

		b, err := links.GetByShortCode(db, "sentbb01")
		require.NoError(t, err)
		assert.True(t, b.RelaySent)
	})

	t.Run("reset all clears the remainder", func(t *testing.T) {
		affected, err := links.ResetRelaySentAll(dbManager, logger)
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		b, err := links.GetByShortCode(db, "sentbb01")
		require.NoError(t, err)
		assert.False(t, b.RelaySent)
	})

	t.Run("reset for unknown email is typed not-found", func(t *testing.T) {
		_, err := links.ResetRelaySent(dbManager, logger, "ghost@example.com")
		var notFound *links.LinkNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestGetDistinctCampaigns(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateTestLink(t, db, "cmp00001", "c1@example.com", "webinar")
	testsupport.CreateTestLink(t, db, "cmp00002", "c2@example.com", "webinar")
	testsupport.CreateTestLink(t, db, "cmp00003", "c3@example.com", "default")

	campaigns, err := links.GetDistinctCampaigns(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "webinar"}, campaigns)
}
