package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"leadtrace/internal/analytics"
	"leadtrace/internal/links"
	"leadtrace/internal/testsupport"
)

func setLeadICP(t *testing.T, db *gorm.DB, shortCode, icp string) {
	t.Helper()
	err := db.Model(&links.Link{}).Where("short_code = ?", shortCode).
		Update("icp", icp).Error
	require.NoError(t, err)
}

func TestGetICPDistribution(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateTestLink(t, db, "icp00001", "f1@example.com", "")
	testsupport.CreateTestLink(t, db, "icp00002", "f2@example.com", "")
	testsupport.CreateTestLink(t, db, "icp00003", "a1@example.com", "")
	setLeadICP(t, db, "icp00001", "founder")
	setLeadICP(t, db, "icp00002", "founder")

	inWindow := anchor.Add(-24 * time.Hour)
	testsupport.CreateTestClick(t, db, "icp00001", "203.0.113.60", inWindow)
	testsupport.CreateTestClick(t, db, "icp00001", "203.0.113.60", inWindow.Add(time.Hour))
	testsupport.CreateTestClick(t, db, "icp00002", "203.0.113.61", inWindow)
	testsupport.CreateTestClick(t, db, "icp00003", "203.0.113.62", inWindow)
	// Outside the window, must not count.
	testsupport.CreateTestClick(t, db, "icp00003", "203.0.113.62", anchor.Add(-30*24*time.Hour))

	stats, err := analytics.GetICPDistribution(db, weekParams(""))
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "founder", stats[0].ICP)
	assert.EqualValues(t, 3, stats[0].TotalClicks)
	assert.EqualValues(t, 2, stats[0].UniqueClickers)

	assert.Equal(t, "undefined", stats[1].ICP)
	assert.EqualValues(t, 1, stats[1].TotalClicks)
	assert.EqualValues(t, 1, stats[1].UniqueClickers)
}

func TestGetICPDistributionTieBreaksByName(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateTestLink(t, db, "icp00010", "z@example.com", "")
	testsupport.CreateTestLink(t, db, "icp00011", "m@example.com", "")
	setLeadICP(t, db, "icp00010", "smb")
	setLeadICP(t, db, "icp00011", "enterprise")

	when := anchor.Add(-2 * time.Hour)
	testsupport.CreateTestClick(t, db, "icp00010", "203.0.113.63", when)
	testsupport.CreateTestClick(t, db, "icp00011", "203.0.113.64", when)

	stats, err := analytics.GetICPDistribution(db, weekParams(""))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "enterprise", stats[0].ICP)
	assert.Equal(t, "smb", stats[1].ICP)
}
