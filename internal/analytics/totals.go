package analytics

import (
	"fmt"
	"math"
	"net/url"

	"gorm.io/gorm"

	"leadtrace/internal/pkg/referrers"
)

// OverviewStats is the top-level summary for a campaign (or all campaigns)
// within a time window.
type OverviewStats struct {
	TotalLinks     int64   `json:"total_links"`
	TotalClicks    int64   `json:"total_clicks"`
	UniqueVisitors int64   `json:"unique_visitors"`
	ClickRate      float64 `json:"click_rate"`
}

// GetOverviewStats computes link, click and unique-visitor totals plus the
// click rate. The click rate is unique visitors over issued links as a
// percentage; it reads 0 when no links exist so an empty campaign never
// divides by zero.
func GetOverviewStats(db *gorm.DB, params QueryParams) (OverviewStats, error) {
	var stats OverviewStats

	linkQuery := "SELECT COUNT(*) FROM links l WHERE 1=1"
	linkArgs := []interface{}{}
	if params.Campaign != "" {
		linkQuery += " AND l.campaign = ?"
		linkArgs = append(linkArgs, params.Campaign)
	}
	if err := db.Raw(linkQuery, linkArgs...).Scan(&stats.TotalLinks).Error; err != nil {
		return stats, fmt.Errorf("error counting links: %w", err)
	}

	filters := windowFilters(params)
	clickQuery := `
		SELECT COUNT(*)
		FROM clicks c
		JOIN links l ON c.short_code = l.short_code
		WHERE 1=1` + filters.and()
	if err := db.Raw(clickQuery, filters.args...).Scan(&stats.TotalClicks).Error; err != nil {
		return stats, fmt.Errorf("error counting clicks: %w", err)
	}

	uniqueQuery := `
		SELECT COUNT(DISTINCT ` + params.DedupKey.column() + `)
		FROM clicks c
		JOIN links l ON c.short_code = l.short_code
		WHERE 1=1` + filters.and()
	if err := db.Raw(uniqueQuery, filters.args...).Scan(&stats.UniqueVisitors).Error; err != nil {
		return stats, fmt.Errorf("error counting unique visitors: %w", err)
	}

	if stats.TotalLinks > 0 {
		rate := float64(stats.UniqueVisitors) / float64(stats.TotalLinks) * 100
		stats.ClickRate = math.Round(rate*100) / 100
	}

	return stats, nil
}

// CampaignStat summarizes one campaign's activity in the window.
type CampaignStat struct {
	Campaign       string `json:"campaign"`
	TotalLinks     int64  `json:"total_links"`
	TotalClicks    int64  `json:"total_clicks"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// GetCampaignBreakdown returns per-campaign totals ordered by click volume.
// Campaigns with links but no clicks in the window still appear with zeros.
func GetCampaignBreakdown(db *gorm.DB, params QueryParams) ([]CampaignStat, error) {
	var results []CampaignStat

	query := `
		SELECT
			l.campaign AS campaign,
			COUNT(DISTINCT l.id) AS total_links,
			COUNT(c.id) AS total_clicks,
			COUNT(DISTINCT ` + params.DedupKey.column() + `) AS unique_visitors
		FROM links l
		LEFT JOIN clicks c ON c.short_code = l.short_code
			AND c.clicked_at >= ? AND c.clicked_at <= ?
		GROUP BY l.campaign
		ORDER BY total_clicks DESC, l.campaign ASC`

	err := db.Raw(query, params.TimeFrame.From, params.TimeFrame.To).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error computing campaign breakdown: %w", err)
	}

	return results, nil
}

// RecentClick is a single row of the live click feed. Source is the
// friendly name of the referring site, or Direct when no referer was sent.
type RecentClick struct {
	ShortCode string `json:"short_code"`
	Email     string `json:"email"`
	Campaign  string `json:"campaign"`
	ClickedAt string `json:"clicked_at"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Referer   string `json:"referer"`
	Source    string `json:"source"`
}

// GetRecentClicks returns the newest clicks in the window, most recent first.
func GetRecentClicks(db *gorm.DB, params QueryParams) ([]RecentClick, error) {
	var results []RecentClick

	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	filters := windowFilters(params)
	query := `
		SELECT
			c.short_code AS short_code,
			l.email AS email,
			l.campaign AS campaign,
			c.clicked_at AS clicked_at,
			c.country AS country,
			c.city AS city,
			c.referer AS referer
		FROM clicks c
		JOIN links l ON c.short_code = l.short_code
		WHERE 1=1` + filters.and() + `
		ORDER BY c.clicked_at DESC
		LIMIT ?`

	args := append(filters.args, limit)
	if err := db.Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching recent clicks: %w", err)
	}

	for i := range results {
		results[i].Source = refererSource(results[i].Referer)
	}
	return results, nil
}

// refererSource classifies a raw referer URL into a display name.
func refererSource(referer string) string {
	if referer == "" {
		return "Direct"
	}
	parsed, err := url.Parse(referer)
	if err != nil || parsed.Hostname() == "" {
		return "Direct"
	}
	return referrers.FriendlyName(parsed.Hostname())
}

// TopClicker is a lead ranked by click volume inside the window.
type TopClicker struct {
	ShortCode  string `json:"short_code"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Campaign   string `json:"campaign"`
	ClickCount int64  `json:"click_count"`
}

// GetTopClickers returns the leads with the most clicks in the window.
func GetTopClickers(db *gorm.DB, params QueryParams) ([]TopClicker, error) {
	var results []TopClicker

	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	filters := windowFilters(params)
	query := `
		SELECT
			l.short_code AS short_code,
			l.email AS email,
			l.first_name AS first_name,
			l.last_name AS last_name,
			l.campaign AS campaign,
			COUNT(c.id) AS click_count
		FROM clicks c
		JOIN links l ON c.short_code = l.short_code
		WHERE 1=1` + filters.and() + `
		GROUP BY l.id
		ORDER BY click_count DESC, l.created_at DESC
		LIMIT ?`

	args := append(filters.args, limit)
	if err := db.Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching top clickers: %w", err)
	}

	return results, nil
}
