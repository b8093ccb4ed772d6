package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// ICPStat is the click activity attributed to one ideal-customer-profile
// segment. Leads with no ICP set are grouped under "undefined".
type ICPStat struct {
	ICP            string `json:"icp"`
	TotalClicks    int64  `json:"total_clicks"`
	UniqueClickers int64  `json:"unique_clickers"`
}

// GetICPDistribution breaks window clicks down by the lead's ICP segment,
// ordered by click volume. UniqueClickers counts distinct leads, not the
// configured dedup key, since the segment belongs to the lead.
func GetICPDistribution(db *gorm.DB, params QueryParams) ([]ICPStat, error) {
	var results []ICPStat

	filters := windowFilters(params)
	query := `
		SELECT
			COALESCE(NULLIF(l.icp, ''), 'undefined') AS icp,
			COUNT(c.id) AS total_clicks,
			COUNT(DISTINCT l.short_code) AS unique_clickers
		FROM clicks c
		JOIN links l ON c.short_code = l.short_code
		WHERE 1=1` + filters.and() + `
		GROUP BY icp
		ORDER BY total_clicks DESC, icp ASC`

	if err := db.Raw(query, filters.args...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error computing icp distribution: %w", err)
	}

	return results, nil
}
