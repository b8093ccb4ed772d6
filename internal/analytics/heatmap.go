package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// HeatmapCell counts unique visitors whose first click landed in a given
// weekday/hour slot. Weekday follows SQLite's %w convention, 0 is Sunday.
type HeatmapCell struct {
	Weekday int   `json:"weekday"`
	Hour    int   `json:"hour"`
	Count   int64 `json:"count"`
}

// GetClickHeatmap returns the weekday-by-hour distribution of first clicks
// in the window. Only slots with activity are returned; absent cells are
// zero by omission.
func GetClickHeatmap(db *gorm.DB, params QueryParams) ([]HeatmapCell, error) {
	var results []HeatmapCell

	subquery, subArgs := firstClicksSubquery(params)
	query := `
		SELECT
			CAST(strftime('%w', first_click) AS INTEGER) AS weekday,
			CAST(strftime('%H', first_click) AS INTEGER) AS hour,
			COUNT(*) AS count
		FROM (` + subquery + `) fc
		GROUP BY weekday, hour
		ORDER BY weekday ASC, hour ASC`

	if err := db.Raw(query, subArgs...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error computing click heatmap: %w", err)
	}

	return results, nil
}
