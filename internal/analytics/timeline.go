package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"leadtrace/internal/timeframe"
)

// TimelinePoint carries both series for one time bucket. Buckets with no
// activity are present with zero counts so charts render a dense axis.
type TimelinePoint struct {
	Bucket         string `json:"bucket"`
	UniqueVisitors int    `json:"unique_visitors"`
	TotalClicks    int    `json:"total_clicks"`
}

// GetClickTimeline returns the bucketed click series for the window: unique
// visitors placed in the bucket of their first click, and raw click counts
// per bucket. The two series always share the same bucket axis.
func GetClickTimeline(db *gorm.DB, params QueryParams) ([]TimelinePoint, error) {
	bucketExpr := params.TimeFrame.SQLiteBucketExpression("first_click")
	subquery, subArgs := firstClicksSubquery(params)

	var uniqueStats []timeframe.DateStat
	uniqueQuery := `
		SELECT ` + bucketExpr + ` AS date, COUNT(*) AS count
		FROM (` + subquery + `) fc
		GROUP BY date
		ORDER BY date ASC`
	if err := db.Raw(uniqueQuery, subArgs...).Scan(&uniqueStats).Error; err != nil {
		return nil, fmt.Errorf("error fetching unique visitor timeline: %w", err)
	}

	filters := windowFilters(params)
	rawBucketExpr := params.TimeFrame.SQLiteBucketExpression("c.clicked_at")
	var clickStats []timeframe.DateStat
	clickQuery := `
		SELECT ` + rawBucketExpr + ` AS date, COUNT(*) AS count
		FROM clicks c
		JOIN links l ON c.short_code = l.short_code
		WHERE 1=1` + filters.and() + `
		GROUP BY date
		ORDER BY date ASC`
	if err := db.Raw(clickQuery, filters.args...).Scan(&clickStats).Error; err != nil {
		return nil, fmt.Errorf("error fetching click timeline: %w", err)
	}

	uniqueSeries := params.TimeFrame.BuildTimeSeriesPoints(uniqueStats)
	clickSeries := params.TimeFrame.BuildTimeSeriesPoints(clickStats)

	points := make([]TimelinePoint, len(uniqueSeries))
	for i, u := range uniqueSeries {
		points[i] = TimelinePoint{
			Bucket:         u.Date,
			UniqueVisitors: u.Count,
			TotalClicks:    clickSeries[i].Count,
		}
	}

	return points, nil
}
