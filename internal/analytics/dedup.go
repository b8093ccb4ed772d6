package analytics

// firstClicksSubquery returns SQL selecting one row per distinct dedup key
// inside the window, carrying the key and the earliest click timestamp.
// Repeat clicks by the same visitor collapse onto that first occurrence, so
// every downstream unique-visitor aggregate counts each visitor exactly once
// and attributes them to the bucket of their first click.
func firstClicksSubquery(params QueryParams) (string, []interface{}) {
	filters := windowFilters(params)
	query := `
		SELECT ` + params.DedupKey.column() + ` AS dedup_key, MIN(c.clicked_at) AS first_click
		FROM clicks c
		JOIN links l ON c.short_code = l.short_code
		WHERE 1=1` + filters.and() + `
		GROUP BY ` + params.DedupKey.column()
	return query, filters.args
}
