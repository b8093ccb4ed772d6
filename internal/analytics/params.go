package analytics

import (
	"time"

	"leadtrace/internal/config"
	"leadtrace/internal/timeframe"
)

// DedupKey selects the visitor-identity attribute used to collapse repeat
// clicks. By short code one entry per recipient; by IP one entry per
// network origin.
type DedupKey string

const (
	DedupByShortCode DedupKey = DedupKey(config.DedupByShortCode)
	DedupByIP        DedupKey = DedupKey(config.DedupByIP)
)

// column returns the clicks-table column backing the dedup key. Keys are a
// closed enum so this can never echo caller input into query text.
func (k DedupKey) column() string {
	if k == DedupByIP {
		return "c.ip_address"
	}
	return "c.short_code"
}

// QueryParams contains common parameters for the aggregation queries.
type QueryParams struct {
	TimeFrame timeframe.TimeFrame
	Campaign  string
	DedupKey  DedupKey
	Limit     int
}

// NewQueryParams builds query params for a named range, anchored at now.
func NewQueryParams(r timeframe.Range, campaign string, dedupKey DedupKey) QueryParams {
	return QueryParams{
		TimeFrame: timeframe.NewFromRange(r, time.Now()),
		Campaign:  campaign,
		DedupKey:  dedupKey,
		Limit:     10,
	}
}

// filterSet accumulates parameterized predicates joined with AND. Caller
// values only ever travel through args, never through the clause text.
type filterSet struct {
	clauses []string
	args    []interface{}
}

func (f *filterSet) add(clause string, args ...interface{}) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
}

// and renders the predicates for appending after an existing condition.
func (f *filterSet) and() string {
	out := ""
	for _, clause := range f.clauses {
		out += " AND " + clause
	}
	return out
}

// windowFilters returns the standard click-window predicates for params,
// plus the campaign predicate when one is requested.
func windowFilters(params QueryParams) *filterSet {
	f := &filterSet{}
	f.add("c.clicked_at >= ?", params.TimeFrame.From)
	f.add("c.clicked_at <= ?", params.TimeFrame.To)
	if params.Campaign != "" {
		f.add("l.campaign = ?", params.Campaign)
	}
	return f
}
