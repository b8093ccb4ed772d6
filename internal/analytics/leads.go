package analytics

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"leadtrace/internal/timeframe"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// LeadStatus filters the lead list by click activity.
type LeadStatus string

const (
	LeadStatusAny        LeadStatus = ""
	LeadStatusClicked    LeadStatus = "clicked"
	LeadStatusNotClicked LeadStatus = "not_clicked"
)

// ParseLeadStatus validates a status filter value.
func ParseLeadStatus(s string) (LeadStatus, error) {
	switch LeadStatus(s) {
	case LeadStatusAny, LeadStatusClicked, LeadStatusNotClicked:
		return LeadStatus(s), nil
	}
	return LeadStatusAny, fmt.Errorf("invalid lead status %q", s)
}

// LeadQueryParams filters and paginates the lead list. Counts are lifetime
// totals, not window-scoped.
type LeadQueryParams struct {
	Campaign string
	Status   LeadStatus
	Search   string
	Page     int
	PageSize int
}

func (p *LeadQueryParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
}

// LeadRow is one lead with its lifetime click activity.
type LeadRow struct {
	ShortCode   string     `json:"short_code"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Campaign    string     `json:"campaign"`
	ICP         string     `json:"icp"`
	CompanyName string     `json:"company_name"`
	ClickCount  int64      `json:"click_count"`
	FirstClick  *time.Time `json:"first_click"`
	LastClick   *time.Time `json:"last_click"`
	RelaySent   bool       `json:"relay_sent"`
	CreatedAt   time.Time  `json:"created_at"`
}

// leadRowRecord is the scan target for the grouped query. The click
// aggregates come back as strings since expression columns have no declared
// type for the driver to map onto time.Time.
type leadRowRecord struct {
	ShortCode   string
	FirstName   string
	LastName    string
	Email       string
	Campaign    string
	ICP         string
	CompanyName string
	ClickCount  int64
	FirstClick  sql.NullString
	LastClick   sql.NullString
	RelaySent   bool
	CreatedAt   time.Time
}

func (r leadRowRecord) toLeadRow() LeadRow {
	return LeadRow{
		ShortCode:   r.ShortCode,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Campaign:    r.Campaign,
		ICP:         r.ICP,
		CompanyName: r.CompanyName,
		ClickCount:  r.ClickCount,
		FirstClick:  parseAggregateTime(r.FirstClick),
		LastClick:   parseAggregateTime(r.LastClick),
		RelaySent:   r.RelaySent,
		CreatedAt:   r.CreatedAt,
	}
}

// parseAggregateTime converts a strftime-normalized aggregate back into a
// timestamp. NULL (no clicks) and unparseable values map to nil.
func parseAggregateTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	parsed, err := timeframe.ParseSQLiteTimestamp(value.String)
	if err != nil {
		return nil
	}
	return &parsed
}

// LeadPage is a page of leads plus the metadata to render pagination. Total
// counts every lead matching the filters, across all pages; HasNext and
// HasPrev are derived from the page position against that total.
type LeadPage struct {
	Leads    []LeadRow `json:"leads"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	HasNext  bool      `json:"has_next"`
	HasPrev  bool      `json:"has_prev"`
}

// leadFilters builds the WHERE-level predicates shared by the page query
// and the total count.
func leadFilters(params LeadQueryParams) *filterSet {
	f := &filterSet{}
	if params.Campaign != "" {
		f.add("l.campaign = ?", params.Campaign)
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		f.add("(l.first_name LIKE ? COLLATE NOCASE OR l.last_name LIKE ? COLLATE NOCASE OR l.email LIKE ? COLLATE NOCASE)",
			pattern, pattern, pattern)
	}
	return f
}

// statusHaving returns the HAVING clause for the status filter. Clicked and
// not-clicked are post-aggregation conditions, so they cannot live in the
// WHERE clause.
func statusHaving(status LeadStatus) string {
	switch status {
	case LeadStatusClicked:
		return " HAVING COUNT(c.id) > 0"
	case LeadStatusNotClicked:
		return " HAVING COUNT(c.id) = 0"
	}
	return ""
}

// GetLeadPage returns one page of leads ordered by click count, ties broken
// by newest link first. The total reflects the full filtered result set, so
// a page beyond the last returns no rows but a truthful total.
func GetLeadPage(db *gorm.DB, params LeadQueryParams) (LeadPage, error) {
	params.normalize()
	page := LeadPage{Leads: []LeadRow{}, Page: params.Page, PageSize: params.PageSize}

	filters := leadFilters(params)
	having := statusHaving(params.Status)

	grouped := `
		SELECT
			l.short_code AS short_code,
			l.first_name AS first_name,
			l.last_name AS last_name,
			l.email AS email,
			l.campaign AS campaign,
			l.icp AS icp,
			l.company_name AS company_name,
			COUNT(c.id) AS click_count,
			` + timeframe.SQLiteTimestampExpression("MIN(c.clicked_at)") + ` AS first_click,
			` + timeframe.SQLiteTimestampExpression("MAX(c.clicked_at)") + ` AS last_click,
			l.relay_sent AS relay_sent,
			l.created_at AS created_at
		FROM links l
		LEFT JOIN clicks c ON c.short_code = l.short_code
		WHERE 1=1` + filters.and() + `
		GROUP BY l.id` + having

	countQuery := "SELECT COUNT(*) FROM (" + grouped + ") sub"
	if err := db.Raw(countQuery, filters.args...).Scan(&page.Total).Error; err != nil {
		return page, fmt.Errorf("error counting leads: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	pageQuery := grouped + `
		ORDER BY click_count DESC, l.created_at DESC
		LIMIT ? OFFSET ?`
	args := append(append([]interface{}{}, filters.args...), params.PageSize, offset)

	var records []leadRowRecord
	if err := db.Raw(pageQuery, args...).Scan(&records).Error; err != nil {
		return page, fmt.Errorf("error fetching leads: %w", err)
	}
	for _, record := range records {
		page.Leads = append(page.Leads, record.toLeadRow())
	}

	page.HasPrev = page.Page > 1
	page.HasNext = int64(page.Page)*int64(page.PageSize) < page.Total

	return page, nil
}
