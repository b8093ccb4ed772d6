package relay

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"leadtrace/internal/config"
	"leadtrace/internal/pkg/async"
	"leadtrace/internal/timeframe"
)

// relayWorkers caps concurrent webhook deliveries.
const relayWorkers = 4

// HotLead is the payload delivered to the downstream webhook for one lead
// that crossed the click threshold.
type HotLead struct {
	ShortCode   string     `json:"short_code"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Campaign    string     `json:"campaign"`
	ICP         string     `json:"icp"`
	CompanyName string     `json:"company_name"`
	CompanyURL  string     `json:"company_url"`
	LinkedInURL string     `json:"linkedin_url"`
	ClickCount  int64      `json:"click_count"`
	LastClick   *time.Time `json:"last_click"`
	TrackingURL string     `json:"tracking_url"`
}

// LeadError records a relay failure for one lead without aborting the run.
type LeadError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// Result summarizes one relay run.
type Result struct {
	Candidates int         `json:"candidates"`
	Sent       int         `json:"sent"`
	Errors     []LeadError `json:"errors"`
}

// Sender delivers a single hot lead to the downstream system.
type Sender interface {
	Send(ctx context.Context, lead HotLead) error
}

// WebhookSender posts hot leads as JSON to a configured webhook URL.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender builds a sender for the configured webhook endpoint.
func NewWebhookSender(cfg *config.Config) *WebhookSender {
	return &WebhookSender{
		url: cfg.RelayWebhookURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.RelayTimeoutSeconds) * time.Second,
		},
	}
}

func (s *WebhookSender) Send(ctx context.Context, lead HotLead) error {
	body, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to encode hot lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Options tunes a single relay pass. Zero values fall back to the
// configured defaults: the click threshold from config and no campaign
// scoping.
type Options struct {
	MinClicks int
	Campaign  string
}

// Selector finds leads over the click threshold that have not been relayed
// yet, delivers them, and marks the successful ones so a rerun never sends
// the same lead twice.
type Selector struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	sender    Sender
	baseURL   string
	minClicks int
}

// NewSelector wires a selector against the store and a sender.
func NewSelector(dbManager cartridge.DBManager, logger *slog.Logger, sender Sender, cfg *config.Config) *Selector {
	return &Selector{
		dbManager: dbManager,
		logger:    logger,
		sender:    sender,
		baseURL:   cfg.PublicBaseURL,
		minClicks: cfg.HotLeadMinClicks,
	}
}

// hotLeadRecord is the scan target for the selection query. The click
// aggregate comes back as a string since expression columns carry no
// declared type for the driver to map onto time.Time.
type hotLeadRecord struct {
	ShortCode   string
	FirstName   string
	LastName    string
	Email       string
	Campaign    string
	ICP         string
	CompanyName string
	CompanyURL  string
	LinkedInURL string `gorm:"column:linkedin_url"`
	ClickCount  int64
	LastClick   sql.NullString
}

// Candidates returns the hot leads eligible for relay: click count at or
// above the threshold and not already sent.
func (s *Selector) Candidates(db *gorm.DB, opts Options) ([]HotLead, error) {
	minClicks := opts.MinClicks
	if minClicks <= 0 {
		minClicks = s.minClicks
	}

	campaignFilter := ""
	args := []interface{}{false}
	if opts.Campaign != "" {
		campaignFilter = " AND l.campaign = ?"
		args = append(args, opts.Campaign)
	}
	args = append(args, minClicks)

	query := `
		SELECT
			l.short_code AS short_code,
			l.first_name AS first_name,
			l.last_name AS last_name,
			l.email AS email,
			l.campaign AS campaign,
			l.icp AS icp,
			l.company_name AS company_name,
			l.company_url AS company_url,
			l.linkedin_url AS linkedin_url,
			COUNT(c.id) AS click_count,
			` + timeframe.SQLiteTimestampExpression("MAX(c.clicked_at)") + ` AS last_click
		FROM links l
		JOIN clicks c ON c.short_code = l.short_code
		WHERE l.relay_sent = ?` + campaignFilter + `
		GROUP BY l.id
		HAVING COUNT(c.id) >= ?
		ORDER BY click_count DESC`

	var records []hotLeadRecord
	if err := db.Raw(query, args...).Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("error selecting hot leads: %w", err)
	}

	leads := make([]HotLead, 0, len(records))
	for _, record := range records {
		lead := HotLead{
			ShortCode:   record.ShortCode,
			FirstName:   record.FirstName,
			LastName:    record.LastName,
			Email:       record.Email,
			Campaign:    record.Campaign,
			ICP:         record.ICP,
			CompanyName: record.CompanyName,
			CompanyURL:  record.CompanyURL,
			LinkedInURL: record.LinkedInURL,
			ClickCount:  record.ClickCount,
			TrackingURL: fmt.Sprintf("%s/c/%s", s.baseURL, record.ShortCode),
		}
		if record.LastClick.Valid {
			if parsed, err := timeframe.ParseSQLiteTimestamp(record.LastClick.String); err == nil {
				lead.LastClick = &parsed
			}
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// Run executes one relay pass. A failure on one lead is recorded and the
// rest of the batch still goes out; only leads that were actually delivered
// get marked sent, in a single transaction after all sends finish.
func (s *Selector) Run(ctx context.Context, opts Options) (Result, error) {
	db := s.dbManager.GetConnection()

	candidates, err := s.Candidates(db, opts)
	if err != nil {
		return Result{}, err
	}

	result := Result{Candidates: len(candidates), Errors: []LeadError{}}
	if len(candidates) == 0 {
		return result, nil
	}

	// Fan deliveries out over a small worker pool; one slow or failing
	// webhook call never holds up or fails the rest of the batch.
	tasks := make([]async.Task, len(candidates))
	for i, lead := range candidates {
		lead := lead
		tasks[i] = async.Task{
			Name: lead.ShortCode,
			Execute: func() (interface{}, error) {
				return lead, s.sender.Send(ctx, lead)
			},
		}
	}

	pool := async.NewPool(relayWorkers)
	sentCodes := make([]string, 0, len(candidates))
	for _, res := range pool.Execute(ctx, tasks) {
		lead, ok := res.Data.(HotLead)
		if !ok {
			continue
		}
		if res.Err != nil {
			s.logger.Warn("Hot lead relay failed",
				slog.String("email", lead.Email),
				slog.String("error", res.Err.Error()))
			result.Errors = append(result.Errors, LeadError{Email: lead.Email, Error: res.Err.Error()})
			continue
		}
		sentCodes = append(sentCodes, lead.ShortCode)
	}

	if len(sentCodes) > 0 {
		now := time.Now().UTC()
		err = sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
			return tx.Exec(
				"UPDATE links SET relay_sent = ?, relay_sent_at = ? WHERE short_code IN ?",
				true, now, sentCodes,
			).Error
		})
		if err != nil {
			return result, fmt.Errorf("failed to mark leads as sent: %w", err)
		}
		result.Sent = len(sentCodes)
	}

	s.logger.Info("Hot lead relay run completed",
		slog.Int("candidates", result.Candidates),
		slog.Int("sent", result.Sent),
		slog.Int("failed", len(result.Errors)))

	return result, nil
}
