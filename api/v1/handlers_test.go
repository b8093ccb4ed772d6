package v1_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadtrace/internal/clicks"
	"leadtrace/internal/links"
	"leadtrace/internal/testsupport"
)

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCreateLinkHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	req := jsonRequest(t, http.MethodPost, "/api/v1/links", map[string]string{
		"destination_url": "https://example.com/offer",
		"first_name":      "Nina",
		"last_name":       "Okafor",
		"email":           "nina@example.com",
		"campaign":        "launch",
	})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Len(t, body["short_code"], 8)
	assert.Equal(t, "http://localhost:3000/c/"+body["short_code"], body["short_url"])

	var link links.Link
	require.NoError(t, db.Where("short_code = ?", body["short_code"]).First(&link).Error)
	assert.Equal(t, "nina@example.com", link.Email)
	assert.Equal(t, "launch", link.Campaign)
}

func TestCreateLinkHandlerRejectsMissingDestination(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	req := jsonRequest(t, http.MethodPost, "/api/v1/links", map[string]string{
		"email": "nina@example.com",
	})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutatingEndpointsAcceptNonBrowserClients(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	testsupport.CreateTestLink(t, db, "cli00001", "cli@example.com", "")

	// Server-to-server callers and curl send no fetch-metadata headers;
	// none of the mutating endpoints may reject them for that.
	requests := []*http.Request{
		jsonRequest(t, http.MethodPost, "/api/v1/links", map[string]string{
			"destination_url": "https://example.com/offer",
			"email":           "new@example.com",
		}),
		jsonRequest(t, http.MethodPatch, "/api/v1/leads", map[string]string{
			"email": "cli@example.com",
			"icp":   "founder",
		}),
		httptest.NewRequest(http.MethodDelete, "/api/v1/links/cli00001", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/relay/reset", nil),
	}

	for _, req := range requests {
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.NotEqualf(t, http.StatusForbidden, resp.StatusCode,
			"%s %s rejected as a cross-site request", req.Method, req.URL.Path)
	}
}

func TestRedirectHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	testsupport.CreateTestLink(t, db, "rdr00001", "visit@example.com", "")

	req := httptest.NewRequest(http.MethodGet, "/c/rdr00001", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.23")
	req.Header.Set("Referer", "https://www.linkedin.com/feed/")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/offer", resp.Header.Get("Location"))

	var recorded []clicks.Click
	require.NoError(t, db.Where("short_code = ?", "rdr00001").Find(&recorded).Error)
	require.Len(t, recorded, 1)
	assert.Equal(t, "198.51.100.23", recorded[0].IPAddress)
	assert.Equal(t, "https://www.linkedin.com/feed/", recorded[0].Referer)
}

func TestRedirectHandlerUnknownCode(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/c/missing99", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM clicks").Scan(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteLinkHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	testsupport.CreateTestLink(t, db, "del00001", "gone@example.com", "")
	testsupport.CreateTestClick(t, db, "del00001", "203.0.113.80", time.Now().UTC())

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/links/del00001", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var remaining int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM clicks WHERE short_code = ?", "del00001").Scan(&remaining).Error)
	assert.Zero(t, remaining)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/links/del00001", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateLeadHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	testsupport.CreateTestLink(t, db, "upd00001", "upd@example.com", "")

	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/leads", map[string]string{
		"email":        "upd@example.com",
		"company_name": "Acme Robotics",
		"icp":          "founder",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var link links.Link
	require.NoError(t, db.Where("short_code = ?", "upd00001").First(&link).Error)
	assert.Equal(t, "Acme Robotics", link.CompanyName)
	assert.Equal(t, "founder", link.ICP)

	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/leads", map[string]string{
		"email": "nobody@example.com",
		"icp":   "founder",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetLeadsHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	testsupport.CreateTestLink(t, db, "lst00001", "list1@example.com", "")
	testsupport.CreateTestLink(t, db, "lst00002", "list2@example.com", "")
	testsupport.CreateTestClick(t, db, "lst00001", "203.0.113.81", time.Now().UTC().Add(-time.Hour))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/leads?status=clicked", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Leads []struct {
			Email      string `json:"email"`
			ClickCount int64  `json:"click_count"`
		} `json:"leads"`
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	}
	decodeBody(t, resp, &page)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Leads, 1)
	assert.Equal(t, "list1@example.com", page.Leads[0].Email)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.PageSize)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/leads?status=bogus", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAnalyticsHandlerInvalidRange(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics?range=90d", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTimelineHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	testsupport.CreateTestLink(t, db, "tlh00001", "tl@example.com", "")
	testsupport.CreateTestClick(t, db, "tlh00001", "203.0.113.82", time.Now().UTC().Add(-2*time.Hour))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analytics/timeline?range=24h", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Timeline []struct {
			Bucket         string `json:"bucket"`
			UniqueVisitors int    `json:"unique_visitors"`
			TotalClicks    int    `json:"total_clicks"`
		} `json:"timeline"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Timeline, 25)

	total := 0
	for _, p := range body.Timeline {
		total += p.TotalClicks
	}
	assert.Equal(t, 1, total)
}

func TestTriggerHotLeadRelayHandlerWithoutWebhook(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/relay/hot-leads", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestResetRelayHandler(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	for i := 0; i < 2; i++ {
		code := fmt.Sprintf("rst%05d", i)
		testsupport.CreateTestLink(t, db, code, fmt.Sprintf("rst%d@example.com", i), "")
	}
	require.NoError(t, db.Exec("UPDATE links SET relay_sent = ?", true).Error)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/relay/reset", map[string]string{
		"email": "rst0@example.com",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int64
	decodeBody(t, resp, &body)
	assert.EqualValues(t, 1, body["reset"])

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/v1/relay/reset", map[string]string{}), -1)
	require.NoError(t, err)
	decodeBody(t, resp, &body)
	assert.EqualValues(t, 1, body["reset"])
}
