package referrers

import "testing"

func TestFriendlyName(t *testing.T) {
	tests := []struct {
		hostname string
		expected string
	}{
		// Outreach surfaces
		{"linkedin.com", "LinkedIn"},
		{"lnkd.in", "LinkedIn"},
		{"mail.google.com", "Gmail"},
		{"outlook.office.com", "Outlook"},
		{"app.slack.com", "Slack"},
		{"app.heyreach.io", "HeyReach"},

		// General web
		{"google.com", "Google"},
		{"x.com", "X/Twitter"},
		{"news.ycombinator.com", "Hacker News"},

		// www prefix stripped before lookup
		{"www.linkedin.com", "LinkedIn"},
		{"www.reddit.com", "Reddit"},

		// Subdomains resolve to the parent entry
		{"m.facebook.com", "Facebook"},
		{"mobile.twitter.com", "X/Twitter"},

		// Unknown hosts keep their hostname, capitalized
		{"example.com", "Example.com"},
		{"www.example.com", "Example.com"},
		{"myblog.io", "Myblog.io"},

		// Case insensitive
		{"LINKEDIN.COM", "LinkedIn"},
		{"Mail.Google.Com", "Gmail"},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			got := FriendlyName(tt.hostname)
			if got != tt.expected {
				t.Errorf("FriendlyName(%q) = %q, want %q", tt.hostname, got, tt.expected)
			}
		})
	}
}
