package referrers

import "strings"

// Hostnames seen in click referers mapped to display names. The list is
// biased toward outreach surfaces: clicks on tracked links arrive from
// LinkedIn, webmail clients, and team chat far more often than from the
// open web.
var clickSources = map[string]string{
	// Professional networks, the primary outreach channel
	"linkedin.com":   "LinkedIn",
	"lnkd.in":        "LinkedIn",
	"l.linkedin.com": "LinkedIn",

	// Webmail clients
	"mail.google.com":       "Gmail",
	"outlook.live.com":      "Outlook",
	"outlook.office.com":    "Outlook",
	"outlook.office365.com": "Outlook",
	"mail.yahoo.com":        "Yahoo Mail",
	"mail.proton.me":        "Proton Mail",
	"protonmail.com":        "Proton Mail",
	"superhuman.com":        "Superhuman",
	"app.front.com":         "Front",

	// Team chat, links get reshared internally before being clicked
	"slack.com":           "Slack",
	"app.slack.com":       "Slack",
	"teams.microsoft.com": "Microsoft Teams",
	"discord.com":         "Discord",
	"discordapp.com":      "Discord",

	// Messaging
	"t.me":         "Telegram",
	"telegram.org": "Telegram",
	"whatsapp.com": "WhatsApp",
	"wa.me":        "WhatsApp",

	// Social
	"x.com":                "X/Twitter",
	"twitter.com":          "X/Twitter",
	"t.co":                 "X/Twitter",
	"facebook.com":         "Facebook",
	"l.facebook.com":       "Facebook",
	"instagram.com":        "Instagram",
	"reddit.com":           "Reddit",
	"old.reddit.com":       "Reddit",
	"news.ycombinator.com": "Hacker News",

	// Search
	"google.com":     "Google",
	"bing.com":       "Bing",
	"duckduckgo.com": "DuckDuckGo",
	"yandex.ru":      "Yandex",

	// CRMs and sequencers that wrap links before redirecting
	"app.hubspot.com":  "HubSpot",
	"app.apollo.io":    "Apollo",
	"app.lemlist.com":  "Lemlist",
	"app.heyreach.io":  "HeyReach",
	"app.instantly.ai": "Instantly",
}

// FriendlyName maps a referer hostname to a display name for the click
// feed. Unknown hosts come back with the www. prefix stripped and the
// first letter capitalized instead of being lumped into an "other" bucket.
func FriendlyName(hostname string) string {
	hostname = strings.TrimPrefix(strings.ToLower(hostname), "www.")

	if name, ok := clickSources[hostname]; ok {
		return name
	}

	// Walk up the label chain so m.facebook.com resolves like facebook.com.
	labels := strings.Split(hostname, ".")
	for i := 1; i < len(labels)-1; i++ {
		if name, ok := clickSources[strings.Join(labels[i:], ".")]; ok {
			return name
		}
	}

	if hostname == "" {
		return hostname
	}
	return strings.ToUpper(hostname[:1]) + hostname[1:]
}
