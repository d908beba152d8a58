// Package links validates, orders and saves the outbound links shown on a
// public profile.
package links

import (
	"regexp"
)

// Platform is one entry of the fixed link catalog. A nil Pattern means any
// absolute http(s) URL is accepted.
type Platform struct {
	Key         string         `json:"id"`
	Label       string         `json:"label"`
	Placeholder string         `json:"placeholder"`
	Pattern     *regexp.Regexp `json:"-"`
}

// PatternString is the pattern source, empty when the platform has none.
func (p Platform) PatternString() string {
	if p.Pattern == nil {
		return ""
	}
	return p.Pattern.String()
}

const WebsiteKey = "website"

var platforms = []Platform{
	{
		Key: "instagram", Label: "Instagram", Placeholder: "https://instagram.com/username",
		Pattern: regexp.MustCompile(`^https?://(www\.)?instagram\.com/[A-Za-z0-9_.]+/?$`),
	},
	{
		Key: "x", Label: "X", Placeholder: "https://x.com/username",
		Pattern: regexp.MustCompile(`^https?://(www\.)?(x|twitter)\.com/[A-Za-z0-9_]{1,15}/?$`),
	},
	{
		Key: "tiktok", Label: "TikTok", Placeholder: "https://tiktok.com/@username",
		Pattern: regexp.MustCompile(`^https?://(www\.)?tiktok\.com/@[A-Za-z0-9_.]+/?$`),
	},
	{
		Key: "youtube", Label: "YouTube", Placeholder: "https://youtube.com/@channel",
		Pattern: regexp.MustCompile(`^https?://((www|m)\.)?(youtube\.com/(@[\w.-]+|c/[\w.-]+|channel/[\w-]+|user/[\w.-]+)|youtu\.be/[\w-]+)/?$`),
	},
	{
		Key: "linkedin", Label: "LinkedIn", Placeholder: "https://linkedin.com/in/username",
		Pattern: regexp.MustCompile(`^https?://([a-z]{2,3}\.)?linkedin\.com/(in|company)/[\w-]+/?$`),
	},
	{
		Key: "github", Label: "GitHub", Placeholder: "https://github.com/username",
		Pattern: regexp.MustCompile(`^https?://(www\.)?github\.com/[A-Za-z0-9-]+/?$`),
	},
	{
		Key: "facebook", Label: "Facebook", Placeholder: "https://facebook.com/username",
		Pattern: regexp.MustCompile(`^https?://((www|m)\.)?facebook\.com/[A-Za-z0-9.]+/?$`),
	},
	{
		Key: "twitch", Label: "Twitch", Placeholder: "https://twitch.tv/username",
		Pattern: regexp.MustCompile(`^https?://(www\.)?twitch\.tv/[A-Za-z0-9_]+/?$`),
	},
	{
		Key: "spotify", Label: "Spotify", Placeholder: "https://open.spotify.com/artist/...",
		Pattern: regexp.MustCompile(`^https?://open\.spotify\.com/(artist|user|playlist|album|show)/[A-Za-z0-9]+/?(\?.*)?$`),
	},
	{
		Key: "email", Label: "Email", Placeholder: "mailto:you@example.com",
		Pattern: regexp.MustCompile(`^mailto:[^@\s]+@[^@\s]+\.[^@\s]+$`),
	},
	{
		Key: WebsiteKey, Label: "Website", Placeholder: "https://example.com",
	},
}

var byKey = func() map[string]Platform {
	m := make(map[string]Platform, len(platforms))
	for _, p := range platforms {
		m[p.Key] = p
	}
	return m
}()

// Platforms returns the catalog in display order.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

// LookupPlatform finds a platform by key.
func LookupPlatform(key string) (Platform, bool) {
	p, ok := byKey[key]
	return p, ok
}
