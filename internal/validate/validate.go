// Package validate checks and sanitizes the untrusted fields of a vote
// request before any rate-limit or storage work happens. All functions
// are pure.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field length limits matching database schema constraints.
const (
	MinChannelIDLen   = 2
	MaxChannelIDLen   = 100 // channels.row_key VARCHAR(100)
	MaxChannelNameLen = 200 // channels.channel_name VARCHAR(200)
)

var (
	// handleRe matches YouTube handles: @ followed by 3-30 chars.
	handleRe = regexp.MustCompile(`^@[A-Za-z0-9_-]{3,30}$`)
	// canonicalRe matches canonical channel IDs: UC plus exactly 22 chars.
	canonicalRe = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	// legacyRe matches legacy /c/ and /user/ channel paths.
	legacyRe = regexp.MustCompile(`^/(?:c|user)/[A-Za-z0-9_-]{1,30}$`)
)

// injectionRe lists case-insensitive patterns that indicate script or
// SQL injection attempts in a channel name. This is a defense-in-depth
// heuristic; downstream storage and rendering still treat the value as
// untrusted.
var injectionRe = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)<\s*iframe`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`(?i)\bdrop\s+table\b`),
	regexp.MustCompile(`(?i)\bunion\b.*\bselect\b`),
}

// ChannelID checks that a channel identifier is one of the three
// accepted shapes: handle (@name), canonical ID (UC...), or legacy
// path (/c/name, /user/name). Returns the trimmed ID and an empty
// message on success, or an empty ID and a reason on failure.
func ChannelID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "channelId is required"
	}
	if len(id) < MinChannelIDLen || len(id) > MaxChannelIDLen {
		return "", "channelId must be 2-100 characters"
	}
	if !handleRe.MatchString(id) && !canonicalRe.MatchString(id) && !legacyRe.MatchString(id) {
		return "", "channelId must be a handle (@name), channel ID (UC...), or legacy path (/c/name, /user/name)"
	}
	return id, ""
}

// ChannelName checks that a channel display name is well-formed and
// free of injection-indicative patterns.
func ChannelName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "channelName must not be empty"
	}
	// Length is measured in characters, not bytes: non-ASCII names
	// must get the same 200-character budget, matching the rune-based
	// truncation in Sanitize.
	if utf8.RuneCountInString(name) > MaxChannelNameLen {
		return "", "channelName must be at most 200 characters"
	}
	for _, r := range name {
		if isDisallowedControl(r) {
			return "", "channelName contains control characters"
		}
	}
	for _, re := range injectionRe {
		if re.MatchString(name) {
			return "", "channelName contains disallowed content"
		}
	}
	return name, ""
}

// Sanitize truncates name to maxLen runes, strips control characters
// (preserving tab, newline and carriage return), trims surrounding
// whitespace, and substitutes the "Unknown" placeholder if nothing
// remains. It never fails and is idempotent, so it is safe as a second
// line of defense after ChannelName has already passed.
func Sanitize(name string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isDisallowedControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	runes := []rune(strings.TrimSpace(b.String()))
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	out := strings.TrimSpace(string(runes))
	if out == "" {
		return "Unknown"
	}
	return out
}

func isDisallowedControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r < 0x20 || r == 0x7f
}
