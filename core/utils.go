package core

import (
	"regexp"
	"strings"
)

var (
	spaceRegex       = regexp.MustCompile(`\s+`)
	nonSlugCharRegex = regexp.MustCompile(`[^a-z0-9-]`)
	dashRunRegex     = regexp.MustCompile(`-+`)
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify turns `s` into a URL-safe handle: lower-cased, whitespace collapsed
// to single hyphens, anything outside [a-z0-9-] replaced by hyphens, hyphen
// runs collapsed and leading/trailing hyphens trimmed.
// `fallback` is returned when nothing survives.
func Slugify(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = spaceRegex.ReplaceAllString(s, "-")
	s = nonSlugCharRegex.ReplaceAllString(s, "-")
	s = dashRunRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return fallback
	}
	return s
}

// EmailLocalPart returns the part of an email address before the '@'.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
