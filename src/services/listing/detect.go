// Package listing detects supported listing URLs and compare requests in
// free-form user input. The scan backend only understands listing pages from
// the platforms below, so everything else is rejected before a network call.
package listing

import (
	"regexp"
	"strings"
)

// Supported platform patterns. Airbnb serves country TLD variants
// (airbnb.com, airbnb.co.uk, airbnb.fr, airbnb.com.au); Booking.com and
// Agoda keep everything under .com with locale path prefixes.
var supportedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://(?:www\.)?airbnb\.(?:com|[a-z]{2,3})(?:\.[a-z]{2})?/rooms/\d+`),
	regexp.MustCompile(`https?://(?:www\.)?booking\.com/hotel/[a-z]{2}/[\w.~-]+`),
	regexp.MustCompile(`https?://(?:www\.)?agoda\.com/(?:[a-z]{2}(?:-[a-z]{2})?/)?[\w-]+/hotel/[\w.-]+`),
}

// IsSupportedURL reports whether text contains a listing URL the backend can
// scan. It accepts both a bare URL and a longer message embedding one.
func IsSupportedURL(text string) bool {
	for _, p := range supportedPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// IsCompareRequest reports whether text asks for a comparison of specific
// listings: it must mention "compare" and carry at least one supported URL.
// A bare "compare" with no URLs is handled by the picker flow instead.
func IsCompareRequest(text string) bool {
	return strings.Contains(strings.ToLower(text), "compare") && IsSupportedURL(text)
}

// ExtractSupportedURLs returns the supported listing URLs found in text, in
// order of appearance, without duplicates.
func ExtractSupportedURLs(text string) []string {
	type match struct {
		pos int
		url string
	}
	var found []match
	for _, p := range supportedPatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			found = append(found, match{pos: loc[0], url: text[loc[0]:loc[1]]})
		}
	}
	// Order by position in the input, not by platform.
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && found[j-1].pos > found[j].pos; j-- {
			found[j-1], found[j] = found[j], found[j-1]
		}
	}
	seen := make(map[string]bool, len(found))
	urls := make([]string, 0, len(found))
	for _, m := range found {
		if !seen[m.url] {
			seen[m.url] = true
			urls = append(urls, m.url)
		}
	}
	return urls
}
