// Package urlutil provides URL normalization and filtering for the crawl
// frontier and the link table. Every cache key and identity key in the
// application is derived through Normalize so that the same URL expressed
// differently always maps to the same record.
package urlutil

import (
	"net/url"
	"strings"
)

// minURLLength guards trailing-slash stripping against truncating a bare
// scheme+host like "https://".
const minURLLength = 8

// skipExtensions lists static-resource extensions excluded from both the
// frontier and the link table.
var skipExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico",
	".css", ".js", ".mjs", ".map",
	".woff", ".woff2", ".ttf", ".eot",
	".mp4", ".mov", ".webm", ".mp3", ".wav",
	".pdf", ".zip", ".rar", ".7z",
}

// ignoredPathFragments lists build-tool internal asset directories that never
// hold content pages.
var ignoredPathFragments = []string{
	"/_next/",
}

// nonNavigableSchemes are href prefixes that cannot be crawled or probed.
var nonNavigableSchemes = []string{
	"mailto:", "tel:", "javascript:",
}

// Normalize resolves href against base and canonicalizes the result: the
// fragment is dropped and a single trailing slash is stripped. The second
// return value is false for hrefs that are empty, fragment-only, or use a
// non-navigable scheme. Normalize is pure and never returns an error; any
// unusable input simply yields false.
func Normalize(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	for _, scheme := range nonNavigableSchemes {
		if strings.HasPrefix(href, scheme) {
			return "", false
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := baseURL.ResolveReference(ref)
	resolved.Fragment = ""

	return StripTrailingSlash(resolved.String()), true
}

// StripTrailingSlash removes a single trailing slash unless the result would
// be shorter than the minimum scheme+host length.
func StripTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") && len(u) > minURLLength {
		return strings.TrimSuffix(u, "/")
	}

	return u
}

// IsAsset reports whether the URL points at a static resource or a build-tool
// internal path and should be excluded from the frontier and the link table.
func IsAsset(rawURL string) bool {
	for _, fragment := range ignoredPathFragments {
		if strings.Contains(rawURL, fragment) {
			return true
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

// Domain returns the lowercased host of the URL, or "" when it cannot be
// parsed.
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.ToLower(parsed.Host)
}

// SameDomain reports whether the URL's host equals the given domain,
// case-insensitively.
func SameDomain(rawURL, domain string) bool {
	host := Domain(rawURL)

	return host != "" && host == strings.ToLower(domain)
}

// MatchesDomain reports whether the URL's host is the given domain or one of
// its subdomains. Used for skip lists and allow lists that name bare domains
// like "linkedin.com".
func MatchesDomain(rawURL, domain string) bool {
	host := Domain(rawURL)
	domain = strings.ToLower(domain)

	return host == domain || strings.HasSuffix(host, "."+domain)
}

// DropQuery removes the query string. Internal page URLs are deduplicated
// without their query parameters to keep the visited set compact.
func DropQuery(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.RawQuery = ""

	return parsed.String()
}
