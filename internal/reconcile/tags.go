package reconcile

import (
	"net/url"
	"strings"
)

// pageGroupOptions and pageContentTypeOptions enumerate every tag value
// guessPageTags can return.
var (
	pageGroupOptions       = []string{"Home", "Community", "Companies", "Opportunities", "Other"}
	pageContentTypeOptions = []string{"Website Page", "Article", "Company", "Directory", "Listing"}
)

// guessPageTags derives the page-group and content-type tags for the pages
// collection from the URL path. The mapping is a site-shape heuristic; pages
// that match nothing land in the catch-all group.
func guessPageTags(siteBaseURL, pageURL string) (group, contentType string) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "Other", "Website Page"
	}

	path := strings.ToLower(parsed.Path)

	switch {
	case path == "/" || path == "" ||
		strings.TrimRight(pageURL, "/") == strings.TrimRight(siteBaseURL, "/"):
		return "Home", "Website Page"
	case strings.Contains(path, "/community"):
		return "Community", "Article"
	case strings.Contains(path, "/companies/"):
		return "Companies", "Company"
	case strings.Contains(path, "/companies"):
		return "Companies", "Directory"
	case strings.Contains(path, "/opportunities"):
		return "Opportunities", "Listing"
	default:
		return "Other", "Website Page"
	}
}
