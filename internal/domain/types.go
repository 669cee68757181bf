// Package domain provides domain models used across the application.
package domain

// Verdict is the tri-state reachability classification of a link target.
type Verdict string

const (
	// VerdictActive means at least one probe positively confirmed the target is live.
	VerdictActive Verdict = "Active"
	// VerdictBroken means the target is gone or unreachable.
	VerdictBroken Verdict = "Broken"
	// VerdictBlocked means the target refused the probe (auth, rate limit, anti-bot).
	VerdictBlocked Verdict = "Blocked"
)

// ProbeResult is the outcome of checking one URL's reachability.
// Code is nil when the probe failed at the transport layer.
type ProbeResult struct {
	Code       *int
	ErrorLabel string
	Verdict    Verdict
}

// LinkType distinguishes links pointing inside the crawled site from links
// pointing elsewhere.
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
)

// PageStatus is the aggregate health status of a crawled page.
type PageStatus string

const (
	// PageActive means the page loaded and none of its links are broken.
	PageActive PageStatus = "Active"
	// PageBroken means the page itself failed to load.
	PageBroken PageStatus = "Broken"
	// PageNeedReview means the page loaded but contains at least one broken link.
	PageNeedReview PageStatus = "Need Review"
)

// DOM area tags classify where in a page's structure a link was found.
const (
	AreaMain      = "Main"
	AreaHeader    = "Header"
	AreaFooter    = "Footer"
	AreaNav       = "Nav"
	AreaAccordion = "Accordion"
	AreaUnknown   = "Unknown"
)

// IntPtr returns a pointer to the given status code. Probe results carry
// nullable codes, so call sites build them through this helper.
func IntPtr(code int) *int {
	return &code
}
