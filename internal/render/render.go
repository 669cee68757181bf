// Package render defines the page extraction adapter: the capability of
// loading a URL and exposing the navigated document's title and anchor list.
// The crawl engine depends only on the Renderer interface; the default
// implementation fetches and parses static HTML.
package render

import (
	"context"
)

// Anchor is one hyperlink extracted from a rendered page, together with the
// context needed for the link table.
type Anchor struct {
	// Href is the raw href attribute, not yet normalized.
	Href string
	// Text is the anchor's visible text.
	Text string
	// Snippet is the surrounding text, whitespace-collapsed and capped.
	Snippet string
	// Area is the DOM region tag (Main/Header/Footer/Nav/Accordion/Unknown).
	Area string
	// Locator is a CSS selector addressing the anchor.
	Locator string
	// UIGroup and UIItem name the disclosure widget (tab, accordion entry)
	// that revealed the anchor, when one did.
	UIGroup string
	UIItem  string
	// DeepLink is the client-side URL reached by opening the disclosure
	// widget, when navigation occurred.
	DeepLink string
}

// Page is the outcome of navigating to a URL.
type Page struct {
	Title   string
	Anchors []Anchor
}

// Renderer loads a page and extracts its anchors. A navigation failure is
// returned as an error; the caller marks the page not alive and continues.
type Renderer interface {
	Navigate(ctx context.Context, url string) (*Page, error)
}

// DisclosureExpander is an optional renderer capability: trigger disclosure
// widgets (accordions, tabs) and run a second anchor-extraction pass over the
// revealed content. Renderers that cannot interact with the page simply do
// not implement it.
type DisclosureExpander interface {
	ExpandDisclosures(ctx context.Context, url string) ([]Anchor, error)
}
