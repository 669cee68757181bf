package render

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/linkhound/internal/domain"
)

// snippetMaxLength caps the surrounding-text snippet stored per anchor.
const snippetMaxLength = 180

var whitespaceRun = regexp.MustCompile(`\s+`)

// HTTPRenderer implements Renderer over plain HTTP + static HTML parsing.
// Pages that require JavaScript to produce their anchors need a different
// Renderer implementation behind the same interface.
type HTTPRenderer struct {
	client    *http.Client
	userAgent string
	siteBrand string
}

// HTTPRendererConfig configures an HTTPRenderer.
type HTTPRendererConfig struct {
	UserAgent string
	Timeout   time.Duration
	// SiteBrand, when set, is stripped from repeated title decorations like
	// "Brand - Page Title - Brand".
	SiteBrand string
}

// NewHTTPRenderer creates an HTTPRenderer.
func NewHTTPRenderer(cfg HTTPRendererConfig) *HTTPRenderer {
	return &HTTPRenderer{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		siteBrand: cfg.SiteBrand,
	}
}

// Navigate fetches the URL and extracts the document title and all anchors.
func (r *HTTPRenderer) Navigate(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("render new request: %w", err)
	}

	req.Header.Set("User-Agent", r.userAgent)

	resp, doErr := r.client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("render fetch: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("render fetch: http status %d", resp.StatusCode)
	}

	doc, parseErr := goquery.NewDocumentFromReader(resp.Body)
	if parseErr != nil {
		return nil, fmt.Errorf("render parse: %w", parseErr)
	}

	title := r.cleanTitle(doc.Find("title").First().Text())
	if title == "" {
		title = url
	}

	return &Page{
		Title:   title,
		Anchors: extractAnchors(doc),
	}, nil
}

// extractAnchors collects every a[href] with its visible text, surrounding
// snippet, DOM region tag, and a basic CSS locator.
func extractAnchors(doc *goquery.Document) []Anchor {
	var anchors []Anchor

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")

		anchors = append(anchors, Anchor{
			Href:    href,
			Text:    collapseWhitespace(sel.Text()),
			Snippet: snippetFor(sel),
			Area:    domAreaFor(sel),
			Locator: locatorFor(href),
		})
	})

	return anchors
}

// snippetFor derives the context snippet from the anchor's parent element.
func snippetFor(sel *goquery.Selection) string {
	text := collapseWhitespace(sel.Text())

	if parent := sel.Parent(); parent.Length() > 0 {
		if parentText := collapseWhitespace(parent.Text()); parentText != "" {
			text = parentText
		}
	}

	if runes := []rune(text); len(runes) > snippetMaxLength {
		text = string(runes[:snippetMaxLength-3]) + "..."
	}

	return text
}

// domAreaFor tags the anchor by its closest semantic container. Footer wins
// over nav, nav over header, matching how boilerplate regions nest in
// practice.
func domAreaFor(sel *goquery.Selection) string {
	switch {
	case sel.Closest("footer").Length() > 0:
		return domain.AreaFooter
	case sel.Closest("nav").Length() > 0:
		return domain.AreaNav
	case sel.Closest("header").Length() > 0:
		return domain.AreaHeader
	default:
		return domain.AreaMain
	}
}

// locatorFor builds an attribute-selector locator for the anchor.
func locatorFor(href string) string {
	if href == "" {
		return ""
	}

	return fmt.Sprintf("a[href=%q]", href)
}

// cleanTitle strips repeated site branding decorations from a page title.
func (r *HTTPRenderer) cleanTitle(title string) string {
	title = collapseWhitespace(title)
	if r.siteBrand == "" || title == "" {
		return title
	}

	brand := regexp.QuoteMeta(r.siteBrand)
	leading := regexp.MustCompile(`^(` + brand + `\s*[-–]\s*)+`)
	trailing := regexp.MustCompile(`(\s*[-–]\s*` + brand + `)+$`)

	cleaned := strings.TrimSpace(trailing.ReplaceAllString(leading.ReplaceAllString(title, ""), ""))
	if cleaned == "" {
		return title
	}

	return cleaned
}

// collapseWhitespace trims and collapses runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
