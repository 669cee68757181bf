// Package crawler runs the breadth-first site traversal: render each page,
// classify every link it carries, reconcile pages and occurrences into the
// record store, and collect newly-broken links for the alert digest.
package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/linkhound/internal/alert"
	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/logger"
	"github.com/jonesrussell/linkhound/internal/metrics"
	"github.com/jonesrussell/linkhound/internal/reconcile"
	"github.com/jonesrussell/linkhound/internal/render"
	"github.com/jonesrussell/linkhound/internal/urlutil"
)

// Checker classifies link reachability with per-run memoization.
type Checker interface {
	Check(ctx context.Context, rawURL string) domain.ProbeResult
	HasCached(rawURL string) bool
	ProbeCount() int
}

// Upserter reconciles crawl results into the record store.
type Upserter interface {
	UpsertPage(ctx context.Context, page reconcile.PageUpsert) (string, error)
	UpsertOccurrence(ctx context.Context, occ reconcile.Occurrence) (reconcile.Outcome, error)
}

// Config configures the crawl engine.
type Config struct {
	// SiteBaseURL is the traversal root; the crawl never leaves its domain.
	SiteBaseURL string
	// LimitMode is "pages" or "checks".
	LimitMode string
	// MaxPages caps visited pages when LimitMode is "pages".
	MaxPages int
	// MaxLinkChecks caps distinct probes when LimitMode is "checks". The cap
	// is evaluated per page, so the last page may finish its links.
	MaxLinkChecks int
	// CheckInternal and CheckExternal select which link types get occurrence
	// rows and probes.
	CheckInternal bool
	CheckExternal bool
	// CrawlDelay is the politeness pause after each page visit.
	CrawlDelay time.Duration
	// ExcludeDOMAreas drops links found in these page regions.
	ExcludeDOMAreas []string
	// RenderMode is recorded on every occurrence row.
	RenderMode string
}

// Engine is the single-goroutine BFS crawler. Sequential traversal keeps the
// load on the crawled site and the record store predictable.
type Engine struct {
	renderer render.Renderer
	checker  Checker
	store    Upserter
	notifier alert.Notifier
	runStats *metrics.RunMetrics
	log      logger.Interface
	cfg      Config

	excludedAreas map[string]struct{}
}

// New creates a crawl Engine.
func New(
	renderer render.Renderer,
	checker Checker,
	store Upserter,
	notifier alert.Notifier,
	runStats *metrics.RunMetrics,
	cfg Config,
	log logger.Interface,
) *Engine {
	excluded := make(map[string]struct{}, len(cfg.ExcludeDOMAreas))
	for _, area := range cfg.ExcludeDOMAreas {
		excluded[strings.ToLower(area)] = struct{}{}
	}

	if cfg.RenderMode == "" {
		cfg.RenderMode = "Static"
	}

	return &Engine{
		renderer:      renderer,
		checker:       checker,
		store:         store,
		notifier:      notifier,
		runStats:      runStats,
		log:           log.WithComponent("crawler"),
		cfg:           cfg,
		excludedAreas: excluded,
	}
}

// Run executes the BFS until the frontier drains or the configured limit is
// reached, then delivers the newly-broken digest.
func (e *Engine) Run(ctx context.Context) error {
	base := urlutil.StripTrailingSlash(e.cfg.SiteBaseURL)
	siteDomain := urlutil.Domain(base)

	queue := []string{base}
	parent := map[string]string{base: ""}
	seen := make(map[string]struct{})
	pagesCrawled := 0

	var newlyBroken []alert.NewlyBroken

	e.log.Info("starting crawl",
		"base", base,
		"limit_mode", e.cfg.LimitMode,
	)

	for len(queue) > 0 && e.withinLimit(pagesCrawled) {
		if ctx.Err() != nil {
			return fmt.Errorf("crawl interrupted: %w", ctx.Err())
		}

		pageURL := queue[0]
		queue = queue[1:]

		pageURL = urlutil.DropQuery(urlutil.StripTrailingSlash(pageURL))

		// Skipped URLs never count against the run limit.
		if _, visited := seen[pageURL]; visited {
			continue
		}
		if !urlutil.SameDomain(pageURL, siteDomain) || urlutil.IsAsset(pageURL) {
			continue
		}

		seen[pageURL] = struct{}{}
		pagesCrawled++

		broken, enqueued, alerts, err := e.visit(ctx, pageURL, buildTrail(parent, pageURL))
		if err != nil {
			return err
		}

		for _, u := range enqueued {
			if _, ok := parent[u]; !ok {
				parent[u] = pageURL
			}
			if _, visited := seen[u]; !visited {
				queue = append(queue, u)
			}
		}

		newlyBroken = append(newlyBroken, alerts...)

		e.log.Info("page crawled",
			"page", pageURL,
			"pages_crawled", pagesCrawled,
			"broken_in_page", broken,
			"queue", len(queue),
			"probes", e.checker.ProbeCount(),
		)
	}

	if err := e.notifier.Notify(ctx, newlyBroken); err != nil {
		e.log.Warn("alert delivery failed", "error", err)
	} else if len(newlyBroken) > 0 {
		e.runStats.AlertEmitted()
	}

	e.log.Info("crawl finished",
		"pages_crawled", pagesCrawled,
		"newly_broken", len(newlyBroken),
	)

	return nil
}

// withinLimit reports whether another page may be visited under the active
// limit mode.
func (e *Engine) withinLimit(pagesCrawled int) bool {
	if e.cfg.LimitMode == "checks" {
		return e.checker.ProbeCount() < e.cfg.MaxLinkChecks
	}

	return pagesCrawled < e.cfg.MaxPages
}

// visit renders one page, upserts its row, processes every anchor, and
// finalizes the row with the page's broken-link count. It returns the broken
// count, the internal URLs to enqueue, and any newly-broken alert items.
func (e *Engine) visit(ctx context.Context, pageURL, breadcrumb string) (int, []string, []alert.NewlyBroken, error) {
	page, navErr := e.renderer.Navigate(ctx, pageURL)

	alive := navErr == nil
	title := pageURL
	var anchors []render.Anchor

	if alive {
		e.runStats.PageVisited()
		title = page.Title
		anchors = page.Anchors

		if expander, ok := e.renderer.(render.DisclosureExpander); ok {
			revealed, expandErr := expander.ExpandDisclosures(ctx, pageURL)
			if expandErr != nil {
				e.log.Debug("disclosure expansion failed", "page", pageURL, "error", expandErr)
			} else {
				anchors = append(anchors, revealed...)
			}
		}
	} else {
		e.runStats.PageFailed()
		e.log.Warn("page failed to load", "page", pageURL, "error", navErr)
	}

	sleepCtx(ctx, e.cfg.CrawlDelay)

	// First write so occurrences have a row to point their relation at; the
	// status is finalized below once the broken count is known.
	pageID, err := e.store.UpsertPage(ctx, reconcile.PageUpsert{URL: pageURL, Title: title, Alive: alive})
	if err != nil {
		return 0, nil, nil, err
	}

	brokenInPage := 0
	var enqueued []string
	var alerts []alert.NewlyBroken

	for _, anchor := range anchors {
		linkURL, ok := urlutil.Normalize(pageURL, anchor.Href)
		if !ok || urlutil.IsAsset(linkURL) {
			continue
		}

		internal := urlutil.SameDomain(linkURL, urlutil.Domain(e.cfg.SiteBaseURL))
		if internal {
			// The enqueue key must match the dequeue normalization exactly,
			// or the parent edge is recorded under a key that is never
			// visited and the breadcrumb loses its prefix.
			enqueued = append(enqueued, urlutil.StripTrailingSlash(urlutil.DropQuery(linkURL)))
		}

		if e.areaExcluded(anchor.Area) {
			continue
		}

		e.runStats.LinkSeen()

		linkType := domain.LinkExternal
		if internal {
			linkType = domain.LinkInternal
		}

		if internal && !e.cfg.CheckInternal {
			continue
		}
		if !internal && !e.cfg.CheckExternal {
			continue
		}

		cached := e.checker.HasCached(linkURL)
		result := e.checker.Check(ctx, linkURL)

		if cached {
			e.runStats.CacheHit()
		} else {
			e.runStats.LinkChecked()
		}

		switch result.Verdict {
		case domain.VerdictBroken:
			brokenInPage++
			if !cached {
				e.runStats.LinkBroken()
			}
		case domain.VerdictBlocked:
			if !cached {
				e.runStats.LinkBlocked()
			}
		case domain.VerdictActive:
		}

		outcome, upsertErr := e.store.UpsertOccurrence(ctx, reconcile.Occurrence{
			SourcePageID: pageID,
			SourceURL:    pageURL,
			LinkURL:      linkURL,
			LinkType:     linkType,
			Result:       result,
			AnchorText:   anchor.Text,
			Snippet:      anchor.Snippet,
			Breadcrumb:   breadcrumb,
			DOMArea:      anchor.Area,
			UIGroup:      anchor.UIGroup,
			UIItem:       anchor.UIItem,
			ClickPath:    clickPath(title, breadcrumb, anchor),
			DeepLink:     anchor.DeepLink,
			Locator:      anchor.Locator,
			RenderMode:   e.cfg.RenderMode,
		})
		if upsertErr != nil {
			return 0, nil, nil, upsertErr
		}

		if outcome.Written {
			e.runStats.RecordWritten()
		} else {
			e.runStats.RecordSkipped()
		}

		if outcome.NewlyBroken {
			e.runStats.NewlyBroken()
			alerts = append(alerts, alert.NewlyBroken{
				PageTitle: title,
				PageURL:   pageURL,
				LinkURL:   linkURL,
			})
		}
	}

	// Final write with the real status.
	if _, err := e.store.UpsertPage(ctx, reconcile.PageUpsert{
		URL:         pageURL,
		Title:       title,
		Alive:       alive,
		BrokenCount: brokenInPage,
	}); err != nil {
		return 0, nil, nil, err
	}

	return brokenInPage, enqueued, alerts, nil
}

func (e *Engine) areaExcluded(area string) bool {
	_, excluded := e.excludedAreas[strings.ToLower(area)]

	return excluded
}

// clickPath describes how a user reaches the link: through the disclosure
// widget that revealed it, or along the discovery breadcrumb.
func clickPath(title, breadcrumb string, anchor render.Anchor) string {
	if anchor.UIGroup != "" || anchor.UIItem != "" {
		parts := make([]string, 0, 3)
		for _, p := range []string{title, anchor.UIGroup, anchor.UIItem} {
			if p != "" {
				parts = append(parts, p)
			}
		}

		return strings.Join(parts, " → ")
	}

	return breadcrumb
}

// buildTrail walks the first-discoverer parent chain from the root to the
// page. A cycle guard stops the walk if parents ever loop.
func buildTrail(parent map[string]string, pageURL string) string {
	var chain []string
	visited := make(map[string]struct{})

	for cur := pageURL; cur != ""; cur = parent[cur] {
		if _, looped := visited[cur]; looped {
			break
		}
		visited[cur] = struct{}{}
		chain = append(chain, cur)
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return strings.Join(chain, " -> ")
}

// sleepCtx pauses for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
