// Package reconcile maintains the two record collections: one row per
// crawled page and one row per link occurrence. All reads happen up front
// into in-memory indexes; writes are idempotent and skipped when a row's
// verdict has not changed.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/logger"
	"github.com/jonesrussell/linkhound/internal/notion"
	"github.com/jonesrussell/linkhound/internal/urlutil"
)

// Page collection field names. They must match the collection schema exactly.
const (
	pageTitleField       = "Title"
	pageURLField         = "Primary URL"
	pageStatusField      = "Status"
	pageLastCrawledField = "Last Crawled"
	pageGroupField       = "Pages"
	pageContentTypeField = "Content Type"
)

// Occurrence collection field names.
const (
	occNameField       = "Name"
	occSourceField     = "Source Content"
	occURLField        = "URL"
	occLinkTypeField   = "Link Type"
	occResultField     = "Result"
	occHTTPField       = "HTTP Code"
	occErrorField      = "Error"
	occFindingKeyField = "Finding Key"
	occFirstSeenField  = "First Seen"
	occLastSeenField   = "Last Seen"
	occAnchorField     = "Anchor Text"
	occContextField    = "Context Snippet"
	occBreadcrumbField = "Breadcrumb Trail"
	occUIGroupField    = "UI Group"
	occUIItemField     = "UI Item"
	occClickPathField  = "Click Path"
	occDeepLinkField   = "Deep Link"
	occRenderModeField = "Render Mode"
	occLocatorField    = "Locator CSS"
	occDOMAreaField    = "DOM Area"
)

// occurrenceNameMaxAnchor caps the anchor text embedded in a row name.
const occurrenceNameMaxAnchor = 55

// Store is the record-store surface the reconciler needs.
type Store interface {
	QueryAll(ctx context.Context, collectionID string, filter map[string]any) ([]notion.Record, error)
	CreateRecord(ctx context.Context, collectionID string, props notion.Properties) (string, error)
	UpdateRecord(ctx context.Context, recordID string, props notion.Properties) error
	GetCollection(ctx context.Context, collectionID string) (*notion.Collection, error)
	AddSelectOption(ctx context.Context, collection *notion.Collection, field, option string) error
}

// Config configures a Reconciler.
type Config struct {
	// SiteBaseURL anchors page-group guessing.
	SiteBaseURL string
	// PageCollectionID is the pages collection.
	PageCollectionID string
	// OccurrenceCollectionID is the link occurrences collection.
	OccurrenceCollectionID string
	// ForceRefresh writes unchanged occurrences anyway so last-seen stays
	// current.
	ForceRefresh bool
}

// occurrenceState is the cached prior state of one occurrence row.
type occurrenceState struct {
	recordID string
	verdict  string
}

// Reconciler owns the prefetched indexes and performs idempotent upserts
// against both collections.
type Reconciler struct {
	store Store
	cfg   Config
	log   logger.Interface
	now   func() time.Time

	pageSchema *notion.Collection
	occSchema  *notion.Collection

	pageIndex map[string]string
	occIndex  map[string]occurrenceState
}

// New creates a Reconciler. Call Prefetch before the first upsert.
func New(store Store, cfg Config, log logger.Interface) *Reconciler {
	return &Reconciler{
		store:     store,
		cfg:       cfg,
		log:       log.WithComponent("reconcile"),
		now:       time.Now,
		pageIndex: make(map[string]string),
		occIndex:  make(map[string]occurrenceState),
	}
}

// FindingKey is the stable identity of one occurrence: source page plus
// link target.
func FindingKey(sourceURL, linkURL string) string {
	return sourceURL + " | " + linkURL
}

// Prefetch loads both collection schemas and builds the URL and finding-key
// indexes from a full read of each collection. It must complete before any
// upsert so that reruns update rows instead of duplicating them.
func (r *Reconciler) Prefetch(ctx context.Context) error {
	pageSchema, err := r.store.GetCollection(ctx, r.cfg.PageCollectionID)
	if err != nil {
		return fmt.Errorf("prefetch page schema: %w", err)
	}
	r.pageSchema = pageSchema

	occSchema, err := r.store.GetCollection(ctx, r.cfg.OccurrenceCollectionID)
	if err != nil {
		return fmt.Errorf("prefetch occurrence schema: %w", err)
	}
	r.occSchema = occSchema

	r.registerSelectOptions(ctx)

	pages, err := r.store.QueryAll(ctx, r.cfg.PageCollectionID, nil)
	if err != nil {
		return fmt.Errorf("prefetch pages: %w", err)
	}

	for _, record := range pages {
		if u := record.URLValue(pageURLField); u != "" {
			r.pageIndex[urlutil.StripTrailingSlash(u)] = record.ID
		}
	}

	occurrences, err := r.store.QueryAll(ctx, r.cfg.OccurrenceCollectionID, nil)
	if err != nil {
		return fmt.Errorf("prefetch occurrences: %w", err)
	}

	for _, record := range occurrences {
		key := record.PlainText(occFindingKeyField)
		if key == "" {
			continue
		}
		r.occIndex[key] = occurrenceState{
			recordID: record.ID,
			verdict:  record.SelectValue(occResultField),
		}
	}

	r.log.Info("record indexes prefetched",
		"pages", len(r.pageIndex),
		"occurrences", len(r.occIndex),
	)

	return nil
}

// registerSelectOptions registers every enum value the reconciler can write
// on the fetched schemas, so a record write never carries an option the
// collection does not know yet.
func (r *Reconciler) registerSelectOptions(ctx context.Context) {
	r.ensureOptions(ctx, r.pageSchema, map[string][]string{
		pageStatusField:      {string(domain.PageActive), string(domain.PageNeedReview), string(domain.PageBroken)},
		pageGroupField:       pageGroupOptions,
		pageContentTypeField: pageContentTypeOptions,
	})

	r.ensureOptions(ctx, r.occSchema, map[string][]string{
		occResultField:   {string(domain.VerdictActive), string(domain.VerdictBroken), string(domain.VerdictBlocked)},
		occLinkTypeField: {string(domain.LinkInternal), string(domain.LinkExternal)},
		occDOMAreaField: {domain.AreaMain, domain.AreaHeader, domain.AreaFooter,
			domain.AreaNav, domain.AreaAccordion, domain.AreaUnknown},
	})
}

// ensureOptions adds the missing options per single-choice field. A failed
// registration is logged and skipped; the write path already degrades per
// field, so it must not abort the run.
func (r *Reconciler) ensureOptions(ctx context.Context, schema *notion.Collection, fields map[string][]string) {
	if schema == nil || schema.Properties == nil {
		return
	}

	for field, options := range fields {
		descriptor, ok := schema.Properties[field]
		if !ok || descriptor.Select == nil {
			continue
		}

		for _, option := range options {
			if schema.HasSelectOption(field, option) {
				continue
			}

			if err := r.store.AddSelectOption(ctx, schema, field, option); err != nil {
				r.log.Warn("select option registration failed",
					"field", field,
					"option", option,
					"error", err,
				)
			}
		}
	}
}

// PageUpsert describes one crawled page for the pages collection.
type PageUpsert struct {
	URL   string
	Title string
	// Alive is false when the page itself failed to load.
	Alive bool
	// BrokenCount is the number of Broken links found on the page.
	BrokenCount int
}

// Status derives the page's aggregate health from its own reachability and
// its links. A dead page is Broken regardless of link counts.
func (p PageUpsert) Status() domain.PageStatus {
	switch {
	case !p.Alive:
		return domain.PageBroken
	case p.BrokenCount > 0:
		return domain.PageNeedReview
	default:
		return domain.PageActive
	}
}

// UpsertPage creates or updates the page's row and returns its record ID.
// The crawl engine calls it twice per page: once before processing links so
// occurrences can reference the row, and once after with the final broken
// count.
func (r *Reconciler) UpsertPage(ctx context.Context, page PageUpsert) (string, error) {
	key := urlutil.StripTrailingSlash(page.URL)

	title := page.Title
	if title == "" {
		title = page.URL
	}

	group, contentType := guessPageTags(r.cfg.SiteBaseURL, page.URL)

	props := notion.NewBuilder(r.pageSchema).
		Title(pageTitleField, title).
		URL(pageURLField, page.URL).
		Select(pageStatusField, string(page.Status())).
		Date(pageLastCrawledField, r.now()).
		Select(pageGroupField, group).
		Select(pageContentTypeField, contentType).
		Build()

	if existingID, ok := r.pageIndex[key]; ok {
		if err := r.store.UpdateRecord(ctx, existingID, props); err != nil {
			return "", fmt.Errorf("upsert page %s: %w", page.URL, err)
		}
		return existingID, nil
	}

	createdID, err := r.store.CreateRecord(ctx, r.cfg.PageCollectionID, props)
	if err != nil {
		return "", fmt.Errorf("upsert page %s: %w", page.URL, err)
	}

	r.pageIndex[key] = createdID

	return createdID, nil
}

// Occurrence describes one link found on one page.
type Occurrence struct {
	SourcePageID string
	SourceURL    string
	LinkURL      string
	LinkType     domain.LinkType
	Result       domain.ProbeResult
	AnchorText   string
	Snippet      string
	Breadcrumb   string
	DOMArea      string
	UIGroup      string
	UIItem       string
	ClickPath    string
	DeepLink     string
	Locator      string
	RenderMode   string
}

// Outcome reports what an occurrence upsert did.
type Outcome struct {
	// Written is true when a record was created or updated.
	Written bool
	// NewlyBroken is true when the link is Broken now and was not before.
	NewlyBroken bool
}

// UpsertOccurrence creates or updates the occurrence row keyed by its
// finding key. Rows whose verdict is unchanged are left untouched unless
// force-refresh is on. The first-seen timestamp is written only on create;
// last-seen on every write.
func (r *Reconciler) UpsertOccurrence(ctx context.Context, occ Occurrence) (Outcome, error) {
	key := FindingKey(occ.SourceURL, occ.LinkURL)
	prior, exists := r.occIndex[key]

	verdict := string(occ.Result.Verdict)
	newlyBroken := occ.Result.Verdict == domain.VerdictBroken && prior.verdict != string(domain.VerdictBroken)

	if exists && prior.verdict == verdict && !r.cfg.ForceRefresh {
		return Outcome{NewlyBroken: newlyBroken}, nil
	}

	now := r.now()

	builder := notion.NewBuilder(r.occSchema).
		Title(occNameField, occurrenceName(occ.AnchorText, occ.LinkURL)).
		Relation(occSourceField, occ.SourcePageID).
		URL(occURLField, occ.LinkURL).
		Select(occLinkTypeField, string(occ.LinkType)).
		Select(occResultField, verdict).
		Number(occHTTPField, occ.Result.Code).
		RichText(occErrorField, occ.Result.ErrorLabel).
		RichText(occFindingKeyField, key).
		RichText(occAnchorField, occ.AnchorText).
		RichText(occContextField, occ.Snippet).
		RichText(occBreadcrumbField, occ.Breadcrumb).
		Select(occDOMAreaField, domAreaOrUnknown(occ.DOMArea)).
		Select(occRenderModeField, occ.RenderMode).
		RichText(occUIGroupField, occ.UIGroup).
		RichText(occUIItemField, occ.UIItem).
		RichText(occClickPathField, occ.ClickPath).
		URL(occDeepLinkField, occ.DeepLink).
		Date(occLastSeenField, now)

	if exists {
		if err := r.store.UpdateRecord(ctx, prior.recordID, builder.Build()); err != nil {
			return Outcome{}, fmt.Errorf("upsert occurrence %q: %w", key, err)
		}
		r.occIndex[key] = occurrenceState{recordID: prior.recordID, verdict: verdict}

		return Outcome{Written: true, NewlyBroken: newlyBroken}, nil
	}

	builder.Date(occFirstSeenField, now)

	createdID, err := r.store.CreateRecord(ctx, r.cfg.OccurrenceCollectionID, builder.Build())
	if err != nil {
		return Outcome{}, fmt.Errorf("upsert occurrence %q: %w", key, err)
	}

	r.occIndex[key] = occurrenceState{recordID: createdID, verdict: verdict}

	return Outcome{Written: true, NewlyBroken: newlyBroken}, nil
}

// occurrenceName builds the row title from the link's domain and a
// truncated anchor text.
func occurrenceName(anchor, linkURL string) string {
	dom := urlutil.Domain(linkURL)
	if dom == "" {
		dom = linkURL
	}

	anchor = strings.TrimSpace(anchor)
	if anchor == "" {
		return dom
	}

	if runes := []rune(anchor); len(runes) > occurrenceNameMaxAnchor {
		anchor = string(runes[:occurrenceNameMaxAnchor-3]) + "..."
	}

	return dom + " • " + anchor
}

func domAreaOrUnknown(area string) string {
	if area == "" {
		return domain.AreaUnknown
	}

	return area
}
