// Package recheck re-examines occurrence rows stuck in the Blocked verdict.
// Blocked is usually anti-bot noise rather than a dead target, so a later
// pass with the allow list applied can promote rows to Active or demote them
// to Broken without re-crawling the site.
package recheck

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/linkhound/internal/classifier"
	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/logger"
	"github.com/jonesrussell/linkhound/internal/notion"
)

// Occurrence collection field names touched by the recheck pass.
const (
	urlField      = "URL"
	resultField   = "Result"
	httpCodeField = "HTTP Code"
	errorField    = "Error"
	lastSeenField = "Last Seen"
)

// Store is the record-store surface the recheck pass needs.
type Store interface {
	QueryAll(ctx context.Context, collectionID string, filter map[string]any) ([]notion.Record, error)
	UpdateRecord(ctx context.Context, recordID string, props notion.Properties) error
	GetCollection(ctx context.Context, collectionID string) (*notion.Collection, error)
}

// Checker classifies one URL's reachability.
type Checker interface {
	Check(ctx context.Context, rawURL string) domain.ProbeResult
}

// Config configures a Runner.
type Config struct {
	// OccurrenceCollectionID is the link occurrences collection.
	OccurrenceCollectionID string
	// Delay is the pause between consecutive row updates.
	Delay time.Duration
}

// Summary reports what one recheck pass did.
type Summary struct {
	Total   int
	Active  int
	Broken  int
	Blocked int
	Skipped int
}

// Runner re-probes every Blocked occurrence and patches its row in place.
type Runner struct {
	store     Store
	checker   Checker
	allowlist *classifier.Allowlist
	cfg       Config
	log       logger.Interface
	now       func() time.Time
}

// New creates a Runner.
func New(store Store, checker Checker, allowlist *classifier.Allowlist, cfg Config, log logger.Interface) *Runner {
	return &Runner{
		store:     store,
		checker:   checker,
		allowlist: allowlist,
		cfg:       cfg,
		log:       log.WithComponent("recheck"),
		now:       time.Now,
	}
}

// Run queries the Blocked rows, re-probes each target with the allow list
// applied, and writes the new verdict, status code, error label, and
// last-seen timestamp back to the row.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	schema, err := r.store.GetCollection(ctx, r.cfg.OccurrenceCollectionID)
	if err != nil {
		return Summary{}, fmt.Errorf("recheck schema: %w", err)
	}

	filter := map[string]any{
		"property": resultField,
		"select":   map[string]any{"equals": string(domain.VerdictBlocked)},
	}

	rows, err := r.store.QueryAll(ctx, r.cfg.OccurrenceCollectionID, filter)
	if err != nil {
		return Summary{}, fmt.Errorf("recheck query: %w", err)
	}

	r.log.Info("rechecking blocked links", "rows", len(rows))

	summary := Summary{Total: len(rows)}

	for _, row := range rows {
		if ctx.Err() != nil {
			return summary, fmt.Errorf("recheck interrupted: %w", ctx.Err())
		}

		linkURL := row.URLValue(urlField)
		if linkURL == "" {
			summary.Skipped++
			r.log.Warn("row has no url, skipping", "record", row.ID)
			continue
		}

		result := r.checker.Check(ctx, linkURL)
		if r.allowlist != nil {
			result = r.allowlist.Reclassify(linkURL, result)
		}

		switch result.Verdict {
		case domain.VerdictActive:
			summary.Active++
		case domain.VerdictBroken:
			summary.Broken++
		case domain.VerdictBlocked:
			summary.Blocked++
		}

		props := notion.NewBuilder(schema).
			Select(resultField, string(result.Verdict)).
			Number(httpCodeField, result.Code).
			RichText(errorField, result.ErrorLabel).
			Date(lastSeenField, r.now()).
			Build()

		if err := r.store.UpdateRecord(ctx, row.ID, props); err != nil {
			return summary, fmt.Errorf("recheck update %s: %w", row.ID, err)
		}

		r.log.Info("rechecked",
			"url", linkURL,
			"verdict", string(result.Verdict),
			"code", result.Code,
		)

		if r.cfg.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.Delay):
			}
		}
	}

	return summary, nil
}
