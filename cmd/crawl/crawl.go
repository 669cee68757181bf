// Package crawl implements the crawl command: the full BFS traversal,
// classification, and reconciliation run.
package crawl

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/linkhound/cmd/common"
	"github.com/jonesrussell/linkhound/internal/alert"
	"github.com/jonesrussell/linkhound/internal/crawler"
	"github.com/jonesrussell/linkhound/internal/metrics"
	"github.com/jonesrussell/linkhound/internal/reconcile"
	"github.com/jonesrussell/linkhound/internal/render"
)

// Command returns the crawl command for use in the root command.
func Command() *cobra.Command {
	var (
		maxPages     int
		forceRefresh bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the site and reconcile link health into the record store",
		Long: `Crawl the configured site breadth-first, classify every link as
Active, Broken, or Blocked, upsert pages and link occurrences into the two
record collections, and deliver a digest of newly broken links.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("initialize dependencies: %w", err)
			}

			cfg := deps.Config
			if maxPages > 0 {
				cfg.Crawl.MaxPages = maxPages
			}
			if forceRefresh {
				cfg.Records.ForceRefresh = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec := reconcile.New(deps.Store, reconcile.Config{
				SiteBaseURL:            cfg.Crawl.SiteBaseURL,
				PageCollectionID:       cfg.Records.PageCollectionID,
				OccurrenceCollectionID: cfg.Records.OccurrenceCollectionID,
				ForceRefresh:           cfg.Records.ForceRefresh,
			}, deps.Logger)

			if err := rec.Prefetch(ctx); err != nil {
				return err
			}

			renderer := render.NewHTTPRenderer(render.HTTPRendererConfig{
				UserAgent: cfg.Crawl.UserAgent,
				Timeout:   cfg.Crawl.ProbeTimeout,
				SiteBrand: cfg.Crawl.SiteBrand,
			})

			checker := cmdcommon.NewChecker(cfg, deps.Logger)
			notifier := alert.NewSlackNotifier(cfg.Alert.SlackWebhookURL, deps.Logger)
			runStats := metrics.NewRunMetrics()

			engine := crawler.New(renderer, checker, rec, notifier, runStats, crawler.Config{
				SiteBaseURL:     cfg.Crawl.SiteBaseURL,
				LimitMode:       cfg.Crawl.LimitMode,
				MaxPages:        cfg.Crawl.MaxPages,
				MaxLinkChecks:   cfg.Crawl.MaxLinkChecks,
				CheckInternal:   cfg.Crawl.CheckInternal,
				CheckExternal:   cfg.Crawl.CheckExternal,
				CrawlDelay:      cfg.Crawl.CrawlDelay,
				ExcludeDOMAreas: cfg.Crawl.ExcludeDOMAreas,
				RenderMode:      "Static",
			}, deps.Logger)

			if err := engine.Run(ctx); err != nil {
				return err
			}

			printSummary(runStats.Snapshot())

			return nil
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "override the configured page limit")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false,
		"write unchanged occurrence rows anyway to refresh their last-seen timestamps")

	return cmd
}

// printSummary renders the run counters as a table on stdout.
func printSummary(snap metrics.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Pages visited", snap.PagesVisited},
		{"Pages failed", snap.PagesFailed},
		{"Links seen", snap.LinksSeen},
		{"Links checked", snap.LinksChecked},
		{"Cache hits", snap.CacheHits},
		{"Broken", snap.LinksBroken},
		{"Blocked", snap.LinksBlocked},
		{"Newly broken", snap.NewlyBroken},
		{"Record writes", snap.RecordWrites},
		{"Record skips", snap.RecordSkips},
		{"Elapsed", snap.Elapsed.Round(time.Second)},
	})
	t.Render()
}
