// Package recheck implements the recheck command: a re-probe of every
// occurrence row stuck in the Blocked verdict.
package recheck

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/linkhound/cmd/common"
	"github.com/jonesrussell/linkhound/internal/classifier"
	"github.com/jonesrussell/linkhound/internal/recheck"
)

// Command returns the recheck command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "recheck",
		Short: "Re-probe Blocked links and update their verdicts",
		Long: `Query the occurrence collection for rows whose verdict is Blocked,
re-probe each target with the anti-bot allow list applied, and patch the
verdict, status code, error label, and last-seen timestamp in place.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("initialize dependencies: %w", err)
			}

			cfg := deps.Config

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			checker := cmdcommon.NewRecheckChecker(cfg, deps.Logger)
			allowlist := classifier.NewAllowlist(
				cfg.Crawl.BlockedAsActiveDomains,
				cfg.Crawl.ActiveWhenBlockedCodes,
			)

			runner := recheck.New(deps.Store, checker, allowlist, recheck.Config{
				OccurrenceCollectionID: cfg.Records.OccurrenceCollectionID,
				Delay:                  cfg.Crawl.ProbeDelay,
			}, deps.Logger)

			summary, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			printSummary(summary)

			return nil
		},
	}
}

// printSummary renders the recheck outcome as a table on stdout.
func printSummary(summary recheck.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Outcome", "Count"})
	t.AppendRows([]table.Row{
		{"Rechecked", summary.Total},
		{"Now active", summary.Active},
		{"Now broken", summary.Broken},
		{"Still blocked", summary.Blocked},
		{"Skipped", summary.Skipped},
	})
	t.Render()
}
