// Package cmd implements the command-line interface for linkhound. It
// provides the root command and the crawl and recheck subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/linkhound/cmd/crawl"
	"github.com/jonesrussell/linkhound/cmd/recheck"
)

// version is overridden at build time.
var version = "dev"

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "linkhound",
	Short: "A website link-health crawler",
	Long: `linkhound crawls a website breadth-first, classifies every link it
finds as Active, Broken, or Blocked, reconciles the results into two linked
record collections, and alerts on newly broken links.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Flags land in the environment so config.Load picks them up the
		// same way it picks up everything else.
		if cfgFile != "" {
			if err := godotenv.Load(cfgFile); err != nil {
				return fmt.Errorf("load config file %s: %w", cfgFile, err)
			}
		}

		if debug {
			if err := os.Setenv("APP_DEBUG", "true"); err != nil {
				return fmt.Errorf("enable debug: %w", err)
			}
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("linkhound version %s\n", version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(recheck.Command())
}
