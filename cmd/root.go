// Package cmd defines the CLI commands for the newspipe executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/app"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newspipe",
		Short: "Bilingual news extraction and comparison pipeline",
		Long: `newspipe collects coverage from People's Daily, The Wall Street
Journal, Weibo and X, normalizes and deduplicates it, renders everything into
Portuguese and serves the result through a read-only query API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// buildApp loads configuration and assembles the pipeline.
func buildApp() (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg)
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
