package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sanath1188/insta-collections-insights/pkg/logger"
	"github.com/sanath1188/insta-collections-insights/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	quiet         bool
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "igcollect",
		Short: "Turn Instagram saved collections into location tables",
		Long: `igcollect reads your Instagram saved collections page by page, asks a
language model where each reel was filmed, and keeps one CSV table per
collection, sorted by country, state and city.

Sessions come from a browser cookie header, either stored with
'igcollect auth login' or passed through IG_COOKIES.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Version = version
			ui.SetColorEnabled(!noColor)
			ui.SetQuietMode(quiet || logLevel == "error")
			if cmd.Name() != "help" && cmd.Name() != "completion" {
				ui.PrintBanner()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igcollect.yaml or ~/.config/igcollect/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-file", "", "also write JSON logs to this file")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "send a desktop notification when a run ends")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every record instead of a progress line")

	cmd.SetVersionTemplate(`igcollect {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newCollectCmd(),
		newRunCmd(),
		newSortCmd(),
		newExportCmd(),
		newConfigCmd(),
		newAuthCmd(),
	)
	return cmd
}

// Execute runs the root command and exits with a status derived from the error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process status. Interrupted runs use the
// shell convention for SIGINT.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
