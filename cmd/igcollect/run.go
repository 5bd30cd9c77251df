package main

import (
	"github.com/spf13/cobra"

	"github.com/sanath1188/insta-collections-insights/pkg/logger"
	"github.com/sanath1188/insta-collections-insights/pkg/scraper"
	"github.com/sanath1188/insta-collections-insights/pkg/ui"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect every collection listed in the collections file",
		Long: `Process each collection from the collections file in order, one table
per collection, pausing between them. The batch stops at the first
collection whose pages cannot be fetched or whose table cannot be written.

Collections are read from collections.json unless --collections-file or
the collections section of the config file says otherwise:

  {"collections": [{"id": "17912345678901234", "name": "Food"}]}`,
		Example: `  igcollect run
  igcollect run --collections-file trips.yaml --pause 30s`,
		Args: cobra.NoArgs,
		RunE: runBatch,
	}

	cmd.Flags().StringP("collections-file", "f", "", "JSON or YAML file listing collections")
	cmd.Flags().Duration("pause", 0, "wait between collections")
	addCollectorFlags(cmd)
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	cols, err := cfg.ResolveCollections()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	collector, cleanup, err := newCollector(ctx, cfg, log)
	defer cleanup()
	if err != nil {
		return err
	}
	collector.SetReporter(&batchReporter{verbose: verbose})

	runs := scraper.PlanRuns(cfg, cols, runOptions(cmd, cfg))
	logger.LogComponentStart("batch", map[string]interface{}{
		"collections": len(runs),
		"pause":       cfg.Collections.PauseBetween,
	})

	summaries, err := collector.RunCollections(ctx, runs, cfg.Collections.PauseBetween)
	reason := "completed"
	if err != nil {
		reason = err.Error()
	}
	logger.LogComponentStop("batch", reason)
	printSummaries(summaries, err)
	notifyOutcome(ui.NewNotifier(cfg.Notifications.Enabled), cfg.Notifications, summaries, err)
	return err
}
