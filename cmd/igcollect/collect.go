package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanath1188/insta-collections-insights/pkg/config"
	"github.com/sanath1188/insta-collections-insights/pkg/logger"
	"github.com/sanath1188/insta-collections-insights/pkg/scraper"
	"github.com/sanath1188/insta-collections-insights/pkg/ui"
)

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect <collection-id>",
		Short: "Append one saved collection to its table",
		Long: `Walk a saved collection page by page and append every reel that is not
already in the table. Each new caption is classified into place, city,
state and country before the row is written. The table is sorted by
location once the walk ends, including when a page fails.

The table path defaults to <output-dir>/<name>.csv. Progress is
checkpointed after every page so an interrupted run can be resumed.`,
		Example: `  # Collect into ./Food.csv
  igcollect collect 17912345678901234 --name Food

  # Write somewhere specific and stop after five pages
  igcollect collect 17912345678901234 --output ~/tables/food.csv --max-pages 5

  # Continue an interrupted run
  igcollect collect 17912345678901234 --name Food --resume`,
		Args: cobra.ExactArgs(1),
		RunE: runCollect,
	}

	cmd.Flags().StringP("name", "n", "", "collection name, used for the table file name")
	cmd.Flags().StringP("output", "o", "", "table path (overrides output-dir and file name pattern)")
	addCollectorFlags(cmd)
	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	extra := map[string]interface{}{"collection-id": strings.TrimSpace(args[0])}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		extra["collection-name"] = name
	}

	cfg, err := loadConfig(cmd, extra)
	if err != nil {
		return err
	}
	if err := cfg.RequireCollection(); err != nil {
		return err
	}
	log := logger.GetLogger()

	output, _ := cmd.Flags().GetString("output")
	col := config.Collection{
		ID:     cfg.Instagram.CollectionID,
		Name:   cfg.Instagram.CollectionName,
		Output: output,
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	collector, cleanup, err := newCollector(ctx, cfg, log)
	defer cleanup()
	if err != nil {
		return err
	}

	rc := scraper.PlanRuns(cfg, []config.Collection{col}, runOptions(cmd, cfg))[0]
	ui.PrintInfo("Collection", rc.CollectionName)
	ui.PrintInfo("Table", rc.TablePath)

	progress := ui.NewProgressDisplay(rc.CollectionName, verbose)
	collector.SetReporter(progress)

	summary, err := collector.Collect(ctx, rc)
	progress.Complete(err)
	if errors.Is(err, scraper.ErrCheckpointExists) {
		ui.PrintWarning("An unfinished run was found for this collection")
		return err
	}

	summaries := []scraper.Summary{summary}
	printSummaries(summaries, err)
	notifyOutcome(ui.NewNotifier(cfg.Notifications.Enabled), cfg.Notifications, summaries, err)
	return err
}
