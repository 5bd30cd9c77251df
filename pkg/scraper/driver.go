package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/sanath1188/insta-collections-insights/pkg/config"
	"github.com/sanath1188/insta-collections-insights/pkg/ratelimit"
)

// RunOptions are the command-line flags applied to every run of a batch
type RunOptions struct {
	Resume       bool
	ForceRestart bool
	MaxPages     int
}

// PlanRuns builds one RunConfig per collection. Each run gets its own table
// path; nothing is written back to the configuration.
func PlanRuns(cfg *config.Config, cols []config.Collection, opts RunOptions) []RunConfig {
	runs := make([]RunConfig, 0, len(cols))
	for _, col := range cols {
		name := col.Name
		if name == "" {
			name = col.ID
		}
		runs = append(runs, RunConfig{
			CollectionID:   col.ID,
			CollectionName: name,
			TablePath:      cfg.TablePath(col),
			Resume:         opts.Resume,
			ForceRestart:   opts.ForceRestart,
			MaxPages:       opts.MaxPages,
		})
	}
	return runs
}

// RunCollections collects each run in order, waiting pause between them.
// It stops at the first failing collection and returns the summaries of
// every run attempted, including the failed one.
func (c *Collector) RunCollections(ctx context.Context, runs []RunConfig, pause time.Duration) ([]Summary, error) {
	summaries := make([]Summary, 0, len(runs))
	observer, _ := c.reporter.(RunObserver)

	for i, rc := range runs {
		if i > 0 && pause > 0 {
			c.logger.DebugWithFields("Waiting before next collection", map[string]interface{}{
				"pause": pause,
				"next":  rc.CollectionName,
			})
			if err := ratelimit.Sleep(ctx, pause); err != nil {
				return summaries, err
			}
		}

		c.logger.InfoWithFields("Processing collection", map[string]interface{}{
			"collection":    rc.CollectionName,
			"collection_id": rc.CollectionID,
			"position":      i + 1,
			"total":         len(runs),
		})

		if observer != nil {
			observer.RunStarted(rc)
		}
		summary, err := c.Collect(ctx, rc)
		if observer != nil {
			observer.RunFinished(summary, err)
		}
		summaries = append(summaries, summary)
		if err != nil {
			return summaries, fmt.Errorf("collection %s: %w", rc.CollectionName, err)
		}
	}

	c.logger.InfoWithFields("All collections processed", map[string]interface{}{
		"collections": len(runs),
	})
	return summaries, nil
}
