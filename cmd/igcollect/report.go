package main

import (
	"fmt"

	"github.com/sanath1188/insta-collections-insights/pkg/config"
	"github.com/sanath1188/insta-collections-insights/pkg/scraper"
	"github.com/sanath1188/insta-collections-insights/pkg/ui"
)

// batchReporter gives each collection of a run its own progress line
type batchReporter struct {
	verbose bool
	current *ui.ProgressDisplay
}

func (b *batchReporter) RunStarted(rc scraper.RunConfig) {
	ui.PrintInfo("Collection", fmt.Sprintf("%s → %s", rc.CollectionName, rc.TablePath))
	b.current = ui.NewProgressDisplay(rc.CollectionName, b.verbose)
}

func (b *batchReporter) RunFinished(_ scraper.Summary, err error) {
	if b.current != nil {
		b.current.Complete(err)
	}
	b.current = nil
}

func (b *batchReporter) PageStarted(page int) {
	if b.current != nil {
		b.current.PageStarted(page)
	}
}

func (b *batchReporter) RecordProcessed(url string, written bool, location string) {
	if b.current != nil {
		b.current.RecordProcessed(url, written, location)
	}
}

// summaryRows converts run summaries into table rows. When runErr is set
// the last summary belongs to the collection that failed.
func summaryRows(summaries []scraper.Summary, runErr error) []ui.SummaryRow {
	rows := make([]ui.SummaryRow, 0, len(summaries))
	for i, s := range summaries {
		status := string(s.StopReason)
		if runErr != nil && i == len(summaries)-1 {
			status = "failed"
		}
		if s.Resumed {
			status += " (resumed)"
		}
		rows = append(rows, ui.SummaryRow{
			Collection: s.CollectionName,
			Pages:      s.Pages,
			Items:      s.Items,
			Written:    s.Written,
			Skipped:    s.SkippedDuplicate + s.SkippedPolicy,
			Failures:   s.ClassificationFailures,
			Duration:   s.Duration,
			Status:     status,
		})
	}
	return rows
}

func printSummaries(summaries []scraper.Summary, runErr error) {
	if ui.IsQuietMode() || len(summaries) == 0 {
		return
	}
	fmt.Fprintln(ui.Output)
	ui.RenderSummaryTable(ui.Output, summaryRows(summaries, runErr))
}

// notifyOutcome sends the end-of-run desktop notification
func notifyOutcome(n *ui.Notifier, prefs config.NotificationConfig, summaries []scraper.Summary, runErr error) {
	if !prefs.Enabled {
		return
	}
	if runErr != nil {
		if prefs.OnError {
			n.SendError("igcollect run failed", runErr.Error())
		}
		return
	}
	if !prefs.OnComplete {
		return
	}
	written := 0
	for _, s := range summaries {
		written += s.Written
	}
	n.SendSuccess("igcollect finished", fmt.Sprintf("%d collections, %d new rows", len(summaries), written))
}
