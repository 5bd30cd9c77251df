// Package scraper runs saved collections through the whole pipeline.
//
// A Collector pages through one collection with pagination.Run, turns each
// item into a url and caption with the extract package, asks the classifier
// for a location, and merges the result into the collection's table. Once
// pagination ends, even on a fetch error, the table is sorted by geography.
//
// Progress is checkpointed after every page. A run that was interrupted or
// stopped by MaxPages can continue with RunConfig.Resume; a completed run
// removes its checkpoint.
//
// RunCollections drives several collections in sequence with a pause between
// them and stops at the first failure:
//
//	collector := scraper.New(client, classifierService, settings, log)
//	runs := scraper.PlanRuns(cfg, collections, scraper.RunOptions{})
//	summaries, err := collector.RunCollections(ctx, runs, cfg.Collections.PauseBetween)
package scraper
