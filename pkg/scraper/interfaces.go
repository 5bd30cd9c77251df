package scraper

import (
	"context"

	"github.com/sanath1188/insta-collections-insights/pkg/classifier"
	"github.com/sanath1188/insta-collections-insights/pkg/instagram"
)

// PageFetcher defines the collection feed operations the collector needs
type PageFetcher interface {
	FetchCollectionPage(ctx context.Context, collectionID, maxID string) (*instagram.CollectionPage, error)
}

// Reporter receives progress as a run advances. All methods are called from
// the collecting goroutine.
type Reporter interface {
	PageStarted(page int)
	RecordProcessed(url string, written bool, location string)
}

// RunObserver is an optional Reporter extension. RunCollections calls it
// around each collection of a batch.
type RunObserver interface {
	RunStarted(rc RunConfig)
	RunFinished(summary Summary, err error)
}

// statsSource is implemented by classifiers that count their failures
type statsSource interface {
	Stats() classifier.Stats
}

type nopReporter struct{}

func (nopReporter) PageStarted(int)                      {}
func (nopReporter) RecordProcessed(string, bool, string) {}
