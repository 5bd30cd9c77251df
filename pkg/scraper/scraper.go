package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sanath1188/insta-collections-insights/pkg/checkpoint"
	"github.com/sanath1188/insta-collections-insights/pkg/classifier"
	"github.com/sanath1188/insta-collections-insights/pkg/extract"
	"github.com/sanath1188/insta-collections-insights/pkg/instagram"
	"github.com/sanath1188/insta-collections-insights/pkg/logger"
	"github.com/sanath1188/insta-collections-insights/pkg/pagination"
	"github.com/sanath1188/insta-collections-insights/pkg/storage"
)

// ErrCheckpointExists is returned when an unfinished run is found and the
// caller asked neither to resume nor to restart
var ErrCheckpointExists = errors.New("checkpoint exists - use --resume to continue or --force-restart to start fresh")

// RunConfig is everything that varies between collection runs
type RunConfig struct {
	CollectionID   string
	CollectionName string
	TablePath      string
	Resume         bool
	ForceRestart   bool
	MaxPages       int
}

// Settings are shared by every run of a Collector
type Settings struct {
	MissingCodePolicy extract.MissingCodePolicy
	HeaderPolicy      storage.HeaderPolicy
	SortKeys          []string
	// CheckpointDir overrides the platform data directory
	CheckpointDir string
	// DisableCheckpoints skips reading and writing progress files
	DisableCheckpoints bool
}

// Summary describes one finished collection run
type Summary struct {
	CollectionID           string
	CollectionName         string
	TablePath              string
	Pages                  int
	Items                  int
	Written                int
	SkippedDuplicate       int
	SkippedPolicy          int
	Classified             int
	ClassificationFailures int
	Sorted                 bool
	Resumed                bool
	StopReason             pagination.StopReason
	Duration               time.Duration
}

// Collector reads a saved collection into a table
type Collector struct {
	fetcher    PageFetcher
	classifier classifier.Classifier
	settings   Settings
	reporter   Reporter
	logger     logger.Logger
}

// New creates a Collector
func New(fetcher PageFetcher, cls classifier.Classifier, settings Settings, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	if settings.MissingCodePolicy == "" {
		settings.MissingCodePolicy = extract.PolicyPlaceholder
	}
	if settings.HeaderPolicy == "" {
		settings.HeaderPolicy = storage.HeaderReject
	}
	if len(settings.SortKeys) == 0 {
		settings.SortKeys = []string{"country", "state", "city"}
	}
	if cls == nil {
		cls = classifier.New(classifier.Options{Logger: log})
	}
	return &Collector{
		fetcher:    fetcher,
		classifier: cls,
		settings:   settings,
		reporter:   nopReporter{},
		logger:     log,
	}
}

// SetReporter attaches a progress reporter
func (c *Collector) SetReporter(r Reporter) {
	if r == nil {
		r = nopReporter{}
	}
	c.reporter = r
}

// run holds the state of a single Collect call
type run struct {
	*Collector
	cfg     RunConfig
	log     logger.Logger
	store   *storage.Store
	summary Summary

	cpMgr      *checkpoint.Manager
	cp         *checkpoint.Checkpoint
	pageOffset int
	fetched    int

	pageWritten int
	pageSkipped int
	storageErr  bool
}

// Collect paginates the collection, appends new records to the table and
// sorts it. A page fetch failure stops collection but the table is still
// sorted; the error is returned with the partial summary.
func (c *Collector) Collect(ctx context.Context, cfg RunConfig) (Summary, error) {
	start := time.Now()
	if cfg.CollectionID == "" {
		return Summary{}, fmt.Errorf("collection id is required")
	}
	if cfg.TablePath == "" {
		return Summary{}, fmt.Errorf("table path is required")
	}

	r := &run{
		Collector: c,
		cfg:       cfg,
		log: c.logger.WithFields(map[string]interface{}{
			"collection_id": cfg.CollectionID,
			"collection":    cfg.CollectionName,
		}),
		summary: Summary{
			CollectionID:   cfg.CollectionID,
			CollectionName: cfg.CollectionName,
			TablePath:      cfg.TablePath,
		},
	}

	startCursor, pageOffset, err := r.prepareCheckpoint()
	if err != nil {
		return r.summary, err
	}
	r.pageOffset = pageOffset

	var before classifier.Stats
	stats, hasStats := c.classifier.(statsSource)
	if hasStats {
		before = stats.Stats()
	}

	r.log.InfoWithFields("Starting collection run", map[string]interface{}{
		"table":   cfg.TablePath,
		"resumed": r.summary.Resumed,
	})

	res, runErr := pagination.Run(ctx, pagination.Options{
		Start:    startCursor,
		MaxPages: cfg.MaxPages,
		Logger:   r.log,
		OnPage:   r.pageDone,
	}, r.fetch, r.visit)

	r.summary.Pages = res.Pages
	r.summary.Items = res.Items
	r.summary.StopReason = res.Reason
	if hasStats {
		after := stats.Stats()
		r.summary.ClassificationFailures = after.Failures - before.Failures
	}

	if r.store != nil {
		if err := r.store.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("failed to close table: %w", err)
			r.storageErr = true
		}
	}

	if r.store != nil && !r.storageErr {
		if err := storage.SortTable(cfg.TablePath, storage.Columns, c.settings.SortKeys); err != nil {
			r.log.WithError(err).Error("Failed to sort table")
			if runErr == nil {
				runErr = fmt.Errorf("failed to sort table: %w", err)
			}
		} else {
			r.summary.Sorted = true
		}
	}

	r.finishCheckpoint(res, runErr)

	r.summary.Duration = time.Since(start)
	logger.LogCollectionSummary(r.log, cfg.CollectionName, map[string]interface{}{
		"pages":             r.summary.Pages,
		"items":             r.summary.Items,
		"written":           r.summary.Written,
		"skipped_duplicate": r.summary.SkippedDuplicate,
		"skipped_policy":    r.summary.SkippedPolicy,
		"classified":        r.summary.Classified,
		"failures":          r.summary.ClassificationFailures,
		"sorted":            r.summary.Sorted,
		"stop_reason":       string(r.summary.StopReason),
		"duration":          r.summary.Duration,
	})

	if runErr != nil {
		r.log.WithError(runErr).Error("Collection run failed")
		return r.summary, runErr
	}
	return r.summary, nil
}

func (r *run) fetch(ctx context.Context, cursor string) (pagination.Page[instagram.Item], error) {
	r.fetched++
	page := r.pageOffset + r.fetched
	r.reporter.PageStarted(page)

	started := time.Now()
	resp, err := r.fetcher.FetchCollectionPage(ctx, r.cfg.CollectionID, cursor)
	if err != nil {
		return pagination.Page[instagram.Item]{}, err
	}
	logger.LogPageFetch(r.log, r.cfg.CollectionID, page, len(resp.Items), resp.MoreAvailable, time.Since(started))

	return pagination.Page[instagram.Item]{
		Items:      resp.Items,
		NextCursor: resp.NextMaxID.String(),
		HasMore:    resp.MoreAvailable,
	}, nil
}

func (r *run) visit(ctx context.Context, item instagram.Item) error {
	entry, ok := extract.Extract(item, r.settings.MissingCodePolicy)
	if !ok {
		r.summary.SkippedPolicy++
		r.log.DebugWithFields("Skipping item without shortcode", map[string]interface{}{
			"pk": item.Media.Pk.String(),
			"id": item.Media.ID,
		})
		return nil
	}

	if r.store == nil {
		store, err := storage.Open(r.cfg.TablePath, storage.Options{
			HeaderPolicy: r.settings.HeaderPolicy,
			Logger:       r.log,
		})
		if err != nil {
			r.storageErr = true
			return fmt.Errorf("failed to open table: %w", err)
		}
		r.store = store
	}

	if r.store.Has(entry.URL) {
		r.summary.SkippedDuplicate++
		r.pageSkipped++
		logger.LogRecord(r.log, entry.URL, false)
		r.reporter.RecordProcessed(entry.URL, false, "")
		return nil
	}

	loc := r.classifier.Classify(ctx, entry.Caption)
	// an interrupted classification must not be stored as an unknown location
	if err := ctx.Err(); err != nil {
		return err
	}
	if !loc.IsEmpty() {
		r.summary.Classified++
	}

	written, err := r.store.Merge(storage.Record{
		URL:       entry.URL,
		Caption:   entry.Caption,
		PlaceName: loc.PlaceName,
		City:      loc.City,
		State:     loc.State,
		Country:   loc.Country,
	})
	if err != nil {
		r.storageErr = true
		return err
	}
	logger.LogRecord(r.log, entry.URL, written)
	if written {
		r.summary.Written++
		r.pageWritten++
	} else {
		r.summary.SkippedDuplicate++
		r.pageSkipped++
	}
	r.reporter.RecordProcessed(entry.URL, written, loc.String())
	return nil
}

// prepareCheckpoint applies the resume and restart flags. It returns the
// cursor to start from and the number of pages already processed.
func (r *run) prepareCheckpoint() (string, int, error) {
	if r.settings.DisableCheckpoints {
		return "", 0, nil
	}

	var (
		mgr *checkpoint.Manager
		err error
	)
	if r.settings.CheckpointDir != "" {
		mgr, err = checkpoint.NewManagerAt(r.settings.CheckpointDir, r.cfg.CollectionID, r.log)
	} else {
		mgr, err = checkpoint.NewManager(r.cfg.CollectionID, r.log)
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	r.cpMgr = mgr

	switch {
	case r.cfg.ForceRestart && mgr.Exists():
		if err := mgr.Delete(); err != nil {
			r.log.WithError(err).Warn("Failed to delete existing checkpoint")
		}
		r.log.Info("Ignoring existing checkpoint")
	case r.cfg.Resume && mgr.Exists():
		cp, err := mgr.Load()
		if err != nil {
			return "", 0, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil && cp.Matches(r.cfg.CollectionID, r.cfg.TablePath) {
			r.cp = cp
			r.summary.Resumed = true
			r.log.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
				"page":          cp.LastProcessedPage,
				"next_cursor":   cp.NextCursor,
				"total_written": cp.TotalWritten,
			})
			return cp.NextCursor, cp.LastProcessedPage, nil
		}
		if cp != nil {
			r.log.WarnWithFields("Checkpoint belongs to another table, starting over", map[string]interface{}{
				"checkpoint_table": cp.TablePath,
			})
		}
	case mgr.Exists() && !r.cfg.Resume:
		return "", 0, ErrCheckpointExists
	}

	cp, err := mgr.Create(r.cfg.CollectionID, r.cfg.CollectionName, r.cfg.TablePath)
	if err != nil {
		r.log.WithError(err).Warn("Failed to create checkpoint")
		r.cpMgr = nil
		return "", 0, nil
	}
	r.cp = cp
	return "", 0, nil
}

func (r *run) pageDone(info pagination.PageInfo) error {
	written, skipped := r.pageWritten, r.pageSkipped
	r.pageWritten, r.pageSkipped = 0, 0

	if r.cpMgr == nil || r.cp == nil {
		return nil
	}
	if err := r.cpMgr.UpdateProgress(r.cp, info.NextCursor, r.pageOffset+info.Number, written, skipped); err != nil {
		r.log.WithError(err).Warn("Failed to update checkpoint progress")
	}
	return nil
}

// finishCheckpoint removes the checkpoint once the collection was read to
// the end. Interrupted and page-bounded runs keep it for --resume.
func (r *run) finishCheckpoint(res pagination.Result, runErr error) {
	if r.cpMgr == nil {
		return
	}
	if runErr != nil || res.Reason == pagination.StopMaxPages {
		r.log.InfoWithFields("Checkpoint kept for resume", map[string]interface{}{
			"path": r.cpMgr.Path(),
		})
		return
	}
	if err := r.cpMgr.Delete(); err != nil {
		r.log.WithError(err).Warn("Failed to delete checkpoint")
	}
}
