package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanath1188/insta-collections-insights/pkg/checkpoint"
	"github.com/sanath1188/insta-collections-insights/pkg/classifier"
	"github.com/sanath1188/insta-collections-insights/pkg/extract"
	"github.com/sanath1188/insta-collections-insights/pkg/instagram"
	"github.com/sanath1188/insta-collections-insights/pkg/logger"
	"github.com/sanath1188/insta-collections-insights/pkg/pagination"
	"github.com/sanath1188/insta-collections-insights/pkg/storage"
)

// fakeFetcher serves pages keyed by cursor
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*instagram.CollectionPage
	errs    map[string]error
	cursors []string
}

func (f *fakeFetcher) FetchCollectionPage(_ context.Context, _, maxID string) (*instagram.CollectionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, maxID)
	if err := f.errs[maxID]; err != nil {
		return nil, err
	}
	page, ok := f.pages[maxID]
	if !ok {
		return nil, errors.New("unexpected cursor " + maxID)
	}
	return page, nil
}

// fakeClassifier answers from a map and records every caption it sees
type fakeClassifier struct {
	answers map[string]classifier.LocationInfo
	seen    []string
}

func (f *fakeClassifier) Classify(_ context.Context, caption string) classifier.LocationInfo {
	f.seen = append(f.seen, caption)
	return f.answers[caption]
}

type recordingReporter struct {
	pages   []int
	written int
	skipped int
}

func (r *recordingReporter) PageStarted(page int) { r.pages = append(r.pages, page) }
func (r *recordingReporter) RecordProcessed(_ string, written bool, _ string) {
	if written {
		r.written++
	} else {
		r.skipped++
	}
}

func item(code, caption string) instagram.Item {
	media := instagram.Media{Pk: instagram.FlexString("pk-" + code), Code: code}
	if caption != "" {
		media.Caption = &instagram.Caption{Text: caption}
	}
	return instagram.Item{Media: media}
}

func str(s string) *string { return &s }

func newCollector(t *testing.T, f PageFetcher, cls classifier.Classifier, settings Settings) *Collector {
	t.Helper()
	if settings.CheckpointDir == "" {
		settings.CheckpointDir = t.TempDir()
	}
	return New(f, cls, settings, logger.NewTestLogger())
}

func runConfig(t *testing.T) RunConfig {
	t.Helper()
	return RunConfig{
		CollectionID:   "17900",
		CollectionName: "Food",
		TablePath:      filepath.Join(t.TempDir(), "out", "Food.csv"),
	}
}

func readRecords(t *testing.T, path string) []storage.Record {
	t.Helper()
	records, err := storage.ReadRecords(path)
	require.NoError(t, err)
	return records
}

func TestCollectSinglePage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{
		"": {Items: []instagram.Item{item("abc", "Pizza in Naples"), item("def", "")}, MoreAvailable: false},
	}}
	cls := &fakeClassifier{answers: map[string]classifier.LocationInfo{
		"Pizza in Naples": {City: str("Naples"), Country: str("Italy")},
	}}
	c := newCollector(t, fetcher, cls, Settings{})
	rc := runConfig(t)

	summary, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, []string{""}, fetcher.cursors, "no second fetch")
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 2, summary.Items)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 1, summary.Classified)
	assert.True(t, summary.Sorted)
	assert.Equal(t, pagination.StopExhausted, summary.StopReason)

	records := readRecords(t, rc.TablePath)
	require.Len(t, records, 2)
	assert.Equal(t, "https://www.instagram.com/reel/def/", records[0].URL, "null country sorts first")
	assert.Nil(t, records[0].Country)
	assert.Equal(t, "https://www.instagram.com/reel/abc/", records[1].URL)
	assert.Equal(t, "Italy", *records[1].Country)
}

func TestCollectStopsOnEmptySecondPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{
		"":     {Items: []instagram.Item{item("abc", "x")}, MoreAvailable: true, NextMaxID: "tok2"},
		"tok2": {MoreAvailable: false},
	}}
	c := newCollector(t, fetcher, &fakeClassifier{}, Settings{})
	rc := runConfig(t)

	summary, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "tok2"}, fetcher.cursors)
	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, pagination.StopEmpty, summary.StopReason)
	assert.Len(t, readRecords(t, rc.TablePath), 1)
}

func TestCollectSkipsExistingURLWithoutClassifying(t *testing.T) {
	rc := runConfig(t)
	store, err := storage.Open(rc.TablePath, storage.Options{})
	require.NoError(t, err)
	_, err = store.Merge(storage.Record{URL: "https://www.instagram.com/reel/abc/", Caption: "old"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{
		"": {Items: []instagram.Item{item("abc", "new caption"), item("ghi", "other")}},
	}}
	cls := &fakeClassifier{}
	c := newCollector(t, fetcher, cls, Settings{})

	summary, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SkippedDuplicate)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, []string{"other"}, cls.seen)

	records := readRecords(t, rc.TablePath)
	require.Len(t, records, 2)
	for _, r := range records {
		if r.URL == "https://www.instagram.com/reel/abc/" {
			assert.Equal(t, "old", r.Caption, "existing row is never merged")
		}
	}
}

func TestCollectIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{
		"": {Items: []instagram.Item{item("a", "1"), item("b", "2"), item("a", "1 again")}},
	}}
	c := newCollector(t, fetcher, &fakeClassifier{}, Settings{})
	rc := runConfig(t)

	first, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Written)
	assert.Equal(t, 1, first.SkippedDuplicate)

	before, err := os.ReadFile(rc.TablePath)
	require.NoError(t, err)

	second, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 3, second.SkippedDuplicate)

	after, err := os.ReadFile(rc.TablePath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestCollectMissingCodePolicies(t *testing.T) {
	items := []instagram.Item{
		{Media: instagram.Media{Pk: "1", Caption: &instagram.Caption{Text: "one"}}},
		{Media: instagram.Media{Pk: "2", Caption: &instagram.Caption{Text: "two"}}},
		item("abc", "coded"),
	}

	tests := []struct {
		policy      extract.MissingCodePolicy
		wantRows    int
		wantPolicy  int
		wantDupSkip int
	}{
		{extract.PolicyPlaceholder, 2, 0, 1},
		{extract.PolicySkip, 1, 2, 0},
		{extract.PolicySynthetic, 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{"": {Items: items}}}
			c := newCollector(t, fetcher, &fakeClassifier{}, Settings{MissingCodePolicy: tt.policy})
			rc := runConfig(t)

			summary, err := c.Collect(context.Background(), rc)
			require.NoError(t, err)
			assert.Len(t, readRecords(t, rc.TablePath), tt.wantRows)
			assert.Equal(t, tt.wantPolicy, summary.SkippedPolicy)
			assert.Equal(t, tt.wantDupSkip, summary.SkippedDuplicate)
		})
	}
}

func TestCollectFetchErrorStillSorts(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]*instagram.CollectionPage{
			"": {Items: []instagram.Item{item("z", "zed"), item("a", "ay")}, MoreAvailable: true, NextMaxID: "p2"},
		},
		errs: map[string]error{"p2": errors.New("connection reset")},
	}
	cls := &fakeClassifier{answers: map[string]classifier.LocationInfo{
		"zed": {Country: str("Zambia")},
		"ay":  {Country: str("Angola")},
	}}
	c := newCollector(t, fetcher, cls, Settings{})
	rc := runConfig(t)

	summary, err := c.Collect(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, summary.Sorted)
	assert.Equal(t, 2, summary.Written)

	records := readRecords(t, rc.TablePath)
	require.Len(t, records, 2)
	assert.Equal(t, "Angola", *records[0].Country)
}

func TestCollectEmptyCollectionCreatesNothing(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{"": {}}}
	c := newCollector(t, fetcher, &fakeClassifier{}, Settings{})
	rc := runConfig(t)

	summary, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)
	assert.False(t, summary.Sorted)
	assert.Equal(t, pagination.StopEmpty, summary.StopReason)

	_, err = os.Stat(rc.TablePath)
	assert.True(t, os.IsNotExist(err))
}

func TestCollectSchemaMismatchAborts(t *testing.T) {
	rc := runConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(rc.TablePath), 0755))
	require.NoError(t, os.WriteFile(rc.TablePath, []byte("Reel URL,Caption\n"), 0644))

	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{"": {Items: []instagram.Item{item("a", "")}}}}
	c := newCollector(t, fetcher, &fakeClassifier{}, Settings{})

	summary, err := c.Collect(context.Background(), rc)
	assert.ErrorIs(t, err, storage.ErrSchemaMismatch)
	assert.False(t, summary.Sorted)
}

func TestCollectAdversarialCursorTerminates(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{
		"": {Items: []instagram.Item{item("a", "")}, MoreAvailable: true},
	}}
	c := newCollector(t, fetcher, &fakeClassifier{}, Settings{})

	summary, err := c.Collect(context.Background(), runConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, pagination.StopMissingCursor, summary.StopReason)
}

func TestCollectResumeFromCheckpoint(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{
		"":   {Items: []instagram.Item{item("a", "")}, MoreAvailable: true, NextMaxID: "p2"},
		"p2": {Items: []instagram.Item{item("b", "")}, MoreAvailable: true, NextMaxID: "p3"},
		"p3": {Items: []instagram.Item{item("c", "")}},
	}}
	dir := t.TempDir()
	reporter := &recordingReporter{}
	c := newCollector(t, fetcher, &fakeClassifier{}, Settings{CheckpointDir: dir})
	c.SetReporter(reporter)
	rc := runConfig(t)
	rc.MaxPages = 2

	summary, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, pagination.StopMaxPages, summary.StopReason)
	assert.Equal(t, []int{1, 2}, reporter.pages)

	mgr, err := checkpoint.NewManagerAt(dir, rc.CollectionID, nil)
	require.NoError(t, err)
	cp, err := mgr.Load()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "p3", cp.NextCursor)
	assert.Equal(t, 2, cp.LastProcessedPage)
	assert.Equal(t, 2, cp.TotalWritten)

	_, err = c.Collect(context.Background(), RunConfig{
		CollectionID: rc.CollectionID, CollectionName: rc.CollectionName, TablePath: rc.TablePath,
	})
	assert.ErrorIs(t, err, ErrCheckpointExists)

	rc.MaxPages = 0
	rc.Resume = true
	fetcher.cursors = nil
	summary, err = c.Collect(context.Background(), rc)
	require.NoError(t, err)
	assert.True(t, summary.Resumed)
	assert.Equal(t, []string{"p3"}, fetcher.cursors)
	assert.Equal(t, []int{1, 2, 3}, reporter.pages)
	assert.Len(t, readRecords(t, rc.TablePath), 3)
	assert.False(t, mgr.Exists(), "completed run removes its checkpoint")
}

func TestCollectForceRestartIgnoresCheckpoint(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{
		"":   {Items: []instagram.Item{item("a", "")}, MoreAvailable: true, NextMaxID: "p2"},
		"p2": {Items: []instagram.Item{item("b", "")}},
	}}
	c := newCollector(t, fetcher, &fakeClassifier{}, Settings{})
	rc := runConfig(t)
	rc.MaxPages = 1

	_, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)

	rc.MaxPages = 0
	rc.ForceRestart = true
	fetcher.cursors = nil
	summary, err := c.Collect(context.Background(), rc)
	require.NoError(t, err)
	assert.False(t, summary.Resumed)
	assert.Equal(t, []string{"", "p2"}, fetcher.cursors)
	assert.Equal(t, 1, summary.Written)
}

func TestCollectRequiresIDAndTable(t *testing.T) {
	c := New(&fakeFetcher{}, nil, Settings{DisableCheckpoints: true}, logger.NewNopLogger())

	_, err := c.Collect(context.Background(), RunConfig{TablePath: "x.csv"})
	assert.Error(t, err)
	_, err = c.Collect(context.Background(), RunConfig{CollectionID: "1"})
	assert.Error(t, err)
}

func TestCollectCancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{"": {}}}
	c := newCollector(t, fetcher, &fakeClassifier{}, Settings{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Collect(ctx, runConfig(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fetcher.cursors)
}

// cancellingClassifier interrupts the run while a caption is being classified
type cancellingClassifier struct {
	cancel context.CancelFunc
}

func (c *cancellingClassifier) Classify(context.Context, string) classifier.LocationInfo {
	c.cancel()
	return classifier.LocationInfo{}
}

func TestCollectCancelledDuringClassify(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*instagram.CollectionPage{
		"": {Items: []instagram.Item{item("abc", "Eiffel tower at night")}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()
	c := newCollector(t, fetcher, &cancellingClassifier{cancel: cancel}, Settings{CheckpointDir: dir})
	rc := runConfig(t)

	_, err := c.Collect(ctx, rc)
	assert.ErrorIs(t, err, context.Canceled)

	if _, statErr := os.Stat(rc.TablePath); statErr == nil {
		assert.Empty(t, readRecords(t, rc.TablePath), "interrupted item must not be stored")
	}

	mgr, err := checkpoint.NewManagerAt(dir, rc.CollectionID, nil)
	require.NoError(t, err)
	assert.True(t, mgr.Exists(), "interrupted run keeps its checkpoint")
}
