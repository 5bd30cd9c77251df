package pagination

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanath1188/insta-collections-insights/pkg/logger"
)

// scripted serves pages keyed by cursor and records the cursors requested
type scripted struct {
	pages     map[string]Page[string]
	requested []string
	failOn    string
}

func (s *scripted) fetch(_ context.Context, cursor string) (Page[string], error) {
	s.requested = append(s.requested, cursor)
	if cursor == s.failOn && s.failOn != "" {
		return Page[string]{}, errors.New("boom")
	}
	return s.pages[cursor], nil
}

func collect(out *[]string) Visitor[string] {
	return func(_ context.Context, item string) error {
		*out = append(*out, item)
		return nil
	}
}

func TestRunFollowsCursorsInOrder(t *testing.T) {
	src := &scripted{pages: map[string]Page[string]{
		"":   {Items: []string{"a", "b"}, NextCursor: "c1", HasMore: true},
		"c1": {Items: []string{"c"}, NextCursor: "c2", HasMore: true},
		"c2": {Items: []string{"d"}, HasMore: false},
	}}

	var seen []string
	res, err := Run(context.Background(), Options{}, src.fetch, collect(&seen))
	require.NoError(t, err)

	assert.Equal(t, []string{"", "c1", "c2"}, src.requested)
	assert.Equal(t, []string{"a", "b", "c", "d"}, seen)
	assert.Equal(t, Result{Pages: 3, Items: 4, LastCursor: "c2", Reason: StopExhausted}, res)
}

func TestRunEmptyFirstPage(t *testing.T) {
	log := logger.NewTestLogger()
	src := &scripted{pages: map[string]Page[string]{"": {}}}

	var seen []string
	res, err := Run(context.Background(), Options{Logger: log}, src.fetch, collect(&seen))
	require.NoError(t, err)

	assert.Empty(t, seen)
	assert.Equal(t, StopEmpty, res.Reason)
	assert.Equal(t, 1, res.Pages)
	assert.True(t, log.HasMessageContaining("collection is empty"))
}

func TestRunEmptyLaterPage(t *testing.T) {
	log := logger.NewTestLogger()
	src := &scripted{pages: map[string]Page[string]{
		"":  {Items: []string{"a"}, NextCursor: "n", HasMore: true},
		"n": {},
	}}

	var seen []string
	res, err := Run(context.Background(), Options{Logger: log}, src.fetch, collect(&seen))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen)
	assert.Equal(t, StopEmpty, res.Reason)
	assert.True(t, log.HasMessage("No more items found"))
}

func TestRunEmptyPageWithMoreAvailableContinues(t *testing.T) {
	src := &scripted{pages: map[string]Page[string]{
		"":  {NextCursor: "n", HasMore: true},
		"n": {Items: []string{"z"}},
	}}

	var seen []string
	res, err := Run(context.Background(), Options{}, src.fetch, collect(&seen))
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, seen)
	assert.Equal(t, StopExhausted, res.Reason)
}

func TestRunMissingCursorStops(t *testing.T) {
	log := logger.NewTestLogger()
	src := &scripted{pages: map[string]Page[string]{
		"": {Items: []string{"a"}, HasMore: true},
	}}

	var seen []string
	res, err := Run(context.Background(), Options{Logger: log}, src.fetch, collect(&seen))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen, "items of the page are still processed")
	assert.Equal(t, StopMissingCursor, res.Reason)
	assert.Len(t, src.requested, 1)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
}

func TestRunFetchErrorKeepsPartialResult(t *testing.T) {
	src := &scripted{
		pages: map[string]Page[string]{
			"": {Items: []string{"a", "b"}, NextCursor: "bad", HasMore: true},
		},
		failOn: "bad",
	}

	var seen []string
	res, err := Run(context.Background(), Options{}, src.fetch, collect(&seen))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch page 2")
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 2, res.Items)
}

func TestRunVisitErrorAborts(t *testing.T) {
	src := &scripted{pages: map[string]Page[string]{
		"": {Items: []string{"a", "b", "c"}},
	}}
	stop := errors.New("disk full")

	calls := 0
	_, err := Run(context.Background(), Options{}, src.fetch, func(_ context.Context, item string) error {
		calls++
		if item == "b" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestRunResumeAndHooks(t *testing.T) {
	src := &scripted{pages: map[string]Page[string]{
		"c1": {Items: []string{"c"}, NextCursor: "c2", HasMore: true},
		"c2": {Items: []string{"d"}, NextCursor: "c3", HasMore: true},
	}}

	var infos []PageInfo
	var seen []string
	res, err := Run(context.Background(), Options{
		Start:    "c1",
		MaxPages: 2,
		OnPage: func(p PageInfo) error {
			infos = append(infos, p)
			return nil
		},
	}, src.fetch, collect(&seen))
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d"}, seen)
	assert.Equal(t, StopMaxPages, res.Reason)
	assert.Equal(t, "c3", res.LastCursor)
	require.Len(t, infos, 2)
	assert.Equal(t, PageInfo{Number: 2, Cursor: "c2", NextCursor: "c3", HasMore: true, Items: 1}, infos[1])
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scripted{}
	_, err := Run(ctx, Options{}, src.fetch, collect(new([]string)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.requested)
}

func TestRunCancelledDuringLastPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &scripted{pages: map[string]Page[string]{
		"": {Items: []string{"a"}, HasMore: false},
	}}

	visit := func(context.Context, string) error {
		cancel()
		return nil
	}
	res, err := Run(ctx, Options{}, src.fetch, visit)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, StopExhausted, res.Reason)
}
