package classifier

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanath1188/insta-collections-insights/pkg/logger"
)

func str(s string) *string { return &s }

type fakeBackend struct {
	calls  []string
	result LocationInfo
	err    error
}

func (f *fakeBackend) Name() string { return "fake/model" }

func (f *fakeBackend) Extract(_ context.Context, caption string) (LocationInfo, error) {
	f.calls = append(f.calls, caption)
	return f.result, f.err
}

type countingPacer struct{ pauses int }

func (p *countingPacer) Pause(context.Context) error {
	p.pauses++
	return nil
}

func TestClassifyBlankCaptionMakesNoCall(t *testing.T) {
	backend := &fakeBackend{result: LocationInfo{City: str("Goa")}}
	pacer := &countingPacer{}
	svc := New(Options{Backend: backend, Pacer: pacer})

	for _, caption := range []string{"", "   ", "\n\t"} {
		assert.True(t, svc.Classify(context.Background(), caption).IsEmpty())
	}
	assert.Empty(t, backend.calls)
	assert.Zero(t, pacer.pauses)
	assert.Equal(t, 3, svc.Stats().Skipped)
}

func TestClassifyWithoutBackend(t *testing.T) {
	svc := New(Options{})
	assert.False(t, svc.Enabled())
	assert.True(t, svc.Classify(context.Background(), "Eiffel Tower at dusk").IsEmpty())
}

func TestClassifyPausesAfterRealCall(t *testing.T) {
	backend := &fakeBackend{result: LocationInfo{PlaceName: str("Eiffel Tower"), City: str("Paris"), Country: str("France")}}
	pacer := &countingPacer{}
	svc := New(Options{Backend: backend, Pacer: pacer})

	info := svc.Classify(context.Background(), "Eiffel Tower at dusk")
	assert.Equal(t, "Paris", *info.City)
	assert.Nil(t, info.State)
	assert.Equal(t, 1, pacer.pauses)
	assert.Equal(t, Stats{Calls: 1}, svc.Stats())
}

func TestClassifyDegradesOnFailure(t *testing.T) {
	log := logger.NewTestLogger()
	backend := &fakeBackend{result: LocationInfo{City: str("ignored")}, err: errors.New("status 500")}
	pacer := &countingPacer{}
	svc := New(Options{Backend: backend, Pacer: pacer, Logger: log})

	info := svc.Classify(context.Background(), "somewhere nice")
	assert.True(t, info.IsEmpty())
	assert.Equal(t, 1, pacer.pauses, "failed calls are still paced")
	assert.Equal(t, 1, svc.Stats().Failures)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
}

func TestClassifyUsesCache(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, filepath.Join(t.TempDir(), "cache", "classify.db"))
	require.NoError(t, err)
	defer cache.Close()

	backend := &fakeBackend{result: LocationInfo{City: str("Kyoto"), Country: str("Japan")}}
	pacer := &countingPacer{}
	svc := New(Options{Backend: backend, Pacer: pacer, Cache: cache})

	first := svc.Classify(ctx, "Fushimi Inari ")
	second := svc.Classify(ctx, "  Fushimi Inari")
	assert.Equal(t, first, second)
	assert.Len(t, backend.calls, 1, "trimmed caption hits the cache")
	assert.Equal(t, 1, pacer.pauses, "cache hits are not paced")
	assert.Equal(t, 1, svc.Stats().CacheHits)
}

func TestClassifyDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, filepath.Join(t.TempDir(), "classify.db"))
	require.NoError(t, err)
	defer cache.Close()

	backend := &fakeBackend{err: errors.New("timeout")}
	svc := New(Options{Backend: backend, Cache: cache})

	svc.Classify(ctx, "Lisbon tram 28")
	svc.Classify(ctx, "Lisbon tram 28")
	assert.Len(t, backend.calls, 2)

	n, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCacheSeparatesProviders(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, filepath.Join(t.TempDir(), "classify.db"))
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, "gemini/a", "caption", LocationInfo{Country: str("Peru")}))

	got, ok, err := cache.Get(ctx, "gemini/a", "caption")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Peru", *got.Country)

	_, ok, err = cache.Get(ctx, "anthropic/b", "caption")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseLocationJSON(t *testing.T) {
	info, err := ParseLocationJSON(`{"place_name": "Joe's Pizza", "city": "New York", "state": "NY", "country": "USA"}`)
	require.NoError(t, err)
	assert.Equal(t, "Joe's Pizza, New York, NY, USA", info.String())

	info, err = ParseLocationJSON("```json\n{\"place_name\": null, \"city\": \"Unknown\", \"state\": \"null\", \"country\": \" India \"}\n```")
	require.NoError(t, err)
	assert.Nil(t, info.PlaceName)
	assert.Nil(t, info.City)
	assert.Nil(t, info.State)
	assert.Equal(t, "India", *info.Country)

	info, err = ParseLocationJSON(`{"city": 42}`)
	require.NoError(t, err)
	assert.True(t, info.IsEmpty())

	_, err = ParseLocationJSON(`not json`)
	assert.Error(t, err)

	assert.Equal(t, "unknown", LocationInfo{}.String())
}
