// Package classifier turns free-text captions into structured locations.
//
// A Service wraps a Backend (Gemini or Anthropic) and guarantees that
// classification never fails the caller: every error degrades to an empty
// LocationInfo, is logged and counted. Real calls are followed by a fixed
// pause, and results can be cached in SQLite.
package classifier

import (
	"context"
	"strings"
	"sync"

	"github.com/sanath1188/insta-collections-insights/pkg/logger"
	"github.com/sanath1188/insta-collections-insights/pkg/ratelimit"
)

// Backend performs one classification request
type Backend interface {
	// Name identifies the provider and model, for logs and cache keys
	Name() string
	Extract(ctx context.Context, caption string) (LocationInfo, error)
}

// Classifier is what the collector depends on
type Classifier interface {
	Classify(ctx context.Context, caption string) LocationInfo
}

// Stats counts what a Service has done
type Stats struct {
	Calls     int
	CacheHits int
	Failures  int
	Skipped   int
}

// Options configures a Service. A nil Backend disables network calls, which
// is how a missing API key is handled.
type Options struct {
	Backend Backend
	Pacer   ratelimit.Pacer
	Cache   *Cache
	Logger  logger.Logger
}

// Service is the never-failing classifier
type Service struct {
	backend Backend
	pacer   ratelimit.Pacer
	cache   *Cache
	logger  logger.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Service
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Pacer == nil {
		opts.Pacer = ratelimit.FixedDelay(0)
	}
	return &Service{
		backend: opts.Backend,
		pacer:   opts.Pacer,
		cache:   opts.Cache,
		logger:  opts.Logger,
	}
}

// Enabled reports whether captions will be sent anywhere
func (s *Service) Enabled() bool {
	return s.backend != nil
}

// Classify returns the location for caption, or an empty LocationInfo when
// the caption is blank, no backend is configured, or the call fails.
func (s *Service) Classify(ctx context.Context, caption string) LocationInfo {
	if strings.TrimSpace(caption) == "" || s.backend == nil {
		s.count(func(st *Stats) { st.Skipped++ })
		return LocationInfo{}
	}
	provider := s.backend.Name()

	if s.cache != nil {
		if info, ok, err := s.cache.Get(ctx, provider, caption); err != nil {
			s.logger.WithError(err).Warn("Classification cache read failed")
		} else if ok {
			s.count(func(st *Stats) { st.CacheHits++ })
			logger.LogClassification(s.logger, provider, true, info.IsEmpty(), nil)
			return info
		}
	}

	info, err := s.backend.Extract(ctx, caption)
	s.count(func(st *Stats) { st.Calls++ })
	if err != nil {
		s.count(func(st *Stats) { st.Failures++ })
		info = LocationInfo{}
	} else if s.cache != nil {
		if cerr := s.cache.Put(ctx, provider, caption, info); cerr != nil {
			s.logger.WithError(cerr).Warn("Classification cache write failed")
		}
	}
	logger.LogClassification(s.logger, provider, false, info.IsEmpty(), err)

	// cancellation surfaces at the next page fetch
	_ = s.pacer.Pause(ctx)
	return info
}

// Stats returns a snapshot of the counters
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Service) count(f func(*Stats)) {
	s.mu.Lock()
	f(&s.stats)
	s.mu.Unlock()
}
