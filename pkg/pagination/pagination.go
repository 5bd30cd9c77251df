// Package pagination drives a cursor-paginated feed until the source stops
// signalling more pages.
package pagination

import (
	"context"
	"fmt"

	"github.com/sanath1188/insta-collections-insights/pkg/logger"
)

// StopReason explains why Run returned without error
type StopReason string

const (
	// StopExhausted means the source reported no more pages
	StopExhausted StopReason = "exhausted"
	// StopEmpty means a page had no items and no more pages were signalled
	StopEmpty StopReason = "empty"
	// StopMissingCursor means more pages were signalled without a cursor
	StopMissingCursor StopReason = "missing_cursor"
	// StopMaxPages means the configured page bound was reached
	StopMaxPages StopReason = "max_pages"
)

// Page is one fetched page. NextCursor is only meaningful when HasMore.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// Fetcher requests the page at cursor; "" is the first page
type Fetcher[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Visitor handles one item. Returning an error aborts the run.
type Visitor[T any] func(ctx context.Context, item T) error

// PageInfo is handed to the OnPage hook after a page's items are visited
type PageInfo struct {
	Number     int
	Cursor     string
	NextCursor string
	HasMore    bool
	Items      int
}

// Options tunes a run
type Options struct {
	// Start is the cursor to begin from, for resuming
	Start string
	// MaxPages stops after this many pages; 0 is unbounded
	MaxPages int
	// OnPage runs after every processed page
	OnPage func(PageInfo) error
	Logger logger.Logger
}

// Result summarises a completed run
type Result struct {
	Pages      int
	Items      int
	LastCursor string
	Reason     StopReason
}

// Run fetches pages starting at opts.Start and visits every item in order.
// A fetch or visit error stops the run and is returned with the partial
// result; pages are never retried.
func Run[T any](ctx context.Context, opts Options, fetch Fetcher[T], visit Visitor[T]) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	res := Result{LastCursor: opts.Start}
	cursor := opts.Start

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return res, fmt.Errorf("fetch page %d: %w", res.Pages+1, err)
		}
		res.Pages++
		res.LastCursor = cursor

		if len(page.Items) == 0 && !page.HasMore {
			if res.Pages == 1 && cursor == "" {
				log.Info("No items found, collection is empty or inaccessible")
			} else {
				log.Info("No more items found")
			}
			res.Reason = StopEmpty
			return res, nil
		}

		for _, item := range page.Items {
			if err := visit(ctx, item); err != nil {
				return res, err
			}
			res.Items++
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if opts.OnPage != nil {
			if err := opts.OnPage(PageInfo{
				Number:     res.Pages,
				Cursor:     cursor,
				NextCursor: page.NextCursor,
				HasMore:    page.HasMore,
				Items:      len(page.Items),
			}); err != nil {
				return res, err
			}
		}

		if !page.HasMore {
			res.Reason = StopExhausted
			return res, nil
		}
		if page.NextCursor == "" {
			log.WarnWithFields("More items signalled without a cursor, stopping", map[string]interface{}{
				"page": res.Pages,
			})
			res.Reason = StopMissingCursor
			return res, nil
		}
		if opts.MaxPages > 0 && res.Pages >= opts.MaxPages {
			res.LastCursor = page.NextCursor
			res.Reason = StopMaxPages
			return res, nil
		}
		cursor = page.NextCursor
	}
}
