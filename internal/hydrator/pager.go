package hydrator

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/yourorg/feed-sync/feed"
	"github.com/yourorg/feed-sync/internal/config"
)

// ListingFetcher returns one window of the listing resource.
type ListingFetcher interface {
	Listings(ctx context.Context, w feed.PageWindow, filter string) ([]feed.RawListing, error)
}

// Pager walks the listing resource window by window.
//
// Backfill walks exactly [StartPage, EndPage] whatever the page sizes are.
// Incremental starts at StartPage (1 when unset) and keeps extending the
// upper bound by one page until a page comes back short.
type Pager struct {
	Feed      ListingFetcher
	Mode      config.Mode
	StartPage int
	EndPage   int
	PageSize  int
	Filter    string
	Pause     time.Duration
}

// Pages lazily fetches pages in order. A fetch error is yielded once and
// ends the sequence.
func (p *Pager) Pages(ctx context.Context) iter.Seq2[feed.Page, error] {
	return func(yield func(feed.Page, error) bool) {
		size := p.PageSize
		if size <= 0 {
			size = feed.DefaultPageSize
		}
		start := p.StartPage
		if start < 1 {
			start = 1
		}
		end := start
		if p.Mode == config.ModeBackfill {
			end = p.EndPage
		}

		for page := start; page <= end; page++ {
			if page > start {
				if err := sleep(ctx, p.Pause); err != nil {
					yield(feed.Page{}, err)
					return
				}
			} else if err := ctx.Err(); err != nil {
				yield(feed.Page{}, err)
				return
			}

			w := feed.PageWindow{Page: page, Size: size}
			items, err := p.Feed.Listings(ctx, w, p.Filter)
			if err != nil {
				yield(feed.Page{Window: w}, fmt.Errorf("fetch page %d: %w", page, err))
				return
			}
			pg := feed.Page{Window: w, Items: items}
			if !yield(pg, nil) {
				return
			}
			if p.Mode != config.ModeBackfill && !pg.Short() {
				end = page + 1
			}
		}
	}
}
