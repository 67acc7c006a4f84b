// Package discovery coordinates loan product fetches for the aggregator
// listing: every descriptor change triggers a re-fetch, search keystrokes
// are debounced, and stale responses are dropped.
package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"edumate-api/internal/catalog"
	"edumate-api/internal/models"
	"edumate-api/internal/utils"
)

// DefaultDebounce is the deferral applied to search-only changes.
const DefaultDebounce = 500 * time.Millisecond

// Result is one page of loan products with pagination metadata.
type Result struct {
	Products   []*models.LoanProduct `json:"products"`
	Pagination catalog.Pagination    `json:"pagination"`
}

// ProductSource supplies loan product pages for a descriptor. The pgx
// repository implements this in production.
type ProductSource interface {
	List(ctx context.Context, d catalog.Descriptor) (*Result, error)
}

// Fetcher owns the current descriptor and re-runs the product fetch when
// it changes. Search-only changes are debounced; any later change cancels
// a pending deferred fetch. Responses carry a request sequence number and
// are applied only when still the latest issued, so a slow early response
// can never overwrite a newer one.
type Fetcher struct {
	mu       sync.Mutex
	source   ProductSource
	desc     catalog.Descriptor
	debounce time.Duration

	timer  *time.Timer
	reqSeq uint64

	result *Result
	err    error

	// onUpdate fires after a response (or error) is applied.
	onUpdate func(*Result, error)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewFetcher creates a fetcher over the given source.
func NewFetcher(source ProductSource, onUpdate func(*Result, error)) *Fetcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Fetcher{
		source:   source,
		debounce: DefaultDebounce,
		onUpdate: onUpdate,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetDebounce overrides the search debounce interval.
func (f *Fetcher) SetDebounce(d time.Duration) {
	f.mu.Lock()
	f.debounce = d
	f.mu.Unlock()
}

// Descriptor returns a snapshot of the current descriptor.
func (f *Fetcher) Descriptor() catalog.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.desc
}

// Latest returns the most recently applied result and error.
func (f *Fetcher) Latest() (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

// SetSearch updates the search term. A non-empty search defers the fetch
// by the debounce interval; clearing the search to "" fetches immediately,
// since an empty search is otherwise indistinguishable from a filter
// change.
func (f *Fetcher) SetSearch(search string) {
	f.mu.Lock()
	f.desc.Search = search
	if search == "" {
		f.fireLocked()
		f.mu.Unlock()
		return
	}
	f.scheduleLocked()
	f.mu.Unlock()
}

// SetFilters replaces the filter set and fetches immediately.
func (f *Fetcher) SetFilters(filters catalog.FilterInput) {
	f.mu.Lock()
	f.desc.Filters = filters
	f.desc.Pagination.Page = 1
	f.fireLocked()
	f.mu.Unlock()
}

// SetSort replaces the sort and fetches immediately.
func (f *Fetcher) SetSort(s catalog.Sort) {
	f.mu.Lock()
	f.desc.Sort = s
	f.desc.Pagination.Page = 1
	f.fireLocked()
	f.mu.Unlock()
}

// SetPage moves to a page and fetches immediately.
func (f *Fetcher) SetPage(page int) {
	f.mu.Lock()
	f.desc.Pagination.Page = page
	f.fireLocked()
	f.mu.Unlock()
}

// SetPageSize changes the page size and fetches immediately.
func (f *Fetcher) SetPageSize(size int) {
	f.mu.Lock()
	f.desc.Pagination.Size = size
	f.desc.Pagination.Page = 1
	f.fireLocked()
	f.mu.Unlock()
}

// SetShowFavoritesOnly toggles the favorites-only view and fetches
// immediately.
func (f *Fetcher) SetShowFavoritesOnly(on bool) {
	f.mu.Lock()
	f.desc.ShowFavoritesOnly = on
	f.desc.Pagination.Page = 1
	f.fireLocked()
	f.mu.Unlock()
}

// Refresh re-runs the fetch with the current descriptor.
func (f *Fetcher) Refresh() {
	f.mu.Lock()
	f.fireLocked()
	f.mu.Unlock()
}

// Close cancels any pending deferred fetch and in-flight request.
func (f *Fetcher) Close() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
	f.cancel()
}

// scheduleLocked defers a fetch by the debounce interval, superseding any
// pending one. Callers hold f.mu.
func (f *Fetcher) scheduleLocked() {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, func() {
		f.mu.Lock()
		f.fireLocked()
		f.mu.Unlock()
	})
}

// fireLocked issues a fetch for the current descriptor. Callers hold f.mu.
// The pending debounce timer, if any, is cancelled: an immediate change
// supersedes a deferred search fetch.
func (f *Fetcher) fireLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}

	f.reqSeq++
	seq := f.reqSeq
	desc := f.desc
	desc.Pagination.Normalize()

	go func() {
		result, err := f.source.List(f.ctx, desc)

		f.mu.Lock()
		if seq != f.reqSeq {
			// A newer request was issued while this one was in flight.
			f.mu.Unlock()
			return
		}
		f.result = result
		f.err = err
		onUpdate := f.onUpdate
		f.mu.Unlock()

		if err != nil {
			utils.GetLogger().Warn("loan product fetch failed",
				zap.String("descriptor", desc.Identity()),
				zap.Error(err),
			)
		}
		if onUpdate != nil {
			onUpdate(result, err)
		}
	}()
}
