package search

import (
	"context"
	"sync"
)

// Result is what a view exposes after a filter change or a "load more".
type Result struct {
	// Items is the window just added.
	Items []Document `json:"items"`
	// Page is the current 1-based page.
	Page int `json:"page"`
	// Total is the number of filtered records.
	Total int `json:"total"`
	// Shown is the number of records revealed so far.
	Shown   int  `json:"shown"`
	HasMore bool `json:"has_more"`
	// Incomplete is set when the corpus build stopped early.
	Incomplete bool `json:"incomplete"`
}

// View is the filter and pagination state over a corpus.
type View struct {
	mu       sync.Mutex
	corpus   *Corpus
	filters  Filters
	page     int
	filtered []Document
	shown    []Document
}

// NewView creates a view with default filters.
func NewView(corpus *Corpus) *View {
	return &View{
		corpus:  corpus,
		filters: DefaultFilters(),
		page:    1,
	}
}

// Filters returns the current filter state.
func (v *View) Filters() Filters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters
}

// Apply replaces the filter state, rebuilds the filtered list, and resets the
// view to page 1. The corpus is built first if needed; a partial build is not
// an error here, it is reported through Result.Incomplete.
func (v *View) Apply(ctx context.Context, f Filters) Result {
	// Build outside the view lock: EnsureBuilt serializes on its own.
	_ = v.corpus.EnsureBuilt(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	v.filters = f
	v.page = 1
	v.filtered = Apply(v.corpus.Documents(), f)
	items := Window(v.filtered, 1)
	v.shown = append([]Document(nil), items...)

	return v.result(items)
}

// SetQuery changes only the free-text query and re-applies.
func (v *View) SetQuery(ctx context.Context, query string) Result {
	f := v.Filters()
	f.Query = query
	return v.Apply(ctx, f)
}

// LoadMore advances one page and appends its window to the shown items.
// It returns false when nothing is left to load.
func (v *View) LoadMore() (Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !HasMore(v.filtered, v.page) {
		return v.result(nil), false
	}

	v.page++
	items := Window(v.filtered, v.page)
	v.shown = append(v.shown, items...)
	return v.result(items), true
}

// Reset restores the default filters and re-applies them.
func (v *View) Reset(ctx context.Context) Result {
	return v.Apply(ctx, DefaultFilters())
}

// Shown returns every record revealed since the last filter change.
func (v *View) Shown() []Document {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Document(nil), v.shown...)
}

// Find returns a shown record by id.
func (v *View) Find(id int) (Document, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, d := range v.shown {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// result must be called with v.mu held.
func (v *View) result(items []Document) Result {
	return Result{
		Items:      items,
		Page:       v.page,
		Total:      len(v.filtered),
		Shown:      len(v.shown),
		HasMore:    HasMore(v.filtered, v.page),
		Incomplete: !v.corpus.Complete(),
	}
}
