package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrMaxPages is reported when a listing advertises more pages than Config.MaxPages.
var ErrMaxPages = errors.New("page limit reached")

// Config holds collector configuration
type Config struct {
	// MaxPages bounds the walk in case a server never reports a last page
	MaxPages int
	// PageTimeout bounds each page fetch (0 disables, the HTTP client timeout still applies)
	PageTimeout time.Duration
}

// DefaultConfig returns safe default configuration
func DefaultConfig() Config {
	return Config{
		MaxPages:    500,
		PageTimeout: 30 * time.Second,
	}
}

// PageFetcher fetches a single page of a listing.
// hasNext reports whether the server advertised a further page.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, pageNum int) (items []T, hasNext bool, err error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, pageNum int) ([]T, bool, error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, pageNum int) ([]T, bool, error) {
	return f(ctx, pageNum)
}

// Result is the outcome of a collection.
type Result[T any] struct {
	// Items in arrival order
	Items []T
	// Pages successfully fetched
	Pages int
	// Complete is false when the walk stopped on an error
	Complete bool
	// Err is the error that stopped the walk, nil when Complete
	Err      error
	Duration time.Duration
}

// Collector walks a listing page by page
type Collector[T any] struct {
	config Config
	logger zerolog.Logger
}

// NewCollector creates a new collector
func NewCollector[T any](config Config) *Collector[T] {
	if config.MaxPages <= 0 {
		config.MaxPages = 500
	}
	if config.PageTimeout < 0 {
		config.PageTimeout = 0
	}

	return &Collector[T]{
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// Collect requests pages 1..n sequentially until the server reports no next
// page or a request fails. A failure ends the walk early; the items gathered
// so far are returned with Complete=false.
func (c *Collector[T]) Collect(ctx context.Context, fetcher PageFetcher[T]) Result[T] {
	start := time.Now()
	result := Result[T]{}

	for page := 1; ; page++ {
		if page > c.config.MaxPages {
			result.Err = fmt.Errorf("%w: %d", ErrMaxPages, c.config.MaxPages)
			break
		}

		if err := ctx.Err(); err != nil {
			result.Err = fmt.Errorf("page %d: %w", page, err)
			break
		}

		items, hasNext, err := c.fetch(ctx, fetcher, page)
		if err != nil {
			result.Err = fmt.Errorf("page %d: %w", page, err)
			break
		}

		result.Items = append(result.Items, items...)
		result.Pages++

		c.logger.Debug().
			Int("page", page).
			Int("items", len(items)).
			Bool("has_next", hasNext).
			Msg("Page fetched")

		if !hasNext {
			result.Complete = true
			break
		}
	}

	result.Duration = time.Since(start)

	if !result.Complete {
		c.logger.Warn().
			Err(result.Err).
			Int("pages", result.Pages).
			Int("items", len(result.Items)).
			Msg("Listing walk stopped early - returning partial results")
	}

	return result
}

func (c *Collector[T]) fetch(ctx context.Context, fetcher PageFetcher[T], page int) ([]T, bool, error) {
	if c.config.PageTimeout == 0 {
		return fetcher.FetchPage(ctx, page)
	}
	pageCtx, cancel := context.WithTimeout(ctx, c.config.PageTimeout)
	defer cancel()
	return fetcher.FetchPage(pageCtx, page)
}
