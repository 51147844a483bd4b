package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/michaekong/memocloud/pkg/memoire"
	"github.com/michaekong/memocloud/pkg/pagination"
)

// Prometheus metrics for corpus builds.
var (
	corpusRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "memocloud_corpus_records",
		Help: "Number of records held in the session corpus",
	})

	corpusBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "memocloud_corpus_build_seconds",
		Help:    "Duration of corpus builds in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	corpusPartialBuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memocloud_corpus_partial_builds_total",
		Help: "Corpus builds that stopped early on a failed page",
	})
)

// ListingSource yields listing pages for a server-side ordering.
type ListingSource interface {
	Listing(ordering string) pagination.PageFetcher[memoire.Memoire]
}

// CorpusConfig configures a Corpus.
type CorpusConfig struct {
	// HomeInstitution is matched against each record's institution list.
	HomeInstitution string
	// Ordering is passed to the server on every page request.
	Ordering string
	// Pagination bounds the listing walk.
	Pagination pagination.Config
}

// Corpus is the complete, normalized listing, built once per session.
type Corpus struct {
	mu       sync.RWMutex
	source   ListingSource
	config   CorpusConfig
	docs     []Document
	built    bool
	complete bool
	pages    int
	err      error
	logger   zerolog.Logger
}

// NewCorpus creates an empty corpus backed by source.
func NewCorpus(source ListingSource, cfg CorpusConfig) *Corpus {
	if cfg.Ordering == "" {
		cfg.Ordering = DefaultSort
	}
	return &Corpus{
		source: source,
		config: cfg,
		logger: log.With().Str("component", "corpus").Logger(),
	}
}

// EnsureBuilt fetches every listing page once. Later calls are no-ops.
// A failed page ends the build early; the corpus is still marked built and
// Complete reports false. The returned error is that failure, if any.
//
// A build cut short because ctx itself was cancelled is discarded: the corpus
// stays unbuilt and the next caller starts over.
func (c *Corpus) EnsureBuilt(ctx context.Context) error {
	c.mu.RLock()
	if c.built {
		err := c.err
		c.mu.RUnlock()
		return err
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have built it while we waited.
	if c.built {
		return c.err
	}

	c.logger.Info().Str("ordering", c.config.Ordering).Msg("Building corpus")

	collector := pagination.NewCollector[memoire.Memoire](c.config.Pagination)
	result := collector.Collect(ctx, c.source.Listing(c.config.Ordering))

	if ctxErr := ctx.Err(); ctxErr != nil && !result.Complete {
		c.logger.Warn().
			Err(ctxErr).
			Int("pages", result.Pages).
			Int("records", len(result.Items)).
			Msg("Corpus build abandoned by caller")
		return fmt.Errorf("corpus build abandoned: %w", ctxErr)
	}

	docs := make([]Document, 0, len(result.Items))
	for _, m := range result.Items {
		docs = append(docs, Normalize(m, c.config.HomeInstitution))
	}

	c.docs = docs
	c.pages = result.Pages
	c.complete = result.Complete
	c.err = result.Err
	c.built = true

	corpusRecords.Set(float64(len(docs)))
	corpusBuildSeconds.Observe(result.Duration.Seconds())

	event := c.logger.Info()
	if !result.Complete {
		corpusPartialBuildsTotal.Inc()
		event = c.logger.Warn().Err(result.Err)
	}
	event.
		Int("pages", result.Pages).
		Int("records", len(docs)).
		Bool("complete", result.Complete).
		Dur("duration", result.Duration).
		Msg("Corpus built")

	return c.err
}

// Documents returns the corpus in server order. The slice must not be modified.
func (c *Corpus) Documents() []Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.docs
}

// Built reports whether EnsureBuilt has run.
func (c *Corpus) Built() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.built
}

// Complete reports whether the last build reached the final page.
func (c *Corpus) Complete() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.built && c.complete
}

// Err returns the failure that stopped the build, if any.
func (c *Corpus) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Len returns the number of records held.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Status summarizes the corpus for health output.
type Status struct {
	Built    bool   `json:"built"`
	Complete bool   `json:"complete"`
	Records  int    `json:"records"`
	Pages    int    `json:"pages"`
	Error    string `json:"error,omitempty"`
	Ordering string `json:"ordering"`
}

// Status returns a snapshot of the corpus state.
func (c *Corpus) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Status{
		Built:    c.built,
		Complete: c.built && c.complete,
		Records:  len(c.docs),
		Pages:    c.pages,
		Ordering: c.config.Ordering,
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}
