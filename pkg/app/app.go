// Package app holds the application context: every component a front end
// needs, constructed explicitly from a config.Config.
//
// An App owns one session corpus. The corpus is fetched at most once during
// the App's lifetime; filters, pagination and interactive queries all read
// from it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/michaekong/memocloud/pkg/analytics"
	"github.com/michaekong/memocloud/pkg/api"
	"github.com/michaekong/memocloud/pkg/client"
	"github.com/michaekong/memocloud/pkg/config"
	"github.com/michaekong/memocloud/pkg/debounce"
	"github.com/michaekong/memocloud/pkg/logging"
	"github.com/michaekong/memocloud/pkg/memoire"
	"github.com/michaekong/memocloud/pkg/pagination"
	"github.com/michaekong/memocloud/pkg/search"
	"github.com/michaekong/memocloud/pkg/session"
)

// App is the application context.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	redis     *redis.Client
	ownsRedis bool
	http      *client.Client
	api       *api.Service
	session   *session.Session
	corpus    *search.Corpus
	view      *search.View

	debouncer *debounce.Debouncer[string]
	resultMu  sync.Mutex
	onResult  func(search.Result)

	// ctx bounds work started by debounced queries; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	now        func() time.Time
	httpClient *http.Client
	closeOnce  sync.Once
}

// Option customizes an App.
type Option func(*App)

// WithRedis uses an existing Redis client instead of dialing cfg.Redis.
// The caller keeps ownership of it.
func WithRedis(rdb *redis.Client) Option {
	return func(a *App) { a.redis = rdb }
}

// WithSession uses an already opened session.
func WithSession(s *session.Session) Option {
	return func(a *App) { a.session = s }
}

// WithOnResult sets the callback that receives results of debounced queries.
func WithOnResult(fn func(search.Result)) Option {
	return func(a *App) { a.onResult = fn }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) { a.httpClient = c }
}

// WithClock overrides time.Now, used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New builds an App. Nothing is fetched until a search runs.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	a := &App{
		cfg:    cfg,
		logger: logging.NewLogger("app"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.session == nil {
		s, err := session.Open(cfg.Session.Dir)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		a.session = s
	}

	if a.redis == nil && cfg.Redis.Enabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.ownsRedis = true
	}

	httpCfg := client.Config{
		BaseURL:        cfg.API.BaseURL,
		Redis:          a.redis,
		UserAgent:      cfg.API.UserAgent,
		Timeout:        cfg.API.Timeout,
		RateLimit:      cfg.API.RateLimit,
		Burst:          cfg.API.Burst,
		MaxRetries:     cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		Tokens:         a.session,
	}
	c, err := client.New(httpCfg)
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("create client: %w", err)
	}
	if a.httpClient != nil {
		c.SetHTTPClient(a.httpClient)
	}
	a.http = c

	a.api = api.NewService(c, cfg.API.University, a.session)
	a.corpus = search.NewCorpus(a.api, search.CorpusConfig{
		HomeInstitution: cfg.API.HomeInstitution,
		Ordering:        cfg.Corpus.Ordering,
		Pagination: pagination.Config{
			MaxPages:    cfg.Corpus.MaxPages,
			PageTimeout: cfg.API.Timeout,
		},
	})
	a.view = search.NewView(a.corpus)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.debouncer = debounce.New(cfg.Search.Debounce, a.runQuery)

	return a, nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// API returns the typed API service.
func (a *App) API() *api.Service { return a.api }

// Session returns the persisted session.
func (a *App) Session() *session.Session { return a.session }

// Corpus returns the session corpus.
func (a *App) Corpus() *search.Corpus { return a.corpus }

// Redis returns the Redis client, nil when the shared cache is disabled.
func (a *App) Redis() *redis.Client { return a.redis }

// Client returns the HTTP transport.
func (a *App) Client() *client.Client { return a.http }

// Bootstrap loads the current user. Without a token it does nothing. An
// expired JWT or a rejected profile request logs the user out locally.
func (a *App) Bootstrap(ctx context.Context) error {
	if !a.session.Authenticated() {
		return nil
	}

	if a.session.Expired(a.now()) {
		a.logger.Info().Msg("Token expired, logging out")
		return a.Logout()
	}

	profile, err := a.api.Me(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Profile unavailable, logging out")
		if clearErr := a.session.Clear(); clearErr != nil {
			return errors.Join(err, clearErr)
		}
		return fmt.Errorf("load current user: %w", err)
	}

	if err := a.session.SetUser(profile.ID, displayName(profile)); err != nil {
		return err
	}
	a.logger.Debug().Int("user_id", profile.ID).Msg("Current user loaded")
	return nil
}

func displayName(p memoire.Profile) string {
	if p.Name != "" {
		return p.Name
	}
	if p.Username != "" {
		return p.Username
	}
	return session.DefaultDisplayName
}

// Login stores a token and loads the matching profile.
func (a *App) Login(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is empty")
	}
	if err := a.session.SetToken(token); err != nil {
		return err
	}
	if err := a.Bootstrap(ctx); err != nil {
		return err
	}
	if !a.session.Authenticated() {
		return errors.New("token rejected")
	}
	a.logger.Info().Str("user", a.session.DisplayName()).Msg("Logged in")
	return nil
}

// LoginWithPassword exchanges credentials for a token, then logs in with it.
// Any previous session is dropped first, and stays dropped on failure.
func (a *App) LoginWithPassword(ctx context.Context, email, password string) error {
	if err := a.session.Clear(); err != nil {
		return err
	}
	tokens, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return a.Login(ctx, tokens.Access)
}

// Logout clears the persisted session.
func (a *App) Logout() error {
	if err := a.session.Clear(); err != nil {
		return err
	}
	a.logger.Info().Msg("Logged out")
	return nil
}

// Search replaces the filters and returns the first window.
func (a *App) Search(ctx context.Context, f search.Filters) search.Result {
	res := a.view.Apply(ctx, f)
	a.logger.Debug().
		Str("query", f.Query).
		Int("total", res.Total).
		Bool("incomplete", res.Incomplete).
		Msg("Filters applied")
	return res
}

// LoadMore reveals the next window of the current result.
func (a *App) LoadMore() (search.Result, bool) {
	return a.view.LoadMore()
}

// ResetFilters restores the default filters.
func (a *App) ResetFilters(ctx context.Context) search.Result {
	return a.view.Reset(ctx)
}

// Filters returns the current filter state.
func (a *App) Filters() search.Filters {
	return a.view.Filters()
}

// Find returns a record already shown by the view.
func (a *App) Find(id int) (search.Document, bool) {
	return a.view.Find(id)
}

// BuildCorpus builds the shared corpus under the App's own context, so a
// caller that goes away mid-build does not abort it. Close cancels it.
func (a *App) BuildCorpus() error {
	return a.corpus.EnsureBuilt(a.ctx)
}

// Analytics builds the corpus if needed and summarizes it. A domains failure
// only drops the per-domain figures.
func (a *App) Analytics(ctx context.Context) (analytics.Summary, error) {
	buildErr := a.corpus.EnsureBuilt(ctx)
	domains, _ := a.api.Domains(ctx)
	return analytics.Summarize(a.corpus.Documents(), domains), buildErr
}

// QueryInput feeds free text through the debouncer. Only the last text of a
// quiet window is applied; its result goes to the OnResult callback.
func (a *App) QueryInput(text string) {
	a.debouncer.Trigger(text)
}

// FlushQuery applies a pending query immediately.
func (a *App) FlushQuery() bool {
	return a.debouncer.Flush()
}

// SetOnResult replaces the callback that receives debounced query results.
func (a *App) SetOnResult(fn func(search.Result)) {
	a.resultMu.Lock()
	defer a.resultMu.Unlock()
	a.onResult = fn
}

func (a *App) runQuery(text string) {
	res := a.view.SetQuery(a.ctx, text)

	a.resultMu.Lock()
	fn := a.onResult
	a.resultMu.Unlock()

	if fn != nil {
		fn(res)
	}
}

// Close stops pending queries and releases the Redis client if the App dialed it.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.debouncer.Stop()
		a.cancel()
		err = a.closeRedis()
	})
	return err
}

func (a *App) closeRedis() error {
	if a.ownsRedis && a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
