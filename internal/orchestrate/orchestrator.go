// Package orchestrate runs the configured sites in parallel. Each site
// gets its own visited store, fetcher, rate limiter, and crawler; sites
// share no crawl-scoped state, so one site's failure never poisons
// another's run.
package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docscrape/docscrape/internal/config"
	"github.com/docscrape/docscrape/internal/crawler"
	"github.com/docscrape/docscrape/internal/fetch"
	"github.com/docscrape/docscrape/internal/ratelimit"
	"github.com/docscrape/docscrape/internal/report"
	"github.com/docscrape/docscrape/internal/store"
)

// SiteResult summarizes one site's crawl.
type SiteResult struct {
	// SiteKey identifies the site in the configuration.
	SiteKey string

	// Success is false when the site's run failed outright (store
	// errors, bad configuration). Individual page failures do not make
	// a run unsuccessful.
	Success bool

	// Error describes the failure when Success is false.
	Error string

	// PagesProcessed counts fully processed pages.
	PagesProcessed int

	// Duration is the site's wall-clock crawl time.
	Duration time.Duration
}

// Orchestrator drives crawls for a set of site keys.
type Orchestrator struct {
	appConfig *config.AppConfig
	siteKeys  []string
	resume    bool
	logger    *slog.Logger
}

// New creates an Orchestrator for the given site keys.
func New(appConfig *config.AppConfig, siteKeys []string, resume bool, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		appConfig: appConfig,
		siteKeys:  siteKeys,
		resume:    resume,
		logger:    logger,
	}
}

// Run crawls every site in parallel and returns one result per site, in
// the order the site keys were given. The error return is non-nil only
// when the context's deadline (such as the global crawl timeout)
// expires; plain cancellation returns nil, and per-site failures are
// carried in the results.
func (o *Orchestrator) Run(ctx context.Context) ([]SiteResult, error) {
	if timeout := o.appConfig.GlobalCrawlTimeout.Duration; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	results := make([]SiteResult, len(o.siteKeys))

	g, ctx := errgroup.WithContext(ctx)
	for i, siteKey := range o.siteKeys {
		g.Go(func() error {
			results[i] = o.runSite(ctx, siteKey)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil && err != context.Canceled {
		return results, err
	}
	return results, nil
}

// runSite crawls one site to completion with its own store, fetcher,
// and limiter.
func (o *Orchestrator) runSite(ctx context.Context, siteKey string) SiteResult {
	result := SiteResult{SiteKey: siteKey}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	siteConfig, ok := o.appConfig.Sites[siteKey]
	if !ok {
		result.Error = fmt.Sprintf("%v: %q", config.ErrUnknownSite, siteKey)
		return result
	}

	st, err := store.Open(
		filepath.Join(o.appConfig.StateDir, siteConfig.AllowedDomain),
		store.Options{Resume: o.resume, EnableWAL: true},
	)
	if err != nil {
		result.Error = fmt.Sprintf("failed to open visited store: %v", err)
		return result
	}
	defer func() {
		if err := st.Close(); err != nil {
			o.logger.Warn("failed to close visited store", "site", siteKey, "error", err)
		}
	}()

	fetcher := fetch.New(o.fetcherConfig())

	var limiterOpts []ratelimit.Option
	if o.appConfig.MaxRequestsPerHost > 0 {
		limiterOpts = append(limiterOpts,
			ratelimit.WithRequestCap(o.appConfig.MaxRequestsPerHost, time.Minute))
	}
	limiter := ratelimit.New(o.appConfig.SiteDelay(siteConfig), limiterOpts...)

	c, err := crawler.New(o.appConfig, siteConfig, siteKey, st, fetcher, limiter, o.logger, o.resume)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	o.logger.Info("starting site crawl", "site", siteKey, "resume", o.resume)

	if err := c.Run(ctx); err != nil {
		result.PagesProcessed = c.PagesProcessed()
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.PagesProcessed = c.PagesProcessed()

	o.writeSummary(siteKey, siteConfig, c, st, time.Since(start))

	return result
}

// fetcherConfig maps the app configuration onto fetcher settings.
func (o *Orchestrator) fetcherConfig() fetch.Config {
	h := o.appConfig.HTTPClient
	cfg := fetch.DefaultConfig()

	if h.Timeout.Duration > 0 {
		cfg.Timeout = h.Timeout.Duration
	}
	if h.UserAgent != "" {
		cfg.UserAgent = h.UserAgent
	}
	cfg.FollowRedirects = h.FollowRedirectsOrDefault()
	if h.MaxRedirects > 0 {
		cfg.MaxRedirects = h.MaxRedirects
	}
	if h.MaxIdleConns > 0 {
		cfg.MaxIdleConns = h.MaxIdleConns
	}
	if h.MaxIdleConnsPerHost > 0 {
		cfg.MaxIdleConnsPerHost = h.MaxIdleConnsPerHost
	}
	if h.IdleConnTimeout.Duration > 0 {
		cfg.IdleConnTimeout = h.IdleConnTimeout.Duration
	}
	cfg.MaxRetries = o.appConfig.MaxRetries
	if o.appConfig.InitialRetryDelay.Duration > 0 {
		cfg.InitialRetryDelay = o.appConfig.InitialRetryDelay.Duration
	}
	if o.appConfig.MaxRetryDelay.Duration > 0 {
		cfg.MaxRetryDelay = o.appConfig.MaxRetryDelay.Duration
	}

	return cfg
}

// writeSummary renders the per-site crawl report into the site's
// output directory. Report failures are logged, not fatal.
func (o *Orchestrator) writeSummary(siteKey string, siteConfig config.SiteConfig, c *crawler.SiteCrawler, st store.Store, elapsed time.Duration) {
	visited, err := st.GetVisitedCount()
	if err != nil {
		o.logger.Warn("failed to count visited pages for report", "site", siteKey, "error", err)
		return
	}

	summary := report.Summary{
		SiteKey:        siteKey,
		AllowedDomain:  siteConfig.AllowedDomain,
		PagesProcessed: c.PagesProcessed(),
		PagesVisited:   visited,
		QueueStats:     c.QueueStats(),
		Duration:       elapsed,
	}

	path := filepath.Join(o.appConfig.OutputBaseDir, siteConfig.AllowedDomain, "_crawl_report.md")
	if err := report.WriteSummaryFile(path, summary); err != nil {
		o.logger.Warn("failed to write crawl report", "site", siteKey, "error", err)
	}
}
