// Package crawler implements the crawl engine for a single site: a
// priority work queue drained by a fixed worker pool, with per-host rate
// limiting, retrying fetches, a persistent visited store for dedup and
// resume, and the content-extraction pipeline.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docscrape/docscrape/internal/config"
	"github.com/docscrape/docscrape/internal/fetch"
	"github.com/docscrape/docscrape/internal/htmldoc"
	"github.com/docscrape/docscrape/internal/model"
	"github.com/docscrape/docscrape/internal/pipeline"
	"github.com/docscrape/docscrape/internal/queue"
	"github.com/docscrape/docscrape/internal/ratelimit"
	"github.com/docscrape/docscrape/internal/store"
	"github.com/docscrape/docscrape/internal/urlutil"
)

const (
	// popTimeout is the bounded wait workers use between queue polls.
	popTimeout = 200 * time.Millisecond

	// monitorInterval is the quiescence-check cadence.
	monitorInterval = 50 * time.Millisecond
)

// SiteCrawler owns the crawl of one site: its queue, worker pool,
// content pipeline, and the monitor that detects quiescence.
type SiteCrawler struct {
	appConfig  *config.AppConfig
	siteConfig config.SiteConfig
	siteKey    string

	store   store.Store
	fetcher *fetch.Fetcher
	limiter *ratelimit.HostLimiter
	logger  *slog.Logger

	queue     *queue.PriorityQueue
	processor *pipeline.Processor

	siteOutputDir string

	// disallowed holds the compiled disallowed_path_patterns.
	disallowed []*regexp.Regexp

	// requeued holds normalized URLs re-enqueued at resume. A worker
	// whose claim fails consumes its URL from this set exactly once,
	// which lets resumed Pending/Failure records be reprocessed without
	// weakening the store's claim semantics.
	requeued sync.Map

	// robots caches the parsed robots.txt per origin.
	robotsMu sync.Mutex
	robots   map[string]*fetch.RobotsFile

	resume bool

	inFlight       atomic.Int64
	requestCount   atomic.Int64
	pagesProcessed atomic.Int64
	shutdownFlag   atomic.Bool
	shutdownOnce   sync.Once

	workers sync.WaitGroup
}

// New constructs a SiteCrawler. The site's output directory is created
// here; invalid disallowed patterns have been rejected by config
// validation and are skipped defensively if present.
func New(
	appConfig *config.AppConfig,
	siteConfig config.SiteConfig,
	siteKey string,
	st store.Store,
	fetcher *fetch.Fetcher,
	limiter *ratelimit.HostLimiter,
	logger *slog.Logger,
	resume bool,
) (*SiteCrawler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("site", siteKey)

	siteOutputDir := filepath.Join(appConfig.OutputBaseDir, siteConfig.AllowedDomain)
	if err := os.MkdirAll(siteOutputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create site output directory: %w", err)
	}

	var disallowed []*regexp.Regexp
	for _, pattern := range siteConfig.DisallowedPathPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn("skipping invalid disallowed_path_patterns entry",
				"pattern", pattern, "error", err)
			continue
		}
		disallowed = append(disallowed, re)
	}

	processor := pipeline.NewProcessor(
		appConfig.OutputBaseDir,
		siteConfig.AllowedDomain,
		siteConfig.ContentSelector,
		siteConfig.SkipImages,
		st,
	)
	processor.RespectNofollow = siteConfig.RespectNofollow

	c := &SiteCrawler{
		appConfig:     appConfig,
		siteConfig:    siteConfig,
		siteKey:       siteKey,
		store:         st,
		fetcher:       fetcher,
		limiter:       limiter,
		logger:        logger,
		queue:         queue.New(),
		processor:     processor,
		siteOutputDir: siteOutputDir,
		disallowed:    disallowed,
		robots:        make(map[string]*fetch.RobotsFile),
		resume:        resume,
	}

	if delay := appConfig.SiteDelay(siteConfig); delay > 0 {
		for _, seed := range siteConfig.StartURLs {
			if host := urlutil.ExtractDomain(seed); host != "" {
				limiter.SetHostDelay(host, delay)
			}
		}
	}

	return c, nil
}

// PagesProcessed returns the number of pages fully processed so far.
// This is the crawler's only externally observed success statistic.
func (c *SiteCrawler) PagesProcessed() int {
	return int(c.pagesProcessed.Load())
}

// QueueStats exposes queue counters for tests and reporting.
func (c *SiteCrawler) QueueStats() queue.Stats {
	return c.queue.GetStats()
}

// SeedQueue pushes each scope-passing seed at depth 0. On resume it
// also re-enqueues every incomplete record from the store, and when
// sitemap seeding is on it enqueues in-scope sitemap entries at depth 1.
func (c *SiteCrawler) SeedQueue(ctx context.Context) {
	for _, seed := range c.siteConfig.StartURLs {
		if !urlutil.InScope(seed, c.siteConfig.AllowedDomain, c.siteConfig.AllowedPathPrefix) {
			c.logger.Warn("seed is out of scope, dropping", "url", seed)
			continue
		}
		if c.pathDisallowed(seed) {
			continue
		}
		c.queue.Push(model.NewWorkItem(seed, 0))
	}

	if c.resume {
		requeued, err := c.store.RequeueIncomplete(func(item model.WorkItem) {
			c.requeued.Store(urlutil.Normalize(item.URL, false), struct{}{})
			c.queue.Push(item)
		})
		if err != nil {
			c.logger.Error("failed to requeue incomplete records", "error", err)
		} else if requeued > 0 {
			c.logger.Info("requeued incomplete pages", "count", requeued)
		}
	}

	if c.siteConfig.SeedFromSitemaps {
		c.seedFromSitemaps(ctx)
	}
}

// Run executes the crawl to completion: seed, spawn workers, monitor
// for quiescence, join. After the page crawl drains, pending image
// records are downloaded unless the site skips images.
func (c *SiteCrawler) Run(ctx context.Context) error {
	c.SeedQueue(ctx)

	workerCount := c.appConfig.NumWorkers
	if workerCount < 1 {
		workerCount = 1
	}

	for range workerCount {
		c.workers.Add(1)
		go func() {
			defer c.workers.Done()
			c.workerLoop(ctx)
		}()
	}

	// Monitor: the snapshot "queue empty and nothing in flight" implies
	// no further work can arise, because a worker decrements in-flight
	// only after it has pushed any newly discovered links.
	for !c.shutdownFlag.Load() {
		select {
		case <-ctx.Done():
			c.shutdownFlag.Store(true)
		case <-time.After(monitorInterval):
		}

		if c.queue.Empty() && c.inFlight.Load() == 0 {
			break
		}
	}
	c.queue.Close()
	c.workers.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if !c.siteConfig.SkipImages {
		c.downloadImages(ctx)
	}

	return nil
}

// Shutdown stops the crawl: sets the stop flag, closes the queue, and
// joins workers. Idempotent.
func (c *SiteCrawler) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.shutdownFlag.Store(true)
		c.queue.Close()
		c.workers.Wait()
	})
}

// workerLoop drains the queue until it is closed and empty.
func (c *SiteCrawler) workerLoop(ctx context.Context) {
	for !c.shutdownFlag.Load() && ctx.Err() == nil {
		item, ok := c.queue.TryPop(popTimeout)
		if !ok {
			if c.queue.IsClosed() {
				return
			}
			continue
		}

		c.inFlight.Add(1)
		c.processPage(ctx, item)
		c.inFlight.Add(-1)
	}
}

// processPage handles one work item end to end: claim, robots, rate
// limit, fetch, extract, persist, and enqueue discovered links.
func (c *SiteCrawler) processPage(ctx context.Context, item model.WorkItem) {
	if c.siteConfig.MaxDepth > 0 && item.Depth > c.siteConfig.MaxDepth {
		return
	}

	if limit := c.appConfig.MaxRequests; limit > 0 && c.requestCount.Load() >= int64(limit) {
		c.logger.Warn("max_requests reached, stopping crawl", "max_requests", limit)
		c.shutdownFlag.Store(true)
		c.queue.Close()
		return
	}

	normalized := urlutil.Normalize(item.URL, false)

	claimed, err := c.store.MarkPageVisited(normalized)
	if err != nil {
		c.logger.Error("claim failed", "url", normalized, "error", err)
		return
	}
	if !claimed {
		// Another worker owns the URL, unless it was re-enqueued at
		// resume; the set hands each requeued URL to exactly one worker.
		if _, wasRequeued := c.requeued.LoadAndDelete(normalized); !wasRequeued {
			return
		}
	}

	if c.siteConfig.RespectRobotsTxt && !c.robotsAllowed(ctx, item.URL) {
		c.finishPage(normalized, item, model.PageStatusRobotsDisallowed,
			model.ErrorKindRobotsDisallowed, "disallowed by robots.txt", nil, 0)
		return
	}

	host := urlutil.ExtractDomain(item.URL)
	if host != "" {
		waitCtx := ctx
		if timeout := c.appConfig.SemaphoreAcquireTimeout.Duration; timeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := c.limiter.Wait(waitCtx, host); err != nil {
			if ctx.Err() == nil {
				c.finishPage(normalized, item, model.PageStatusFailure,
					model.ErrorKindRateLimited, "timed out waiting for a request slot", nil, 0)
			}
			return
		}
	}

	c.requestCount.Add(1)
	result, attempts := c.fetcher.FetchWithRetry(ctx, item.URL)

	if !result.Success() {
		status := model.PageStatusFailure
		if result.StatusCode == 404 {
			status = model.PageStatusNotFound
		}
		kind := result.ErrorKind()
		if result.IsRetryable() && attempts > c.fetcher.MaxRetries() {
			kind = model.ErrorKindMaxRetries
		}
		c.finishPage(normalized, item, status, kind, result.Error, &result, attempts)
		return
	}

	if !result.IsHTML() {
		// Binary assets are recorded but not processed.
		c.finishPage(normalized, item, model.PageStatusSuccess, model.ErrorKindNone, "", &result, attempts)
		return
	}

	doc, err := htmldoc.Parse(string(result.Body))
	if err != nil {
		c.finishPage(normalized, item, model.PageStatusFailure, model.ErrorKindParse, err.Error(), &result, attempts)
		return
	}

	finalURL := item.URL
	if result.FinalURL != "" {
		finalURL = result.FinalURL
	}

	processed := c.processor.Extract(doc, finalURL)
	if !processed.Success {
		c.finishPage(normalized, item, model.PageStatusFailure, model.ErrorKindContentEmpty, processed.Error, &result, attempts)
		return
	}

	unchanged := false
	if c.siteConfig.Incremental {
		if prior, err := c.store.GetPageContentHash(normalized); err == nil &&
			prior != "" && prior == processed.ContentHash {
			unchanged = true
		}
	}
	if unchanged {
		// Content unchanged since the last crawl; keep the existing file.
		processed.SavedFilePath = c.processor.OutputPath(finalURL)
		c.logger.Debug("content unchanged, skipping rewrite", "url", normalized)
	} else {
		processed = c.processor.Write(processed, finalURL)
		if !processed.Success {
			c.finishPage(normalized, item, model.PageStatusFailure, model.ErrorKindIO, processed.Error, &result, attempts)
			return
		}
	}

	record := c.newRecord(normalized, item)
	record.Status = model.PageStatusSuccess
	record.AttemptCount = attempts
	record.ProcessedAt = model.Now()
	record.ContentHash = processed.ContentHash
	record.LocalFilePath = processed.SavedFilePath
	record.TokenCount = processed.TokenCount
	if result.FinalURL != item.URL {
		record.FinalURL = result.FinalURL
	}
	if err := c.store.UpdatePageStatus(normalized, record); err != nil {
		c.logger.Error("failed to persist page record", "url", normalized, "error", err)
	}
	c.pagesProcessed.Add(1)

	c.logger.Debug("processed page",
		"url", normalized,
		"depth", item.Depth,
		"tokens", processed.TokenCount,
		"links", len(processed.ExtractedLinks),
	)

	c.enqueueLinks(item, processed.ExtractedLinks)
}

// enqueueLinks resolves, scope-checks, and enqueues harvested links at
// depth+1. Parse failures, scheme mismatches, scope rejects, and
// disallowed paths are silently dropped.
func (c *SiteCrawler) enqueueLinks(item model.WorkItem, links []string) {
	if len(links) == 0 {
		return
	}
	if c.siteConfig.MaxDepth > 0 && item.Depth+1 > c.siteConfig.MaxDepth {
		return
	}

	var batch []model.WorkItem
	for _, link := range links {
		abs, err := urlutil.Resolve(item.URL, link)
		if err != nil {
			continue
		}
		if !urlutil.InScope(abs, c.siteConfig.AllowedDomain, c.siteConfig.AllowedPathPrefix) {
			continue
		}
		if c.pathDisallowed(abs) {
			continue
		}

		next := model.NewWorkItem(abs, item.Depth+1)
		next.Referrer = item.URL
		batch = append(batch, next)
	}
	if len(batch) > 0 {
		c.queue.PushBatch(batch)
	}
}

// pathDisallowed applies disallowed_path_patterns to the URL's path.
func (c *SiteCrawler) pathDisallowed(rawURL string) bool {
	if len(c.disallowed) == 0 {
		return false
	}
	path := urlutil.ExtractPath(rawURL)
	for _, re := range c.disallowed {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// newRecord builds the base record for a terminal status write.
func (c *SiteCrawler) newRecord(normalized string, item model.WorkItem) model.PageRecord {
	record := model.NewPageRecord(normalized, item.Depth)
	record.LastAttempt = model.Now()
	return record
}

// finishPage persists a terminal page record.
func (c *SiteCrawler) finishPage(
	normalized string,
	item model.WorkItem,
	status model.PageStatus,
	kind model.ErrorKind,
	message string,
	result *model.FetchResult,
	attempts int,
) {
	record := c.newRecord(normalized, item)
	record.Status = status
	record.ErrorKind = kind
	record.ErrorMessage = message
	record.AttemptCount = attempts
	record.ProcessedAt = model.Now()
	if result != nil && result.FinalURL != "" && result.FinalURL != item.URL {
		record.FinalURL = result.FinalURL
	}

	if err := c.store.UpdatePageStatus(normalized, record); err != nil {
		c.logger.Error("failed to persist page record", "url", normalized, "error", err)
	}

	if status == model.PageStatusFailure || status == model.PageStatusNotFound {
		c.logger.Warn("page failed",
			"url", normalized,
			"status", status.String(),
			"error_kind", kind.String(),
			"error", message,
		)
	}
}
