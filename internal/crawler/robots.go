package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/docscrape/docscrape/internal/fetch"
	"github.com/docscrape/docscrape/internal/model"
	"github.com/docscrape/docscrape/internal/pipeline"
	"github.com/docscrape/docscrape/internal/urlutil"
)

// maxSitemapDepth bounds sitemap-index recursion during seeding.
const maxSitemapDepth = 2

// robotsAllowed checks the URL against its origin's robots.txt,
// fetching and caching the file on first use. Fetch failures allow the
// URL: an unreachable robots.txt must not wedge the whole crawl.
func (c *SiteCrawler) robotsAllowed(ctx context.Context, rawURL string) bool {
	origin, err := urlutil.Origin(rawURL)
	if err != nil {
		return false
	}

	rf := c.robotsFor(ctx, origin)
	if rf == nil {
		return true
	}
	return rf.IsAllowed(urlutil.ExtractPath(rawURL), c.fetcher.UserAgent())
}

// robotsFor returns the cached robots.txt for the origin, fetching it
// once. The fetch itself honors the host's rate limit.
func (c *SiteCrawler) robotsFor(ctx context.Context, origin string) *fetch.RobotsFile {
	c.robotsMu.Lock()
	if rf, ok := c.robots[origin]; ok {
		c.robotsMu.Unlock()
		return rf
	}
	c.robotsMu.Unlock()

	var rf *fetch.RobotsFile
	if host := urlutil.ExtractDomain(origin + "/"); host != "" {
		if err := c.limiter.Wait(ctx, host); err == nil {
			result := c.fetcher.FetchOnce(ctx, origin+"/robots.txt")
			if result.Success() {
				rf = fetch.ParseRobots(string(result.Body))

				// Honor Crawl-delay when it asks for more than our
				// configured spacing.
				if secs := rf.CrawlDelay(c.fetcher.UserAgent()); secs > 0 {
					requested := time.Duration(secs) * time.Second
					if requested > c.limiter.HostDelay(host) {
						c.limiter.SetHostDelay(host, requested)
					}
				}
			}
		}
	}

	c.robotsMu.Lock()
	// First fetcher wins; a concurrent result is equivalent.
	if cached, ok := c.robots[origin]; ok {
		rf = cached
	} else {
		c.robots[origin] = rf
	}
	c.robotsMu.Unlock()

	return rf
}

// seedFromSitemaps fetches the sitemaps advertised by each seed
// origin's robots.txt and enqueues in-scope entries at depth 1.
func (c *SiteCrawler) seedFromSitemaps(ctx context.Context) {
	seen := make(map[string]bool)

	for _, seed := range c.siteConfig.StartURLs {
		origin, err := urlutil.Origin(seed)
		if err != nil || seen[origin] {
			continue
		}
		seen[origin] = true

		rf := c.robotsFor(ctx, origin)
		if rf == nil {
			continue
		}
		for _, sitemapURL := range rf.Sitemaps() {
			c.seedFromSitemap(ctx, sitemapURL, 0)
		}
	}
}

// seedFromSitemap fetches one sitemap document, following index
// documents up to maxSitemapDepth.
func (c *SiteCrawler) seedFromSitemap(ctx context.Context, sitemapURL string, depth int) {
	if depth > maxSitemapDepth {
		return
	}

	host := urlutil.ExtractDomain(sitemapURL)
	if host == "" {
		return
	}
	if err := c.limiter.Wait(ctx, host); err != nil {
		return
	}

	result := c.fetcher.FetchOnce(ctx, sitemapURL)
	if !result.Success() {
		return
	}

	entries, err := fetch.ParseSitemap(result.Body)
	if err != nil {
		c.logger.Debug("unparseable sitemap", "url", sitemapURL, "error", err)
		return
	}

	enqueued := 0
	for _, pageURL := range entries.PageURLs {
		if !urlutil.InScope(pageURL, c.siteConfig.AllowedDomain, c.siteConfig.AllowedPathPrefix) {
			continue
		}
		if c.pathDisallowed(pageURL) {
			continue
		}
		c.queue.Push(model.NewWorkItem(pageURL, 1))
		enqueued++
	}
	if enqueued > 0 {
		c.logger.Info("seeded from sitemap", "sitemap", sitemapURL, "urls", enqueued)
	}

	for _, child := range entries.ChildSitemaps {
		if strings.Contains(child, "://") {
			c.seedFromSitemap(ctx, child, depth+1)
		}
	}
}

// downloadImages drains the pending image records collected during the
// page crawl.
func (c *SiteCrawler) downloadImages(ctx context.Context) {
	downloader := &pipeline.ImageDownloader{
		Fetcher:        c.fetcher,
		Limiter:        c.limiter,
		Store:          c.store,
		PageHost:       c.siteConfig.AllowedDomain,
		AllowedDomains: c.siteConfig.AllowedImageDomains,
		MaxSizeBytes:   c.siteConfig.MaxImageSizeBytes,
		Workers:        c.appConfig.NumImageWorkers,
		Logger:         c.logger,
	}

	downloaded, err := downloader.Run(ctx)
	if err != nil {
		c.logger.Warn("image download pass incomplete", "error", err)
		return
	}
	if downloaded > 0 {
		c.logger.Info("downloaded images", "count", downloaded)
	}
}
