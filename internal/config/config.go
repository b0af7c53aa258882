// Package config defines and loads the crawler's YAML configuration:
// global defaults, HTTP client settings, and per-site crawl scopes.
package config

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. The politeness defaults are deliberately
// conservative; operators crawling their own infrastructure can lower
// them per site.
const (
	// AppName is used for XDG directory paths.
	AppName = "docscrape"

	// DefaultDelayPerHost spaces requests against one origin.
	DefaultDelayPerHost = 500 * time.Millisecond

	// DefaultNumWorkers is the per-site worker pool size.
	DefaultNumWorkers = 8

	// DefaultNumImageWorkers sizes the deferred image download pool.
	DefaultNumImageWorkers = 4

	// DefaultMaxRetries bounds fetch retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultInitialRetryDelay is the backoff base.
	DefaultInitialRetryDelay = time.Second

	// DefaultMaxRetryDelay caps the backoff.
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultHTTPTimeout bounds each request.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultUserAgent identifies the crawler in HTTP requests. A
	// descriptive User-Agent lets operators recognize crawler traffic.
	DefaultUserAgent = "docscrape/1.0 (+https://github.com/docscrape/docscrape)"

	// DefaultMaxRedirects bounds redirect chains.
	DefaultMaxRedirects = 10

	// DefaultMaxIdleConns and friends tune the shared HTTP transport.
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 8
	DefaultIdleConnTimeout     = 90 * time.Second
)

// HTTPClientSettings mirrors the http_client section of the config file.
type HTTPClientSettings struct {
	// Timeout bounds each request from dial to body read.
	Timeout Duration `yaml:"timeout,omitempty"`

	// MaxIdleConns caps pooled connections across all hosts.
	MaxIdleConns int `yaml:"max_idle_conns,omitempty"`

	// MaxIdleConnsPerHost caps pooled connections per host.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host,omitempty"`

	// IdleConnTimeout evicts idle pooled connections.
	IdleConnTimeout Duration `yaml:"idle_conn_timeout,omitempty"`

	// UserAgent is sent on every request.
	UserAgent string `yaml:"user_agent,omitempty"`

	// FollowRedirects controls automatic 3xx handling.
	FollowRedirects *bool `yaml:"follow_redirects,omitempty"`

	// MaxRedirects bounds the redirect chain when following.
	MaxRedirects int `yaml:"max_redirects,omitempty"`
}

// SiteConfig describes one crawl target.
type SiteConfig struct {
	// StartURLs seed the crawl at depth 0.
	StartURLs []string `yaml:"start_urls"`

	// AllowedDomain bounds the crawl to a domain and its subdomains.
	// Required.
	AllowedDomain string `yaml:"allowed_domain"`

	// AllowedPathPrefix further bounds the crawl to a path subtree.
	AllowedPathPrefix string `yaml:"allowed_path_prefix,omitempty"`

	// ContentSelector locates the main content region; "auto" (the
	// default) delegates to the framework detector.
	ContentSelector string `yaml:"content_selector,omitempty"`

	// MaxDepth bounds BFS depth; 0 means unlimited.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// DelayPerHost overrides the global politeness delay for this site.
	DelayPerHost Duration `yaml:"delay_per_host,omitempty"`

	// SkipImages disables image harvesting.
	SkipImages bool `yaml:"skip_images,omitempty"`

	// MaxImageSizeBytes rejects larger image downloads; 0 means no cap.
	MaxImageSizeBytes int64 `yaml:"max_image_size_bytes,omitempty"`

	// AllowedImageDomains is the image host allow-list; supports "*"
	// and "*.<suffix>" entries.
	AllowedImageDomains []string `yaml:"allowed_image_domains,omitempty"`

	// DisallowedPathPatterns are regexes suppressing link enqueueing.
	DisallowedPathPatterns []string `yaml:"disallowed_path_patterns,omitempty"`

	// RespectRobotsTxt enables robots.txt checks for this site.
	RespectRobotsTxt bool `yaml:"respect_robots_txt,omitempty"`

	// RespectNofollow suppresses enqueueing of rel=nofollow links.
	RespectNofollow bool `yaml:"respect_nofollow,omitempty"`

	// SeedFromSitemaps enqueues sitemap entries found via robots.txt.
	SeedFromSitemaps bool `yaml:"seed_from_sitemaps,omitempty"`

	// Incremental skips pages whose content hash is unchanged.
	Incremental bool `yaml:"incremental,omitempty"`
}

// AppConfig is the root of the configuration file.
type AppConfig struct {
	// DefaultDelayPerHost spaces requests per origin unless a site
	// overrides it.
	DefaultDelayPerHost Duration `yaml:"default_delay_per_host,omitempty"`

	// NumWorkers sizes each site's worker pool.
	NumWorkers int `yaml:"num_workers,omitempty"`

	// NumImageWorkers sizes each site's image download pool.
	NumImageWorkers int `yaml:"num_image_workers,omitempty"`

	// MaxRequests caps total fetches per site; 0 means unlimited.
	MaxRequests int `yaml:"max_requests,omitempty"`

	// MaxRequestsPerHost caps fetches per host per minute on top of
	// the spacing delay; 0 disables the cap.
	MaxRequestsPerHost int `yaml:"max_requests_per_host,omitempty"`

	// MaxRetries bounds fetch retries after the first attempt.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// InitialRetryDelay is the backoff base.
	InitialRetryDelay Duration `yaml:"initial_retry_delay,omitempty"`

	// MaxRetryDelay caps the backoff.
	MaxRetryDelay Duration `yaml:"max_retry_delay,omitempty"`

	// SemaphoreAcquireTimeout bounds how long a worker waits for a
	// host's dispatch slot; 0 means wait indefinitely. A page whose
	// wait exceeds this is recorded rate_limited.
	SemaphoreAcquireTimeout Duration `yaml:"semaphore_acquire_timeout,omitempty"`

	// GlobalCrawlTimeout bounds a whole run; 0 means unlimited.
	GlobalCrawlTimeout Duration `yaml:"global_crawl_timeout,omitempty"`

	// OutputBaseDir is the root of the output tree.
	OutputBaseDir string `yaml:"output_base_dir,omitempty"`

	// StateDir houses the per-site visited stores.
	StateDir string `yaml:"state_dir,omitempty"`

	// HTTPClient holds the HTTP client settings.
	HTTPClient HTTPClientSettings `yaml:"http_client,omitempty"`

	// Sites maps site keys to their configurations.
	Sites map[string]SiteConfig `yaml:"sites"`
}

// NewAppConfig returns a configuration with every default applied.
//
// Design decision: We use a constructor rather than relying on zero
// values because most defaults are non-zero, and the constructor doubles
// as documentation of what they are.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		DefaultDelayPerHost: DurationFrom(DefaultDelayPerHost),
		NumWorkers:          DefaultNumWorkers,
		NumImageWorkers:     DefaultNumImageWorkers,
		MaxRetries:          DefaultMaxRetries,
		InitialRetryDelay:   DurationFrom(DefaultInitialRetryDelay),
		MaxRetryDelay:       DurationFrom(DefaultMaxRetryDelay),
		OutputBaseDir:       DefaultOutputDir(),
		StateDir:            DefaultStateDir(),
		HTTPClient: HTTPClientSettings{
			Timeout:             DurationFrom(DefaultHTTPTimeout),
			MaxIdleConns:        DefaultMaxIdleConns,
			MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
			IdleConnTimeout:     DurationFrom(DefaultIdleConnTimeout),
			UserAgent:           DefaultUserAgent,
			MaxRedirects:        DefaultMaxRedirects,
		},
		Sites: make(map[string]SiteConfig),
	}
}

// DefaultOutputDir returns the XDG data location for crawl output.
// On Linux: ~/.local/share/docscrape/output
func DefaultOutputDir() string {
	return filepath.Join(xdg.DataHome, AppName, "output")
}

// DefaultStateDir returns the XDG state location for visited stores.
// On Linux: ~/.local/state/docscrape
func DefaultStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// FollowRedirectsOrDefault resolves the tri-state follow_redirects
// setting; unset means true.
func (h HTTPClientSettings) FollowRedirectsOrDefault() bool {
	if h.FollowRedirects == nil {
		return true
	}
	return *h.FollowRedirects
}

// SiteDelay returns the politeness delay for a site, falling back to
// the global default.
func (c *AppConfig) SiteDelay(site SiteConfig) time.Duration {
	if site.DelayPerHost.Duration > 0 {
		return site.DelayPerHost.Duration
	}
	return c.DefaultDelayPerHost.Duration
}

// SiteKeys returns the configured site keys in sorted order.
func (c *AppConfig) SiteKeys() []string {
	keys := make([]string, 0, len(c.Sites))
	for k := range c.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
