package config

import (
	"fmt"
	"regexp"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/docscrape/docscrape/internal/urlutil"
)

// shortDelayThreshold flags politeness delays likely to hammer a host.
const shortDelayThreshold = 100 * time.Millisecond

// ValidationResult collects everything wrong or questionable about a
// configuration. Errors prevent a run; warnings do not.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the configuration can run.
func (v ValidationResult) OK() bool {
	return len(v.Errors) == 0
}

// errorf appends a formatted error.
func (v *ValidationResult) errorf(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// warnf appends a formatted warning.
func (v *ValidationResult) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the whole configuration and reports every problem at
// once, so operators can fix a config file in one pass.
func (c *AppConfig) Validate() ValidationResult {
	var result ValidationResult

	if len(c.Sites) == 0 {
		result.errorf("%v", ErrNoSites)
	}
	if c.HTTPClient.Timeout.Duration <= 0 {
		result.errorf("%v", ErrInvalidTimeout)
	}
	if c.NumWorkers < 0 || c.NumImageWorkers < 0 {
		result.errorf("%v", ErrInvalidWorkers)
	}

	for key, site := range c.Sites {
		c.validateSite(key, site, &result)
	}

	return result
}

// validateSite checks one site entry.
func (c *AppConfig) validateSite(key string, site SiteConfig, result *ValidationResult) {
	if site.AllowedDomain == "" {
		result.errorf("site %q: %v", key, ErrMissingDomain)
	}
	if len(site.StartURLs) == 0 {
		result.errorf("site %q: %v", key, ErrNoStartURLs)
	}

	for _, seed := range site.StartURLs {
		if !urlutil.IsValidHTTPURL(seed) {
			result.errorf("site %q: start URL %q is not a valid http(s) URL", key, seed)
			continue
		}
		if site.AllowedDomain == "" {
			continue
		}
		if !urlutil.InScope(seed, site.AllowedDomain, "") {
			result.warnf("site %q: seed %q is outside allowed_domain %q and will be dropped",
				key, seed, site.AllowedDomain)
			continue
		}

		// A seed on a different registrable domain than allowed_domain
		// usually means a typo in one of the two.
		host := urlutil.ExtractDomain(seed)
		seedRoot, err1 := publicsuffix.EffectiveTLDPlusOne(host)
		allowedRoot, err2 := publicsuffix.EffectiveTLDPlusOne(site.AllowedDomain)
		if err1 == nil && err2 == nil && seedRoot != allowedRoot {
			result.warnf("site %q: seed domain %q and allowed_domain %q have different registrable domains",
				key, host, site.AllowedDomain)
		}
	}

	if delay := c.SiteDelay(site); delay > 0 && delay < shortDelayThreshold {
		result.warnf("site %q: delay_per_host %v is very short; remote hosts may rate limit the crawl",
			key, delay)
	}

	for _, pattern := range site.DisallowedPathPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			result.errorf("site %q: invalid disallowed_path_patterns entry %q: %v", key, pattern, err)
		}
	}

	if site.MaxDepth < 0 {
		result.errorf("site %q: max_depth must not be negative", key)
	}
}
