package config

import "errors"

// Sentinel errors returned by configuration loading and validation.
var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrNoSites is returned when the configuration declares no sites.
	ErrNoSites = errors.New("configuration declares no sites")

	// ErrUnknownSite is returned when a requested site key is not configured.
	ErrUnknownSite = errors.New("unknown site key")

	// ErrMissingDomain is returned when a site omits allowed_domain.
	ErrMissingDomain = errors.New("site is missing allowed_domain")

	// ErrNoStartURLs is returned when a site has no start_urls.
	ErrNoStartURLs = errors.New("site has no start_urls")

	// ErrInvalidTimeout is returned for non-positive HTTP timeouts.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidWorkers is returned for negative worker counts.
	ErrInvalidWorkers = errors.New("worker count must not be negative")
)
