package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration file at path, applying
// defaults for everything the file omits.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Operator-provided config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cfg := NewAppConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Sites == nil {
		cfg.Sites = make(map[string]SiteConfig)
	}

	// Re-apply defaults yaml may have zeroed via explicit empty values.
	if cfg.HTTPClient.UserAgent == "" {
		cfg.HTTPClient.UserAgent = DefaultUserAgent
	}
	if cfg.HTTPClient.Timeout.Duration == 0 {
		cfg.HTTPClient.Timeout = DurationFrom(DefaultHTTPTimeout)
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = DefaultNumWorkers
	}
	if cfg.NumImageWorkers <= 0 {
		cfg.NumImageWorkers = DefaultNumImageWorkers
	}

	return cfg, nil
}
