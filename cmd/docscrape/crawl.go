package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docscrape/docscrape/internal/config"
	"github.com/docscrape/docscrape/internal/log"
	"github.com/docscrape/docscrape/internal/orchestrate"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Start a fresh documentation crawl",
		Long: `Crawl starts a fresh crawl for one or more configured sites. Any
existing state for the selected sites is discarded first; use 'resume'
to continue an interrupted crawl instead.

Examples:
  # Crawl a single site
  docscrape crawl --site godocs

  # Crawl several sites in parallel
  docscrape crawl --sites godocs,rustdocs

  # Crawl everything in the configuration
  docscrape crawl --all-sites`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, false)
		},
	}

	addSiteSelectionFlags(cmd)
	return cmd
}

// addSiteSelectionFlags registers the --site/--sites/--all-sites flags.
func addSiteSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("site", "", "Site key to crawl")
	cmd.Flags().String("sites", "", "Comma-separated site keys to crawl")
	cmd.Flags().Bool("all-sites", false, "Crawl every configured site")
}

// selectSites resolves the site-selection flags against the config.
func selectSites(cmd *cobra.Command, cfg *config.AppConfig) ([]string, error) {
	site, _ := cmd.Flags().GetString("site")
	sites, _ := cmd.Flags().GetString("sites")
	allSites, _ := cmd.Flags().GetBool("all-sites")

	var keys []string
	switch {
	case allSites:
		keys = cfg.SiteKeys()
	case sites != "":
		for _, key := range strings.Split(sites, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
	case site != "":
		keys = []string{site}
	default:
		return nil, errors.New("specify --site, --sites, or --all-sites")
	}

	if len(keys) == 0 {
		return nil, config.ErrNoSites
	}
	for _, key := range keys {
		if _, ok := cfg.Sites[key]; !ok {
			return nil, fmt.Errorf("%w: %q", config.ErrUnknownSite, key)
		}
	}
	return keys, nil
}

// loadConfigFromFlags loads the configuration named by --config.
func loadConfigFromFlags(cmd *cobra.Command) (*config.AppConfig, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		path = "docscrape.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// setupLogging installs the crawler's sanitizing logger as the default.
func setupLogging(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.NewLogger(verbose)
	slog.SetDefault(logger)
	return logger
}

// runCrawl drives a crawl or resume run and prints per-site summaries.
func runCrawl(cmd *cobra.Command, resume bool) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	if validation := cfg.Validate(); !validation.OK() {
		for _, msg := range validation.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", msg)
		}
		return errors.New("configuration is invalid; see 'docscrape validate'")
	} else if len(validation.Warnings) > 0 {
		for _, msg := range validation.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
		}
	}

	keys, err := selectSites(cmd, cfg)
	if err != nil {
		return err
	}

	logger := setupLogging(cmd)

	// Cancel the crawl on interrupt so stores close cleanly and the
	// run stays resumable.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	results, err := orchestrate.New(cfg, keys, resume, logger).Run(ctx)

	failures := 0
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(cmd.OutOrStdout(), "[OK] %s: %d pages (%d ms)\n",
				r.SiteKey, r.PagesProcessed, r.Duration.Milliseconds())
		} else {
			failures++
			fmt.Fprintf(cmd.OutOrStdout(), "[FAIL] %s: %s\n", r.SiteKey, r.Error)
		}
	}

	if err != nil {
		return fmt.Errorf("crawl aborted: %w", err)
	}
	if failures == len(results) && failures > 0 {
		return errors.New("all sites failed")
	}
	return nil
}
