package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docscrape/docscrape/internal/store"
)

// NewResumeCmd creates the resume command.
func NewResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume an interrupted crawl",
		Long: `Resume continues an interrupted crawl for a site: pages already
crawled successfully are skipped, and pages that were pending or failed
are re-enqueued.

Examples:
  # Resume one site
  docscrape resume --site godocs

  # Dump the visited store for audit instead of crawling
  docscrape resume --site godocs --dump-visited visited.log`,
		RunE: runResumeCmd,
	}

	cmd.Flags().String("site", "", "Site key to resume (required)")
	cmd.Flags().String("dump-visited", "", "Write the visited store to this path and exit")
	return cmd
}

// runResumeCmd executes the resume command.
func runResumeCmd(cmd *cobra.Command, args []string) error {
	site, _ := cmd.Flags().GetString("site")
	if site == "" {
		return errors.New("--site is required for resume")
	}

	if dumpPath, _ := cmd.Flags().GetString("dump-visited"); dumpPath != "" {
		return dumpVisited(cmd, site, dumpPath)
	}

	return runCrawl(cmd, true)
}

// dumpVisited writes the site's visited store as key\tvalue lines.
func dumpVisited(cmd *cobra.Command, site, dumpPath string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	siteConfig, ok := cfg.Sites[site]
	if !ok {
		return fmt.Errorf("unknown site key %q", site)
	}

	st, err := store.Open(
		filepath.Join(cfg.StateDir, siteConfig.AllowedDomain),
		store.Options{Resume: true, EnableWAL: true},
	)
	if err != nil {
		return fmt.Errorf("failed to open visited store: %w", err)
	}
	defer st.Close()

	if err := st.WriteVisitedLog(dumpPath); err != nil {
		return err
	}

	count, err := st.GetVisitedCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d page records to %s\n", count, dumpPath)
	return nil
}
