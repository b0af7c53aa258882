package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewListSitesCmd creates the list-sites command.
func NewListSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-sites",
		Short: "List configured sites",
		RunE:  runListSitesCmd,
	}
}

// runListSitesCmd executes the list-sites command.
func runListSitesCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	keys := cfg.SiteKeys()
	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no sites configured")
		return nil
	}

	for _, key := range keys {
		site := cfg.Sites[key]
		scope := site.AllowedDomain
		if site.AllowedPathPrefix != "" {
			scope += site.AllowedPathPrefix
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s (%d seed(s))\n", key, scope, len(site.StartURLs))
	}
	return nil
}
