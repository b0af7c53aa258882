package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Validate loads the configuration file and reports every error and
warning without crawling anything.`,
		RunE: runValidateCmd,
	}
}

// runValidateCmd executes the validate command.
func runValidateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	result := cfg.Validate()

	for _, msg := range result.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", msg)
	}
	for _, msg := range result.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", msg)
	}

	if !result.OK() {
		return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
	}

	if len(result.Warnings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid with %d warning(s)\n", len(result.Warnings))
	}
	return nil
}
