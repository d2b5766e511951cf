package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <request-file>...",
	Short: "Validate request files without sending them",
	Long: `Validate JSON or YAML request files against the request schema
without executing them.

Examples:
  hitsend validate login.json
  hitsend validate requests/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	hasErrors := false
	for _, file := range args {
		if _, err := loadRequestFile(file, ""); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return withExitCode(ExitUsageError, fmt.Errorf("validation failed"))
	}
	return nil
}
