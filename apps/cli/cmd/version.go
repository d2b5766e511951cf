package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hitsend build",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hitsend %s (%s, %s/%s, built %s)\n",
			version, runtime.Version(), runtime.GOOS, runtime.GOARCH, buildTime)
	},
}
