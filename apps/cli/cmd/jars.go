package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var jarsVerboseFlag bool

var jarsCmd = &cobra.Command{
	Use:   "jars",
	Short: "List cookie jars in the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		jars, err := a.store.ListCookieJars(cmd.Context(), a.cfg.Workspace)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}

		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCOOKIES\tUPDATED")
		for _, j := range jars {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", j.ID, j.Name, len(j.Cookies), j.UpdatedAt.Local().Format(time.DateTime))
		}
		if jarsVerboseFlag {
			for _, j := range jars {
				for _, c := range j.Cookies {
					fmt.Fprintf(tw, "  %s\t%s\t%s\t\n", j.Name, c.Domain, c.RawCookie)
				}
			}
		}
		return tw.Flush()
	},
}

func init() {
	jarsCmd.Flags().BoolVarP(&jarsVerboseFlag, "verbose", "v", false, "List every cookie")
}
