package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimitFlag int

var historyCmd = &cobra.Command{
	Use:   "history <request-id>",
	Short: "List recorded responses for a request, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		responses, err := a.store.ListHttpResponses(cmd.Context(), args[0], historyLimitFlag)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		if len(responses) == 0 {
			fmt.Fprintf(a.out, "No responses recorded for %s\n", args[0])
			return nil
		}

		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tSTATE\tSTATUS\tELAPSED\tSIZE\tERROR")
		for _, r := range responses {
			status := "-"
			if r.Status > 0 {
				status = statusColor(r.Status).Sprint(r.Status)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\t%s\t%s\n",
				r.ID, r.CreatedAt.Local().Format(time.DateTime), r.State, status, r.Elapsed, formatBytes(r.ContentLength), r.Error)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum number of responses to list")
}
