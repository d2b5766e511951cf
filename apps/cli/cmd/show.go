package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var showBodyFlag bool

var showCmd = &cobra.Command{
	Use:   "show <response-id>",
	Short: "Show a recorded response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.store.GetHttpResponse(cmd.Context(), args[0])
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		if jsonFlag {
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		fmt.Fprintf(a.out, "%s %s\n", resp.State, resp.URL)
		return printResponse(a.out, resp, true, showBodyFlag)
	},
}

func init() {
	showCmd.Flags().BoolVarP(&showBodyFlag, "body", "b", false, "Print the response body")
	showCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the stored response record as JSON")
}
