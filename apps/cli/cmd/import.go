package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitsend/packages/importer/curl"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var importOutputFlag string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import requests from other tools",
}

var importCurlCmd = &cobra.Command{
	Use:   "curl [-- curl-command...]",
	Short: "Convert a curl command into a request file",
	Long: `Convert a curl command into a request file. The command is read from the
arguments after --, or from stdin when there are none.

Examples:
  hitsend import curl -o login.yaml -- curl -X POST https://api.example.com/login -d 'user=ada'
  pbpaste | hitsend import curl -o request.json`,
	RunE: importCurlCommand,
}

func init() {
	importCurlCmd.Flags().StringVarP(&importOutputFlag, "output", "o", "", "Write the request to this file (.json, .yaml or .yml) instead of stdout")
	importCmd.AddCommand(importCurlCmd)
}

func importCurlCommand(cmd *cobra.Command, args []string) error {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	command := strings.Join(quoted, " ")
	if command == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		command = string(data)
	}

	parsed, err := curl.Parse(command)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if parsed.Insecure || parsed.FollowRedirects {
		fmt.Fprintln(cmd.ErrOrStderr(), "note: -k and -L map to workspace settings and flags, not to the request")
	}

	data, err := encodeRequest(parsed.Request, isYAMLPath(importOutputFlag))
	if err != nil {
		return err
	}
	if importOutputFlag == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(importOutputFlag, data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", importOutputFlag)
	return nil
}

// shellQuote quotes an argument that the shell already split, so the curl
// tokenizer sees it as one token.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// encodeRequest writes the fields a request file carries. The store
// fills the rest.
func encodeRequest(req models.HttpRequest, asYAML bool) ([]byte, error) {
	doc := map[string]any{
		"name":   req.Name,
		"method": req.Method,
		"url":    req.URL,
	}
	if len(req.Headers) > 0 {
		doc["headers"] = req.Headers
	}
	if len(req.URLParameters) > 0 {
		doc["urlParameters"] = req.URLParameters
	}
	if req.BodyType != nil {
		doc["bodyType"] = *req.BodyType
		doc["body"] = req.Body
	}
	if req.AuthenticationType != nil {
		doc["authenticationType"] = *req.AuthenticationType
		doc["authentication"] = req.Authentication
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil || !asYAML {
		return append(data, '\n'), err
	}

	// Round trip through JSON so YAML uses the same field names.
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}
