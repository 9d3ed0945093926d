package cli

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"intake_server/adapter/in/http"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var openapiFormat string

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the HTTP API description",
	Long:  `Print the OpenAPI 3 document served at /openapi.json, as JSON or YAML.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeOpenAPI(cmd.OutOrStdout(), openapiFormat)
	},
}

func init() {
	openapiCmd.Flags().StringVar(&openapiFormat, "format", "json", "Output format: json or yaml")
	rootCmd.AddCommand(openapiCmd)
}

func writeOpenAPI(w io.Writer, format string) error {
	doc := http.OpenAPIDocument()
	switch format {
	case "json":
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
