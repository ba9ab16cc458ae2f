package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcoapp/arco-admin/internal/handler"
	"github.com/arcoapp/arco-admin/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long: `Generate the OpenAPI 3.1 document describing every route and action.
It is the same document the server serves at /openapi.json.`,
		Example: `  arco openapi
  arco openapi -o openapi.json --base-url https://admin.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(outputFile, baseURL)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL to list in the document")

	return cmd
}

func runOpenAPI(outputFile, baseURL string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	doc := handler.Document(openapi.Info{
		Version:    versionString(),
		BaseURL:    baseURL,
		CookieName: cfg.Session.CookieName,
	})

	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if outputFile == "" {
		fmt.Println(string(jsonBytes))
		return nil
	}
	if err := os.WriteFile(outputFile, append(jsonBytes, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", outputFile, err)
	}
	fmt.Printf("Wrote %s (%d paths)\n", outputFile, doc.Paths.Len())
	return nil
}
