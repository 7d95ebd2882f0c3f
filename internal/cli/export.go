// internal/cli/export.go
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wpitallo/crawlee/internal/export"
	"github.com/wpitallo/crawlee/internal/ui"
)

var exportFormat string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export the crawl dataset to a file",
	Long: `Write all records collected by previous runs to a file.

Formats:
  json      indented JSON array (HTML captures omitted)
  csv       one row per record over the union of record fields
  markdown  a readable document with HTML captures converted to Markdown`,
	Example: `  # Export as JSON (inferred from the extension)
  crawlee export data.json

  # Export as CSV
  crawlee export data.csv

  # Force a format regardless of extension
  crawlee export pages.txt --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Export format: json, csv, or markdown (default: inferred from extension)")
}

func runExport(cmd *cobra.Command, args []string) error {
	application := GetApp(cmd)
	if application == nil {
		return fmt.Errorf("application not initialized")
	}
	path := args[0]

	format := exportFormat
	if format == "" {
		format = formatFromExtension(path)
	}

	records, err := application.Dataset.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(records) == 0 {
		fmt.Println(ui.Info("Dataset is empty; nothing to export."))
		return nil
	}

	if err := export.Save(records, format, path); err != nil {
		return err
	}

	fmt.Printf("%s Exported %d records to %s\n", ui.Success("✓"), len(records), path)
	return nil
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return export.FormatCSV
	case ".md", ".markdown":
		return export.FormatMarkdown
	default:
		return export.FormatJSON
	}
}
