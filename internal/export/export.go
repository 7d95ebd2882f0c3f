// internal/export/export.go
package export

import (
	"fmt"

	"github.com/wpitallo/crawlee/pkg/models"
)

// Supported export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// htmlKey is the record field holding a page's raw markup capture. JSON and
// CSV exports omit it; the Markdown export renders it.
const htmlKey = "html"

// Save writes records to path in the given format.
func Save(records []models.Record, format, path string) error {
	switch format {
	case FormatJSON:
		return SaveJSON(records, path)
	case FormatCSV:
		return SaveCSV(records, path)
	case FormatMarkdown, "md":
		return SaveMarkdown(records, path)
	default:
		return fmt.Errorf("unsupported export format %q (supported: json, csv, markdown)", format)
	}
}

func stripHTML(rec models.Record) models.Record {
	if _, ok := rec[htmlKey]; !ok {
		return rec
	}
	out := make(models.Record, len(rec))
	for k, v := range rec {
		if k != htmlKey {
			out[k] = v
		}
	}
	return out
}
