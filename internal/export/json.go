// internal/export/json.go
package export

import (
	"encoding/json"
	"os"

	"github.com/wpitallo/crawlee/pkg/models"
)

// SaveJSON writes an indented JSON array of the records to path. Raw HTML
// captures are omitted from the output.
func SaveJSON(records []models.Record, path string) error {
	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, stripHTML(rec))
	}

	content, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0644)
}
