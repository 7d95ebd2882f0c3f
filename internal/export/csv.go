// internal/export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/wpitallo/crawlee/pkg/models"
)

// SaveCSV writes records to a CSV file at path. The header is the sorted
// union of all record keys; raw HTML captures are omitted. Records missing a
// column get an empty cell.
func SaveCSV(records []models.Record, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var headers []string
	for _, rec := range records {
		for k := range rec {
			if k == htmlKey || seen[k] {
				continue
			}
			seen[k] = true
			headers = append(headers, k)
		}
	}
	sort.Strings(headers)

	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, rec := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = formatValue(rec[h])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
