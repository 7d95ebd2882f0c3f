// internal/store/dataset.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wpitallo/crawlee/pkg/models"
)

// Dataset is the append-only sink for extracted records.
type Dataset struct {
	db *sql.DB
}

// NewDataset returns a dataset backed by the given database.
func NewDataset(db *DB) *Dataset {
	return &Dataset{db: db.sql}
}

// Push appends records to the dataset in order. A record's "url" value, when
// present, is also stored in its own column for filtering.
func (d *Dataset) Push(ctx context.Context, records ...models.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin dataset write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset (url, payload, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare dataset write: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		recURL, _ := rec["url"].(string)
		if _, err := stmt.ExecContext(ctx, recURL, string(payload), now); err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset write: %w", err)
	}
	return nil
}

// All returns every record in insertion order.
func (d *Dataset) All(ctx context.Context) ([]models.Record, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT payload FROM dataset ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}
		var rec models.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (d *Dataset) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dataset`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dataset: %w", err)
	}
	return n, nil
}
