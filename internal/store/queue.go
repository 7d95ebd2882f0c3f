// internal/store/queue.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wpitallo/crawlee/pkg/models"
)

// ErrQueueEmpty is returned by Next when no pending request exists.
var ErrQueueEmpty = errors.New("request queue is empty")

// RequestQueue is the persistent crawl frontier. URLs are deduplicated by
// their normalized unique key, so offering a known page again is a no-op.
type RequestQueue struct {
	db *sql.DB
}

// NewRequestQueue returns a queue backed by the given database.
func NewRequestQueue(db *DB) *RequestQueue {
	return &RequestQueue{db: db.sql}
}

// QueueStats is a point-in-time snapshot of the queue.
type QueueStats struct {
	Pending    int
	InProgress int
	Handled    int
	Failed     int
}

// Total returns the number of requests the queue has ever accepted.
func (s QueueStats) Total() int {
	return s.Pending + s.InProgress + s.Handled + s.Failed
}

// Add offers one or more URLs to the queue. Each URL is normalized to its
// unique key first; URLs already known are reported with AlreadyPresent set
// and are not re-queued.
func (q *RequestQueue) Add(ctx context.Context, urls ...string) ([]models.AddedRequest, error) {
	added := make([]models.AddedRequest, 0, len(urls))
	for _, raw := range urls {
		key, err := UniqueKey(raw)
		if err != nil {
			return added, fmt.Errorf("failed to normalize %q: %w", raw, err)
		}

		id := newID()
		res, err := q.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO requests (id, unique_key, url, state, added_at) VALUES (?, ?, ?, ?, ?)`,
			id, key, raw, models.StatePending, time.Now().UnixMilli())
		if err != nil {
			return added, fmt.Errorf("failed to enqueue %q: %w", raw, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return added, fmt.Errorf("failed to enqueue %q: %w", raw, err)
		}
		if n == 0 {
			var existing string
			if err := q.db.QueryRowContext(ctx,
				`SELECT id FROM requests WHERE unique_key = ?`, key).Scan(&existing); err != nil {
				return added, fmt.Errorf("failed to look up %q: %w", raw, err)
			}
			added = append(added, models.AddedRequest{ID: existing, UniqueKey: key, AlreadyPresent: true})
			continue
		}
		added = append(added, models.AddedRequest{ID: id, UniqueKey: key})
	}
	return added, nil
}

// Next claims the oldest pending request and marks it in progress. Returns
// ErrQueueEmpty when nothing is pending.
func (q *RequestQueue) Next(ctx context.Context) (*models.Request, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim: %w", err)
	}
	defer tx.Rollback()

	var (
		req     models.Request
		addedAt int64
	)
	row := tx.QueryRowContext(ctx,
		`SELECT id, unique_key, url, COALESCE(loaded_url, ''), retries, added_at
		 FROM requests WHERE state = ? ORDER BY added_at, id LIMIT 1`, models.StatePending)
	if err := row.Scan(&req.ID, &req.UniqueKey, &req.URL, &req.LoadedURL, &req.Retries, &addedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to read next request: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET state = ? WHERE id = ?`, models.StateInProgress, req.ID); err != nil {
		return nil, fmt.Errorf("failed to claim request %s: %w", req.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to claim request %s: %w", req.ID, err)
	}

	req.AddedAt = time.UnixMilli(addedAt)
	return &req, nil
}

// MarkHandled records a request as successfully processed, persisting the
// post-redirect URL when navigation reported one.
func (q *RequestQueue) MarkHandled(ctx context.Context, id, loadedURL string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE requests SET state = ?, loaded_url = NULLIF(?, ''), handled_at = ? WHERE id = ?`,
		models.StateHandled, loadedURL, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to mark request %s handled: %w", id, err)
	}
	return nil
}

// MarkFailed records a failed attempt. With requeue set the request returns to
// the pending state with its retry count incremented; otherwise it is retired.
func (q *RequestQueue) MarkFailed(ctx context.Context, id string, requeue bool) error {
	var err error
	if requeue {
		_, err = q.db.ExecContext(ctx,
			`UPDATE requests SET state = ?, retries = retries + 1 WHERE id = ?`,
			models.StatePending, id)
	} else {
		_, err = q.db.ExecContext(ctx,
			`UPDATE requests SET state = ?, handled_at = ? WHERE id = ?`,
			models.StateFailed, time.Now().UnixMilli(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to mark request %s failed: %w", id, err)
	}
	return nil
}

// Reset returns any in-progress requests to the pending state. Called on
// startup so a crawl interrupted mid-request can be resumed.
func (q *RequestQueue) Reset(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE requests SET state = ? WHERE state = ?`, models.StatePending, models.StateInProgress)
	if err != nil {
		return fmt.Errorf("failed to reset in-progress requests: %w", err)
	}
	return nil
}

// Stats counts queued requests by state.
func (q *RequestQueue) Stats(ctx context.Context) (QueueStats, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM requests GROUP BY state`)
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	defer rows.Close()

	var stats QueueStats
	for rows.Next() {
		var (
			state models.RequestState
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return QueueStats{}, fmt.Errorf("failed to read queue stats: %w", err)
		}
		switch state {
		case models.StatePending:
			stats.Pending = n
		case models.StateInProgress:
			stats.InProgress = n
		case models.StateHandled:
			stats.Handled = n
		case models.StateFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}
