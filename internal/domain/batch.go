package domain

import "time"

// ImportBatch summarises one import attempt. A batch row is written even when
// every row in the extract turned out to be a duplicate, so that re-imports
// stay visible to operators.
type ImportBatch struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	RowsSeen     int       `json:"rows_seen"`
	RowsInserted int       `json:"rows_inserted"`
	RowsSkipped  int       `json:"rows_skipped"`
	ImportedAt   time.Time `json:"imported_at"`
}
