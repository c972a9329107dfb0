package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianpay/rtgs-engine/internal/domain"
)

type BatchRepo struct {
	db *sql.DB
}

func NewBatchRepo(db *sql.DB) *BatchRepo {
	return &BatchRepo{db: db}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertBatch(e execer, b *domain.ImportBatch) error {
	_, err := e.Exec(
		`INSERT INTO import_batches
		(id, source, rows_seen, rows_inserted, rows_skipped, imported_at)
		VALUES (?,?,?,?,?,?)`,
		b.ID, b.Source, b.RowsSeen, b.RowsInserted, b.RowsSkipped,
		b.ImportedAt.Format(time.RFC3339),
	)
	return err
}

func insertBatchTx(tx *sql.Tx, b *domain.ImportBatch) error {
	return insertBatch(tx, b)
}

func (r *BatchRepo) GetByID(id string) (*domain.ImportBatch, error) {
	row := r.db.QueryRow("SELECT * FROM import_batches WHERE id = ?", id)

	var b domain.ImportBatch
	var importedAt string
	err := row.Scan(&b.ID, &b.Source, &b.RowsSeen, &b.RowsInserted, &b.RowsSkipped, &importedAt)
	if err != nil {
		return nil, err
	}
	b.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
	return &b, nil
}

func (r *BatchRepo) List() ([]domain.ImportBatch, error) {
	rows, err := r.db.Query("SELECT * FROM import_batches ORDER BY imported_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []domain.ImportBatch
	for rows.Next() {
		var b domain.ImportBatch
		var importedAt string
		if err := rows.Scan(&b.ID, &b.Source, &b.RowsSeen, &b.RowsInserted, &b.RowsSkipped, &importedAt); err != nil {
			return nil, err
		}
		b.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *BatchRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM import_batches").Scan(&count)
	return count, err
}

// DeleteBatch removes exactly the records attributed to the batch plus the
// batch log entry, and marks the aggregate buckets those records fed into as
// stale. Staleness instead of deletion avoids a window with no aggregate at
// all; the aggregator recomputes stale buckets on its next pass.
func (r *BatchRepo) DeleteBatch(batchID string) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Mark before deleting, while the batch's dates are still joinable.
	if _, err := tx.Exec(
		`UPDATE settlement_aggregates SET stale = 1
		 WHERE settlement_date IN
		   (SELECT DISTINCT settlement_date FROM settlement_records WHERE batch_id = ?)`,
		batchID,
	); err != nil {
		return 0, fmt.Errorf("mark aggregates stale: %w", err)
	}

	res, err := tx.Exec("DELETE FROM settlement_records WHERE batch_id = ?", batchID)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := tx.Exec("DELETE FROM import_batches WHERE id = ?", batchID); err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(deleted), nil
}

// DeleteAll removes every batch and every record in one transaction; prior
// state survives untouched if anything fails partway.
func (r *BatchRepo) DeleteAll() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE settlement_aggregates SET stale = 1"); err != nil {
		return fmt.Errorf("mark aggregates stale: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM settlement_records"); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM import_batches"); err != nil {
		return fmt.Errorf("delete batches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
