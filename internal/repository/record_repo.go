package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/domain"
)

type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

const insertRecordSQL = `INSERT OR IGNORE INTO settlement_records
	(id, source_key, batch_id, message_type, tran_type, mcc, terminal_type,
	 raw_amount, settlement_date, signed_amount, fee, acq_share, imported_at)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`

// InsertImport writes the batch log entry and its records in a single
// all-or-nothing transaction. Duplicate source keys are skipped by the
// uniqueness constraint, and the final counts land on the batch row before
// commit, so a batch log can never exist without its records or vice versa.
func (r *RecordRepo) InsertImport(batch *domain.ImportBatch, records []domain.SettlementRecord) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertBatchTx(tx, batch); err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}

	inserted, err := insertRecordsTx(tx, records)
	if err != nil {
		return 0, err
	}

	batch.RowsInserted = inserted
	batch.RowsSkipped = len(records) - inserted
	if _, err := tx.Exec(
		"UPDATE import_batches SET rows_inserted = ?, rows_skipped = ? WHERE id = ?",
		batch.RowsInserted, batch.RowsSkipped, batch.ID,
	); err != nil {
		return 0, fmt.Errorf("update batch counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// CreateBatch inserts the batch log row on its own. Used before chunked
// appends of very large imports.
func (r *RecordRepo) CreateBatch(b *domain.ImportBatch) error {
	return insertBatch(r.db, b)
}

// AppendChunk inserts one chunk of records for an existing batch and folds
// the outcome into the batch counts, committing as one sub-transaction so a
// crash mid-import leaves a consistent prefix with accurate counts.
func (r *RecordRepo) AppendChunk(batchID string, records []domain.SettlementRecord) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertRecordsTx(tx, records)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		`UPDATE import_batches
		 SET rows_inserted = rows_inserted + ?, rows_skipped = rows_skipped + ?
		 WHERE id = ?`,
		inserted, len(records)-inserted, batchID,
	); err != nil {
		return 0, fmt.Errorf("update batch counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func insertRecordsTx(tx *sql.Tx, records []domain.SettlementRecord) (int, error) {
	stmt, err := tx.Prepare(insertRecordSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range records {
		rec := &records[i]
		res, err := stmt.Exec(
			rec.ID, rec.SourceKey, rec.BatchID, rec.MessageType, rec.TranType,
			rec.MCC, rec.TerminalType, rec.RawAmount,
			rec.SettlementDate.Format(domain.DateLayout),
			rec.SignedAmount.String(), rec.Fee.String(), rec.AcqShare.String(),
			rec.ImportedAt.Format(time.RFC3339),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert record %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}
	return inserted, nil
}

// UpdateDerived rewrites the derived fields of the given records in one
// transaction. Derived fields are pure functions of the raw fields and the
// config in force; only a re-import or backfill may rewrite them.
func (r *RecordRepo) UpdateDerived(records []domain.SettlementRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"UPDATE settlement_records SET signed_amount = ?, fee = ?, acq_share = ? WHERE id = ?",
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		if _, err := stmt.Exec(
			rec.SignedAmount.String(), rec.Fee.String(), rec.AcqShare.String(), rec.ID,
		); err != nil {
			return fmt.Errorf("update record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByDateRange returns all records with settlement dates in [from, to],
// ordered by date then MCC. Both bounds are inclusive dates.
func (r *RecordRepo) GetByDateRange(from, to time.Time) ([]domain.SettlementRecord, error) {
	rows, err := r.db.Query(
		`SELECT * FROM settlement_records
		 WHERE settlement_date >= ? AND settlement_date <= ?
		 ORDER BY settlement_date, mcc`,
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// GetByBatch returns the records attributed to one import batch.
func (r *RecordRepo) GetByBatch(batchID string) ([]domain.SettlementRecord, error) {
	rows, err := r.db.Query(
		"SELECT * FROM settlement_records WHERE batch_id = ? ORDER BY settlement_date", batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

type RecordFilter struct {
	BatchID string
	MCC     string
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

func (r *RecordRepo) List(f RecordFilter) ([]domain.SettlementRecord, int, error) {
	where, args := buildRecordWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM settlement_records"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := "SELECT * FROM settlement_records" + where + " ORDER BY settlement_date DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	return records, total, err
}

func (r *RecordRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM settlement_records").Scan(&count)
	return count, err
}

// --- helpers ---

func buildRecordWhere(f RecordFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.BatchID != "" {
		clauses = append(clauses, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.MCC != "" {
		clauses = append(clauses, "mcc = ?")
		args = append(args, f.MCC)
	}
	if f.From != nil {
		clauses = append(clauses, "settlement_date >= ?")
		args = append(args, f.From.Format(domain.DateLayout))
	}
	if f.To != nil {
		clauses = append(clauses, "settlement_date <= ?")
		args = append(args, f.To.Format(domain.DateLayout))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanRecords(rows *sql.Rows) ([]domain.SettlementRecord, error) {
	var records []domain.SettlementRecord
	for rows.Next() {
		var rec domain.SettlementRecord
		var date, signed, fee, share, importedAt string

		err := rows.Scan(
			&rec.ID, &rec.SourceKey, &rec.BatchID, &rec.MessageType, &rec.TranType,
			&rec.MCC, &rec.TerminalType, &rec.RawAmount, &date, &signed, &fee,
			&share, &importedAt,
		)
		if err != nil {
			return nil, err
		}

		rec.SettlementDate, _ = time.Parse(domain.DateLayout, date)
		rec.SignedAmount, _ = decimal.NewFromString(signed)
		rec.Fee, _ = decimal.NewFromString(fee)
		rec.AcqShare, _ = decimal.NewFromString(share)
		rec.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)

		records = append(records, rec)
	}
	return records, rows.Err()
}
