package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianpay/rtgs-engine/internal/domain"
)

type CtRepo struct {
	db *sql.DB
}

func NewCtRepo(db *sql.DB) *CtRepo {
	return &CtRepo{db: db}
}

func (r *CtRepo) Insert(ct *domain.CtRecord) error {
	var ref any
	if ct.Reference != "" {
		ref = ct.Reference
	}
	_, err := r.db.Exec(
		`INSERT INTO ct_records (id, period, amount, reference, created_at, updated_at)
		 VALUES (?,?,?,?,?,?)`,
		ct.ID, ct.Period.Format(domain.DateLayout), ct.Amount, ref,
		ct.CreatedAt.Format(time.RFC3339), ct.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert ct record: %w", err)
	}
	return nil
}

func (r *CtRepo) Update(ct *domain.CtRecord) error {
	var ref any
	if ct.Reference != "" {
		ref = ct.Reference
	}
	res, err := r.db.Exec(
		"UPDATE ct_records SET period = ?, amount = ?, reference = ?, updated_at = ? WHERE id = ?",
		ct.Period.Format(domain.DateLayout), ct.Amount, ref,
		ct.UpdatedAt.Format(time.RFC3339), ct.ID,
	)
	if err != nil {
		return fmt.Errorf("update ct record: %w", err)
	}
	if ra, _ := res.RowsAffected(); ra == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *CtRepo) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM ct_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete ct record: %w", err)
	}
	if ra, _ := res.RowsAffected(); ra == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *CtRepo) GetByID(id string) (*domain.CtRecord, error) {
	row := r.db.QueryRow("SELECT * FROM ct_records WHERE id = ?", id)

	var ct domain.CtRecord
	var period, createdAt, updatedAt string
	var refNull sql.NullString
	err := row.Scan(&ct.ID, &period, &ct.Amount, &refNull, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	ct.Period, _ = time.Parse(domain.DateLayout, period)
	ct.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	ct.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if refNull.Valid {
		ct.Reference = refNull.String
	}
	return &ct, nil
}

// ListRange returns CT records with periods in [from, to].
func (r *CtRepo) ListRange(from, to time.Time) ([]domain.CtRecord, error) {
	rows, err := r.db.Query(
		"SELECT * FROM ct_records WHERE period >= ? AND period <= ? ORDER BY period",
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCtRecords(rows)
}

func (r *CtRepo) List() ([]domain.CtRecord, error) {
	rows, err := r.db.Query("SELECT * FROM ct_records ORDER BY period")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCtRecords(rows)
}

func scanCtRecords(rows *sql.Rows) ([]domain.CtRecord, error) {
	var cts []domain.CtRecord
	for rows.Next() {
		var ct domain.CtRecord
		var period, createdAt, updatedAt string
		var refNull sql.NullString

		if err := rows.Scan(&ct.ID, &period, &ct.Amount, &refNull, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		ct.Period, _ = time.Parse(domain.DateLayout, period)
		ct.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		ct.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		if refNull.Valid {
			ct.Reference = refNull.String
		}

		cts = append(cts, ct)
	}
	return cts, rows.Err()
}
