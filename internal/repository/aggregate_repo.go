package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/domain"
)

type AggregateRepo struct {
	db *sql.DB
}

func NewAggregateRepo(db *sql.DB) *AggregateRepo {
	return &AggregateRepo{db: db}
}

// ReplaceRange swaps out every aggregate bucket in [from, to] for the given
// set, in one transaction. Replacing whole date ranges rather than upserting
// individual buckets is what makes recomputation and backfill idempotent:
// buckets that no longer have records simply disappear.
func (r *AggregateRepo) ReplaceRange(from, to time.Time, aggs []domain.Aggregate) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM settlement_aggregates WHERE settlement_date >= ? AND settlement_date <= ?",
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	); err != nil {
		return fmt.Errorf("clear range: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO settlement_aggregates
		(settlement_date, mcc, total_amount, total_fee, total_acq_share,
		 record_count, stale, computed_at)
		VALUES (?,?,?,?,?,?,0,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range aggs {
		a := &aggs[i]
		if _, err := stmt.Exec(
			a.SettlementDate.Format(domain.DateLayout), a.MCC,
			a.TotalAmount.String(), a.TotalFee.String(), a.TotalAcqShare.String(),
			a.RecordCount, a.ComputedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert bucket %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRange returns the stored buckets in [from, to].
func (r *AggregateRepo) ListRange(from, to time.Time) ([]domain.Aggregate, error) {
	rows, err := r.db.Query(
		`SELECT * FROM settlement_aggregates
		 WHERE settlement_date >= ? AND settlement_date <= ?
		 ORDER BY settlement_date, mcc`,
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAggregates(rows)
}

// StaleDates returns the distinct settlement dates with at least one stale
// bucket, in [from, to].
func (r *AggregateRepo) StaleDates(from, to time.Time) ([]time.Time, error) {
	rows, err := r.db.Query(
		`SELECT DISTINCT settlement_date FROM settlement_aggregates
		 WHERE stale = 1 AND settlement_date >= ? AND settlement_date <= ?`,
		from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		t, _ := time.Parse(domain.DateLayout, s)
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

func (r *AggregateRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM settlement_aggregates").Scan(&count)
	return count, err
}

func scanAggregates(rows *sql.Rows) ([]domain.Aggregate, error) {
	var aggs []domain.Aggregate
	for rows.Next() {
		var a domain.Aggregate
		var date, amount, fee, share, computedAt string
		var stale int

		err := rows.Scan(&date, &a.MCC, &amount, &fee, &share, &a.RecordCount, &stale, &computedAt)
		if err != nil {
			return nil, err
		}

		a.SettlementDate, _ = time.Parse(domain.DateLayout, date)
		a.TotalAmount, _ = decimal.NewFromString(amount)
		a.TotalFee, _ = decimal.NewFromString(fee)
		a.TotalAcqShare, _ = decimal.NewFromString(share)
		a.Stale = stale != 0
		a.ComputedAt, _ = time.Parse(time.RFC3339, computedAt)

		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}
