package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// database/sql would give every pooled connection its own private
	// in-memory database, so pin the pool to one connection up front.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS config_entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS import_batches (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			rows_seen INTEGER NOT NULL,
			rows_inserted INTEGER NOT NULL,
			rows_skipped INTEGER NOT NULL,
			imported_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS settlement_records (
			id TEXT PRIMARY KEY,
			source_key TEXT UNIQUE NOT NULL,
			batch_id TEXT NOT NULL,
			message_type TEXT NOT NULL,
			tran_type TEXT NOT NULL,
			mcc TEXT NOT NULL,
			terminal_type TEXT NOT NULL,
			raw_amount TEXT NOT NULL,
			settlement_date TEXT NOT NULL,
			signed_amount TEXT NOT NULL,
			fee TEXT NOT NULL,
			acq_share TEXT NOT NULL,
			imported_at DATETIME NOT NULL,
			FOREIGN KEY (batch_id) REFERENCES import_batches(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlement_records_batch ON settlement_records(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_settlement_records_date ON settlement_records(settlement_date)`,
		`CREATE INDEX IF NOT EXISTS idx_settlement_records_mcc ON settlement_records(mcc)`,

		`CREATE TABLE IF NOT EXISTS settlement_aggregates (
			settlement_date TEXT NOT NULL,
			mcc TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			total_fee TEXT NOT NULL,
			total_acq_share TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			stale INTEGER NOT NULL DEFAULT 0,
			computed_at DATETIME NOT NULL,
			PRIMARY KEY (settlement_date, mcc)
		)`,

		`CREATE TABLE IF NOT EXISTS ct_records (
			id TEXT PRIMARY KEY,
			period TEXT NOT NULL,
			amount TEXT NOT NULL,
			reference TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ct_records_period ON ct_records(period)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
