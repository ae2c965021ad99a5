package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	// Writers queue instead of failing immediately under contention.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
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
		`CREATE TABLE IF NOT EXISTS stores (
			store_id TEXT PRIMARY KEY,
			payout_recipient TEXT NOT NULL,
			payout_rate REAL NOT NULL,
			offramp_percent REAL,
			offramp_account TEXT,
			offramp_recipient TEXT,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tip_recipients (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			rail_address TEXT NOT NULL,
			position INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(store_id, rail_address),
			FOREIGN KEY (store_id) REFERENCES stores(store_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tip_recipients_store ON tip_recipients(store_id)`,

		// The primary key doubles as the idempotency guarantee: only one
		// insert per (store_id, invoice_id) can ever succeed.
		`CREATE TABLE IF NOT EXISTS invoices (
			store_id TEXT NOT NULL,
			invoice_id TEXT NOT NULL,
			is_processing INTEGER NOT NULL,
			is_processed INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (store_id, invoice_id)
		)`,

		`CREATE TABLE IF NOT EXISTS payments (
			payment_id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			invoice_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			recipient TEXT,
			amount_msat INTEGER NOT NULL,
			fee_retained_msat INTEGER NOT NULL DEFAULT 0,
			timestamp INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_store ON payments(store_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(store_id, invoice_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
