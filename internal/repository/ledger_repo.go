package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/junglepay/forwarder/internal/domain"
)

// LedgerRepo is the idempotency ledger. One row per (storeId, invoiceId);
// the claim is the sole serialization point for settlement processing.
type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// TryClaim attempts to take exclusive ownership of an invoice. It is a
// single atomic insert against the (store_id, invoice_id) primary key, not
// a read followed by a write: under concurrent deliveries exactly one
// caller observes Claimed.
func (r *LedgerRepo) TryClaim(ctx context.Context, storeID, invoiceID string) (domain.ClaimResult, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (store_id, invoice_id, is_processing, is_processed, created_at, updated_at)
		 VALUES (?, ?, 1, 0, ?, ?)
		 ON CONFLICT(store_id, invoice_id) DO NOTHING`,
		storeID, invoiceID, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert claim: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	} else if n == 1 {
		return domain.Claimed, nil
	}

	// Row already exists. A processed row is terminal; a processing row is
	// an in-flight duplicate. A row with both flags clear was released by
	// an administrator and may be re-claimed, again atomically.
	entry, err := r.Get(ctx, storeID, invoiceID)
	if err != nil {
		return 0, err
	}
	if entry.IsProcessed {
		return domain.AlreadyProcessed, nil
	}
	if entry.IsProcessing {
		return domain.AlreadyProcessing, nil
	}

	res, err = r.db.ExecContext(ctx,
		`UPDATE invoices SET is_processing = 1, updated_at = ?
		 WHERE store_id = ? AND invoice_id = ? AND is_processing = 0 AND is_processed = 0`,
		now, storeID, invoiceID,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return domain.Claimed, nil
	}
	return domain.AlreadyProcessing, nil
}

// MarkProcessed transitions a claimed invoice to its terminal state. This
// is the only way out of "processing".
func (r *LedgerRepo) MarkProcessed(ctx context.Context, storeID, invoiceID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET is_processing = 0, is_processed = 1, updated_at = ?
		 WHERE store_id = ? AND invoice_id = ?`,
		now, storeID, invoiceID,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Release clears a stuck processing flag so a later redelivery can
// re-claim the invoice. Administrative operation; it never touches
// processed rows.
func (r *LedgerRepo) Release(ctx context.Context, storeID, invoiceID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET is_processing = 0, updated_at = ?
		 WHERE store_id = ? AND invoice_id = ? AND is_processing = 1 AND is_processed = 0`,
		now, storeID, invoiceID,
	)
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns the ledger entry for an invoice, or domain.ErrNotFound.
func (r *LedgerRepo) Get(ctx context.Context, storeID, invoiceID string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	var createdStr, updatedStr string

	err := r.db.QueryRowContext(ctx,
		`SELECT store_id, invoice_id, is_processing, is_processed, created_at, updated_at
		 FROM invoices WHERE store_id = ? AND invoice_id = ?`,
		storeID, invoiceID,
	).Scan(&entry.StoreID, &entry.InvoiceID, &entry.IsProcessing, &entry.IsProcessed, &createdStr, &updatedStr)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}

	entry.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	entry.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return &entry, nil
}
