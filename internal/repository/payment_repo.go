package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/junglepay/forwarder/internal/domain"
)

// PaymentRepo stores confirmed rail payments. Append-only; rows are never
// mutated after insert.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) Insert(ctx context.Context, p *domain.PaymentRecord) error {
	var recipient any
	if p.Recipient != "" {
		recipient = p.Recipient
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments
		(payment_id, store_id, invoice_id, kind, recipient, amount_msat, fee_retained_msat, timestamp, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.PaymentID, p.StoreID, p.InvoiceID, string(p.Kind), recipient,
		p.AmountMsat, p.FeeRetainedMsat, p.Timestamp, p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

type PaymentFilter struct {
	StoreID   string
	InvoiceID string
	Page      int
	Limit     int
}

func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter) ([]domain.PaymentRecord, int, error) {
	where := " WHERE store_id = ?"
	args := []any{f.StoreID}
	if f.InvoiceID != "" {
		where += " AND invoice_id = ?"
		args = append(args, f.InvoiceID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payments"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := `SELECT payment_id, store_id, invoice_id, kind, recipient, amount_msat, fee_retained_msat, timestamp, created_at
	      FROM payments` + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	return records, total, rows.Err()
}

func scanPayment(rows *sql.Rows) (*domain.PaymentRecord, error) {
	var rec domain.PaymentRecord
	var kind, createdStr string
	var recipientNull sql.NullString

	err := rows.Scan(
		&rec.PaymentID, &rec.StoreID, &rec.InvoiceID, &kind, &recipientNull,
		&rec.AmountMsat, &rec.FeeRetainedMsat, &rec.Timestamp, &createdStr,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = domain.PaymentKind(kind)
	if recipientNull.Valid {
		rec.Recipient = recipientNull.String
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return &rec, nil
}
