package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/junglepay/forwarder/internal/domain"
)

type StoreRepo struct {
	db *sql.DB
}

func NewStoreRepo(db *sql.DB) *StoreRepo {
	return &StoreRepo{db: db}
}

func (r *StoreRepo) Insert(ctx context.Context, store *domain.Store) error {
	var offPct, offAcct, offRecip any
	if store.OffRamp != nil {
		offPct = store.OffRamp.Percent
		offAcct = store.OffRamp.AccountToken
		offRecip = store.OffRamp.RecipientID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stores
		(store_id, payout_recipient, payout_rate, offramp_percent, offramp_account, offramp_recipient, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		store.StoreID, store.PayoutRecipient, store.PayoutRate,
		offPct, offAcct, offRecip, store.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

// Get returns the store config, or domain.ErrStoreNotFound.
func (r *StoreRepo) Get(ctx context.Context, storeID string) (*domain.Store, error) {
	var store domain.Store
	var createdStr string
	var offPct sql.NullFloat64
	var offAcct, offRecip sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT store_id, payout_recipient, payout_rate, offramp_percent, offramp_account, offramp_recipient, created_at
		 FROM stores WHERE store_id = ?`, storeID,
	).Scan(&store.StoreID, &store.PayoutRecipient, &store.PayoutRate, &offPct, &offAcct, &offRecip, &createdStr)
	if err == sql.ErrNoRows {
		return nil, domain.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}

	if offPct.Valid && offPct.Float64 > 0 {
		store.OffRamp = &domain.OffRampConfig{
			Percent:      offPct.Float64,
			AccountToken: offAcct.String,
			RecipientID:  offRecip.String,
		}
	}
	store.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return &store, nil
}

// ListTipRecipients returns a store's tip recipients in split order.
func (r *StoreRepo) ListTipRecipients(ctx context.Context, storeID string) ([]domain.TipRecipient, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, store_id, rail_address, position, created_at
		 FROM tip_recipients WHERE store_id = ? ORDER BY position ASC`, storeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tip recipients: %w", err)
	}
	defer rows.Close()

	var recipients []domain.TipRecipient
	for rows.Next() {
		var rec domain.TipRecipient
		var createdStr string
		if err := rows.Scan(&rec.ID, &rec.StoreID, &rec.RailAddress, &rec.Position, &createdStr); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

// AddTipRecipient appends a recipient at the end of the store's split order.
func (r *StoreRepo) AddTipRecipient(ctx context.Context, storeID, railAddress string) (*domain.TipRecipient, error) {
	var maxPos sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		"SELECT MAX(position) FROM tip_recipients WHERE store_id = ?", storeID,
	).Scan(&maxPos)
	if err != nil {
		return nil, fmt.Errorf("max position: %w", err)
	}

	rec := &domain.TipRecipient{
		ID:          uuid.NewString(),
		StoreID:     storeID,
		RailAddress: railAddress,
		Position:    int(maxPos.Int64) + 1,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tip_recipients (id, store_id, rail_address, position, created_at)
		 VALUES (?,?,?,?,?)`,
		rec.ID, rec.StoreID, rec.RailAddress, rec.Position, rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("insert tip recipient: %w", err)
	}
	return rec, nil
}

func (r *StoreRepo) RemoveTipRecipient(ctx context.Context, storeID, recipientID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM tip_recipients WHERE store_id = ? AND id = ?", storeID, recipientID,
	)
	if err != nil {
		return fmt.Errorf("delete tip recipient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
