package domain

import "time"

// ClaimResult is the outcome of an atomic ledger claim attempt.
type ClaimResult int

const (
	// Claimed means this caller won the claim and must process the invoice.
	Claimed ClaimResult = iota
	// AlreadyProcessing means another delivery holds the claim; reject.
	AlreadyProcessing
	// AlreadyProcessed means the invoice is terminal; safe no-op replay.
	AlreadyProcessed
)

func (c ClaimResult) String() string {
	switch c {
	case Claimed:
		return "claimed"
	case AlreadyProcessing:
		return "already_processing"
	case AlreadyProcessed:
		return "already_processed"
	default:
		return "unknown"
	}
}

// LedgerEntry is one row per (storeId, invoiceId). Entries are created on
// first claim and never deleted; IsProcessed is permanently terminal.
type LedgerEntry struct {
	StoreID      string    `json:"store_id"`
	InvoiceID    string    `json:"invoice_id"`
	IsProcessing bool      `json:"is_processing"`
	IsProcessed  bool      `json:"is_processed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
