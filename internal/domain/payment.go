package domain

import "time"

// PaymentKind distinguishes the legs of one settlement's disbursement.
type PaymentKind string

const (
	PaymentKindOwner   PaymentKind = "owner"
	PaymentKindTip     PaymentKind = "tip"
	PaymentKindOffRamp PaymentKind = "offramp"
)

// PaymentRecord is one confirmed rail payment. Append-only; written only
// after the rail confirms the payment.
type PaymentRecord struct {
	PaymentID  string      `json:"payment_id"`
	StoreID    string      `json:"store_id"`
	InvoiceID  string      `json:"invoice_id"`
	Kind       PaymentKind `json:"kind"`
	Recipient  string      `json:"recipient,omitempty"`
	AmountMsat int64       `json:"amount_msat"`
	// FeeRetainedMsat is recorded on the owner leg only.
	FeeRetainedMsat int64     `json:"fee_retained_msat,omitempty"`
	Timestamp       int64     `json:"timestamp"`
	CreatedAt       time.Time `json:"created_at"`
}
