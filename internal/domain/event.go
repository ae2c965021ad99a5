package domain

// EventTypeInvoiceSettled is the only webhook event type that triggers
// disbursement; every other type is acknowledged as a no-op.
const EventTypeInvoiceSettled = "InvoiceSettled"

// SettlementEvent is one parsed, authenticated webhook delivery.
type SettlementEvent struct {
	StoreID    string `json:"storeId"`
	InvoiceID  string `json:"invoiceId"`
	DeliveryID string `json:"deliveryId"`
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp"`
	// ManuallyMarked means the invoice was marked settled without real
	// funds movement; the ledger entry is finalized but nothing is paid.
	ManuallyMarked bool `json:"manuallyMarked"`
}
