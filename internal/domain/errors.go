package domain

import "errors"

var (
	// ErrStoreNotFound means the event references a store we never
	// onboarded. Data inconsistency; the claim is released.
	ErrStoreNotFound = errors.New("store not found")

	// ErrInvoiceInFlight means another delivery currently holds the
	// ledger claim for this invoice.
	ErrInvoiceInFlight = errors.New("invoice is currently processing")

	// ErrPayoutFailed means the owner rail payment did not confirm. The
	// claim is deliberately kept so no later redelivery can double-pay.
	ErrPayoutFailed = errors.New("owner payout failed")

	// ErrBadUpstreamData means a required field was missing from an
	// external payload. Strict parsing fails closed.
	ErrBadUpstreamData = errors.New("malformed upstream payload")

	// ErrNotFound is the generic repository miss.
	ErrNotFound = errors.New("not found")
)
