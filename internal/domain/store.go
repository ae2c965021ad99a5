package domain

import "time"

// Store is one merchant configured for payout forwarding. The store is
// created at onboarding and read-only during settlement processing.
type Store struct {
	StoreID string `json:"store_id"`
	// PayoutRecipient is the rail address (an LNURL-pay username) that
	// receives the owner payout.
	PayoutRecipient string `json:"payout_recipient"`
	// PayoutRate is the fraction of gross the store keeps, e.g. 0.97
	// retains a 3% fee for the platform.
	PayoutRate float64        `json:"payout_rate"`
	OffRamp    *OffRampConfig `json:"off_ramp,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// OffRampConfig describes an optional fiat carve-out for a store.
type OffRampConfig struct {
	// Percent of the post-tip payout converted to fiat, in [0,1].
	Percent float64 `json:"percent"`
	// AccountToken identifies the store's account on the off-ramp provider.
	AccountToken string `json:"account_token"`
	// RecipientID is the provider-side id of the fiat recipient.
	RecipientID string `json:"recipient_id"`
}

// TipRecipient is one entry in a store's ordered tip split.
type TipRecipient struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	RailAddress string    `json:"rail_address"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}
