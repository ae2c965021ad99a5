// Package disburse drives one settlement event end-to-end: ledger claim,
// settlement verification, payout computation, off-ramp leg, owner payout
// and tip payouts.
package disburse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/junglepay/forwarder/internal/btcpay"
	"github.com/junglepay/forwarder/internal/domain"
	"github.com/junglepay/forwarder/internal/lnd"
	"github.com/junglepay/forwarder/internal/payout"
)

// Ledger is the idempotency gate. TryClaim must be atomic at the storage
// level; it is the only serialization point between concurrent deliveries
// of the same invoice.
type Ledger interface {
	TryClaim(ctx context.Context, storeID, invoiceID string) (domain.ClaimResult, error)
	MarkProcessed(ctx context.Context, storeID, invoiceID string) error
	Release(ctx context.Context, storeID, invoiceID string) error
}

// StoreSource provides read-only store configuration.
type StoreSource interface {
	Get(ctx context.Context, storeID string) (*domain.Store, error)
	ListTipRecipients(ctx context.Context, storeID string) ([]domain.TipRecipient, error)
}

// PaymentLog records confirmed rail payments.
type PaymentLog interface {
	Insert(ctx context.Context, p *domain.PaymentRecord) error
}

// SettlementSource supplies invoice detail and confirmed totals.
type SettlementSource interface {
	GetInvoice(ctx context.Context, storeID, invoiceID string) (*btcpay.Invoice, error)
	ConfirmedBTCTotal(ctx context.Context, storeID, invoiceID string) (decimal.Decimal, error)
}

// InvoiceRequester resolves a rail address into a payable bolt11 invoice
// for a given amount.
type InvoiceRequester interface {
	FetchInvoice(ctx context.Context, address string, amountMsat int64) (string, error)
}

// Payer settles bolt11 invoices on the rail.
type Payer interface {
	Pay(ctx context.Context, bolt11 string) (*lnd.Payment, error)
}

// OffRamp places a fiat conversion order and returns the rail invoice that
// funds it. Optional; nil disables the carve-out globally.
type OffRamp interface {
	CreateOrder(ctx context.Context, accountToken, recipientID string, amountMsat int64, referenceID string) (string, error)
}

// Status summarises how an event was handled. Every status maps to an ack;
// failures are reported through the error return instead.
type Status string

const (
	StatusProcessed        Status = "processed"
	StatusAlreadyProcessed Status = "already_processed"
	StatusIgnored          Status = "ignored"
	StatusNotSettled       Status = "not_settled"
	StatusManuallyMarked   Status = "manually_marked"
)

// Outcome reports a completed (or deliberately skipped) disbursement.
type Outcome struct {
	Status         Status            `json:"status"`
	Breakdown      *payout.Breakdown `json:"breakdown,omitempty"`
	OwnerPaymentID string            `json:"owner_payment_id,omitempty"`
	TipsPaid       int               `json:"tips_paid,omitempty"`
	TipsFailed     int               `json:"tips_failed,omitempty"`
	OffRampDone    bool              `json:"off_ramp_done,omitempty"`
}

// Service is the disbursement orchestrator.
type Service struct {
	ledger   Ledger
	stores   StoreSource
	payments PaymentLog
	source   SettlementSource
	rail     InvoiceRequester
	payer    Payer
	offRamp  OffRamp
	log      *zap.SugaredLogger
}

func NewService(
	ledger Ledger,
	stores StoreSource,
	payments PaymentLog,
	source SettlementSource,
	rail InvoiceRequester,
	payer Payer,
	offRamp OffRamp,
	log *zap.SugaredLogger,
) *Service {
	return &Service{
		ledger:   ledger,
		stores:   stores,
		payments: payments,
		source:   source,
		rail:     rail,
		payer:    payer,
		offRamp:  offRamp,
		log:      log,
	}
}

// Process handles one settlement event. A nil error means the event is
// acknowledged; a non-nil error tells the delivery mechanism to redeliver.
// The ledger claim is released only for data-inconsistency failures;
// anything after funds may have moved fails closed with the claim held.
func (s *Service) Process(ctx context.Context, event domain.SettlementEvent) (*Outcome, error) {
	if event.Type != domain.EventTypeInvoiceSettled {
		return &Outcome{Status: StatusIgnored}, nil
	}

	claim, err := s.ledger.TryClaim(ctx, event.StoreID, event.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("ledger claim: %w", err)
	}
	switch claim {
	case domain.AlreadyProcessing:
		s.log.Infow("duplicate delivery while in flight",
			"store", event.StoreID, "invoice", event.InvoiceID, "delivery", event.DeliveryID)
		return nil, domain.ErrInvoiceInFlight
	case domain.AlreadyProcessed:
		return &Outcome{Status: StatusAlreadyProcessed}, nil
	}

	// Manually marked settlements moved no funds; finalize the entry so no
	// later delivery attempts a payout for this invoice.
	if event.ManuallyMarked {
		if err := s.ledger.MarkProcessed(ctx, event.StoreID, event.InvoiceID); err != nil {
			return nil, fmt.Errorf("finalize manually marked invoice: %w", err)
		}
		return &Outcome{Status: StatusManuallyMarked}, nil
	}

	store, err := s.stores.Get(ctx, event.StoreID)
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			s.release(ctx, event)
		}
		return nil, err
	}

	inv, err := s.source.GetInvoice(ctx, event.StoreID, event.InvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrBadUpstreamData) {
			s.release(ctx, event)
		}
		return nil, fmt.Errorf("fetch invoice: %w", err)
	}
	if inv.Status != btcpay.InvoiceStatusSettled {
		// Non-event: acknowledge and let a future delivery retry.
		s.release(ctx, event)
		return &Outcome{Status: StatusNotSettled}, nil
	}

	totalBTC, err := s.source.ConfirmedBTCTotal(ctx, event.StoreID, event.InvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrBadUpstreamData) {
			s.release(ctx, event)
		}
		return nil, fmt.Errorf("fetch payment totals: %w", err)
	}

	grossMsat := payout.MsatFromBTC(totalBTC)
	if grossMsat <= 0 {
		s.release(ctx, event)
		return nil, fmt.Errorf("invoice %s: no confirmed BTC payments: %w",
			event.InvoiceID, domain.ErrBadUpstreamData)
	}

	recipients, err := s.stores.ListTipRecipients(ctx, event.StoreID)
	if err != nil {
		return nil, fmt.Errorf("list tip recipients: %w", err)
	}

	offRampPercent := 0.0
	if store.OffRamp != nil {
		offRampPercent = store.OffRamp.Percent
	}
	breakdown := payout.Compute(grossMsat, store.PayoutRate, payout.TipInfo{
		Tip:      inv.Metadata.PosData.Tip,
		SubTotal: inv.Metadata.PosData.SubTotal,
		Total:    inv.Metadata.PosData.Total,
	}, len(recipients) > 0, offRampPercent)

	s.log.Infow("computed payout",
		"store", event.StoreID, "invoice", event.InvoiceID,
		"gross_msat", breakdown.GrossMsat, "owner_msat", breakdown.OwnerMsat,
		"fee_msat", breakdown.FeeRetainedMsat, "tip_msat", breakdown.TipMsat,
		"offramp_msat", breakdown.OffRampMsat)

	outcome := &Outcome{Status: StatusProcessed, Breakdown: &breakdown}
	ownerMsat := breakdown.OwnerMsat

	// Off-ramp leg first, best effort. A failure leaves the full payout
	// with the owner.
	if store.OffRamp != nil && breakdown.OffRampMsat > 0 && s.offRamp != nil {
		if s.runOffRampLeg(ctx, event, store, breakdown.OffRampMsat) {
			ownerMsat -= breakdown.OffRampMsat
			outcome.OffRampDone = true
		}
	}

	// Owner payout. On failure the invoice stays claimed forever unless an
	// administrator releases it; that is the fail-closed choice.
	ownerPaymentID, err := s.payToAddress(ctx, store.PayoutRecipient, ownerMsat)
	if err != nil {
		s.log.Errorw("owner payout failed, invoice left claimed",
			"store", event.StoreID, "invoice", event.InvoiceID, "err", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPayoutFailed, err)
	}

	if err := s.ledger.MarkProcessed(ctx, event.StoreID, event.InvoiceID); err != nil {
		// Funds moved but the entry is still claimed; redeliveries will be
		// rejected by the claim, so no double payment can follow.
		return nil, fmt.Errorf("mark processed after payout: %w", err)
	}

	if ownerPaymentID != "" {
		s.recordPayment(ctx, &domain.PaymentRecord{
			PaymentID:       ownerPaymentID,
			StoreID:         event.StoreID,
			InvoiceID:       event.InvoiceID,
			Kind:            domain.PaymentKindOwner,
			Recipient:       store.PayoutRecipient,
			AmountMsat:      ownerMsat,
			FeeRetainedMsat: breakdown.FeeRetainedMsat,
			Timestamp:       event.Timestamp,
			CreatedAt:       time.Now().UTC(),
		})
	}
	outcome.OwnerPaymentID = ownerPaymentID

	s.payTips(ctx, event, recipients, breakdown.TipMsat, outcome)

	s.log.Infow("settlement disbursed",
		"store", event.StoreID, "invoice", event.InvoiceID,
		"owner_payment", ownerPaymentID,
		"tips_paid", outcome.TipsPaid, "tips_failed", outcome.TipsFailed)
	return outcome, nil
}

// runOffRampLeg places the fiat order and pays its funding invoice.
// Reports whether the carve-out succeeded; every failure is logged and
// skipped.
func (s *Service) runOffRampLeg(ctx context.Context, event domain.SettlementEvent, store *domain.Store, amountMsat int64) bool {
	reference := event.StoreID + "-" + event.InvoiceID
	bolt11, err := s.offRamp.CreateOrder(ctx, store.OffRamp.AccountToken, store.OffRamp.RecipientID, amountMsat, reference)
	if err != nil {
		s.log.Warnw("offramp order failed, skipping carve-out",
			"store", event.StoreID, "invoice", event.InvoiceID, "err", err)
		return false
	}

	pmt, err := s.payer.Pay(ctx, bolt11)
	if err != nil {
		s.log.Warnw("offramp funding payment failed, skipping carve-out",
			"store", event.StoreID, "invoice", event.InvoiceID, "err", err)
		return false
	}

	s.recordPayment(ctx, &domain.PaymentRecord{
		PaymentID:  pmt.ID,
		StoreID:    event.StoreID,
		InvoiceID:  event.InvoiceID,
		Kind:       domain.PaymentKindOffRamp,
		Recipient:  store.OffRamp.RecipientID,
		AmountMsat: amountMsat,
		Timestamp:  event.Timestamp,
		CreatedAt:  time.Now().UTC(),
	})
	return true
}

// payTips disburses the tip carve-out recipient by recipient. Failures are
// recorded as gaps, never as a reason to fail the settlement.
func (s *Service) payTips(ctx context.Context, event domain.SettlementEvent, recipients []domain.TipRecipient, tipMsat int64, outcome *Outcome) {
	if tipMsat <= 0 || len(recipients) == 0 {
		return
	}

	share, remainder := payout.SplitEvenly(tipMsat, len(recipients))
	if remainder > 0 {
		s.log.Debugw("tip split remainder discarded",
			"invoice", event.InvoiceID, "remainder_msat", remainder)
	}
	if share == 0 {
		return
	}

	for _, rec := range recipients {
		paymentID, err := s.payToAddress(ctx, rec.RailAddress, share)
		if err != nil {
			s.log.Warnw("tip payout failed",
				"store", event.StoreID, "invoice", event.InvoiceID,
				"recipient", rec.RailAddress, "err", err)
			outcome.TipsFailed++
			continue
		}
		if paymentID != "" {
			s.recordPayment(ctx, &domain.PaymentRecord{
				PaymentID:  paymentID,
				StoreID:    event.StoreID,
				InvoiceID:  event.InvoiceID,
				Kind:       domain.PaymentKindTip,
				Recipient:  rec.RailAddress,
				AmountMsat: share,
				Timestamp:  event.Timestamp,
				CreatedAt:  time.Now().UTC(),
			})
		}
		outcome.TipsPaid++
	}
}

// payToAddress resolves an address to an invoice for the amount and pays
// it. Zero amounts short-circuit to success without touching the rail; the
// empty payment id signals that no record should be written.
func (s *Service) payToAddress(ctx context.Context, address string, amountMsat int64) (string, error) {
	if amountMsat == 0 {
		return "", nil
	}

	bolt11, err := s.rail.FetchInvoice(ctx, address, amountMsat)
	if err != nil {
		return "", fmt.Errorf("fetch rail invoice for %s: %w", address, err)
	}

	pmt, err := s.payer.Pay(ctx, bolt11)
	if err != nil {
		return "", fmt.Errorf("pay %s: %w", address, err)
	}
	return pmt.ID, nil
}

// recordPayment appends a payment record; funds already moved, so failures
// here are logged rather than surfaced.
func (s *Service) recordPayment(ctx context.Context, p *domain.PaymentRecord) {
	if err := s.payments.Insert(ctx, p); err != nil {
		s.log.Errorw("failed to record payment",
			"payment", p.PaymentID, "invoice", p.InvoiceID, "kind", p.Kind, "err", err)
	}
}

func (s *Service) release(ctx context.Context, event domain.SettlementEvent) {
	if err := s.ledger.Release(ctx, event.StoreID, event.InvoiceID); err != nil {
		s.log.Errorw("failed to release claim",
			"store", event.StoreID, "invoice", event.InvoiceID, "err", err)
	}
}
