package disburse

import (
	"context"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/junglepay/forwarder/internal/btcpay"
	"github.com/junglepay/forwarder/internal/domain"
	"github.com/junglepay/forwarder/internal/lnd"
)

// mockLedger implements Ledger with overridable funcs and call tracking.
type mockLedger struct {
	mu sync.Mutex

	TryClaimFunc      func(ctx context.Context, storeID, invoiceID string) (domain.ClaimResult, error)
	MarkProcessedFunc func(ctx context.Context, storeID, invoiceID string) error
	ReleaseFunc       func(ctx context.Context, storeID, invoiceID string) error

	claims    int
	processed int
	released  int
}

func (m *mockLedger) TryClaim(ctx context.Context, storeID, invoiceID string) (domain.ClaimResult, error) {
	m.mu.Lock()
	m.claims++
	m.mu.Unlock()
	if m.TryClaimFunc != nil {
		return m.TryClaimFunc(ctx, storeID, invoiceID)
	}
	return domain.Claimed, nil
}

func (m *mockLedger) MarkProcessed(ctx context.Context, storeID, invoiceID string) error {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, storeID, invoiceID)
	}
	return nil
}

func (m *mockLedger) Release(ctx context.Context, storeID, invoiceID string) error {
	m.mu.Lock()
	m.released++
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, storeID, invoiceID)
	}
	return nil
}

type mockStores struct {
	GetFunc               func(ctx context.Context, storeID string) (*domain.Store, error)
	ListTipRecipientsFunc func(ctx context.Context, storeID string) ([]domain.TipRecipient, error)
}

func (m *mockStores) Get(ctx context.Context, storeID string) (*domain.Store, error) {
	return m.GetFunc(ctx, storeID)
}

func (m *mockStores) ListTipRecipients(ctx context.Context, storeID string) ([]domain.TipRecipient, error) {
	if m.ListTipRecipientsFunc != nil {
		return m.ListTipRecipientsFunc(ctx, storeID)
	}
	return nil, nil
}

type mockPayments struct {
	mu      sync.Mutex
	records []domain.PaymentRecord
	err     error
}

func (m *mockPayments) Insert(ctx context.Context, p *domain.PaymentRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.records = append(m.records, *p)
	m.mu.Unlock()
	return nil
}

func (m *mockPayments) byKind(kind domain.PaymentKind) []domain.PaymentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentRecord
	for _, r := range m.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

type mockSource struct {
	GetInvoiceFunc        func(ctx context.Context, storeID, invoiceID string) (*btcpay.Invoice, error)
	ConfirmedBTCTotalFunc func(ctx context.Context, storeID, invoiceID string) (decimal.Decimal, error)
}

func (m *mockSource) GetInvoice(ctx context.Context, storeID, invoiceID string) (*btcpay.Invoice, error) {
	return m.GetInvoiceFunc(ctx, storeID, invoiceID)
}

func (m *mockSource) ConfirmedBTCTotal(ctx context.Context, storeID, invoiceID string) (decimal.Decimal, error) {
	return m.ConfirmedBTCTotalFunc(ctx, storeID, invoiceID)
}

type mockRail struct {
	mu       sync.Mutex
	fetches  int
	FetchErr func(address string) error
}

func (m *mockRail) FetchInvoice(ctx context.Context, address string, amountMsat int64) (string, error) {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()
	if m.FetchErr != nil {
		if err := m.FetchErr(address); err != nil {
			return "", err
		}
	}
	return "lnbc-" + address, nil
}

type mockPayer struct {
	mu     sync.Mutex
	paid   []string
	PayErr func(bolt11 string) error
}

func (m *mockPayer) Pay(ctx context.Context, bolt11 string) (*lnd.Payment, error) {
	if m.PayErr != nil {
		if err := m.PayErr(bolt11); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	m.paid = append(m.paid, bolt11)
	n := len(m.paid)
	m.mu.Unlock()
	return &lnd.Payment{ID: "hash-" + strconv.Itoa(n)}, nil
}

type mockOffRamp struct {
	mu     sync.Mutex
	orders int
	err    error
}

func (m *mockOffRamp) CreateOrder(ctx context.Context, accountToken, recipientID string, amountMsat int64, referenceID string) (string, error) {
	m.mu.Lock()
	m.orders++
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return "lnbc-offramp-" + recipientID, nil
}
