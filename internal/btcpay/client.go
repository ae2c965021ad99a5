// Package btcpay talks to the BTCPay-style payment processor: invoice
// detail and payment totals for the settlement path, plus the provisioning
// calls used at store onboarding.
package btcpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/junglepay/forwarder/internal/domain"
)

// btcCryptoCode is the only payment-method asset summed for payouts.
const btcCryptoCode = "BTC"

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetInvoice fetches the invoice detail for a store.
func (c *Client) GetInvoice(ctx context.Context, storeID, invoiceID string) (*Invoice, error) {
	var inv Invoice
	path := fmt.Sprintf("/api/v1/stores/%s/invoices/%s", storeID, invoiceID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &inv); err != nil {
		return nil, err
	}
	if inv.ID == "" || inv.Status == "" {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, domain.ErrBadUpstreamData)
	}
	return &inv, nil
}

// ConfirmedBTCTotal sums the confirmed BTC payment values on an invoice.
// Payment methods in any other asset are ignored.
func (c *Client) ConfirmedBTCTotal(ctx context.Context, storeID, invoiceID string) (decimal.Decimal, error) {
	var methods []paymentMethod
	path := fmt.Sprintf("/api/v1/stores/%s/invoices/%s/payment-methods", storeID, invoiceID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &methods); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, m := range methods {
		if m.CryptoCode != btcCryptoCode {
			continue
		}
		for _, p := range m.Payments {
			v, err := decimal.NewFromString(p.Value)
			if err != nil {
				return decimal.Zero, fmt.Errorf("payment value %q: %w", p.Value, domain.ErrBadUpstreamData)
			}
			total = total.Add(v)
		}
	}
	return total, nil
}

// --- provisioning ---

type CreateStoreParams struct {
	Name                 string `json:"name"`
	DefaultCurrency      string `json:"defaultCurrency"`
	DefaultLanguage      string `json:"defaultLang"`
	PaymentTolerance     int    `json:"paymentTolerance"`
	DefaultPaymentMethod string `json:"defaultPaymentMethod"`
	CustomLogo           string `json:"customLogo"`
}

func (c *Client) CreateStore(ctx context.Context, params CreateStoreParams) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/stores", params, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("create store: %w", domain.ErrBadUpstreamData)
	}
	return out.ID, nil
}

func (c *Client) CreateUser(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/users", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) GetUser(ctx context.Context, email string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/users/"+email, nil, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("get user: %w", domain.ErrBadUpstreamData)
	}
	return out.ID, nil
}

func (c *Client) AddUserToStore(ctx context.Context, storeID, userID string) error {
	body := map[string]string{"userId": userID, "role": "Guest"}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/v1/stores/%s/users", storeID), body, nil)
}

func (c *Client) CreateWebhook(ctx context.Context, storeID, url, secret string) (string, error) {
	body := map[string]any{
		"url":    url,
		"secret": secret,
		"authorizedEvents": map[string]any{
			"everything":     false,
			"specificEvents": []string{domain.EventTypeInvoiceSettled},
		},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/v1/stores/%s/webhooks", storeID), body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("create webhook: %w", domain.ErrBadUpstreamData)
	}
	return out.ID, nil
}

func (c *Client) EnableLightning(ctx context.Context, storeID string) error {
	body := map[string]any{"connectionString": "Internal Node", "enabled": true}
	path := fmt.Sprintf("/api/v1/stores/%s/payment-methods/LightningNetwork/%s", storeID, btcCryptoCode)
	return c.doJSON(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) EnableOnChain(ctx context.Context, storeID, derivationScheme string) error {
	body := map[string]any{"enabled": true, "derivationScheme": derivationScheme}
	path := fmt.Sprintf("/api/v1/stores/%s/payment-methods/onchain/%s", storeID, btcCryptoCode)
	return c.doJSON(ctx, http.MethodPut, path, body, nil)
}

// doJSON performs one authenticated request. out may be nil when the
// response body does not matter.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
