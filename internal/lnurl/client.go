// Package lnurl resolves rail addresses to payable bolt11 invoices via the
// LNURL-pay flow.
package lnurl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// payResponse is the LNURL-pay wire shape. The descriptor response carries
// callback; the amount-bearing response carries pr. An explicit
// status:"ERROR" payload is a hard failure either way.
type payResponse struct {
	Callback string `json:"callback"`
	Pr       string `json:"pr"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Resolve checks that a rail address exists and has a pay callback.
func (c *Client) Resolve(ctx context.Context, address string) error {
	resp, err := c.fetch(ctx, address, 0)
	if err != nil {
		return err
	}
	if resp.Callback == "" {
		return fmt.Errorf("address %s: no pay callback", address)
	}
	return nil
}

// FetchInvoice requests a bolt11 invoice for amountMsat from the address's
// pay endpoint.
func (c *Client) FetchInvoice(ctx context.Context, address string, amountMsat int64) (string, error) {
	resp, err := c.fetch(ctx, address, amountMsat)
	if err != nil {
		return "", err
	}
	if resp.Pr == "" {
		return "", fmt.Errorf("address %s: no invoice in response", address)
	}
	return resp.Pr, nil
}

func (c *Client) fetch(ctx context.Context, address string, amountMsat int64) (*payResponse, error) {
	url := c.baseURL + "/.well-known/lnurlp/" + address
	if amountMsat > 0 {
		url = fmt.Sprintf("%s?amount=%d", url, amountMsat)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lnurl fetch %s: %w", address, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lnurl fetch %s: unexpected status %d", address, httpResp.StatusCode)
	}

	var resp payResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode lnurl response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("lnurl error for %s: %s", address, resp.Reason)
	}
	return &resp, nil
}
