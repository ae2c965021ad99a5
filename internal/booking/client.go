// Package booking relays a settled invoice to a hotel-booking system's
// custom payment gateway. One-shot, no retries; unrelated to the payout
// core.
package booking

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	notifyURL string
	apiKey    string
	http      *http.Client
}

func NewClient(notifyURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		notifyURL: notifyURL,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// NotifyPaid marks a booking as paid on the booking system.
func (c *Client) NotifyPaid(ctx context.Context, bookingID, amount, invoiceID string) error {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("bookid", bookingID)
	params.Set("amount", amount)
	params.Set("description", "Payment processor invoice "+invoiceID)
	params.Set("payment_status", "Received")
	params.Set("txnid", invoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.notifyURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("booking notify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("booking notify: unexpected status %d", resp.StatusCode)
	}
	return nil
}
