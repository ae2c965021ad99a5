// Package offramp converts a carved-out slice of a payout into fiat via a
// JSON-RPC-shaped provider API. Every failure here means "skip the
// off-ramp for this settlement"; it never aborts the owning invoice.
package offramp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      string `json:"id"`
}

// rpcEnvelope is the provider's response wrapper. Success is strictly the
// presence of the expected nested element; anything else is a failure.
type rpcEnvelope struct {
	Result struct {
		Element json.RawMessage `json:"element"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *zap.SugaredLogger

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL, username, password string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// CreateOrder resolves the recipient's active payment processor on the
// provider and places an order for amountMsat, returning the
// rail-denominated bolt11 invoice that funds it.
func (c *Client) CreateOrder(ctx context.Context, accountToken, recipientID string, amountMsat int64, referenceID string) (string, error) {
	var recipient struct {
		ID              string `json:"id"`
		ActiveProcessor string `json:"activeProcessor"`
	}
	err := c.call(ctx, "getRecipient", map[string]any{
		"account": accountToken,
		"id":      recipientID,
	}, &recipient)
	if err != nil {
		return "", fmt.Errorf("resolve recipient %s: %w", recipientID, err)
	}
	if recipient.ActiveProcessor == "" {
		return "", fmt.Errorf("recipient %s has no active processor", recipientID)
	}

	var order struct {
		Invoice string `json:"invoice"`
	}
	err = c.call(ctx, "createOrder", map[string]any{
		"account":    accountToken,
		"recipient":  recipientID,
		"processor":  recipient.ActiveProcessor,
		"amountMsat": amountMsat,
		"reference":  referenceID,
	}, &order)
	if err != nil {
		return "", fmt.Errorf("create order for %s: %w", recipientID, err)
	}
	if order.Invoice == "" {
		return "", fmt.Errorf("order for %s: no invoice in response", recipientID)
	}
	return order.Invoice, nil
}

// StartTokenRefresh runs the session-refresh housekeeping loop until ctx is
// cancelled. It logs in once immediately. Failures are logged and retried
// on the next tick; in-flight settlements are unaffected.
func (c *Client) StartTokenRefresh(ctx context.Context, interval time.Duration) {
	if err := c.refreshToken(ctx); err != nil {
		c.log.Warnw("offramp initial login failed", "err", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.refreshToken(ctx); err != nil {
				c.log.Warnw("offramp token refresh failed", "err", err)
			}
		}
	}
}

func (c *Client) refreshToken(ctx context.Context) error {
	var session struct {
		Token string `json:"token"`
	}
	err := c.call(ctx, "login", map[string]string{
		"username": c.username,
		"password": c.password,
	}, &session)
	if err != nil {
		return err
	}
	if session.Token == "" {
		return fmt.Errorf("login: no token in response")
	}

	c.mu.Lock()
	c.token = session.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	blob, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal rpc: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s: unexpected status %d", method, resp.StatusCode)
	}

	var envelope rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode rpc %s: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc %s: %s (%d)", method, envelope.Error.Message, envelope.Error.Code)
	}
	if len(envelope.Result.Element) == 0 {
		return fmt.Errorf("rpc %s: missing result element", method)
	}
	if err := json.Unmarshal(envelope.Result.Element, out); err != nil {
		return fmt.Errorf("decode rpc %s element: %w", method, err)
	}
	return nil
}
