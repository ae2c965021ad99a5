package offramp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// rpcHandler routes mocked RPC methods by name.
func rpcHandler(t *testing.T, methods map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rpc", r.URL.Path)

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		body, ok := methods[req.Method]
		if !ok {
			t.Fatalf("unexpected rpc method %q", req.Method)
		}
		fmt.Fprint(w, body)
	}
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getRecipient": `{"result":{"element":{"id":"recip-42","activeProcessor":"proc-1"}}}`,
		"createOrder":  `{"result":{"element":{"invoice":"lnbc-order"}}}`,
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "user", "pass", time.Second, zap.NewNop().Sugar())
	invoice, err := client.CreateOrder(context.Background(), "acct", "recip-42", 242_000, "store-1-inv-1")
	require.NoError(t, err)
	assert.Equal(t, "lnbc-order", invoice)
}

func TestCreateOrderNoActiveProcessor(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getRecipient": `{"result":{"element":{"id":"recip-42","activeProcessor":""}}}`,
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "user", "pass", time.Second, zap.NewNop().Sugar())
	_, err := client.CreateOrder(context.Background(), "acct", "recip-42", 242_000, "ref")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active processor")
}

func TestCreateOrderRPCError(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getRecipient": `{"error":{"code":-32000,"message":"unknown recipient"}}`,
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "user", "pass", time.Second, zap.NewNop().Sugar())
	_, err := client.CreateOrder(context.Background(), "acct", "recip-42", 242_000, "ref")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown recipient")
}

func TestCreateOrderMissingElement(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getRecipient": `{"result":{}}`,
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "user", "pass", time.Second, zap.NewNop().Sugar())
	_, err := client.CreateOrder(context.Background(), "acct", "recip-42", 242_000, "ref")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing result element")
}

func TestRefreshTokenSetsBearer(t *testing.T) {
	var sawBearer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Method {
		case "login":
			fmt.Fprint(w, `{"result":{"element":{"token":"tok-1"}}}`)
		case "getRecipient":
			sawBearer = r.Header.Get("Authorization")
			fmt.Fprint(w, `{"result":{"element":{"id":"r","activeProcessor":"p"}}}`)
		case "createOrder":
			fmt.Fprint(w, `{"result":{"element":{"invoice":"lnbc-order"}}}`)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "user", "pass", time.Second, zap.NewNop().Sugar())
	require.NoError(t, client.refreshToken(context.Background()))

	_, err := client.CreateOrder(context.Background(), "acct", "r", 1000, "ref")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", sawBearer)
}

func TestRefreshTokenMissingToken(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"login": `{"result":{"element":{}}}`,
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "user", "pass", time.Second, zap.NewNop().Sugar())
	assert.Error(t, client.refreshToken(context.Background()))
}
