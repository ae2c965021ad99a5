package btcpay

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

	"github.com/junglepay/forwarder/internal/domain"
)

func TestGetInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stores/store-1/invoices/inv-1", r.URL.Path)
		assert.Equal(t, "token api-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"inv-1","status":"Settled","amount":"10.00","currency":"USD"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key", time.Second)
	inv, err := client.GetInvoice(context.Background(), "store-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", inv.ID)
	assert.Equal(t, InvoiceStatusSettled, inv.Status)
}

func TestGetInvoiceMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"amount":"10.00"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key", time.Second)
	_, err := client.GetInvoice(context.Background(), "store-1", "inv-1")
	assert.ErrorIs(t, err, domain.ErrBadUpstreamData)
}

func TestConfirmedBTCTotalSumsOnlyBTC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stores/store-1/invoices/inv-1/payment-methods", r.URL.Path)
		fmt.Fprint(w, `[
			{"cryptoCode":"BTC","payments":[{"value":"0.00001"},{"value":"0.00002"}]},
			{"cryptoCode":"LTC","payments":[{"value":"5.0"}]}
		]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key", time.Second)
	total, err := client.ConfirmedBTCTotal(context.Background(), "store-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "0.00003", total.String())
}

func TestConfirmedBTCTotalBadValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"cryptoCode":"BTC","payments":[{"value":"not-a-number"}]}]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key", time.Second)
	_, err := client.ConfirmedBTCTotal(context.Background(), "store-1", "inv-1")
	assert.ErrorIs(t, err, domain.ErrBadUpstreamData)
}

func TestPosDataUnmarshalObject(t *testing.T) {
	var meta InvoiceMetadata
	raw := `{"orderId":"order-1","posData":{"tip":2,"subTotal":10,"total":12}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &meta))
	assert.Equal(t, 2.0, meta.PosData.Tip)
	assert.Equal(t, 10.0, meta.PosData.SubTotal)
	assert.Equal(t, 12.0, meta.PosData.Total)
}

func TestPosDataUnmarshalEncodedString(t *testing.T) {
	var meta InvoiceMetadata
	raw := `{"orderId":"order-1","posData":"{\"tip\":2,\"subTotal\":10,\"total\":12}"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &meta))
	assert.Equal(t, 2.0, meta.PosData.Tip)
	assert.Equal(t, 12.0, meta.PosData.Total)
}

func TestCreateStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/stores", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Test Store", body["name"])
		assert.Equal(t, "USD", body["defaultCurrency"])

		fmt.Fprint(w, `{"id":"store-new"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key", time.Second)
	id, err := client.CreateStore(context.Background(), CreateStoreParams{
		Name:            "Test Store",
		DefaultCurrency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "store-new", id)
}

func TestCreateWebhookRegistersSettledEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL              string `json:"url"`
			Secret           string `json:"secret"`
			AuthorizedEvents struct {
				Everything     bool     `json:"everything"`
				SpecificEvents []string `json:"specificEvents"`
			} `json:"authorizedEvents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://forwarder.example.com/api/v1/webhook", body.URL)
		assert.False(t, body.AuthorizedEvents.Everything)
		assert.Equal(t, []string{domain.EventTypeInvoiceSettled}, body.AuthorizedEvents.SpecificEvents)

		fmt.Fprint(w, `{"id":"wh-1"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "api-key", time.Second)
	id, err := client.CreateWebhook(context.Background(), "store-1",
		"https://forwarder.example.com/api/v1/webhook", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "wh-1", id)
}
