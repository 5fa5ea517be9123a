package etrade

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/domain"
)

func newTestClient(serverURL string) *Client {
	cfg := &config.Config{
		BrokerBaseURL:        serverURL,
		BrokerConsumerKey:    "key",
		BrokerConsumerSecret: "secret",
		BrokerAccessToken:    "token",
		BrokerAccessSecret:   "token-secret",
		QuoteBatchSize:       2,
	}
	return NewClient(cfg, zerolog.New(nil).Level(zerolog.Disabled))
}

// TestListAccountsFiltersClosed verifies closed accounts are dropped
func TestListAccountsFiltersClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/list.json", r.URL.Path)
		w.Write([]byte(`{"AccountListResponse":{"Accounts":{"Account":[
			{"accountId":"1","accountIdKey":"key-1","accountDesc":"Individual","accountStatus":"ACTIVE"},
			{"accountId":"2","accountIdKey":"key-2","accountDesc":"Old","accountStatus":"CLOSED"}
		]}}}`))
	}))
	defer server.Close()

	accounts, err := newTestClient(server.URL).ListAccounts()

	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "key-1", accounts[0].AccountIDKey)
}

// TestGetBalance verifies cash and total value are read from the
// computed balance block
func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/key-1/balance.json", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("realTimeNAV"))
		w.Write([]byte(`{"BalanceResponse":{"Computed":{
			"cashBuyingPower":12500.50,
			"RealTimeValues":{"totalAccountValue":98000.25}
		}}}`))
	}))
	defer server.Close()

	balance, err := newTestClient(server.URL).GetBalance("key-1")

	require.NoError(t, err)
	assert.Equal(t, 12500.50, balance.Cash)
	assert.Equal(t, 98000.25, balance.TotalValue)
}

// TestGetPositionsEmptyAccount verifies a 204 yields an empty slice
func TestGetPositionsEmptyAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	positions, err := newTestClient(server.URL).GetPositions("key-1")

	require.NoError(t, err)
	assert.Empty(t, positions)
}

// TestGetQuotesBatches verifies symbols are split into batches and the
// results merged
func TestGetQuotesBatches(t *testing.T) {
	var batches []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Path looks like /v1/market/quote/AAPL,MSFT.json
		part := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/market/quote/"), ".json")
		batches = append(batches, part)

		var quoteData []string
		for _, sym := range strings.Split(part, ",") {
			quoteData = append(quoteData,
				`{"Product":{"symbol":"`+sym+`"},"All":{"lastTrade":100.5}}`)
		}
		w.Write([]byte(`{"QuoteResponse":{"QuoteData":[` + strings.Join(quoteData, ",") + `]}}`))
	}))
	defer server.Close()

	quotes, err := newTestClient(server.URL).GetQuotes([]string{"AAPL", "MSFT", "XOM"})

	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL,MSFT", "XOM"}, batches)
	require.Len(t, quotes, 3)
	require.NotNil(t, quotes["XOM"].LastPrice)
	assert.Equal(t, 100.5, *quotes["XOM"].LastPrice)
}

// TestPreviewAndPlaceOrder verifies the two-phase order flow end to end
// against the wire format
func TestPreviewAndPlaceOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		payload := string(body)

		switch r.URL.Path {
		case "/v1/accounts/key-1/orders/preview.json":
			assert.Contains(t, payload, "<symbol>AAPL</symbol>")
			assert.Contains(t, payload, "<orderAction>BUY</orderAction>")
			assert.Contains(t, payload, "<limitPrice>150.50</limitPrice>")
			w.Write([]byte(`{"PreviewOrderResponse":{"PreviewIds":[{"previewId":123456}]}}`))
		case "/v1/accounts/key-1/orders/place.json":
			assert.Contains(t, payload, "<previewId>123456</previewId>")
			w.Write([]byte(`{"PlaceOrderResponse":{"OrderIds":[{"orderId":789}]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	req := domain.OrderRequest{
		AccountIDKey:  "key-1",
		Symbol:        "AAPL",
		Action:        domain.OrderActionBuy,
		Quantity:      10,
		LimitPrice:    150.50,
		ClientOrderID: "abc123",
	}

	preview, err := client.PreviewOrder(req)
	require.NoError(t, err)
	assert.Equal(t, "123456", preview.PreviewID)

	confirmation, err := client.PlaceOrder(req, preview.PreviewID)
	require.NoError(t, err)
	assert.Equal(t, "789", confirmation.OrderID)
}

// TestRenewSession verifies the renewal result maps from the HTTP status
func TestRenewSession(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/renew_access_token", r.URL.Path)
		w.WriteHeader(status)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	ok, err := client.RenewSession()
	require.NoError(t, err)
	assert.True(t, ok)

	status = http.StatusUnauthorized
	ok, err = client.RenewSession()
	require.NoError(t, err)
	assert.False(t, ok)
}
