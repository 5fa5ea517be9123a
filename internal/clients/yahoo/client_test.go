package yahoo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	client := NewClient(zerolog.New(nil).Level(zerolog.Disabled))
	client.baseURL = serverURL
	return client
}

// TestGetHistoryParsesCandles verifies the chart response maps into
// dated candles with null bars dropped
func TestGetHistoryParsesCandles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		// 2026-03-09 and 2026-03-10 midnight UTC; middle bar has no close
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1772928000,1773014400,1773100800],
			"indicators":{"quote":[{
				"open":[149.0,null,151.0],
				"high":[151.0,null,156.0],
				"low":[148.0,null,150.0],
				"close":[150.0,null,154.5],
				"volume":[1000,null,2000]
			}]}
		}]}}`))
	}))
	defer server.Close()

	candles, err := newTestClient(server.URL).GetHistory("AAPL", 60)

	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 150.0, candles[0].Close)
	assert.Equal(t, 154.5, candles[1].Close)
	assert.Equal(t, int64(2000), candles[1].Volume)
}

// TestGetHistoryAPIError verifies a chart-level error surfaces as an error
func TestGetHistoryAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetHistory("BADSYM", 60)

	assert.Error(t, err)
}

// TestGetFundamentals verifies the quote summary raw values map onto the
// optional fundamentals fields
func TestGetFundamentals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/XOM", r.URL.Path)
		w.Write([]byte(`{"quoteSummary":{"result":[{
			"summaryDetail":{"trailingPE":{"raw":12.5}},
			"financialData":{
				"earningsGrowth":{"raw":0.15},
				"revenueGrowth":{"raw":0.08},
				"profitMargins":{"raw":0.11},
				"debtToEquity":{"raw":45.2},
				"targetMeanPrice":{"raw":130.0},
				"currentPrice":{"raw":110.0}
			}
		}]}}`))
	}))
	defer server.Close()

	f, err := newTestClient(server.URL).GetFundamentals("XOM")

	require.NoError(t, err)
	require.NotNil(t, f.PE)
	assert.Equal(t, 12.5, *f.PE)
	require.NotNil(t, f.DebtEquity)
	assert.Equal(t, 45.2, *f.DebtEquity)
	require.NotNil(t, f.CurrentPrice)
	assert.Equal(t, 110.0, *f.CurrentPrice)
}

// TestGetFundamentalsMissingFields verifies absent metrics stay nil
// instead of failing
func TestGetFundamentalsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary":{"result":[{"summaryDetail":{},"financialData":{}}]}}`))
	}))
	defer server.Close()

	f, err := newTestClient(server.URL).GetFundamentals("NEM")

	require.NoError(t, err)
	assert.Equal(t, "NEM", f.Symbol)
	assert.Nil(t, f.PE)
	assert.Nil(t, f.AnalystTarget)
}

// TestRangeForDays verifies lookbacks map to the provider's range buckets
func TestRangeForDays(t *testing.T) {
	assert.Equal(t, "1mo", rangeForDays(20))
	assert.Equal(t, "3mo", rangeForDays(60))
	assert.Equal(t, "6mo", rangeForDays(120))
	assert.Equal(t, "1y", rangeForDays(250))
	assert.Equal(t, "1y", rangeForDays(0))
}
