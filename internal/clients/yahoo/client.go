// Package yahoo implements the market data client over the public
// Yahoo Finance endpoints: daily candle history from the chart API and
// fundamentals from the quote summary API.
package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/domain"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client is the Yahoo Finance implementation of domain.MarketDataClient
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewClient creates a new market data client
func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		logger:     logger.With().Str("client", "yahoo").Logger(),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetHistory fetches daily candles covering at least the requested
// number of trading days, oldest first. Bars with no close (halted or
// partial days) are dropped.
func (c *Client) GetHistory(symbol string, days int) ([]domain.Candle, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		c.baseURL, symbol, rangeForDays(days))

	var parsed chartResponse
	if err := c.getJSON(url, &parsed); err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("history request for %s rejected: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	var candles []domain.Candle
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		candle := domain.Candle{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			candle.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			candle.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			candle.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE *rawValue `json:"trailingPE"`
				ForwardPE  *rawValue `json:"forwardPE"`
			} `json:"summaryDetail"`
			FinancialData struct {
				EarningsGrowth  *rawValue `json:"earningsGrowth"`
				RevenueGrowth   *rawValue `json:"revenueGrowth"`
				ProfitMargins   *rawValue `json:"profitMargins"`
				DebtToEquity    *rawValue `json:"debtToEquity"`
				TargetMeanPrice *rawValue `json:"targetMeanPrice"`
				CurrentPrice    *rawValue `json:"currentPrice"`
			} `json:"financialData"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v *rawValue) value() *float64 {
	if v == nil {
		return nil
	}
	return v.Raw
}

// GetFundamentals fetches the fundamental metrics for one symbol.
// Metrics Yahoo does not report come back nil, which downstream scoring
// treats as neutral.
func (c *Client) GetFundamentals(symbol string) (*domain.Fundamentals, error) {
	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,financialData",
		c.baseURL, symbol)

	var parsed quoteSummaryResponse
	if err := c.getJSON(url, &parsed); err != nil {
		return nil, fmt.Errorf("failed to fetch fundamentals for %s: %w", symbol, err)
	}

	f := &domain.Fundamentals{Symbol: symbol}
	if len(parsed.QuoteSummary.Result) == 0 {
		return f, nil
	}

	result := parsed.QuoteSummary.Result[0]
	f.PE = result.SummaryDetail.TrailingPE.value()
	if f.PE == nil {
		f.PE = result.SummaryDetail.ForwardPE.value()
	}
	f.EPSGrowth = result.FinancialData.EarningsGrowth.value()
	f.RevenueGrowth = result.FinancialData.RevenueGrowth.value()
	f.ProfitMargin = result.FinancialData.ProfitMargins.value()
	f.DebtEquity = result.FinancialData.DebtToEquity.value()
	f.AnalystTarget = result.FinancialData.TargetMeanPrice.value()
	f.CurrentPrice = result.FinancialData.CurrentPrice.value()

	return f, nil
}

func (c *Client) getJSON(url string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	// The public endpoints reject requests without a browser-ish agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; valuecycle/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func rangeForDays(days int) string {
	switch {
	case days <= 0 || days > 180:
		return "1y"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	default:
		return "6mo"
	}
}
