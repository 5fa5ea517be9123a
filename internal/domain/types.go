package domain

import "time"

// Fundamentals holds the fundamental metrics used for value scoring.
// Every metric is optional; a nil pointer means the data provider had no
// value for it and the scorer falls back to a neutral score.
type Fundamentals struct {
	Symbol        string
	PE            *float64 // Trailing P/E ratio
	EPSGrowth     *float64 // Year-over-year EPS growth, fractional
	RevenueGrowth *float64 // Year-over-year revenue growth, fractional
	ProfitMargin  *float64 // Net profit margin, fractional
	DebtEquity    *float64 // Debt-to-equity ratio
	AnalystTarget *float64 // Mean analyst price target
	CurrentPrice  *float64
}

// Candle is one daily price bar
type Candle struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// MarketDataClient provides historical prices and fundamentals.
// Implementations wrap a market data provider; tests substitute mocks.
type MarketDataClient interface {
	GetHistory(symbol string, days int) ([]Candle, error)
	GetFundamentals(symbol string) (*Fundamentals, error)
}

// TradeRecord is a single entry in the append-only trade ledger
type TradeRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    OrderAction `json:"action"`
	Symbol    string      `json:"symbol"`
	Quantity  int         `json:"quantity"`
	Price     float64     `json:"price"`
	Total     float64     `json:"total"`
	Reason    string      `json:"reason"`
	Sector    string      `json:"sector"`
}

// Holding is one open position tracked by the portfolio
type Holding struct {
	Symbol      string  `json:"symbol"`
	Quantity    int     `json:"quantity"`
	AvgCost     float64 `json:"avg_cost"`
	MarketValue float64 `json:"market_value"`
	TotalGain   float64 `json:"total_gain"`
	Sector      string  `json:"sector"`
}
