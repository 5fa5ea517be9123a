// Package window computes median-centred trading windows.
// The centre is the median of recent closes; the band extends a fixed
// fraction either side. A price's position inside the band maps to a
// zone that drives signal generation.
package window

import (
	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/domain"
	"github.com/apetros/valuecycle/pkg/formulas"
)

// Zone classifies where a price sits relative to its trading window
type Zone string

const (
	ZoneStrongBuy  Zone = "STRONG_BUY"
	ZoneBuy        Zone = "BUY"
	ZoneHold       Zone = "HOLD"
	ZoneSell       Zone = "SELL"
	ZoneStrongSell Zone = "STRONG_SELL"
)

// minBars is the minimum number of closes required to form a window
const minBars = 10

// Result holds the computed window for one symbol
type Result struct {
	Symbol       string  `json:"symbol"`
	Center       float64 `json:"center"`
	Upper        float64 `json:"upper"`
	Lower        float64 `json:"lower"`
	CurrentPrice float64 `json:"current_price"`
	Position     float64 `json:"position"` // 0.0 = lower bound, 1.0 = upper bound
	ZScore       float64 `json:"z_score"`
	Volatility   float64 `json:"volatility"` // Annualized
}

// Calculator computes trading windows from historical closes
type Calculator struct {
	cfg    config.WindowConfig
	logger zerolog.Logger
}

// NewCalculator creates a new window calculator
func NewCalculator(cfg config.WindowConfig, logger zerolog.Logger) *Calculator {
	return &Calculator{
		cfg:    cfg,
		logger: logger.With().Str("component", "window").Logger(),
	}
}

// Compute builds the trading window for a symbol from its daily candles.
// currentPrice of 0 falls back to the latest close. Returns nil when
// there is not enough history to form a window.
func (c *Calculator) Compute(symbol string, candles []domain.Candle, currentPrice float64) *Result {
	if len(candles) < minBars {
		return nil
	}

	closes := make([]float64, 0, len(candles))
	for _, candle := range candles {
		closes = append(closes, candle.Close)
	}
	if len(closes) > c.cfg.LookbackDays {
		closes = closes[len(closes)-c.cfg.LookbackDays:]
	}
	if len(closes) < minBars {
		return nil
	}

	center := formulas.Median(closes)
	upper := center * (1 + c.cfg.HalfWidth)
	lower := center * (1 - c.cfg.HalfWidth)

	if currentPrice == 0 {
		currentPrice = closes[len(closes)-1]
	}

	// Position can run outside [0, 1] when the price has left the band;
	// classification relies on that.
	position := 0.5
	if width := upper - lower; width > 0 {
		position = (currentPrice - lower) / width
	}

	zScore := 0.0
	if std := formulas.StdDev(closes); std > 0 {
		zScore = (currentPrice - formulas.Mean(closes)) / std
	}

	volatility := 0.0
	if returns := formulas.CalculateReturns(closes); len(returns) > 1 {
		volatility = formulas.AnnualizedVolatility(returns)
	}

	return &Result{
		Symbol:       symbol,
		Center:       formulas.Round(center, 2),
		Upper:        formulas.Round(upper, 2),
		Lower:        formulas.Round(lower, 2),
		CurrentPrice: formulas.Round(currentPrice, 2),
		Position:     formulas.Round(position, 4),
		ZScore:       formulas.Round(zScore, 4),
		Volatility:   formulas.Round(volatility, 4),
	}
}

// ComputeAll computes windows for every symbol. Symbols without enough
// history map to a nil result.
func (c *Calculator) ComputeAll(symbols []string, historical map[string][]domain.Candle, livePrices map[string]float64) map[string]*Result {
	windows := make(map[string]*Result, len(symbols))
	for _, sym := range symbols {
		windows[sym] = c.Compute(sym, historical[sym], livePrices[sym])
	}

	c.logger.Debug().Int("symbols", len(windows)).Msg("Computed trading windows")

	return windows
}

// Classify translates a window position into a zone. A nil window is HOLD.
func (c *Calculator) Classify(w *Result) Zone {
	if w == nil {
		return ZoneHold
	}
	p := w.Position
	switch {
	case p < c.cfg.StrongBuyThreshold:
		return ZoneStrongBuy
	case p < c.cfg.BuyThreshold:
		return ZoneBuy
	case p > c.cfg.StrongSellThreshold:
		return ZoneStrongSell
	case p > c.cfg.SellThreshold:
		return ZoneSell
	default:
		return ZoneHold
	}
}
