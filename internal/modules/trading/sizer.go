// Package trading sizes decisions into share quantities and executes
// them, either against a simulated ledger or a live brokerage.
package trading

import (
	"github.com/apetros/valuecycle/internal/config"
)

// Sizer converts signals into share quantities under the position caps
type Sizer struct {
	cfg config.RiskConfig
}

// NewSizer creates a new position sizer
func NewSizer(cfg config.RiskConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// Size determines how many shares to buy.
//
// The sector budget is the portfolio value times the sector's target
// allocation, split evenly across the sector's symbols and capped at
// the per-position fraction of the portfolio. Returns 0 when the price
// or portfolio value is non-positive or the budget cannot cover one
// share. Callers still cap the resulting cost against available cash.
func (s *Sizer) Size(price, portfolioValue, sectorAllocation float64, numSectorStocks int) int {
	if price <= 0 || portfolioValue <= 0 {
		return 0
	}

	if numSectorStocks < 1 {
		numSectorStocks = 1
	}
	perStockBudget := portfolioValue * sectorAllocation / float64(numSectorStocks)

	maxBudget := portfolioValue * s.cfg.MaxPositionPct
	budget := perStockBudget
	if budget > maxBudget {
		budget = maxBudget
	}

	qty := int(budget / price)
	if qty < 0 {
		return 0
	}
	return qty
}
