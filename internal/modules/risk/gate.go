package risk

import (
	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/config"
)

// Flags holds the result of evaluating risk constraints for a buy
type Flags struct {
	WashSaleBlocked     bool `json:"wash_sale_blocked"`
	MaxPositionsReached bool `json:"max_positions_reached"`
}

// Blocked reports whether any constraint forbids the buy
func (f Flags) Blocked() bool {
	return f.WashSaleBlocked || f.MaxPositionsReached
}

// Gate evaluates risk constraints before a buy is allowed through
type Gate struct {
	cfg        config.RiskConfig
	Wash       *WashSaleTracker
	Settlement *SettlementTracker
	logger     zerolog.Logger
}

// NewGate creates a risk gate around the two trackers
func NewGate(cfg config.RiskConfig, wash *WashSaleTracker, settlement *SettlementTracker, logger zerolog.Logger) *Gate {
	return &Gate{
		cfg:        cfg,
		Wash:       wash,
		Settlement: settlement,
		logger:     logger.With().Str("component", "risk").Logger(),
	}
}

// Evaluate checks the constraints for a potential buy of symbol given
// the current number of open positions
func (g *Gate) Evaluate(symbol string, numPositions int) Flags {
	return Flags{
		WashSaleBlocked:     g.Wash.IsBlocked(symbol),
		MaxPositionsReached: numPositions >= g.cfg.MaxPositions,
	}
}
