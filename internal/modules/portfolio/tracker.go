// Package portfolio tracks holdings, cash, and total value across
// cycles, rebuilt either from the live brokerage account or by
// replaying the simulated trade ledger.
package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/domain"
	"github.com/apetros/valuecycle/internal/storage"
	"github.com/apetros/valuecycle/internal/universe"
)

// State is the persisted portfolio snapshot
type State struct {
	Holdings   map[string]*domain.Holding `json:"holdings"`
	Cash       float64                    `json:"cash"`
	TotalValue float64                    `json:"total_value"`
}

// Tracker owns the portfolio state and its persistence
type Tracker struct {
	store  *storage.Store
	path   string
	logger zerolog.Logger

	state State
}

// NewTracker creates a tracker and loads any persisted state
func NewTracker(store *storage.Store, path string, logger zerolog.Logger) (*Tracker, error) {
	t := &Tracker{
		store:  store,
		path:   path,
		logger: logger.With().Str("component", "portfolio").Logger(),
	}

	if err := store.Load(path, &t.state); err != nil {
		return nil, fmt.Errorf("failed to load portfolio state: %w", err)
	}
	if t.state.Holdings == nil {
		t.state.Holdings = make(map[string]*domain.Holding)
	}

	return t, nil
}

// SyncFromBroker rebuilds state from the live account: balance plus
// positions as the broker reports them.
func (t *Tracker) SyncFromBroker(broker domain.BrokerClient, accountIDKey string) error {
	balance, err := broker.GetBalance(accountIDKey)
	if err != nil {
		return fmt.Errorf("failed to fetch account balance: %w", err)
	}
	positions, err := broker.GetPositions(accountIDKey)
	if err != nil {
		return fmt.Errorf("failed to fetch account positions: %w", err)
	}

	t.state.Cash = balance.Cash
	t.state.TotalValue = balance.TotalValue
	t.state.Holdings = make(map[string]*domain.Holding, len(positions))
	for _, pos := range positions {
		if pos.Symbol == "" {
			continue
		}
		t.state.Holdings[pos.Symbol] = &domain.Holding{
			Symbol:      pos.Symbol,
			Quantity:    int(pos.Quantity),
			AvgCost:     pos.PricePaid,
			MarketValue: pos.MarketValue,
			TotalGain:   pos.TotalGain,
			Sector:      universe.SectorOf(pos.Symbol),
		}
	}

	t.logger.Info().
		Int("positions", len(t.state.Holdings)).
		Float64("cash", t.state.Cash).
		Float64("total", t.state.TotalValue).
		Msg("Portfolio synced from broker")

	return t.save()
}

// SyncFromLedger rebuilds state by replaying the trade ledger from a
// fixed initial cash balance. Replay is deterministic: the same ordered
// trades always produce the same state. Held positions are valued at
// average cost here, not mark-to-market.
func (t *Tracker) SyncFromLedger(trades []domain.TradeRecord, initialCash float64) error {
	t.state.Holdings = make(map[string]*domain.Holding)
	t.state.Cash = initialCash

	for _, trade := range trades {
		switch trade.Action {
		case domain.OrderActionBuy:
			cost := float64(trade.Quantity) * trade.Price
			t.state.Cash -= cost
			if h, ok := t.state.Holdings[trade.Symbol]; ok {
				totalQty := h.Quantity + trade.Quantity
				totalCost := h.AvgCost*float64(h.Quantity) + cost
				h.Quantity = totalQty
				if totalQty > 0 {
					h.AvgCost = totalCost / float64(totalQty)
				} else {
					h.AvgCost = 0
				}
			} else {
				t.state.Holdings[trade.Symbol] = &domain.Holding{
					Symbol:   trade.Symbol,
					Quantity: trade.Quantity,
					AvgCost:  trade.Price,
					Sector:   universe.SectorOf(trade.Symbol),
				}
			}

		case domain.OrderActionSell:
			t.state.Cash += float64(trade.Quantity) * trade.Price
			if h, ok := t.state.Holdings[trade.Symbol]; ok {
				h.Quantity -= trade.Quantity
				if h.Quantity <= 0 {
					delete(t.state.Holdings, trade.Symbol)
				}
			}
		}
	}

	holdingsValue := 0.0
	for _, h := range t.state.Holdings {
		holdingsValue += float64(h.Quantity) * h.AvgCost
	}
	t.state.TotalValue = t.state.Cash + holdingsValue

	t.logger.Info().
		Int("positions", len(t.state.Holdings)).
		Float64("cash", t.state.Cash).
		Float64("total", t.state.TotalValue).
		Msg("Portfolio synced from ledger")

	return t.save()
}

// UpdateMarketValues recomputes total value using live prices, falling
// back to average cost for symbols without a quote
func (t *Tracker) UpdateMarketValues(livePrices map[string]float64) {
	holdingsValue := 0.0
	for sym, h := range t.state.Holdings {
		if price, ok := livePrices[sym]; ok {
			h.MarketValue = float64(h.Quantity) * price
			h.TotalGain = float64(h.Quantity) * (price - h.AvgCost)
			holdingsValue += h.MarketValue
		} else {
			holdingsValue += float64(h.Quantity) * h.AvgCost
		}
	}
	t.state.TotalValue = t.state.Cash + holdingsValue
}

// Save persists the current state
func (t *Tracker) Save() error {
	return t.save()
}

func (t *Tracker) save() error {
	if err := t.store.Save(t.path, t.state); err != nil {
		return fmt.Errorf("failed to persist portfolio state: %w", err)
	}
	return nil
}

// Cash returns the current cash balance
func (t *Tracker) Cash() float64 {
	return t.state.Cash
}

// TotalValue returns the most recently computed total value
func (t *Tracker) TotalValue() float64 {
	return t.state.TotalValue
}

// HeldSymbols returns the set of currently held symbols
func (t *Tracker) HeldSymbols() map[string]bool {
	held := make(map[string]bool, len(t.state.Holdings))
	for sym := range t.state.Holdings {
		held[sym] = true
	}
	return held
}

// NumPositions returns the count of open positions
func (t *Tracker) NumPositions() int {
	return len(t.state.Holdings)
}

// Position returns the holding for a symbol, or nil if not held
func (t *Tracker) Position(symbol string) *domain.Holding {
	return t.state.Holdings[symbol]
}

// Snapshot returns a copy of the current state for read-only consumers
func (t *Tracker) Snapshot() State {
	holdings := make(map[string]*domain.Holding, len(t.state.Holdings))
	for sym, h := range t.state.Holdings {
		copied := *h
		holdings[sym] = &copied
	}
	return State{
		Holdings:   holdings,
		Cash:       t.state.Cash,
		TotalValue: t.state.TotalValue,
	}
}
