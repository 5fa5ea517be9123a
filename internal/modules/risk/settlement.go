package risk

import (
	"time"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// SettlementTracker models T+1 settlement: cash from a sale is not
// spendable until the next calendar day. State is intentionally
// memory-only; after a restart pending proceeds count as available,
// matching what the broker reports.
type SettlementTracker struct {
	logger zerolog.Logger
	now    func() time.Time

	pending map[string]float64 // settle date -> amount
}

// NewSettlementTracker creates an empty settlement tracker
func NewSettlementTracker(logger zerolog.Logger) *SettlementTracker {
	return &SettlementTracker{
		logger:  logger.With().Str("component", "settlement").Logger(),
		now:     time.Now,
		pending: make(map[string]float64),
	}
}

// RecordSaleProceeds records proceeds from a sale, available the next day
func (t *SettlementTracker) RecordSaleProceeds(amount float64) {
	settleDate := t.now().UTC().AddDate(0, 0, 1).Format(dateLayout)
	t.pending[settleDate] += amount

	t.logger.Info().
		Float64("amount", amount).
		Str("available", settleDate).
		Msg("Sale proceeds pending settlement")
}

// UnavailableCash returns the total still pending settlement. Settled
// entries are dropped as a side effect.
func (t *SettlementTracker) UnavailableCash() float64 {
	today := t.now().UTC().Format(dateLayout)

	total := 0.0
	for date, amount := range t.pending {
		if date > today {
			total += amount
		} else {
			delete(t.pending, date)
		}
	}
	return total
}
