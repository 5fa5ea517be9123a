// Package risk enforces the constraints that gate buying: wash-sale
// repurchase blocks, T+1 settlement of sale proceeds, and the position
// count ceiling.
package risk

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/storage"
)

// WashSaleTracker blocks repurchase of symbols sold at a significant
// loss. Blocks persist across restarts and expire lazily on lookup.
type WashSaleTracker struct {
	cfg    config.RiskConfig
	store  *storage.Store
	path   string
	logger zerolog.Logger
	now    func() time.Time

	blocked map[string]time.Time // symbol -> block expiry
}

// NewWashSaleTracker creates a tracker and loads any persisted blocks
func NewWashSaleTracker(cfg config.RiskConfig, store *storage.Store, path string, logger zerolog.Logger) (*WashSaleTracker, error) {
	t := &WashSaleTracker{
		cfg:     cfg,
		store:   store,
		path:    path,
		logger:  logger.With().Str("component", "washsale").Logger(),
		now:     time.Now,
		blocked: make(map[string]time.Time),
	}

	if err := store.Load(path, &t.blocked); err != nil {
		return nil, err
	}
	if t.blocked == nil {
		t.blocked = make(map[string]time.Time)
	}

	return t, nil
}

// RecordSale records a completed sale. A loss at or above the threshold
// blocks the symbol for the configured number of days.
func (t *WashSaleTracker) RecordSale(symbol string, loss float64) {
	if loss < t.cfg.WashSaleLossThreshold {
		return
	}

	expiry := t.now().UTC().AddDate(0, 0, t.cfg.WashSaleBlockDays)
	t.blocked[symbol] = expiry

	t.logger.Info().
		Str("symbol", symbol).
		Float64("loss", loss).
		Time("until", expiry).
		Msg("Wash sale block recorded")

	if err := t.store.Save(t.path, t.blocked); err != nil {
		t.logger.Error().Err(err).Msg("Failed to persist wash sale blocks")
	}
}

// IsBlocked reports whether a symbol is currently blocked from repurchase
func (t *WashSaleTracker) IsBlocked(symbol string) bool {
	t.purgeExpired()
	_, blocked := t.blocked[symbol]
	return blocked
}

// BlockedSymbols returns all currently blocked symbols
func (t *WashSaleTracker) BlockedSymbols() []string {
	t.purgeExpired()
	symbols := make([]string, 0, len(t.blocked))
	for sym := range t.blocked {
		symbols = append(symbols, sym)
	}
	return symbols
}

func (t *WashSaleTracker) purgeExpired() {
	now := t.now().UTC()
	purged := false
	for sym, expiry := range t.blocked {
		if !expiry.After(now) {
			delete(t.blocked, sym)
			purged = true
		}
	}
	if purged {
		if err := t.store.Save(t.path, t.blocked); err != nil {
			t.logger.Error().Err(err).Msg("Failed to persist wash sale blocks")
		}
	}
}
