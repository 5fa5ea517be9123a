// Package engine runs the trading cycle: fetch data, score, compute
// windows and allocations, generate signals, size and execute orders,
// then reconcile the portfolio. One cycle is strictly sequential; the
// only concurrency is the status server reading snapshots.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/domain"
	"github.com/apetros/valuecycle/internal/modules/allocation"
	"github.com/apetros/valuecycle/internal/modules/history"
	"github.com/apetros/valuecycle/internal/modules/portfolio"
	"github.com/apetros/valuecycle/internal/modules/risk"
	"github.com/apetros/valuecycle/internal/modules/scoring"
	"github.com/apetros/valuecycle/internal/modules/signals"
	"github.com/apetros/valuecycle/internal/modules/trading"
	"github.com/apetros/valuecycle/internal/modules/window"
	"github.com/apetros/valuecycle/internal/universe"
)

// historyDays is how much daily history to keep on hand, enough for the
// window lookback and sector performance with margin
const historyDays = 252

// Snapshot is the read-only view of the last completed cycle, served by
// the status API
type Snapshot struct {
	Cycle          int                `json:"cycle"`
	Timestamp      time.Time          `json:"timestamp"`
	MarketOpen     bool               `json:"market_open"`
	ValueScores    map[string]float64 `json:"value_scores"`
	Allocations    map[string]float64 `json:"allocations"`
	Signals        []signals.Signal   `json:"signals"`
	BlockedSymbols []string           `json:"blocked_symbols"`
	Portfolio      portfolio.State    `json:"portfolio"`
}

// Deps bundles the collaborators the engine drives
type Deps struct {
	Config    *config.Config
	Broker    domain.BrokerClient // nil runs the cycle without live quotes
	Market    domain.MarketDataClient
	History   *history.DB // nil disables the local price cache
	Scorer    *scoring.Scorer
	Windows   *window.Calculator
	Allocator *allocation.Allocator
	Gate      *risk.Gate
	Generator *signals.Generator
	Sizer     *trading.Sizer
	Executor  trading.Executor
	Ledger    *trading.LedgerRepository // required in SIM mode
	Tracker   *portfolio.Tracker

	AccountIDKey string
	Logger       zerolog.Logger
}

// Engine owns the per-cycle control flow
type Engine struct {
	deps     Deps
	logger   zerolog.Logger
	now      func() time.Time
	marketTZ *time.Location

	// The data maps are replaced wholesale under dataMu and never
	// mutated in place; cycles run concurrently with the cron-driven
	// refresh.
	dataMu       sync.RWMutex
	fundamentals map[string]*domain.Fundamentals
	historical   map[string][]domain.Candle

	cycle int

	mu       sync.RWMutex
	snapshot Snapshot
}

// New creates an engine from its dependencies
func New(deps Deps) (*Engine, error) {
	tz, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("failed to load market timezone: %w", err)
	}

	return &Engine{
		deps:         deps,
		logger:       deps.Logger.With().Str("component", "engine").Logger(),
		now:          time.Now,
		marketTZ:     tz,
		fundamentals: make(map[string]*domain.Fundamentals),
		historical:   make(map[string][]domain.Candle),
	}, nil
}

// MarketOpen reports whether t falls within regular market hours,
// Monday through Friday in US Eastern time
func (e *Engine) MarketOpen(t time.Time) bool {
	now := t.In(e.marketTZ)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}

	cfg := e.deps.Config
	open := time.Date(now.Year(), now.Month(), now.Day(),
		cfg.MarketOpenHour, cfg.MarketOpenMinute, 0, 0, e.marketTZ)
	close := time.Date(now.Year(), now.Month(), now.Day(),
		cfg.MarketCloseHour, cfg.MarketCloseMinute, 0, 0, e.marketTZ)

	return !now.Before(open) && !now.After(close)
}

// RefreshData loads daily history and fundamentals for the whole
// universe. Failures are per symbol: a symbol whose provider fetch
// fails falls back to the local cache (history) or neutral defaults
// (fundamentals) and never aborts the refresh. The new maps are built
// aside and swapped in atomically; a cancelled refresh keeps the old
// data.
func (e *Engine) RefreshData(ctx context.Context) {
	symbols := universe.AllSymbols()
	e.logger.Info().Int("symbols", len(symbols)).Msg("Refreshing market data")

	_, prevHistorical := e.marketData()

	fundamentals := make(map[string]*domain.Fundamentals, len(symbols))
	historical := make(map[string][]domain.Candle, len(symbols))

	for _, sym := range symbols {
		if ctx.Err() != nil {
			return
		}

		historical[sym] = e.fetchHistory(sym, prevHistorical[sym])
		fundamentals[sym] = e.fetchFundamentals(sym)
	}

	e.dataMu.Lock()
	e.fundamentals = fundamentals
	e.historical = historical
	e.dataMu.Unlock()

	e.logger.Info().Msg("Market data refresh complete")
}

// marketData returns the current data maps. Holding the returned
// references outside the lock is safe because refresh replaces the
// maps instead of mutating them.
func (e *Engine) marketData() (map[string]*domain.Fundamentals, map[string][]domain.Candle) {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.fundamentals, e.historical
}

// fetchHistory resolves daily candles for one symbol: a cache already
// holding today's bar is served as is, otherwise the provider is
// queried and the cache updated. On provider failure the cache, then
// the previous in-memory candles, serve as fallbacks.
func (e *Engine) fetchHistory(sym string, prev []domain.Candle) []domain.Candle {
	if e.deps.History != nil {
		today := e.now().In(e.marketTZ).Format("2006-01-02")
		if latest, err := e.deps.History.LatestDate(sym); err == nil && latest == today {
			if cached := e.cachedHistory(sym); len(cached) > 0 {
				return cached
			}
		}
	}

	candles, err := e.deps.Market.GetHistory(sym, historyDays)
	if err != nil || len(candles) == 0 {
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", sym).Msg("History fetch failed")
		}
		if cached := e.cachedHistory(sym); len(cached) > 0 {
			return cached
		}
		return prev
	}

	if e.deps.History != nil {
		if err := e.deps.History.SyncDailyPrices(sym, candles); err != nil {
			e.logger.Warn().Err(err).Str("symbol", sym).Msg("History cache write failed")
		}
	}
	return candles
}

func (e *Engine) fetchFundamentals(sym string) *domain.Fundamentals {
	f, err := e.deps.Market.GetFundamentals(sym)
	if err != nil || f == nil {
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", sym).Msg("Fundamentals fetch failed")
		}
		return &domain.Fundamentals{Symbol: sym}
	}
	return f
}

func (e *Engine) cachedHistory(sym string) []domain.Candle {
	if e.deps.History == nil {
		return nil
	}
	candles, err := e.deps.History.GetDailyPrices(sym, historyDays)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", sym).Msg("History cache read failed")
		return nil
	}
	if len(candles) > 0 {
		e.logger.Debug().Str("symbol", sym).Int("bars", len(candles)).Msg("Using cached history")
	}
	return candles
}

// RunCycle executes one full trading cycle. Outside market hours the
// cycle is a no-op. Per-symbol and per-order failures are logged and
// skipped; only reconciliation failures surface as errors.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.cycle++
	now := e.now()
	e.logger.Info().Int("cycle", e.cycle).Msg("Cycle starting")

	if !e.MarketOpen(now) {
		e.logger.Info().Msg("Market closed, skipping cycle")
		e.publishSnapshot(now, false, nil, nil, nil)
		return nil
	}

	symbols := universe.AllSymbols()

	// Live quotes; without a broker the windows fall back to the last
	// historical close
	livePrices := make(map[string]float64)
	if e.deps.Broker != nil {
		quotes, err := e.deps.Broker.GetQuotes(symbols)
		if err != nil {
			e.logger.Error().Err(err).Msg("Quote fetch failed, continuing without live prices")
		}
		for sym, q := range quotes {
			if q.LastPrice != nil {
				livePrices[sym] = *q.LastPrice
			}
		}
	}

	fundamentals, historical := e.marketData()

	merged := mergeFundamentals(fundamentals, livePrices)
	scores := e.deps.Scorer.ScoreAll(merged)
	windows := e.deps.Windows.ComputeAll(symbols, historical, livePrices)

	perf := e.deps.Allocator.SectorPerformance(historical)
	allocations := e.deps.Allocator.Allocate(perf)

	e.deps.Tracker.UpdateMarketValues(livePrices)

	held := e.deps.Tracker.HeldSymbols()
	flags := make(map[string]risk.Flags, len(symbols))
	for _, sym := range symbols {
		flags[sym] = e.deps.Gate.Evaluate(sym, e.deps.Tracker.NumPositions())
	}

	sigs := e.deps.Generator.GenerateAll(scores, windows, held, flags)

	e.executeSignals(ctx, sigs, livePrices, allocations)

	if err := e.reconcile(); err != nil {
		return err
	}

	e.logger.Info().
		Int("cycle", e.cycle).
		Int("positions", e.deps.Tracker.NumPositions()).
		Float64("cash", e.deps.Tracker.Cash()).
		Float64("total", e.deps.Tracker.TotalValue()).
		Msg("Cycle complete")

	e.publishSnapshot(now, true, scores, allocations, sigs)
	return nil
}

// mergeFundamentals overlays live prices onto the cached fundamentals
// so the fair value gap uses the freshest price available
func mergeFundamentals(fundamentals map[string]*domain.Fundamentals, livePrices map[string]float64) map[string]*domain.Fundamentals {
	merged := make(map[string]*domain.Fundamentals, len(fundamentals))
	for sym, f := range fundamentals {
		copied := *f
		if price, ok := livePrices[sym]; ok {
			copied.CurrentPrice = &price
		}
		merged[sym] = &copied
	}
	return merged
}

// executeSignals walks the prioritized signals in order. Cancellation
// is checked between orders so shutdown never interrupts an order
// mid-flight. A failed order is logged and the rest still run.
func (e *Engine) executeSignals(ctx context.Context, sigs []signals.Signal, livePrices, allocations map[string]float64) {
	for _, sig := range sigs {
		if ctx.Err() != nil {
			e.logger.Info().Msg("Cancellation requested, stopping order execution")
			return
		}

		price, ok := livePrices[sig.Symbol]
		if !ok || price <= 0 {
			continue
		}

		switch sig.Action {
		case signals.ActionBuy, signals.ActionStrongBuy:
			e.executeBuy(sig, price, allocations)
		case signals.ActionSell:
			e.executeSell(sig, price)
		}
	}
}

func (e *Engine) executeBuy(sig signals.Signal, price float64, allocations map[string]float64) {
	alloc, ok := allocations[sig.Sector]
	if !ok {
		alloc = 0.33
	}
	numInSector := len(universe.Sectors[sig.Sector])

	qty := e.deps.Sizer.Size(price, e.deps.Tracker.TotalValue(), alloc, numInSector)
	if qty <= 0 {
		return
	}

	// Cap against settled cash
	available := e.deps.Tracker.Cash() - e.deps.Gate.Settlement.UnavailableCash()
	if float64(qty)*price > available {
		qty = int(available / price)
	}
	if qty <= 0 {
		return
	}

	if _, err := e.deps.Executor.ExecuteBuy(sig.Symbol, qty, price, sig.Reason); err != nil {
		e.logger.Error().Err(err).Str("symbol", sig.Symbol).Msg("Buy execution failed")
	}
}

func (e *Engine) executeSell(sig signals.Signal, price float64) {
	pos := e.deps.Tracker.Position(sig.Symbol)
	if pos == nil || pos.Quantity <= 0 {
		return
	}
	qty := pos.Quantity

	if _, err := e.deps.Executor.ExecuteSell(sig.Symbol, qty, price, sig.Reason); err != nil {
		e.logger.Error().Err(err).Str("symbol", sig.Symbol).Msg("Sell execution failed")
		return
	}

	loss := (pos.AvgCost - price) * float64(qty)
	e.deps.Gate.Wash.RecordSale(sig.Symbol, loss)
	e.deps.Gate.Settlement.RecordSaleProceeds(float64(qty) * price)
}

func (e *Engine) reconcile() error {
	if e.deps.Config.Mode == "REAL" {
		if err := e.deps.Tracker.SyncFromBroker(e.deps.Broker, e.deps.AccountIDKey); err != nil {
			return fmt.Errorf("failed to reconcile portfolio from broker: %w", err)
		}
		return nil
	}

	if err := e.deps.Tracker.SyncFromLedger(e.deps.Ledger.All(), e.deps.Config.InitialCash); err != nil {
		return fmt.Errorf("failed to reconcile portfolio from ledger: %w", err)
	}
	return nil
}

func (e *Engine) publishSnapshot(now time.Time, marketOpen bool, scores, allocations map[string]float64, sigs []signals.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot = Snapshot{
		Cycle:          e.cycle,
		Timestamp:      now,
		MarketOpen:     marketOpen,
		ValueScores:    scores,
		Allocations:    allocations,
		Signals:        sigs,
		BlockedSymbols: e.deps.Gate.Wash.BlockedSymbols(),
		Portfolio:      e.deps.Tracker.Snapshot(),
	}
}

// Snapshot returns the last published cycle snapshot
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}
