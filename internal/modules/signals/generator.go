// Package signals combines value scores, trading windows, sector
// allocations, and risk flags into prioritized buy and sell decisions.
package signals

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/modules/risk"
	"github.com/apetros/valuecycle/internal/modules/scoring"
	"github.com/apetros/valuecycle/internal/modules/window"
	"github.com/apetros/valuecycle/internal/universe"
)

// Action is the decision a signal carries
type Action string

const (
	ActionBuy       Action = "BUY"
	ActionStrongBuy Action = "STRONG_BUY"
	ActionSell      Action = "SELL"
	ActionHold      Action = "HOLD"
)

// Signal is one actionable trading decision
type Signal struct {
	Symbol     string      `json:"symbol"`
	Action     Action      `json:"action"`
	Reason     string      `json:"reason"`
	Priority   float64     `json:"priority"`
	ValueScore float64     `json:"value_score"`
	WindowZone window.Zone `json:"window_zone"`
	Sector     string      `json:"sector"`
}

// Generator turns per-symbol inputs into trading signals
type Generator struct {
	cfg    config.SignalConfig
	scorer *scoring.Scorer
	calc   *window.Calculator
	logger zerolog.Logger
}

// NewGenerator creates a new signal generator
func NewGenerator(cfg config.SignalConfig, scorer *scoring.Scorer, calc *window.Calculator, logger zerolog.Logger) *Generator {
	return &Generator{
		cfg:    cfg,
		scorer: scorer,
		calc:   calc,
		logger: logger.With().Str("component", "signals").Logger(),
	}
}

// Generate produces the signal for one symbol.
//
// Sell rules apply only to held positions and run first: a fundamentals
// collapse sells regardless of the window, then a sell zone combined
// with weak value, then a strong sell zone alone. Buy rules apply only
// to symbols not held, behind the fundamental gate and risk flags.
func (g *Generator) Generate(symbol string, valueScore float64, w *window.Result, isHeld bool, flags risk.Flags) Signal {
	sector := universe.SectorOf(symbol)
	if sector == "" {
		sector = "Unknown"
	}
	zone := g.calc.Classify(w)

	base := Signal{
		Symbol:     symbol,
		ValueScore: valueScore,
		WindowZone: zone,
		Sector:     sector,
	}

	if isHeld {
		if valueScore < g.cfg.CollapseScore {
			base.Action = ActionSell
			base.Reason = fmt.Sprintf("Fundamentals collapsed (score=%.2f)", valueScore)
			base.Priority = 90
			return base
		}

		if (zone == window.ZoneSell || zone == window.ZoneStrongSell) && valueScore < g.cfg.SellScore {
			base.Action = ActionSell
			base.Reason = fmt.Sprintf("Sell zone + weak value (score=%.2f, window=%s)", valueScore, zone)
			base.Priority = 80
			return base
		}

		if zone == window.ZoneStrongSell {
			base.Action = ActionSell
			base.Reason = fmt.Sprintf("Strong sell zone (window=%s, score=%.2f)", zone, valueScore)
			base.Priority = 70
			return base
		}
	}

	if !isHeld {
		if !g.scorer.PassesGate(valueScore) {
			base.Action = ActionHold
			base.Reason = fmt.Sprintf("Below fundamental gate (score=%.2f)", valueScore)
			return base
		}
		if flags.WashSaleBlocked {
			base.Action = ActionHold
			base.Reason = "Wash sale blocked"
			return base
		}
		if flags.MaxPositionsReached {
			base.Action = ActionHold
			base.Reason = "Max positions reached"
			return base
		}

		if valueScore >= g.cfg.StrongBuyScore && zone == window.ZoneStrongBuy {
			base.Action = ActionStrongBuy
			base.Reason = fmt.Sprintf("Strong buy: high value (%.2f) + strong buy zone", valueScore)
			base.Priority = 100
			return base
		}

		if valueScore >= g.cfg.BuyScore && (zone == window.ZoneBuy || zone == window.ZoneStrongBuy) {
			base.Action = ActionBuy
			base.Reason = fmt.Sprintf("Buy: good value (%.2f) + buy zone (%s)", valueScore, zone)
			base.Priority = 60 + valueScore/10
			return base
		}
	}

	base.Action = ActionHold
	base.Reason = fmt.Sprintf("Hold (score=%.2f, window=%s)", valueScore, zone)
	return base
}

// GenerateAll produces signals for the whole universe, sorted by
// priority, highest first. HOLD signals are filtered out. The sort is
// stable so equal priorities keep universe order.
func (g *Generator) GenerateAll(valueScores map[string]float64, windows map[string]*window.Result, held map[string]bool, flagsBySymbol map[string]risk.Flags) []Signal {
	var out []Signal
	for _, sym := range universe.AllSymbols() {
		score, ok := valueScores[sym]
		if !ok {
			score = 50.0
		}

		sig := g.Generate(sym, score, windows[sym], held[sym], flagsBySymbol[sym])
		if sig.Action != ActionHold {
			out = append(out, sig)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})

	g.logger.Info().Int("signals", len(out)).Msg("Generated trading signals")

	return out
}
