// Package allocation distributes the portfolio across sectors inversely
// to recent performance: the worst performing sector gets the largest
// target weight, on the premise that value rotates into beaten-down
// sectors.
package allocation

import (
	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/domain"
	"github.com/apetros/valuecycle/internal/universe"
	"github.com/apetros/valuecycle/pkg/formulas"
)

// Allocator computes sector performance and target allocations
type Allocator struct {
	cfg    config.SectorConfig
	logger zerolog.Logger
}

// NewAllocator creates a new sector allocator
func NewAllocator(cfg config.SectorConfig, logger zerolog.Logger) *Allocator {
	return &Allocator{
		cfg:    cfg,
		logger: logger.With().Str("component", "allocation").Logger(),
	}
}

// SectorPerformance computes the average return per sector over the
// configured lookback. Symbols with fewer than two closes are skipped;
// a sector with no usable symbols reports 0.
func (a *Allocator) SectorPerformance(historical map[string][]domain.Candle) map[string]float64 {
	sectorReturns := make(map[string][]float64, len(universe.SectorNames))
	for _, name := range universe.SectorNames {
		sectorReturns[name] = nil
	}

	for sym, candles := range historical {
		if len(candles) < 2 {
			continue
		}
		sector := universe.SectorOf(sym)
		if sector == "" {
			continue
		}

		closes := candles
		if len(closes) > a.cfg.PerfPeriodDays {
			closes = closes[len(closes)-a.cfg.PerfPeriodDays:]
		}
		if len(closes) < 2 {
			continue
		}

		first := closes[0].Close
		last := closes[len(closes)-1].Close
		if first == 0 {
			continue
		}
		sectorReturns[sector] = append(sectorReturns[sector], (last-first)/first)
	}

	performances := make(map[string]float64, len(sectorReturns))
	for sector, returns := range sectorReturns {
		if len(returns) > 0 {
			performances[sector] = formulas.Mean(returns)
		} else {
			performances[sector] = 0.0
		}
	}

	return performances
}

// Allocate inverse-weights the sectors: negate returns, shift positive,
// normalize, clamp to the configured band, then re-normalize. An empty
// performance map falls back to equal weight. Note the clamp band applies
// before the final normalize, so the re-normalized weights can land
// slightly outside it.
func (a *Allocator) Allocate(performances map[string]float64) map[string]float64 {
	if len(performances) == 0 {
		n := float64(len(universe.SectorNames))
		alloc := make(map[string]float64, len(universe.SectorNames))
		for _, name := range universe.SectorNames {
			alloc[name] = 1.0 / n
		}
		return alloc
	}

	inverted := make(map[string]float64, len(performances))
	minVal := 0.0
	first := true
	for sector, ret := range performances {
		inverted[sector] = -ret
		if first || inverted[sector] < minVal {
			minVal = inverted[sector]
			first = false
		}
	}

	// Shift so the worst value sits at a small positive epsilon
	total := 0.0
	shifted := make(map[string]float64, len(inverted))
	for sector, v := range inverted {
		shifted[sector] = v - minVal + 0.01
		total += shifted[sector]
	}

	alloc := make(map[string]float64, len(shifted))
	clampedTotal := 0.0
	for sector, v := range shifted {
		w := v / total
		if w < a.cfg.MinAllocation {
			w = a.cfg.MinAllocation
		}
		if w > a.cfg.MaxAllocation {
			w = a.cfg.MaxAllocation
		}
		alloc[sector] = w
		clampedTotal += w
	}

	for sector := range alloc {
		alloc[sector] /= clampedTotal
	}

	a.logger.Debug().Interface("allocations", alloc).Msg("Computed sector allocations")

	return alloc
}
