// Package scoring computes fundamental value scores.
// Six sub-scores (P/E, EPS growth, revenue growth, profit margin,
// debt/equity, fair value gap) are bracket-scored 0-100 and combined
// into a weighted composite. A missing metric scores neutral rather
// than penalizing the stock.
package scoring

import (
	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/domain"
	"github.com/apetros/valuecycle/pkg/formulas"
)

// Neutral is the sub-score used when a metric is unavailable
const Neutral = 50.0

// Scorer computes composite value scores from fundamentals
type Scorer struct {
	cfg    config.ScoringConfig
	logger zerolog.Logger
}

// NewScorer creates a new value scorer
func NewScorer(cfg config.ScoringConfig, logger zerolog.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		logger: logger.With().Str("component", "scoring").Logger(),
	}
}

// Score computes a 0-100 composite value score for one stock
func (s *Scorer) Score(f *domain.Fundamentals) float64 {
	weighted := s.cfg.WeightPE*scorePE(f.PE) +
		s.cfg.WeightEPSGrowth*scoreEPSGrowth(f.EPSGrowth) +
		s.cfg.WeightRevenueGrowth*scoreRevenueGrowth(f.RevenueGrowth) +
		s.cfg.WeightProfitMargin*scoreProfitMargin(f.ProfitMargin) +
		s.cfg.WeightDebtEquity*scoreDebtEquity(f.DebtEquity) +
		s.cfg.WeightFairValueGap*scoreFairValueGap(f.CurrentPrice, f.AnalystTarget)

	if weighted > 100 {
		weighted = 100
	}
	if weighted < 0 {
		weighted = 0
	}

	return formulas.Round(weighted, 2)
}

// ScoreAll scores every symbol in the map
func (s *Scorer) ScoreAll(fundamentals map[string]*domain.Fundamentals) map[string]float64 {
	scores := make(map[string]float64, len(fundamentals))
	for sym, f := range fundamentals {
		scores[sym] = s.Score(f)
	}

	s.logger.Debug().Int("symbols", len(scores)).Msg("Computed value scores")

	return scores
}

// PassesGate reports whether a score meets the minimum required to buy
func (s *Scorer) PassesGate(score float64) bool {
	return score >= s.cfg.GateThreshold
}

// Lower P/E is better. A missing or non-positive P/E scores neutral.
func scorePE(pe *float64) float64 {
	if pe == nil || *pe <= 0 {
		return Neutral
	}
	switch v := *pe; {
	case v < 10:
		return 100
	case v < 15:
		return 85
	case v < 20:
		return 70
	case v < 25:
		return 55
	case v < 30:
		return 40
	case v < 40:
		return 25
	default:
		return 10
	}
}

// Higher EPS growth is better. Input is fractional (0.15 = 15%).
func scoreEPSGrowth(growth *float64) float64 {
	if growth == nil {
		return Neutral
	}
	switch pct := *growth * 100; {
	case pct > 30:
		return 100
	case pct > 20:
		return 85
	case pct > 10:
		return 70
	case pct > 5:
		return 60
	case pct > 0:
		return 45
	case pct > -10:
		return 30
	default:
		return 10
	}
}

// Higher revenue growth is better. Input is fractional.
func scoreRevenueGrowth(growth *float64) float64 {
	if growth == nil {
		return Neutral
	}
	switch pct := *growth * 100; {
	case pct > 25:
		return 100
	case pct > 15:
		return 85
	case pct > 10:
		return 70
	case pct > 5:
		return 55
	case pct > 0:
		return 40
	case pct > -5:
		return 25
	default:
		return 10
	}
}

// Higher margin is better. Input is fractional.
func scoreProfitMargin(margin *float64) float64 {
	if margin == nil {
		return Neutral
	}
	switch pct := *margin * 100; {
	case pct > 30:
		return 100
	case pct > 20:
		return 85
	case pct > 15:
		return 70
	case pct > 10:
		return 55
	case pct > 5:
		return 40
	case pct > 0:
		return 25
	default:
		return 10
	}
}

// Lower debt/equity is better. Input is a percentage (50 = 50%).
func scoreDebtEquity(de *float64) float64 {
	if de == nil {
		return Neutral
	}
	switch v := *de; {
	case v < 20:
		return 100
	case v < 50:
		return 85
	case v < 80:
		return 70
	case v < 120:
		return 55
	case v < 180:
		return 40
	case v < 250:
		return 25
	default:
		return 10
	}
}

// A bigger gap below the analyst target means more upside and a higher
// score. Missing inputs or a non-positive target score neutral.
func scoreFairValueGap(currentPrice, analystTarget *float64) float64 {
	if currentPrice == nil || analystTarget == nil || *analystTarget <= 0 {
		return Neutral
	}
	gapPct := (*analystTarget - *currentPrice) / *analystTarget * 100
	switch {
	case gapPct > 30:
		return 100
	case gapPct > 20:
		return 85
	case gapPct > 10:
		return 70
	case gapPct > 5:
		return 55
	case gapPct > 0:
		return 40
	case gapPct > -10:
		return 25
	default:
		return 10
	}
}
