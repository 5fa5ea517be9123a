package signals

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/modules/risk"
	"github.com/apetros/valuecycle/internal/modules/scoring"
	"github.com/apetros/valuecycle/internal/modules/window"
)

func newTestGenerator() *Generator {
	nop := zerolog.New(nil).Level(zerolog.Disabled)
	scorer := scoring.NewScorer(config.ScoringConfig{
		WeightPE:            0.25,
		WeightEPSGrowth:     0.25,
		WeightRevenueGrowth: 0.15,
		WeightProfitMargin:  0.10,
		WeightDebtEquity:    0.10,
		WeightFairValueGap:  0.15,
		GateThreshold:       40,
	}, nop)
	calc := window.NewCalculator(config.WindowConfig{
		LookbackDays:        60,
		HalfWidth:           0.05,
		StrongBuyThreshold:  0.20,
		BuyThreshold:        0.35,
		SellThreshold:       0.65,
		StrongSellThreshold: 0.80,
	}, nop)
	return NewGenerator(config.SignalConfig{
		BuyScore:       60,
		StrongBuyScore: 70,
		SellScore:      50,
		CollapseScore:  30,
	}, scorer, calc, nop)
}

func windowAt(position float64) *window.Result {
	return &window.Result{Position: position}
}

// TestGenerateCollapseSellsRegardlessOfWindow verifies a fundamentals
// collapse sells a held position even in a buy zone
func TestGenerateCollapseSellsRegardlessOfWindow(t *testing.T) {
	g := newTestGenerator()

	sig := g.Generate("AAPL", 25, windowAt(0.10), true, risk.Flags{})

	assert.Equal(t, ActionSell, sig.Action)
	assert.Equal(t, 90.0, sig.Priority)
}

// TestGenerateSellZoneWithWeakValue verifies the sell zone plus weak
// value rule and its priority
func TestGenerateSellZoneWithWeakValue(t *testing.T) {
	g := newTestGenerator()

	sig := g.Generate("XOM", 45, windowAt(0.70), true, risk.Flags{})

	assert.Equal(t, ActionSell, sig.Action)
	assert.Equal(t, 80.0, sig.Priority)
	assert.Equal(t, window.ZoneSell, sig.WindowZone)
}

// TestGenerateStrongSellZoneAlone verifies strong sell zone triggers a
// sell even with healthy value
func TestGenerateStrongSellZoneAlone(t *testing.T) {
	g := newTestGenerator()

	sig := g.Generate("NEM", 60, windowAt(0.85), true, risk.Flags{})

	assert.Equal(t, ActionSell, sig.Action)
	assert.Equal(t, 70.0, sig.Priority)
}

// TestGenerateHeldHealthyHolds verifies a held position in a plain sell
// zone with adequate value is kept
func TestGenerateHeldHealthyHolds(t *testing.T) {
	g := newTestGenerator()

	sig := g.Generate("CVX", 55, windowAt(0.70), true, risk.Flags{})

	assert.Equal(t, ActionHold, sig.Action)
}

// TestGenerateBuyGates verifies each gate that suppresses a buy
func TestGenerateBuyGates(t *testing.T) {
	g := newTestGenerator()

	tests := []struct {
		name  string
		score float64
		flags risk.Flags
	}{
		{"below fundamental gate", 35, risk.Flags{}},
		{"wash sale blocked", 75, risk.Flags{WashSaleBlocked: true}},
		{"max positions reached", 75, risk.Flags{MaxPositionsReached: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := g.Generate("AAPL", tt.score, windowAt(0.10), false, tt.flags)
			assert.Equal(t, ActionHold, sig.Action)
			assert.Equal(t, 0.0, sig.Priority)
		})
	}
}

// TestGenerateStrongBuy verifies the strong buy rule and priority
func TestGenerateStrongBuy(t *testing.T) {
	g := newTestGenerator()

	sig := g.Generate("AAPL", 75, windowAt(0.10), false, risk.Flags{})

	assert.Equal(t, ActionStrongBuy, sig.Action)
	assert.Equal(t, 100.0, sig.Priority)
}

// TestGenerateBuyPriorityScalesWithScore verifies the buy priority
// formula and that a strong buy zone still allows a plain buy when the
// score is under the strong buy bar
func TestGenerateBuyPriorityScalesWithScore(t *testing.T) {
	g := newTestGenerator()

	sig := g.Generate("MU", 65, windowAt(0.30), false, risk.Flags{})
	assert.Equal(t, ActionBuy, sig.Action)
	assert.InDelta(t, 66.5, sig.Priority, 1e-9)

	sig = g.Generate("MU", 65, windowAt(0.10), false, risk.Flags{})
	assert.Equal(t, ActionBuy, sig.Action)
}

// TestGenerateNoWindowHolds verifies a symbol with no window never buys
func TestGenerateNoWindowHolds(t *testing.T) {
	g := newTestGenerator()

	sig := g.Generate("AAPL", 80, nil, false, risk.Flags{})

	assert.Equal(t, ActionHold, sig.Action)
	assert.Equal(t, window.ZoneHold, sig.WindowZone)
}

// TestGenerateAllSortsAndFilters verifies HOLD signals are dropped and
// the rest come back in priority order
func TestGenerateAllSortsAndFilters(t *testing.T) {
	g := newTestGenerator()

	scores := map[string]float64{
		"AAPL": 75, // strong buy, priority 100
		"MSFT": 65, // buy, priority 66.5
		"XOM":  25, // held, collapse sell, priority 90
	}
	windows := map[string]*window.Result{
		"AAPL": windowAt(0.10),
		"MSFT": windowAt(0.30),
		"XOM":  windowAt(0.50),
	}

	out := g.GenerateAll(scores, windows, map[string]bool{"XOM": true}, nil)

	require.Len(t, out, 3)
	assert.Equal(t, "AAPL", out[0].Symbol)
	assert.Equal(t, "XOM", out[1].Symbol)
	assert.Equal(t, "MSFT", out[2].Symbol)
}

// TestGenerateAllDefaultsMissingScores verifies symbols without a score
// default to neutral and stay out of the output
func TestGenerateAllDefaultsMissingScores(t *testing.T) {
	g := newTestGenerator()

	out := g.GenerateAll(nil, nil, nil, nil)

	assert.Empty(t, out)
}
