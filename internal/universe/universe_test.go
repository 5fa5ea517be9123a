package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAllSymbolsCount verifies the universe holds exactly 50 symbols
func TestAllSymbolsCount(t *testing.T) {
	all := AllSymbols()
	assert.Len(t, all, 50)
	assert.Equal(t, 17, len(Tech))
	assert.Equal(t, 17, len(Energy))
	assert.Equal(t, 16, len(Minerals))
}

// TestAllSymbolsStableOrder verifies symbols come back grouped by sector
// in a deterministic order
func TestAllSymbolsStableOrder(t *testing.T) {
	all := AllSymbols()
	assert.Equal(t, "AAPL", all[0])
	assert.Equal(t, "XOM", all[17])
	assert.Equal(t, "NEM", all[34])
	assert.Equal(t, AllSymbols(), all)
}

// TestSectorOf verifies the reverse lookup across all three sectors
func TestSectorOf(t *testing.T) {
	assert.Equal(t, "Tech", SectorOf("NVDA"))
	assert.Equal(t, "Energy", SectorOf("XOM"))
	assert.Equal(t, "Minerals", SectorOf("FCX"))
	assert.Equal(t, "", SectorOf("TSLA"))
}

// TestNoDuplicateSymbols verifies a symbol appears in exactly one sector
func TestNoDuplicateSymbols(t *testing.T) {
	seen := make(map[string]bool)
	for _, sym := range AllSymbols() {
		assert.False(t, seen[sym], "duplicate symbol %s", sym)
		seen[sym] = true
	}
}
