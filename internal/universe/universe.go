// Package universe defines the fixed stock universe: 50 symbols across
// three sectors, with lookup utilities.
package universe

// Tech holds the technology sector symbols
var Tech = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "AVGO", "CRM",
	"ADBE", "AMD", "INTC", "CSCO", "ORCL", "TXN", "QCOM", "IBM", "MU",
}

// Energy holds the energy sector symbols
var Energy = []string{
	"XOM", "CVX", "COP", "SLB", "EOG", "MPC", "PSX", "VLO",
	"OXY", "HAL", "DVN", "FANG", "HES", "BKR", "KMI", "WMB", "OKE",
}

// Minerals holds the metals and mining sector symbols
var Minerals = []string{
	"NEM", "GOLD", "FNV", "WPM", "AEM", "GFI", "KGC", "AU",
	"RGLD", "AGI", "FCX", "SCCO", "TECK", "BHP", "RIO", "NUE",
}

// Sectors maps sector name to its symbol list
var Sectors = map[string][]string{
	"Tech":     Tech,
	"Energy":   Energy,
	"Minerals": Minerals,
}

// SectorNames lists sector names in a stable order
var SectorNames = []string{"Tech", "Energy", "Minerals"}

var symbolToSector map[string]string

func init() {
	symbolToSector = make(map[string]string)
	for name, symbols := range Sectors {
		for _, sym := range symbols {
			symbolToSector[sym] = name
		}
	}
}

// AllSymbols returns every symbol in the universe, grouped by sector in
// stable order
func AllSymbols() []string {
	all := make([]string, 0, len(symbolToSector))
	for _, name := range SectorNames {
		all = append(all, Sectors[name]...)
	}
	return all
}

// SectorOf returns the sector name for a symbol, or "" if the symbol is
// not in the universe
func SectorOf(symbol string) string {
	return symbolToSector[symbol]
}
