// seed.go — Preset symbol universe and base prices.
//
// Realistic per-symbol base prices for the simulator's price walks. Symbols
// outside the table fall back to the configured default. The table is
// read-only after init; lookups allocate only via the String conversion,
// which happens once per subscription (cold path).

package source

// basePrices maps a symbol to a plausible USD starting price.
var basePrices = map[string]float64{
	"AAPL": 175.0, "MSFT": 350.0, "GOOGL": 2800.0, "AMZN": 3200.0,
	"TSLA": 250.0, "META": 320.0, "NVDA": 450.0, "JPM": 145.0,
	"JNJ": 165.0, "V": 240.0, "PG": 140.0, "UNH": 520.0,
	"HD": 330.0, "MA": 380.0, "BAC": 32.0, "XOM": 110.0,
	"DIS": 95.0, "ADBE": 480.0, "CRM": 220.0, "NFLX": 450.0,
}

// BasePriceFor returns the preset base price for symbol, or fallback when
// the symbol has no preset.
func BasePriceFor(symbol string, fallback float64) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return fallback
}
