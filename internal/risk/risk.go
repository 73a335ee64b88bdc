// Package risk holds the sizing and exposure limits applied before any entry.
package risk

// Limits are the hard caps the entry engine consults. They come from config
// and never change at runtime.
type Limits struct {
	MaxPositions     int
	MinCollateralUSD float64
	USDPerTrade      float64
	TakeProfitUSD    float64
}

// Allow reports whether another position may be opened given the current open
// count. Each pair entry needs room for two legs.
func (l Limits) Allow(openCount, legs int) bool {
	return openCount+legs <= l.MaxPositions
}

// CollateralOK reports whether the balance still clears the trading floor.
func (l Limits) CollateralOK(balance float64) bool {
	return balance > l.MinCollateralUSD
}
