package util

import "github.com/shopspring/decimal"

// RoundToStep snaps an order size down to the venue step size. Sizes round
// down so a fill never exceeds the requested notional.
func RoundToStep(size, step float64) float64 {
	if step <= 0 || size <= 0 {
		return size
	}
	v := decimal.NewFromFloat(size)
	s := decimal.NewFromFloat(step)
	out, _ := v.Div(s).Floor().Mul(s).Float64()
	return out
}

// RoundToTick snaps a price to the nearest venue tick.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	out, _ := p.Div(t).Round(0).Mul(t).Float64()
	return out
}
