// Package execution defines the order vocabulary shared by the ledger, the
// venue client, and the trading engines.
package execution

import "fmt"

// Side enumerates order directions.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// Opposite returns the side that offsets s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Request represents a placement request submitted to a venue.
type Request struct {
	ClientID   string
	Market     string
	Side       Side
	Size       float64
	Price      float64
	ReduceOnly bool
}

// Confirmation reports the venue's acknowledgement of a submitted order.
type Confirmation struct {
	OrderID string
	Market  string
	Status  string
}

// OrderError wraps a submission failure for one market so callers can retry
// the affected leg on the next cycle.
type OrderError struct {
	Market string
	Err    error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order submission failed for %s: %v", e.Market, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }
