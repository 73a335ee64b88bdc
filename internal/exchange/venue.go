// Package exchange talks to the trading venue: historical candles and market
// metadata over REST, live prices over websocket, and order submission. The
// rest of the bot sees only the narrow interfaces defined here.
package exchange

import (
	"context"
	"fmt"
	"time"

	"statarb-go/internal/execution"
)

// Candle is one closed bar of market history, oldest-first once fetched.
type Candle struct {
	StartedAt time.Time
	Close     float64
}

// MarketInfo is the venue metadata needed to size and price an order.
type MarketInfo struct {
	Symbol      string
	OraclePrice float64
	TickSize    float64
	StepSize    float64
	Status      string
}

// Tradable reports whether the venue currently accepts orders for the market.
func (m MarketInfo) Tradable() bool {
	return m.Status == "ACTIVE"
}

// MarketData serves historical candles and market metadata.
type MarketData interface {
	Candles(ctx context.Context, market string, limit int) ([]Candle, error)
	Markets(ctx context.Context) (map[string]MarketInfo, error)
}

// OrderSubmitter places orders. Implementations must be safe for concurrent
// use; the simulated submitter only logs and acknowledges.
type OrderSubmitter interface {
	Submit(ctx context.Context, req execution.Request) (execution.Confirmation, error)
}

// Venue is the full surface the engine needs.
type Venue interface {
	MarketData
	OrderSubmitter
}

// Composite joins a data client and an order submitter into a Venue. The
// simulated deployment pairs the indexer REST client with the dry-run
// submitter.
type Composite struct {
	MarketData
	OrderSubmitter
}

// DataError marks a market whose history could not be fetched or parsed. The
// scanner skips such markets instead of aborting the scan.
type DataError struct {
	Market string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("market data %s: %v", e.Market, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }
