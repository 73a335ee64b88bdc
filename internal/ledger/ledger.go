// Package ledger simulates the trading account: balance, the active-position
// map, and the append-only trade log. It is the single point of truth for
// position state; every concurrent task mutates it only through these
// operations.
package ledger

import (
	"errors"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"statarb-go/internal/execution"
	"statarb-go/internal/metrics"
)

var (
	// ErrDuplicateMarket rejects a second open for a market that already has
	// an active position.
	ErrDuplicateMarket = errors.New("ledger: market already has an open position")
	// ErrMaxPositions rejects an open that would exceed the position cap.
	ErrMaxPositions = errors.New("ledger: max open positions reached")
	// ErrNoSuchPosition rejects a close for a market with nothing open.
	ErrNoSuchPosition = errors.New("ledger: no open position for market")
)

// Simulated fee tiers: most closes draw the lower fee, the rest the higher.
const (
	feeLow      = 0.01
	feeHigh     = 0.02
	feeLowShare = 0.6
)

// Position is a simulated holding. It is owned exclusively by the ledger and
// leaves the active set only through Close.
type Position struct {
	Market          string         `json:"market"`
	Side            execution.Side `json:"side"`
	Size            float64        `json:"size"`
	EntryPrice      float64        `json:"entry_price"`
	TakeProfitPrice float64        `json:"take_profit_price"`
	TickSize        float64        `json:"tick_size"`
	Fee             float64        `json:"trading_fee"`
}

// Ledger tracks the simulated balance and active positions behind a single
// mutex so interleaved entry and exit passes never observe partial writes.
type Ledger struct {
	mu            sync.Mutex
	balance       float64
	minCollateral float64
	maxPositions  int
	positions     map[string]Position
	tradeLog      *TradeLog
	log           zerolog.Logger
	feeRoll       func() float64
}

// New constructs a ledger with the starting balance and limits. tradeLog may
// be nil for tests that do not exercise persistence.
func New(log zerolog.Logger, initialBalance, minCollateral float64, maxPositions int, tradeLog *TradeLog) *Ledger {
	metrics.SimulatedBalance.Set(initialBalance)
	return &Ledger{
		balance:       initialBalance,
		minCollateral: minCollateral,
		maxPositions:  maxPositions,
		positions:     make(map[string]Position),
		tradeLog:      tradeLog,
		log:           log,
		feeRoll:       rand.Float64,
	}
}

// Open records a new simulated position. The balance is untouched until close;
// the fee tier is drawn now and charged when the position closes.
func (l *Ledger) Open(market string, side execution.Side, size, entryPrice, takeProfit, tickSize float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[market]; ok {
		return ErrDuplicateMarket
	}
	if len(l.positions) >= l.maxPositions {
		return ErrMaxPositions
	}

	pos := Position{
		Market:          market,
		Side:            side,
		Size:            size,
		EntryPrice:      entryPrice,
		TakeProfitPrice: takeProfit,
		TickSize:        tickSize,
		Fee:             l.drawFee(),
	}
	l.positions[market] = pos
	metrics.OpenPositions.Set(float64(len(l.positions)))

	if l.tradeLog != nil {
		if err := l.tradeLog.AppendOpen(pos, l.balance); err != nil {
			l.log.Warn().Err(err).Str("market", market).Msg("trade log append failed")
		}
	}
	return nil
}

// Close removes a position from the active set and books realized P&L minus
// the fee drawn at open. BUY pnl = (exit − entry) × size; SELL is reversed.
func (l *Ledger) Close(market string, exitPrice float64) (pnl, fee float64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[market]
	if !ok {
		return 0, 0, ErrNoSuchPosition
	}

	if pos.Side == execution.Buy {
		pnl = (exitPrice - pos.EntryPrice) * pos.Size
	} else {
		pnl = (pos.EntryPrice - exitPrice) * pos.Size
	}
	fee = pos.Fee
	l.balance += pnl - fee
	delete(l.positions, market)

	metrics.OpenPositions.Set(float64(len(l.positions)))
	metrics.SimulatedBalance.Set(l.balance)

	if l.tradeLog != nil {
		if err := l.tradeLog.AppendClose(pos, exitPrice, fee, pnl, l.balance); err != nil {
			l.log.Warn().Err(err).Str("market", market).Msg("trade log append failed")
		}
	}
	return pnl, fee, nil
}

// CheckCollateral reports whether the balance still clears the configured
// minimum; trading halts below it.
func (l *Ledger) CheckCollateral() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance > l.minCollateral
}

// IsOpen reports whether the market has an active position.
func (l *Ledger) IsOpen(market string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.positions[market]
	return ok
}

// OpenCount returns the number of active positions.
func (l *Ledger) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}

// Balance returns the current simulated balance.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Positions returns a copy of the active set, sorted by market for
// deterministic iteration.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Market < out[j].Market })
	return out
}

// Restore seeds the active set from a persisted snapshot at startup. Markets
// already present are skipped; the cap still applies.
func (l *Ledger) Restore(positions []Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, pos := range positions {
		if _, ok := l.positions[pos.Market]; ok {
			continue
		}
		if len(l.positions) >= l.maxPositions {
			l.log.Warn().Str("market", pos.Market).Msg("snapshot position dropped, cap reached")
			continue
		}
		l.positions[pos.Market] = pos
	}
	metrics.OpenPositions.Set(float64(len(l.positions)))
}

func (l *Ledger) drawFee() float64 {
	if l.feeRoll() < feeLowShare {
		return feeLow
	}
	return feeHigh
}
