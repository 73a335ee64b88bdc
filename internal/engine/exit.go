package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/exchange"
	"statarb-go/internal/execution"
	"statarb-go/internal/ledger"
	"statarb-go/internal/notify"
	"statarb-go/internal/util"
)

// PriceFeed serves live prices when available. The websocket stream satisfies
// this; a nil feed makes the monitor lean on REST oracle prices only.
type PriceFeed interface {
	Price(market string) (float64, bool)
}

// ExitMonitor watches open positions and closes any whose take-profit price
// has printed. Each sweep is independent, so a failed close is simply retried
// on the next tick.
type ExitMonitor struct {
	log           zerolog.Logger
	venue         exchange.Venue
	book          *ledger.Ledger
	feed          PriceFeed
	notifier      notify.Notifier
	poll          time.Duration
	positionsPath string
}

// NewExitMonitor wires the exit loop. feed may be nil.
func NewExitMonitor(log zerolog.Logger, venue exchange.Venue, book *ledger.Ledger, feed PriceFeed, notifier notify.Notifier, poll time.Duration, positionsPath string) *ExitMonitor {
	return &ExitMonitor{
		log:           log,
		venue:         venue,
		book:          book,
		feed:          feed,
		notifier:      notifier,
		poll:          poll,
		positionsPath: positionsPath,
	}
}

// Run sweeps on the poll interval until the context is cancelled.
func (m *ExitMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep checks every open position once. It is idempotent: positions already
// closed by an earlier call are simply no longer in the ledger.
func (m *ExitMonitor) Sweep(ctx context.Context) {
	positions := m.book.Positions()
	if len(positions) == 0 {
		return
	}

	var markets map[string]exchange.MarketInfo
	marketsFailed := false
	closedAny := false
	for _, pos := range positions {
		if ctx.Err() != nil {
			return
		}
		price, ok := m.feedPrice(pos.Market)
		if !ok {
			if markets == nil && !marketsFailed {
				var err error
				markets, err = m.venue.Markets(ctx)
				if err != nil {
					m.log.Warn().Err(err).Msg("oracle fallback fetch failed")
					marketsFailed = true
				}
			}
			info, found := markets[pos.Market]
			if !found || info.OraclePrice <= 0 {
				m.log.Warn().Str("market", pos.Market).Msg("no price available, position held")
				continue
			}
			price = info.OraclePrice
		}

		if !triggered(pos, price) {
			continue
		}
		if m.close(ctx, pos, price) {
			closedAny = true
		}
	}
	if closedAny {
		m.saveSnapshot()
	}
}

func (m *ExitMonitor) feedPrice(market string) (float64, bool) {
	if m.feed == nil {
		return 0, false
	}
	return m.feed.Price(market)
}

// triggered reports whether the take-profit has printed for the position's
// direction.
func triggered(pos ledger.Position, price float64) bool {
	if pos.Side == execution.Buy {
		return price >= pos.TakeProfitPrice
	}
	return price <= pos.TakeProfitPrice
}

// close submits the reduce-only closing order and books the fill. A rejected
// order keeps the position; the next sweep tries again.
func (m *ExitMonitor) close(ctx context.Context, pos ledger.Position, price float64) bool {
	collar := 1 - exitCollar
	if pos.Side == execution.Sell {
		collar = 1 + exitCollar
	}
	exitPrice := util.RoundToTick(price*collar, pos.TickSize)

	if _, err := m.venue.Submit(ctx, execution.Request{
		Market:     pos.Market,
		Side:       pos.Side.Opposite(),
		Size:       pos.Size,
		Price:      exitPrice,
		ReduceOnly: true,
	}); err != nil {
		m.log.Warn().Err(err).Str("market", pos.Market).Msg("close order rejected, position held")
		return false
	}

	pnl, fee, err := m.book.Close(pos.Market, exitPrice)
	if err != nil {
		m.log.Error().Err(err).Str("market", pos.Market).Msg("ledger close failed")
		return false
	}
	m.log.Info().
		Str("market", pos.Market).
		Str("side", string(pos.Side)).
		Float64("exit_price", exitPrice).
		Float64("pnl", pnl).
		Float64("fee", fee).
		Float64("balance", m.book.Balance()).
		Msg("position closed")
	m.notifier.Notify(ctx, closeMessage(pos, exitPrice, pnl))
	return true
}

func closeMessage(pos ledger.Position, exitPrice, pnl float64) string {
	verb := "take profit"
	if pnl < 0 {
		verb = "loss"
	}
	return fmt.Sprintf("%s %s closed at %g (%s %+.2f)", pos.Market, pos.Side, exitPrice, verb, pnl)
}

func (m *ExitMonitor) saveSnapshot() {
	if m.positionsPath == "" {
		return
	}
	if err := m.book.SaveSnapshot(m.positionsPath); err != nil {
		m.log.Warn().Err(err).Msg("position snapshot failed")
	}
}
