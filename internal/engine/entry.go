// Package engine drives the position lifecycle: evaluating validated pairs
// for entry signals, opening two-leg simulated positions, and closing them
// when take-profit prices print.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"statarb-go/internal/config"
	"statarb-go/internal/exchange"
	"statarb-go/internal/execution"
	"statarb-go/internal/ledger"
	"statarb-go/internal/notify"
	"statarb-go/internal/risk"
	"statarb-go/internal/signal"
	"statarb-go/internal/util"
)

// Price collars applied when submitting simulated taker orders. Entries cross
// the book generously; exits cross the other way.
const (
	entryCollar = 0.05
	exitCollar  = 0.05
)

// State labels where a pair sits in the lifecycle after an evaluation pass.
type State string

const (
	StateNoSignal       State = "no_signal"
	StateEvaluating     State = "evaluating"
	StateEntryBlocked   State = "entry_blocked"
	StateEntrySubmitted State = "entry_submitted"
	StateOpen           State = "open"
	StateExitTriggered  State = "exit_triggered"
	StateClosed         State = "closed"
)

// Entry evaluates pairs and opens positions.
type Entry struct {
	log           zerolog.Logger
	venue         exchange.Venue
	book          *ledger.Ledger
	limits        risk.Limits
	notifier      notify.Notifier
	hours         *TradingHours
	window        int
	threshold     float64
	recentLimit   int
	positionsPath string
}

// NewEntry wires the entry engine.
func NewEntry(log zerolog.Logger, venue exchange.Venue, book *ledger.Ledger, limits risk.Limits, notifier notify.Notifier, hours *TradingHours, sig config.Signal, positionsPath string) *Entry {
	return &Entry{
		log:           log,
		venue:         venue,
		book:          book,
		limits:        limits,
		notifier:      notifier,
		hours:         hours,
		window:        sig.Window,
		threshold:     sig.ZScoreThreshold,
		recentLimit:   sig.RecentLimit,
		positionsPath: positionsPath,
	}
}

// EvaluateAll runs one entry pass over the validated pairs. Pairs are handled
// sequentially; the two history fetches inside a pair run concurrently.
func (e *Entry) EvaluateAll(ctx context.Context, pairs []signal.Pair) {
	if len(pairs) == 0 {
		return
	}
	if !e.hours.Open() {
		e.log.Debug().Msg("outside trading hours, skipping entry pass")
		return
	}
	if !e.book.CheckCollateral() {
		e.log.Warn().Float64("balance", e.book.Balance()).Msg("balance below collateral floor, entries halted")
		return
	}

	markets, err := e.venue.Markets(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("market metadata fetch failed, skipping entry pass")
		return
	}

	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return
		}
		state := e.evaluate(ctx, pair, markets)
		e.log.Debug().
			Str("base", pair.Base).
			Str("quote", pair.Quote).
			Str("state", string(state)).
			Msg("pair evaluated")
	}
}

func (e *Entry) evaluate(ctx context.Context, pair signal.Pair, markets map[string]exchange.MarketInfo) State {
	if e.book.IsOpen(pair.Base) || e.book.IsOpen(pair.Quote) {
		return StateOpen
	}
	if !e.limits.Allow(e.book.OpenCount(), 2) {
		return StateEntryBlocked
	}

	base, quote, err := e.fetchLegs(ctx, pair)
	if err != nil {
		e.log.Warn().Err(err).Str("base", pair.Base).Str("quote", pair.Quote).Msg("history fetch failed")
		return StateEvaluating
	}

	z, ok := signal.Latest(base, quote, pair.HedgeRatio, e.window)
	if !ok {
		e.log.Debug().Str("base", pair.Base).Str("quote", pair.Quote).Msg("not enough usable history for z-score")
		return StateNoSignal
	}
	if math.Abs(z) < e.threshold {
		return StateNoSignal
	}

	// Negative z: the spread is cheap, so buy the base leg and sell the
	// quote leg. Positive z reverses both legs.
	baseSide, quoteSide := execution.Buy, execution.Sell
	if z > 0 {
		baseSide, quoteSide = execution.Sell, execution.Buy
	}

	e.log.Info().
		Str("base", pair.Base).
		Str("quote", pair.Quote).
		Float64("zscore", z).
		Str("base_side", string(baseSide)).
		Msg("entry signal")

	opened := 0
	if e.openLeg(ctx, pair.Base, baseSide, markets) {
		opened++
	}
	if e.openLeg(ctx, pair.Quote, quoteSide, markets) {
		opened++
	}
	if opened == 0 {
		return StateEntryBlocked
	}
	if opened == 1 {
		// One leg filled and one failed. The filled leg stays open as an
		// unhedged position; flag it loudly rather than guessing at an
		// unwind price.
		msg := fmt.Sprintf("partial pair entry %s/%s: one leg open unhedged", pair.Base, pair.Quote)
		e.log.Error().Str("base", pair.Base).Str("quote", pair.Quote).Msg("partial pair entry, position unhedged")
		e.notifier.Notify(ctx, msg)
	}
	e.saveSnapshot()
	return StateEntrySubmitted
}

// fetchLegs pulls recent close history for both markets of a pair in
// parallel.
func (e *Entry) fetchLegs(ctx context.Context, pair signal.Pair) (base, quote []float64, err error) {
	var wg sync.WaitGroup
	var baseErr, quoteErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		base, baseErr = e.fetchCloses(ctx, pair.Base)
	}()
	go func() {
		defer wg.Done()
		quote, quoteErr = e.fetchCloses(ctx, pair.Quote)
	}()
	wg.Wait()
	if baseErr != nil {
		return nil, nil, baseErr
	}
	if quoteErr != nil {
		return nil, nil, quoteErr
	}
	if len(base) != len(quote) {
		n := min(len(base), len(quote))
		base, quote = base[len(base)-n:], quote[len(quote)-n:]
	}
	return base, quote, nil
}

func (e *Entry) fetchCloses(ctx context.Context, market string) ([]float64, error) {
	candles, err := e.venue.Candles(ctx, market, e.recentLimit)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes, nil
}

// openLeg sizes, prices, and submits one leg, then books it in the ledger.
func (e *Entry) openLeg(ctx context.Context, market string, side execution.Side, markets map[string]exchange.MarketInfo) bool {
	info, ok := markets[market]
	if !ok || !info.Tradable() || info.OraclePrice <= 0 {
		e.log.Warn().Str("market", market).Msg("market not tradable, leg skipped")
		return false
	}

	size := util.RoundToStep(e.limits.USDPerTrade/info.OraclePrice, info.StepSize)
	if size <= 0 {
		e.log.Warn().Str("market", market).Float64("oracle", info.OraclePrice).Msg("size rounds to zero, leg skipped")
		return false
	}

	tpOffset := util.RoundToTick(e.limits.TakeProfitUSD/size, info.TickSize)
	collar := 1 + entryCollar
	takeProfit := info.OraclePrice + tpOffset
	if side == execution.Sell {
		collar = 1 - entryCollar
		takeProfit = info.OraclePrice - tpOffset
	}
	// The collared accept price doubles as the simulated fill.
	entryPrice := util.RoundToTick(info.OraclePrice*collar, info.TickSize)

	if _, err := e.venue.Submit(ctx, execution.Request{
		Market: market,
		Side:   side,
		Size:   size,
		Price:  entryPrice,
	}); err != nil {
		e.log.Warn().Err(err).Str("market", market).Msg("leg order rejected")
		return false
	}

	if err := e.book.Open(market, side, size, entryPrice, takeProfit, info.TickSize); err != nil {
		e.log.Error().Err(err).Str("market", market).Msg("ledger rejected filled leg")
		return false
	}
	e.log.Info().
		Str("market", market).
		Str("side", string(side)).
		Float64("size", size).
		Float64("entry_price", entryPrice).
		Float64("take_profit", takeProfit).
		Msg("position opened")
	return true
}

func (e *Entry) saveSnapshot() {
	if e.positionsPath == "" {
		return
	}
	if err := e.book.SaveSnapshot(e.positionsPath); err != nil {
		e.log.Warn().Err(err).Msg("position snapshot failed")
	}
}
