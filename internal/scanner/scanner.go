// Package scanner finds cointegrated market pairs. Each scan pulls candle
// history for the whole universe, runs the Engle-Granger test on every
// unordered pair, and keeps the pairs that also pass the hedge-ratio and
// half-life filters.
package scanner

import (
	"context"

	"github.com/rs/zerolog"

	"statarb-go/internal/metrics"
	"statarb-go/internal/signal"
	"statarb-go/internal/stats"
)

// Hedge-ratio bounds. Ratios outside this band make one leg's notional dwarf
// the other, so the pair is not tradable at fixed USD sizing.
const (
	minHedgeRatio = 0.1
	maxHedgeRatio = 5.0
)

const pValueThreshold = 0.05

// Reason classifies why a pair was rejected.
type Reason string

const (
	ReasonDataError       Reason = "data_error"
	ReasonNotCointegrated Reason = "not_cointegrated"
	ReasonNoReversion     Reason = "no_reversion"
	ReasonHalfLife        Reason = "half_life"
	ReasonHedgeRatio      Reason = "hedge_ratio"
	ReasonNumerical       Reason = "numerical"
)

// Result is the outcome for one candidate pair. Exactly one of Accepted and
// Rejected is set.
type Result struct {
	Base     string
	Quote    string
	Accepted *signal.Pair
	Rejected Reason
}

// Scanner evaluates candidate pairs against a price matrix.
type Scanner struct {
	log         zerolog.Logger
	maxHalfLife int
}

// New builds a scanner. maxHalfLife bounds how slow a spread may revert, in
// bars.
func New(log zerolog.Logger, maxHalfLife int) *Scanner {
	return &Scanner{log: log, maxHalfLife: maxHalfLife}
}

// Evaluate runs the full statistical pipeline on one pair of close series.
func (s *Scanner) Evaluate(base, quote string, s1, s2 []float64) Result {
	res := Result{Base: base, Quote: quote}

	if degenerate(s1) || degenerate(s2) {
		s.log.Debug().Str("base", base).Str("quote", quote).Msg("empty or constant series")
		res.Rejected = ReasonDataError
		return res
	}

	tau, pValue, crit5, err := stats.EngleGranger(s1, s2)
	if err != nil {
		s.log.Debug().Err(err).Str("base", base).Str("quote", quote).Msg("cointegration test failed")
		res.Rejected = ReasonNumerical
		return res
	}
	if pValue >= pValueThreshold || tau >= crit5 {
		res.Rejected = ReasonNotCointegrated
		return res
	}

	hedge, err := stats.OLSNoIntercept(s2, s1)
	if err != nil {
		res.Rejected = ReasonNumerical
		return res
	}
	if hedge < minHedgeRatio || hedge > maxHedgeRatio {
		res.Rejected = ReasonHedgeRatio
		return res
	}

	spread := signal.Spread(s1, s2, hedge)
	halfLife, err := stats.HalfLife(spread)
	if err == stats.ErrNoReversion {
		res.Rejected = ReasonNoReversion
		return res
	}
	if err != nil {
		res.Rejected = ReasonNumerical
		return res
	}
	if halfLife <= 0 || halfLife > s.maxHalfLife {
		res.Rejected = ReasonHalfLife
		return res
	}

	res.Accepted = &signal.Pair{
		Base:       base,
		Quote:      quote,
		HedgeRatio: hedge,
		HalfLife:   halfLife,
	}
	s.log.Info().
		Str("base", base).
		Str("quote", quote).
		Float64("hedge_ratio", hedge).
		Int("half_life", halfLife).
		Float64("tau", tau).
		Float64("p_value", pValue).
		Msg("cointegrated pair accepted")
	return res
}

// degenerate reports whether a series is empty or constant. Such series carry
// no information and would only fail deep inside the regression math.
func degenerate(s []float64) bool {
	if len(s) == 0 {
		return true
	}
	for _, v := range s[1:] {
		if v != s[0] {
			return false
		}
	}
	return true
}

// Scan evaluates every unordered pair in the matrix and returns the accepted
// set. The result fully replaces any previous pair list.
func (s *Scanner) Scan(ctx context.Context, matrix PriceMatrix) ([]signal.Pair, error) {
	metrics.ScansTotal.Inc()

	var accepted []signal.Pair
	for i := 0; i < len(matrix.Markets); i++ {
		for j := i + 1; j < len(matrix.Markets); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			base, quote := matrix.Markets[i], matrix.Markets[j]
			res := s.Evaluate(base, quote, matrix.Closes[base], matrix.Closes[quote])
			if res.Accepted != nil {
				accepted = append(accepted, *res.Accepted)
				metrics.PairsAccepted.Inc()
			} else {
				metrics.PairsRejected.WithLabelValues(string(res.Rejected)).Inc()
			}
		}
	}

	s.log.Info().
		Int("markets", len(matrix.Markets)).
		Int("accepted", len(accepted)).
		Msg("pair scan complete")
	return accepted, nil
}
