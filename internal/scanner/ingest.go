package scanner

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"statarb-go/internal/exchange"
)

// PriceMatrix holds aligned close-price history for a market universe.
// Markets is sorted so pair enumeration is deterministic.
type PriceMatrix struct {
	Markets []string
	Closes  map[string][]float64
}

// BuildMatrix fetches candle history for every tradable market on the venue.
// Markets whose history cannot be fetched, or that have fewer than minObs
// bars, are dropped with a log line rather than failing the scan.
func BuildMatrix(ctx context.Context, log zerolog.Logger, data exchange.MarketData, historyLimit, minObs int) (PriceMatrix, error) {
	infos, err := data.Markets(ctx)
	if err != nil {
		return PriceMatrix{}, err
	}

	symbols := make([]string, 0, len(infos))
	for symbol, info := range infos {
		if info.Tradable() {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	matrix := PriceMatrix{Closes: make(map[string][]float64, len(symbols))}
	for _, symbol := range symbols {
		candles, err := data.Candles(ctx, symbol, historyLimit)
		if err != nil {
			var de *exchange.DataError
			if errors.As(err, &de) {
				log.Warn().Err(err).Str("market", symbol).Msg("dropping market from scan")
				continue
			}
			return PriceMatrix{}, err
		}
		if len(candles) < minObs {
			log.Debug().Str("market", symbol).Int("bars", len(candles)).Msg("dropping market with short history")
			continue
		}
		closes := make([]float64, len(candles))
		for i, c := range candles {
			closes[i] = c.Close
		}
		matrix.Markets = append(matrix.Markets, symbol)
		matrix.Closes[symbol] = closes
	}
	return matrix, nil
}
