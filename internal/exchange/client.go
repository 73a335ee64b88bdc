package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/config"
	"statarb-go/internal/metrics"
)

// Client fetches candles and market metadata from a dYdX-style indexer REST
// API. Every request passes through the shared throttle.
type Client struct {
	log        zerolog.Logger
	http       *http.Client
	baseURL    string
	resolution string
	throttle   *Throttle
}

// NewClient builds a venue data client from config.
func NewClient(log zerolog.Logger, cfg config.Venue) *Client {
	timeout := time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:        log,
		http:       &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		resolution: cfg.Resolution,
		throttle:   NewThrottle(time.Duration(cfg.ThrottleMs) * time.Millisecond),
	}
}

type candlesResponse struct {
	Candles []struct {
		StartedAt time.Time `json:"startedAt"`
		Close     string    `json:"close"`
	} `json:"candles"`
}

// Candles returns up to limit closed bars for the market, oldest-first. Any
// transport, status, or parse failure comes back as a *DataError so callers
// can skip the market.
func (c *Client) Candles(ctx context.Context, market string, limit int) ([]Candle, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, &DataError{Market: market, Err: err}
	}

	endpoint := fmt.Sprintf("%s/candles/perpetualMarkets/%s?resolution=%s&limit=%d",
		c.baseURL, url.PathEscape(market), url.QueryEscape(c.resolution), limit)
	var payload candlesResponse
	if err := c.get(ctx, endpoint, &payload); err != nil {
		metrics.DataErrorsTotal.WithLabelValues("candles").Inc()
		return nil, &DataError{Market: market, Err: err}
	}

	// The indexer returns newest-first; the statistics want oldest-first.
	out := make([]Candle, 0, len(payload.Candles))
	for i := len(payload.Candles) - 1; i >= 0; i-- {
		raw := payload.Candles[i]
		px, err := strconv.ParseFloat(raw.Close, 64)
		if err != nil {
			metrics.DataErrorsTotal.WithLabelValues("candles").Inc()
			return nil, &DataError{Market: market, Err: fmt.Errorf("bad close %q: %w", raw.Close, err)}
		}
		out = append(out, Candle{StartedAt: raw.StartedAt, Close: px})
	}
	return out, nil
}

type marketsResponse struct {
	Markets map[string]struct {
		Ticker      string `json:"ticker"`
		OraclePrice string `json:"oraclePrice"`
		TickSize    string `json:"tickSize"`
		StepSize    string `json:"stepSize"`
		Status      string `json:"status"`
	} `json:"markets"`
}

// Markets returns metadata for every perpetual market on the venue.
func (c *Client) Markets(ctx context.Context) (map[string]MarketInfo, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	var payload marketsResponse
	if err := c.get(ctx, c.baseURL+"/perpetualMarkets", &payload); err != nil {
		metrics.DataErrorsTotal.WithLabelValues("markets").Inc()
		return nil, err
	}

	out := make(map[string]MarketInfo, len(payload.Markets))
	for symbol, raw := range payload.Markets {
		oracle, err := strconv.ParseFloat(raw.OraclePrice, 64)
		if err != nil {
			c.log.Warn().Str("market", symbol).Str("oracle_price", raw.OraclePrice).Msg("skipping market with bad oracle price")
			continue
		}
		tick, err := strconv.ParseFloat(raw.TickSize, 64)
		if err != nil || tick <= 0 {
			c.log.Warn().Str("market", symbol).Str("tick_size", raw.TickSize).Msg("skipping market with bad tick size")
			continue
		}
		step, err := strconv.ParseFloat(raw.StepSize, 64)
		if err != nil || step <= 0 {
			c.log.Warn().Str("market", symbol).Str("step_size", raw.StepSize).Msg("skipping market with bad step size")
			continue
		}
		out[symbol] = MarketInfo{
			Symbol:      symbol,
			OraclePrice: oracle,
			TickSize:    tick,
			StepSize:    step,
			Status:      raw.Status,
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "statarb-go/1.0")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
