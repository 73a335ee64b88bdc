package exchange

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const priceFreshness = 2 * time.Minute

// PriceStream keeps a cache of live oracle prices from the indexer markets
// websocket channel. It reconnects with backoff and is purely advisory: when
// a price is stale or missing, callers fall back to REST.
type PriceStream struct {
	log zerolog.Logger
	url string
	now func() time.Time

	mu     sync.RWMutex
	prices map[string]streamPrice
}

type streamPrice struct {
	value float64
	at    time.Time
}

// NewPriceStream builds a stream client for the given websocket URL.
func NewPriceStream(log zerolog.Logger, url string) *PriceStream {
	return &PriceStream{
		log:    log,
		url:    url,
		now:    time.Now,
		prices: make(map[string]streamPrice),
	}
}

// Price returns the latest streamed oracle price for market, if fresh.
func (s *PriceStream) Price(market string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[market]
	if !ok || s.now().Sub(p.at) > priceFreshness {
		return 0, false
	}
	return p.value, true
}

// Run consumes the markets channel until the context is cancelled,
// reconnecting on failure.
func (s *PriceStream) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Msg("price stream disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

type streamEnvelope struct {
	Type     string          `json:"type"`
	Channel  string          `json:"channel"`
	Contents json.RawMessage `json:"contents"`
}

type marketsContents struct {
	Markets map[string]struct {
		OraclePrice string `json:"oraclePrice"`
	} `json:"markets"`
	OraclePrices map[string]struct {
		OraclePrice string `json:"oraclePrice"`
	} `json:"oraclePrices"`
}

func (s *PriceStream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]string{"type": "subscribe", "channel": "v4_markets"}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	s.log.Info().Str("url", s.url).Msg("connected price stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("price stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env streamEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode stream message")
			continue
		}
		if env.Channel != "v4_markets" || len(env.Contents) == 0 {
			continue
		}
		var contents marketsContents
		if err := json.Unmarshal(env.Contents, &contents); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode markets update")
			continue
		}
		s.apply(contents)
	}
}

func (s *PriceStream) apply(contents marketsContents) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for market, m := range contents.Markets {
		if px, err := strconv.ParseFloat(m.OraclePrice, 64); err == nil && px > 0 {
			s.prices[market] = streamPrice{value: px, at: now}
		}
	}
	for market, m := range contents.OraclePrices {
		if px, err := strconv.ParseFloat(m.OraclePrice, 64); err == nil && px > 0 {
			s.prices[market] = streamPrice{value: px, at: now}
		}
	}
}
