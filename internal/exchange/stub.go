package exchange

import (
	"context"
	"fmt"
	"sync"

	"statarb-go/internal/execution"
)

// Stub is an in-memory Venue for tests. Histories and market metadata are
// set up front; submitted orders are recorded and optionally failed per
// market.
type Stub struct {
	mu          sync.Mutex
	histories   map[string][]float64
	markets     map[string]MarketInfo
	failData    map[string]error
	failOrder   map[string]error
	failMarkets error
	orders      []execution.Request
}

// NewStub returns an empty stub venue.
func NewStub() *Stub {
	return &Stub{
		histories: make(map[string][]float64),
		markets:   make(map[string]MarketInfo),
		failData:  make(map[string]error),
		failOrder: make(map[string]error),
	}
}

// SetHistory installs the close series for a market.
func (s *Stub) SetHistory(market string, closes []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[market] = append([]float64(nil), closes...)
}

// SetMarket installs metadata for a market.
func (s *Stub) SetMarket(info MarketInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[info.Symbol] = info
}

// SetOracle updates just the oracle price of an installed market.
func (s *Stub) SetOracle(market string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.markets[market]
	info.OraclePrice = price
	s.markets[market] = info
}

// FailData makes Candles return a data error for the market.
func (s *Stub) FailData(market string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failData[market] = err
}

// FailOrder makes Submit fail for the market.
func (s *Stub) FailOrder(market string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOrder, market)
		return
	}
	s.failOrder[market] = err
}

// FailMarkets makes Markets fail outright. A nil err restores it.
func (s *Stub) FailMarkets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMarkets = err
}

// Orders returns a copy of every submitted request in order.
func (s *Stub) Orders() []execution.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]execution.Request(nil), s.orders...)
}

// Candles implements MarketData.
func (s *Stub) Candles(_ context.Context, market string, limit int) ([]Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failData[market]; ok {
		return nil, &DataError{Market: market, Err: err}
	}
	closes, ok := s.histories[market]
	if !ok {
		return nil, &DataError{Market: market, Err: fmt.Errorf("no history installed")}
	}
	if len(closes) > limit {
		closes = closes[len(closes)-limit:]
	}
	out := make([]Candle, len(closes))
	for i, px := range closes {
		out[i] = Candle{Close: px}
	}
	return out, nil
}

// Markets implements MarketData.
func (s *Stub) Markets(_ context.Context) (map[string]MarketInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMarkets != nil {
		return nil, s.failMarkets
	}
	out := make(map[string]MarketInfo, len(s.markets))
	for k, v := range s.markets {
		out[k] = v
	}
	return out, nil
}

// Submit implements OrderSubmitter.
func (s *Stub) Submit(_ context.Context, req execution.Request) (execution.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOrder[req.Market]; ok {
		return execution.Confirmation{}, &execution.OrderError{Market: req.Market, Err: err}
	}
	s.orders = append(s.orders, req)
	return execution.Confirmation{
		OrderID: fmt.Sprintf("stub-%d", len(s.orders)),
		Market:  req.Market,
		Status:  "FILLED",
	}, nil
}
