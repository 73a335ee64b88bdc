package exchange

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPriceStreamFreshness(t *testing.T) {
	s := NewPriceStream(zerolog.Nop(), "ws://unused")
	now := time.Now()
	s.now = func() time.Time { return now }

	s.apply(marketsContents{
		Markets: map[string]struct {
			OraclePrice string `json:"oraclePrice"`
		}{
			"BTC-USD": {OraclePrice: "65000.5"},
			"BAD-USD": {OraclePrice: "zero"},
		},
	})

	if px, ok := s.Price("BTC-USD"); !ok || px != 65000.5 {
		t.Fatalf("price = %v ok=%v, want 65000.5", px, ok)
	}
	if _, ok := s.Price("BAD-USD"); ok {
		t.Fatalf("unparseable price must not be cached")
	}
	if _, ok := s.Price("ETH-USD"); ok {
		t.Fatalf("unknown market must report no price")
	}

	s.now = func() time.Time { return now.Add(3 * time.Minute) }
	if _, ok := s.Price("BTC-USD"); ok {
		t.Fatalf("stale price must not be served")
	}
}

func TestPriceStreamOraclePricesUpdate(t *testing.T) {
	s := NewPriceStream(zerolog.Nop(), "ws://unused")
	s.apply(marketsContents{
		OraclePrices: map[string]struct {
			OraclePrice string `json:"oraclePrice"`
		}{
			"ETH-USD": {OraclePrice: "3300.25"},
		},
	})
	if px, ok := s.Price("ETH-USD"); !ok || px != 3300.25 {
		t.Fatalf("price = %v ok=%v, want 3300.25", px, ok)
	}
}
