package scanner

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"statarb-go/internal/exchange"
)

// lcg mirrors the fixture generator used across the statistics tests so the
// same deterministic series appear here.
type lcg struct{ state uint64 }

func (g *lcg) next() float64 {
	g.state = (g.state*1103515245 + 12345) & 0x7fffffff
	return float64(g.state)/float64(0x7fffffff) - 0.5
}

func randomWalk(seed uint64, n int, step, start float64) []float64 {
	g := lcg{state: seed}
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + g.next()*step
	}
	return out
}

func scaled(base []float64, ratio float64, noiseSeed uint64, noise float64) []float64 {
	g := lcg{state: noiseSeed}
	out := make([]float64, len(base))
	for i := range base {
		out[i] = ratio*base[i] + g.next()*noise
	}
	return out
}

func offsetScaled(base []float64, ratio, offset float64, noiseSeed uint64, noise float64) []float64 {
	g := lcg{state: noiseSeed}
	out := make([]float64, len(base))
	for i := range base {
		out[i] = ratio*base[i] + offset + g.next()*noise
	}
	return out
}

func newTestScanner(maxHalfLife int) *Scanner {
	return New(zerolog.Nop(), maxHalfLife)
}

func TestEvaluateAcceptsTightPair(t *testing.T) {
	// Short but strongly cointegrated: s2 tracks s1/2 with a spiky first
	// residual, so both the unit-root test and the reversion fit clear their
	// bars at only eight observations.
	s1 := []float64{100, 102, 99, 103, 97, 104, 96, 105}
	e := []float64{1.00, 0.10, 0.11, 0.09, 0.10, 0.11, 0.09, 0.10}
	s2 := make([]float64, len(s1))
	for i := range s1 {
		s2[i] = (s1[i] - e[i]) / 2
	}

	res := newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", s1, s2)
	if res.Accepted == nil {
		t.Fatalf("pair rejected: %s", res.Rejected)
	}
	if math.Abs(res.Accepted.HedgeRatio-2.00419) > 1e-4 {
		t.Fatalf("hedge ratio = %.6f, want 2.00419", res.Accepted.HedgeRatio)
	}
	if res.Accepted.HalfLife != 1 {
		t.Fatalf("half life = %d, want 1", res.Accepted.HalfLife)
	}
}

func TestEvaluateAcceptsScaledWalk(t *testing.T) {
	walk := randomWalk(42, 120, 2, 100)
	s1 := scaled(walk, 2.0, 7, 0.8)

	res := newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", s1, walk)
	if res.Accepted == nil {
		t.Fatalf("pair rejected: %s", res.Rejected)
	}
	if math.Abs(res.Accepted.HedgeRatio-2.0) > 0.01 {
		t.Fatalf("hedge ratio = %.6f, want about 2", res.Accepted.HedgeRatio)
	}
}

func TestEvaluateRejectsIndependentWalks(t *testing.T) {
	a := randomWalk(3, 120, 2, 50)
	b := randomWalk(99, 120, 2, 80)

	res := newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", a, b)
	if res.Accepted != nil {
		t.Fatalf("independent walks accepted")
	}
	if res.Rejected != ReasonNotCointegrated {
		t.Fatalf("reason = %s, want %s", res.Rejected, ReasonNotCointegrated)
	}
}

func TestEvaluateRejectsExtremeHedgeRatios(t *testing.T) {
	walk := randomWalk(42, 120, 2, 100)

	big := scaled(walk, 8.0, 13, 0.8)
	res := newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", big, walk)
	if res.Rejected != ReasonHedgeRatio {
		t.Fatalf("ratio 8 reason = %s, want %s", res.Rejected, ReasonHedgeRatio)
	}

	small := scaled(walk, 0.05, 13, 0.02)
	res = newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", small, walk)
	if res.Rejected != ReasonHedgeRatio {
		t.Fatalf("ratio 0.05 reason = %s, want %s", res.Rejected, ReasonHedgeRatio)
	}
}

func TestEvaluateRejectsSlowReversion(t *testing.T) {
	// The intercept offset leaks walk drift into the no-intercept spread, so
	// the spread reverts far slower than the regression residual does.
	walk := randomWalk(21, 120, 2, 100)
	s1 := offsetScaled(walk, 2.0, 30.0, 22, 0.4)

	if res := newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", s1, walk); res.Accepted == nil {
		t.Fatalf("generous bound rejected pair: %s", res.Rejected)
	} else if res.Accepted.HalfLife != 18 {
		t.Fatalf("half life = %d, want 18", res.Accepted.HalfLife)
	}

	res := newTestScanner(10).Evaluate("AAA-USD", "BBB-USD", s1, walk)
	if res.Rejected != ReasonHalfLife {
		t.Fatalf("reason = %s, want %s", res.Rejected, ReasonHalfLife)
	}
}

func TestEvaluateRejectsDegenerateSeries(t *testing.T) {
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 5
	}
	res := newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", flat, flat)
	if res.Rejected != ReasonDataError {
		t.Fatalf("constant series reason = %s, want %s", res.Rejected, ReasonDataError)
	}

	res = newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", nil, randomWalk(42, 60, 2, 100))
	if res.Rejected != ReasonDataError {
		t.Fatalf("nil series reason = %s, want %s", res.Rejected, ReasonDataError)
	}

	res = newTestScanner(24).Evaluate("AAA-USD", "BBB-USD", []float64{1, 2, 3}, []float64{2, 4, 6})
	if res.Rejected != ReasonNumerical {
		t.Fatalf("short series reason = %s, want %s", res.Rejected, ReasonNumerical)
	}
}

func TestScanEnumeratesUnorderedPairs(t *testing.T) {
	walk := randomWalk(42, 120, 2, 100)
	matrix := PriceMatrix{
		Markets: []string{"AAA-USD", "BBB-USD", "CCC-USD"},
		Closes: map[string][]float64{
			"AAA-USD": scaled(walk, 2.0, 7, 0.8),
			"BBB-USD": walk,
			"CCC-USD": randomWalk(99, 120, 2, 80),
		},
	}

	pairs, err := newTestScanner(24).Scan(context.Background(), matrix)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("accepted %d pairs, want 1", len(pairs))
	}
	if pairs[0].Base != "AAA-USD" || pairs[0].Quote != "BBB-USD" {
		t.Fatalf("accepted pair %s/%s", pairs[0].Base, pairs[0].Quote)
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	matrix := PriceMatrix{
		Markets: []string{"A", "B"},
		Closes:  map[string][]float64{"A": {1, 2}, "B": {1, 2}},
	}
	if _, err := newTestScanner(24).Scan(ctx, matrix); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBuildMatrixDropsBadMarkets(t *testing.T) {
	stub := exchange.NewStub()
	stub.SetMarket(exchange.MarketInfo{Symbol: "AAA-USD", Status: "ACTIVE"})
	stub.SetMarket(exchange.MarketInfo{Symbol: "BBB-USD", Status: "ACTIVE"})
	stub.SetMarket(exchange.MarketInfo{Symbol: "SHORT-USD", Status: "ACTIVE"})
	stub.SetMarket(exchange.MarketInfo{Symbol: "HALT-USD", Status: "PAUSED"})
	stub.SetHistory("AAA-USD", randomWalk(1, 50, 1, 10))
	stub.SetHistory("BBB-USD", randomWalk(2, 50, 1, 10))
	stub.SetHistory("SHORT-USD", []float64{1, 2, 3})
	stub.SetHistory("HALT-USD", randomWalk(4, 50, 1, 10))
	stub.FailData("AAA-USD", errors.New("rate limited"))

	matrix, err := BuildMatrix(context.Background(), zerolog.Nop(), stub, 100, 8)
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	if len(matrix.Markets) != 1 || matrix.Markets[0] != "BBB-USD" {
		t.Fatalf("markets = %v, want [BBB-USD]", matrix.Markets)
	}
	if len(matrix.Closes["BBB-USD"]) != 50 {
		t.Fatalf("history length = %d, want 50", len(matrix.Closes["BBB-USD"]))
	}
}
