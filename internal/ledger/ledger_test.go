package ledger

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"statarb-go/internal/execution"
)

func newTestLedger(t *testing.T, balance float64, maxPositions int) *Ledger {
	t.Helper()
	l := New(zerolog.Nop(), balance, 20, maxPositions, nil)
	l.feeRoll = func() float64 { return 0.9 } // always the 0.02 tier
	return l
}

func TestOpenCloseRoundTrip(t *testing.T) {
	l := newTestLedger(t, 130, 12)

	if err := l.Open("AAA-USD", execution.Buy, 10, 5.0, 5.05, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := l.Balance(); got != 130 {
		t.Fatalf("balance must not move at open, got %v", got)
	}
	if !l.IsOpen("AAA-USD") || l.OpenCount() != 1 {
		t.Fatalf("position not tracked after open")
	}

	pnl, fee, err := l.Close("AAA-USD", 5.05)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if math.Abs(pnl-0.5) > 1e-12 {
		t.Fatalf("pnl = %v, want 0.5", pnl)
	}
	if fee != 0.02 {
		t.Fatalf("fee = %v, want 0.02", fee)
	}
	if got := l.Balance(); math.Abs(got-130.48) > 1e-9 {
		t.Fatalf("balance = %v, want 130.48", got)
	}
	if l.IsOpen("AAA-USD") {
		t.Fatalf("position still open after close")
	}
}

func TestSellPnLReversed(t *testing.T) {
	l := newTestLedger(t, 130, 12)
	if err := l.Open("BBB-USD", execution.Sell, 10, 5.0, 4.95, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	pnl, _, err := l.Close("BBB-USD", 4.95)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if math.Abs(pnl-0.5) > 1e-12 {
		t.Fatalf("sell pnl = %v, want 0.5", pnl)
	}
}

func TestLosingCloseDebitsBalance(t *testing.T) {
	// Full loss of a 50 USD notional plus the fee: 130 - 50 - 0.02 = 79.98.
	l := newTestLedger(t, 130, 12)
	if err := l.Open("CCC-USD", execution.Buy, 10, 5.0, 5.05, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, _, err := l.Close("CCC-USD", 0); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := l.Balance(); math.Abs(got-79.98) > 1e-9 {
		t.Fatalf("balance = %v, want 79.98", got)
	}
}

func TestDuplicateMarketRejected(t *testing.T) {
	l := newTestLedger(t, 130, 12)
	if err := l.Open("AAA-USD", execution.Buy, 1, 5, 5.1, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Open("AAA-USD", execution.Sell, 1, 5, 4.9, 0.01); err != ErrDuplicateMarket {
		t.Fatalf("err = %v, want ErrDuplicateMarket", err)
	}
}

func TestMaxPositionsEnforced(t *testing.T) {
	l := newTestLedger(t, 1000, 12)
	markets := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	for _, m := range markets {
		if err := l.Open(m, execution.Buy, 1, 1, 1.1, 0.01); err != nil {
			t.Fatalf("open %s: %v", m, err)
		}
	}
	if err := l.Open("M", execution.Buy, 1, 1, 1.1, 0.01); err != ErrMaxPositions {
		t.Fatalf("err = %v, want ErrMaxPositions", err)
	}
	if l.OpenCount() != 12 {
		t.Fatalf("open count = %d, want 12", l.OpenCount())
	}
}

func TestCloseUnknownMarket(t *testing.T) {
	l := newTestLedger(t, 130, 12)
	if _, _, err := l.Close("ZZZ-USD", 1); err != ErrNoSuchPosition {
		t.Fatalf("err = %v, want ErrNoSuchPosition", err)
	}
}

func TestCheckCollateral(t *testing.T) {
	l := newTestLedger(t, 130, 12)
	if !l.CheckCollateral() {
		t.Fatalf("collateral check failed at 130")
	}
	if err := l.Open("AAA-USD", execution.Buy, 100, 1.2, 1.3, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, _, err := l.Close("AAA-USD", 0.09); err != nil {
		t.Fatalf("close: %v", err)
	}
	// 130 - 111 - 0.02 = 18.98, below the 20 floor.
	if l.CheckCollateral() {
		t.Fatalf("collateral check passed at %v", l.Balance())
	}
}

func TestFeeTiers(t *testing.T) {
	l := newTestLedger(t, 130, 12)
	l.feeRoll = func() float64 { return 0.1 }
	if err := l.Open("LOW-USD", execution.Buy, 1, 1, 1.1, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, fee, err := l.Close("LOW-USD", 1)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if fee != 0.01 {
		t.Fatalf("fee = %v, want 0.01", fee)
	}
}

func TestRestoreSkipsDuplicatesAndCap(t *testing.T) {
	l := newTestLedger(t, 130, 2)
	if err := l.Open("AAA-USD", execution.Buy, 1, 1, 1.1, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	l.Restore([]Position{
		{Market: "AAA-USD", Side: execution.Sell, Size: 9},
		{Market: "BBB-USD", Side: execution.Buy, Size: 2},
		{Market: "CCC-USD", Side: execution.Buy, Size: 3},
	})
	if l.OpenCount() != 2 {
		t.Fatalf("open count = %d, want 2", l.OpenCount())
	}
	for _, pos := range l.Positions() {
		if pos.Market == "AAA-USD" && pos.Size != 1 {
			t.Fatalf("restore overwrote live position")
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "active_trades.json")

	l := newTestLedger(t, 130, 12)
	if err := l.Open("AAA-USD", execution.Buy, 10, 5.0, 5.05, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.SaveSnapshot(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	positions := LoadSnapshot(zerolog.Nop(), path)
	if len(positions) != 1 {
		t.Fatalf("restored %d positions, want 1", len(positions))
	}
	got := positions[0]
	if got.Market != "AAA-USD" || got.Side != execution.Buy || got.Size != 10 ||
		got.EntryPrice != 5.0 || got.TakeProfitPrice != 5.05 || got.Fee != 0.02 {
		t.Fatalf("restored position mismatch: %+v", got)
	}

	// Second save must leave a backup of the first.
	if err := l.SaveSnapshot(path); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Fatalf("backup missing: %v", err)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	positions := LoadSnapshot(zerolog.Nop(), filepath.Join(t.TempDir(), "nope.json"))
	if positions != nil {
		t.Fatalf("expected empty set, got %v", positions)
	}
}

func TestLoadSnapshotFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "active_trades.json")

	l := newTestLedger(t, 130, 12)
	if err := l.Open("AAA-USD", execution.Buy, 10, 5.0, 5.05, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	// Two saves leave the position in both the snapshot and its backup.
	if err := l.SaveSnapshot(path); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := l.SaveSnapshot(path); err != nil {
		t.Fatalf("second save: %v", err)
	}

	// A truncated main file must not lose the backup's state.
	if err := os.WriteFile(path, []byte(`[{"market":`), 0o644); err != nil {
		t.Fatalf("corrupt snapshot: %v", err)
	}
	positions := LoadSnapshot(zerolog.Nop(), path)
	if len(positions) != 1 || positions[0].Market != "AAA-USD" {
		t.Fatalf("backup not used, got %+v", positions)
	}
}

func TestLoadSnapshotCorruptWithoutBackupStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_trades.json")
	if err := os.WriteFile(path, []byte(`not json`), 0o644); err != nil {
		t.Fatalf("corrupt snapshot: %v", err)
	}
	if positions := LoadSnapshot(zerolog.Nop(), path); positions != nil {
		t.Fatalf("corrupt snapshot must fall back to empty, got %+v", positions)
	}
}

func TestTradeLogAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trade_simulation_log.csv")

	tl, err := NewTradeLog(path)
	if err != nil {
		t.Fatalf("new trade log: %v", err)
	}
	l := New(zerolog.Nop(), 130, 20, 12, tl)
	l.feeRoll = func() float64 { return 0.9 }

	if err := l.Open("AAA-USD", execution.Buy, 10, 5.0, 5.05, 0.01); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, _, err := l.Close("AAA-USD", 5.05); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("log has %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,market,side") {
		t.Fatalf("bad header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "AAA-USD,BUY,10,5,5.05,,,,130") {
		t.Fatalf("open row mismatch: %s", lines[1])
	}
	if !strings.Contains(lines[2], "5.05,0.02,0.5,130.48") {
		t.Fatalf("close row mismatch: %s", lines[2])
	}

	// Re-opening the log must not duplicate the header.
	if _, err := NewTradeLog(path); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	data, _ = os.ReadFile(path)
	if strings.Count(string(data), "timestamp,market") != 1 {
		t.Fatalf("header duplicated on reopen")
	}
}
