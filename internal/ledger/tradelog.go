package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

var tradeLogHeader = []string{
	"timestamp", "market", "side", "size", "entry_price",
	"take_profit_price", "exit_price", "fee", "realized_pnl", "balance_after",
}

// TradeLog appends one CSV row per open and per close to a file that is never
// rewritten. The header is written once when the file is created.
type TradeLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewTradeLog opens or creates the append-only log at path.
func NewTradeLog(path string) (*TradeLog, error) {
	tl := &TradeLog{path: path, now: time.Now}
	if err := tl.ensureHeader(); err != nil {
		return nil, err
	}
	return tl, nil
}

func (tl *TradeLog) ensureHeader() error {
	if _, err := os.Stat(tl.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("trade log stat: %w", err)
	}
	f, err := os.OpenFile(tl.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("trade log create: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(tradeLogHeader); err != nil {
		return fmt.Errorf("trade log header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// AppendOpen records a position entry. Exit fields stay blank until close.
func (tl *TradeLog) AppendOpen(pos Position, balance float64) error {
	return tl.append([]string{
		tl.now().UTC().Format(time.RFC3339),
		pos.Market,
		string(pos.Side),
		formatFloat(pos.Size),
		formatFloat(pos.EntryPrice),
		formatFloat(pos.TakeProfitPrice),
		"", "", "",
		formatFloat(balance),
	})
}

// AppendClose records a position exit with realized P&L and the fee charged.
func (tl *TradeLog) AppendClose(pos Position, exitPrice, fee, pnl, balance float64) error {
	return tl.append([]string{
		tl.now().UTC().Format(time.RFC3339),
		pos.Market,
		string(pos.Side),
		formatFloat(pos.Size),
		formatFloat(pos.EntryPrice),
		formatFloat(pos.TakeProfitPrice),
		formatFloat(exitPrice),
		formatFloat(fee),
		formatFloat(pnl),
		formatFloat(balance),
	})
}

func (tl *TradeLog) append(record []string) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	f, err := os.OpenFile(tl.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("trade log open: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("trade log write: %w", err)
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
