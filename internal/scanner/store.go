package scanner

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"statarb-go/internal/signal"
)

var pairsHeader = []string{"base_market", "quote_market", "hedge_ratio", "half_life"}

// SavePairs writes the accepted pair list to a CSV file, replacing whatever
// was there. An empty scan writes just the header.
func SavePairs(path string, pairs []signal.Pair) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".pairs-*.csv")
	if err != nil {
		return fmt.Errorf("pairs temp: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	w := csv.NewWriter(f)
	if err := w.Write(pairsHeader); err != nil {
		f.Close()
		return fmt.Errorf("pairs header: %w", err)
	}
	for _, p := range pairs {
		record := []string{
			p.Base,
			p.Quote,
			strconv.FormatFloat(p.HedgeRatio, 'f', -1, 64),
			strconv.Itoa(p.HalfLife),
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("pairs write: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadPairs reads a previously saved pair list. A missing file is an empty
// list so the bot can start before its first scan completes.
func LoadPairs(path string) ([]signal.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pairs open: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("pairs parse: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	pairs := make([]signal.Pair, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != 4 {
			return nil, fmt.Errorf("pairs row has %d fields, want 4", len(rec))
		}
		hedge, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("pairs hedge ratio %q: %w", rec[2], err)
		}
		hl, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("pairs half life %q: %w", rec[3], err)
		}
		pairs = append(pairs, signal.Pair{Base: rec[0], Quote: rec[1], HedgeRatio: hedge, HalfLife: hl})
	}
	return pairs, nil
}
