package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"statarb-go/internal/config"
)

// TradingHours gates entries to a daily window in a fixed timezone. Exits are
// never gated; only new positions respect the window.
type TradingHours struct {
	enabled      bool
	startMinutes int
	endMinutes   int
	loc          *time.Location
	skipWeekends bool
	now          func() time.Time
}

// NewTradingHours parses the configured window. A disabled config returns a
// gate that is always open.
func NewTradingHours(cfg config.Hours) (*TradingHours, error) {
	h := &TradingHours{enabled: cfg.Enabled, now: time.Now}
	if !cfg.Enabled {
		return h, nil
	}

	start, err := parseClock(cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("trading hours start: %w", err)
	}
	end, err := parseClock(cfg.End)
	if err != nil {
		return nil, fmt.Errorf("trading hours end: %w", err)
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("trading hours timezone: %w", err)
		}
	}
	h.startMinutes = start
	h.endMinutes = end
	h.loc = loc
	h.skipWeekends = cfg.SkipWeekends
	return h, nil
}

// Open reports whether entries are currently allowed.
func (h *TradingHours) Open() bool {
	if !h.enabled {
		return true
	}
	now := h.now().In(h.loc)
	if h.skipWeekends {
		if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	minutes := now.Hour()*60 + now.Minute()
	if h.startMinutes <= h.endMinutes {
		return minutes >= h.startMinutes && minutes < h.endMinutes
	}
	// Window wraps midnight.
	return minutes >= h.startMinutes || minutes < h.endMinutes
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return hh*60 + mm, nil
}
