package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"statarb-go/internal/config"
	"statarb-go/internal/engine"
	"statarb-go/internal/exchange"
	"statarb-go/internal/ledger"
	"statarb-go/internal/metrics"
	"statarb-go/internal/notify"
	"statarb-go/internal/risk"
	"statarb-go/internal/scanner"
	"statarb-go/internal/signal"
	"statarb-go/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	venue := exchange.Composite{
		MarketData:     exchange.NewClient(log, cfg.Venue),
		OrderSubmitter: exchange.NewSubmitter(log),
	}
	notifier := notify.New(log, cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)

	tradeLog, err := ledger.NewTradeLog(cfg.Trading.TradeLogPath)
	if err != nil {
		log.Warn().Err(err).Msg("trade log unavailable, trades will not be recorded")
	}
	book := ledger.New(log, cfg.Trading.InitialBalance, cfg.Trading.MinCollateralUSD, cfg.Trading.MaxPositions, tradeLog)
	if restored := ledger.LoadSnapshot(log, cfg.Trading.PositionsPath); len(restored) > 0 {
		book.Restore(restored)
		log.Info().Int("positions", book.OpenCount()).Msg("restored open positions")
	}

	hours, err := engine.NewTradingHours(cfg.Trading.Hours)
	if err != nil {
		log.Fatal().Err(err).Msg("parse trading hours")
	}
	limits := risk.Limits{
		MaxPositions:     cfg.Trading.MaxPositions,
		MinCollateralUSD: cfg.Trading.MinCollateralUSD,
		USDPerTrade:      cfg.Trading.USDPerTrade,
		TakeProfitUSD:    cfg.Trading.TakeProfitUSD,
	}

	// The scan is rerun on an interval; each run fully replaces the pair set.
	scan := scanner.New(log, cfg.Scanner.MaxHalfLife)
	pairs, err := refreshPairs(ctx, log, scan, venue, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initial pair scan")
	}
	if len(pairs) == 0 {
		if loaded, err := scanner.LoadPairs(cfg.Scanner.PairsPath); err == nil && len(loaded) > 0 {
			log.Info().Int("pairs", len(loaded)).Msg("scan found nothing, using stored pairs")
			pairs = loaded
		}
	}

	var feed engine.PriceFeed
	if cfg.Venue.StreamURL != "" {
		stream := exchange.NewPriceStream(log, cfg.Venue.StreamURL)
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("price stream stopped")
			}
		}()
		feed = stream
	}

	exit := engine.NewExitMonitor(log, venue, book, feed, notifier,
		time.Duration(cfg.Trading.ExitPollMs)*time.Millisecond, cfg.Trading.PositionsPath)
	go exit.Run(ctx)

	entry := engine.NewEntry(log, venue, book, limits, notifier, hours, cfg.Signal, cfg.Trading.PositionsPath)

	entryTicker := time.NewTicker(time.Duration(cfg.Trading.EntryIntervalMs) * time.Millisecond)
	defer entryTicker.Stop()
	rescanTicker := time.NewTicker(time.Duration(cfg.Scanner.RefreshInterval) * time.Minute)
	defer rescanTicker.Stop()

	log.Info().Int("pairs", len(pairs)).Float64("balance", book.Balance()).Msg("engine started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-rescanTicker.C:
			fresh, err := refreshPairs(ctx, log, scan, venue, cfg)
			if err != nil {
				log.Warn().Err(err).Msg("pair rescan failed, keeping previous set")
				continue
			}
			pairs = fresh
		case <-entryTicker.C:
			entry.EvaluateAll(ctx, pairs)
		}
	}
}

func refreshPairs(ctx context.Context, log zerolog.Logger, scan *scanner.Scanner, venue exchange.MarketData, cfg *config.Config) ([]signal.Pair, error) {
	matrix, err := scanner.BuildMatrix(ctx, log, venue, cfg.Scanner.HistoryLimit, cfg.Signal.Window)
	if err != nil {
		return nil, err
	}
	pairs, err := scan.Scan(ctx, matrix)
	if err != nil {
		return nil, err
	}
	if err := scanner.SavePairs(cfg.Scanner.PairsPath, pairs); err != nil {
		log.Warn().Err(err).Msg("pair list save failed")
	}
	return pairs, nil
}
