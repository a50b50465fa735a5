package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"trading-sim-go/internal/backtest"
	"trading-sim-go/internal/config"
	"trading-sim-go/internal/datasource"
	"trading-sim-go/internal/logger"
	"trading-sim-go/internal/paper"
	"trading-sim-go/internal/pricefeed"
	"trading-sim-go/internal/reporter"
	"trading-sim-go/internal/results"
	"trading-sim-go/internal/risk"
	"trading-sim-go/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	mode := flag.String("mode", "backtest", "running mode: backtest or paper")
	dataPath := flag.String("data", "", "path to a historical kline CSV")
	startDate := flag.String("start", "", "backtest start date (YYYY-MM-DD), triggers a download")
	endDate := flag.String("end", "", "backtest end date (YYYY-MM-DD)")
	flag.Parse()

	// Bootstrap logger so config loading already has one.
	log := logger.Init(config.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using system environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log = logger.Init(cfg.LogSettings)
	defer log.Sync()

	switch *mode {
	case "backtest":
		runBacktest(cfg, log, *dataPath, *startDate, *endDate)
	case "paper":
		runPaper(cfg, log)
	default:
		log.Fatalf("unknown mode %q, expected backtest or paper", *mode)
	}
}

// exchangeSymbol converts "BTC/USDT" to the "BTCUSDT" form the REST API
// expects.
func exchangeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

func runBacktest(cfg *config.Config, log *zap.SugaredLogger, dataPath, startDate, endDate string) {
	log.Infow("starting backtest", "symbol", cfg.Symbol, "strategy", cfg.Strategy.Type)

	path, err := resolveData(cfg, log, dataPath, startDate, endDate)
	if err != nil {
		log.Fatalf("failed to resolve historical data: %v", err)
	}

	bars, err := datasource.LoadCSV(path)
	if err != nil {
		log.Fatalf("failed to load klines: %v", err)
	}
	log.Infow("klines loaded", "path", path, "bars", len(bars))

	params, err := strategy.ParseParams(cfg.Strategy.Type, cfg.Strategy.Params)
	if err != nil {
		log.Fatalf("invalid strategy parameters: %v", err)
	}

	var sink results.Sink
	if cfg.DBPath != "" {
		sink, err = results.NewBadgerSink(cfg.DBPath)
		if err != nil {
			log.Fatalf("failed to open result store: %v", err)
		}
		defer sink.Close()
	}

	engine := backtest.NewEngine(sink, log)
	result, err := engine.Run(backtest.Request{
		StrategyID:     cfg.StrategyID,
		Symbol:         cfg.Symbol,
		Bars:           bars,
		Params:         params,
		InitialCapital: cfg.InitialCapital,
		SlippagePct:    cfg.SlippageRate,
		CommissionPct:  cfg.CommissionRate,
	})
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	reporter.Render(os.Stdout, result)
}

// resolveData returns the kline CSV to replay: either an explicit -data
// path or a (cached) download for the configured symbol and date range.
func resolveData(cfg *config.Config, log *zap.SugaredLogger, dataPath, startDate, endDate string) (string, error) {
	if startDate != "" && endDate != "" {
		startTime, err1 := time.Parse("2006-01-02", startDate)
		endTime, err2 := time.Parse("2006-01-02", endDate)
		if err1 != nil || err2 != nil {
			return "", fmt.Errorf("dates must use YYYY-MM-DD: start %v, end %v", err1, err2)
		}

		symbol := exchangeSymbol(cfg.Symbol)
		fileName := filepath.Join(cfg.DataDir,
			fmt.Sprintf("%s-%s-%s-%s.csv", symbol, cfg.Interval, startDate, endDate))

		dl := datasource.NewKlineDownloader(log)
		if err := dl.DownloadKlines(context.Background(), symbol, cfg.Interval, fileName, startTime, endTime); err != nil {
			return "", err
		}
		return fileName, nil
	}

	if dataPath == "" {
		return "", fmt.Errorf("provide -data, or -start and -end for a download")
	}
	return dataPath, nil
}

func runPaper(cfg *config.Config, log *zap.SugaredLogger) {
	log.Infow("starting paper trading session", "symbol", cfg.Symbol)

	feed := pricefeed.NewStatic()
	account := paper.NewAccount(cfg.Paper.InitialBalances, feed, log)
	riskMgr := risk.NewManager(cfg.Risk, cfg.InitialCapital, log)
	session := paper.NewSession(account, riskMgr, feed, log)

	stream := pricefeed.NewBinanceWS(cfg.WSBaseURL, []string{cfg.Symbol}, feed, log)
	stream.OnPrice = session.OnPrice
	go stream.Run()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stream.Stop()

	// Final snapshot before exit.
	for asset, balance := range account.Balances() {
		log.Infow("final balance", "asset", asset,
			"available", balance.Available, "locked", balance.Locked)
	}
	metrics := riskMgr.Metrics()
	log.Infow("session closed",
		"equity", metrics.Equity,
		"open_positions", metrics.OpenPositions,
		"wins", metrics.Wins,
		"losses", metrics.Losses,
	)
}
