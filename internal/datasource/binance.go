package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
)

// Binance caps a single klines request at 1000 rows.
const klinePageLimit = 1000

// Polite delay between paged requests.
const pageDelay = 200 * time.Millisecond

// KlineDownloader fetches historical klines from Binance's public REST API
// and caches them as CSV files.
type KlineDownloader struct {
	client *binance.Client
	log    *zap.SugaredLogger
}

// NewKlineDownloader creates a downloader. The klines endpoint is public,
// so no API credentials are needed.
func NewKlineDownloader(log *zap.SugaredLogger) *KlineDownloader {
	return &KlineDownloader{
		client: binance.NewClient("", ""),
		log:    log,
	}
}

// DownloadKlines fetches klines for symbol (exchange form, e.g. "BTCUSDT")
// between startTime and endTime at the given interval and writes them to
// filePath. An existing file is treated as a cache hit and left untouched.
func (d *KlineDownloader) DownloadKlines(ctx context.Context, symbol, interval, filePath string, startTime, endTime time.Time) error {
	if _, err := os.Stat(filePath); err == nil {
		d.log.Infow("using cached kline data", "path", filePath)
		return nil
	}

	d.log.Infow("downloading klines",
		"symbol", symbol, "interval", interval,
		"start", startTime.Format("2006-01-02"), "end", endTime.Format("2006-01-02"))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create kline file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"open_time", "open", "high", "low", "close", "volume", "close_time", "quote_asset_volume", "number_of_trades", "taker_buy_base_asset_volume", "taker_buy_quote_asset_volume"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for t := startTime; t.Before(endTime); {
		klines, err := d.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(t.UnixMilli()).
			EndTime(endTime.UnixMilli()).
			Limit(klinePageLimit).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("fetch klines: %w", err)
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			record := []string{
				fmt.Sprintf("%d", k.OpenTime),
				k.Open,
				k.High,
				k.Low,
				k.Close,
				k.Volume,
				fmt.Sprintf("%d", k.CloseTime),
				k.QuoteAssetVolume,
				fmt.Sprintf("%d", k.TradeNum),
				k.TakerBuyBaseAssetVolume,
				k.TakerBuyQuoteAssetVolume,
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}

		t = time.UnixMilli(klines[len(klines)-1].CloseTime + 1)
		d.log.Debugw("kline page downloaded", "through", t.Format("2006-01-02 15:04:05"))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pageDelay):
		}
	}

	d.log.Infow("kline download complete", "path", filePath)
	return nil
}
