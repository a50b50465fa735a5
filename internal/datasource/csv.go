package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"trading-sim-go/internal/models"
)

// LoadCSV reads a kline CSV (the format written by KlineDownloader: a
// header row, then open_time in unix milliseconds followed by OHLCV
// columns) into bars ordered as stored.
func LoadCSV(path string) ([]models.OHLCV, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open kline file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // trailing columns vary by source

	// Skip the header.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("kline file %s is empty", path)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var bars []models.OHLCV
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		line++

		bar, err := parseBar(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("kline file %s has no data rows", path)
	}
	return bars, nil
}

func parseBar(record []string) (models.OHLCV, error) {
	if len(record) < 6 {
		return models.OHLCV{}, fmt.Errorf("expected at least 6 columns, got %d", len(record))
	}

	openTime, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return models.OHLCV{}, fmt.Errorf("bad open_time %q: %w", record[0], err)
	}

	fields := make([]float64, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		fields[i], err = strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return models.OHLCV{}, fmt.Errorf("bad %s %q: %w", names[i], record[i+1], err)
		}
	}

	return models.OHLCV{
		Timestamp: time.UnixMilli(openTime).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}
