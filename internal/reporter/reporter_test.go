package reporter

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trading-sim-go/internal/models"
)

func sampleResult() *models.BacktestResult {
	entry := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	exit := entry.Add(2 * time.Hour)
	exitPx, pnl, pnlPct := 110.0, 95.0, 9.5

	return &models.BacktestResult{
		ID:         "run-1",
		StrategyID: "momentum-1",
		Symbol:     "BTC/USDT",
		StartTime:  entry,
		EndTime:    exit,
		Status:     models.BacktestCompleted,
		Metrics: models.BacktestMetrics{
			TotalReturn:      9.5,
			TotalTrades:      1,
			WinningTrades:    1,
			WinRate:          100,
			SharpeRatio:      1.2,
			ProfitFactor:     math.Inf(1),
			AvgTradeDuration: 2 * time.Hour,
		},
		Risk: models.RiskReport{ValueAtRisk95: 2.5, CalmarRatio: 3.1},
		Trades: []models.TradeRecord{{
			ID: "t1", Symbol: "BTC/USDT", Side: models.SideLong, Quantity: 0.5,
			EntryTime: entry, EntryPrice: 100,
			ExitTime: &exit, ExitPrice: &exitPx, PnL: &pnl, PnLPercent: &pnlPct,
		}},
	}
}

func TestRenderCompletedResult(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sampleResult())

	out := buf.String()
	assert.Contains(t, out, "Backtest Summary")
	assert.Contains(t, out, "momentum-1")
	assert.Contains(t, out, "BTC/USDT")
	assert.Contains(t, out, "Performance")
	assert.Contains(t, out, "9.50%")
	assert.Contains(t, out, "inf", "infinite profit factor renders readably")
	assert.Contains(t, out, "Risk")
	assert.Contains(t, out, "Trades")
	assert.Contains(t, out, "long")
}

func TestRenderFailedResultStopsAtSummary(t *testing.T) {
	result := sampleResult()
	result.Status = models.BacktestFailed
	result.Error = "initial_capital: must be positive"

	var buf bytes.Buffer
	Render(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "initial_capital")
	assert.NotContains(t, out, "Performance")
}

func TestRenderCapsTradeRows(t *testing.T) {
	result := sampleResult()
	trade := result.Trades[0]
	result.Trades = nil
	for i := 0; i < maxTradeRows+5; i++ {
		result.Trades = append(result.Trades, trade)
	}

	var buf bytes.Buffer
	Render(&buf, result)
	assert.Contains(t, buf.String(), "showing last 20 of 25 trades")
}
