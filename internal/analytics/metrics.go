package analytics

import (
	"math"
	"time"

	"trading-sim-go/internal/models"
)

// CalculateMetrics derives the performance statistics of a completed run.
// It is a pure function of the trade list, the equity curve and the
// starting capital.
//
// Definitions that matter for parity with stored results:
//   - a trade with pnl exactly 0 counts as losing;
//   - profit factor is +Inf when wins exist and losses total 0, and 0 when
//     both totals are 0;
//   - Sharpe uses the population standard deviation of the equity-to-equity
//     returns, annualized by sqrt(252), and is 0 when the deviation is 0.
func CalculateMetrics(trades []models.TradeRecord, curve []models.EquityPoint, initialCapital float64) models.BacktestMetrics {
	m := models.BacktestMetrics{TotalTrades: len(trades)}

	finalCapital := initialCapital
	if len(curve) > 0 {
		finalCapital = curve[len(curve)-1].Equity
	}
	if initialCapital != 0 {
		m.TotalReturn = (finalCapital - initialCapital) / initialCapital * 100
	}

	var totalWins, totalLosses float64
	var totalDuration time.Duration
	closed := 0
	for i := range trades {
		t := &trades[i]
		if !t.Closed() {
			continue
		}
		closed++
		totalDuration += t.ExitTime.Sub(t.EntryTime)
		if *t.PnL > 0 {
			m.WinningTrades++
			totalWins += *t.PnL
		} else {
			m.LosingTrades++
			totalLosses += math.Abs(*t.PnL)
		}
	}

	if closed > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(closed) * 100
		m.AvgTradeDuration = totalDuration / time.Duration(closed)
	}

	switch {
	case totalLosses > 0:
		m.ProfitFactor = totalWins / totalLosses
	case totalWins > 0:
		m.ProfitFactor = math.Inf(1)
	}

	for _, p := range curve {
		if p.Drawdown > m.MaxDrawdown {
			m.MaxDrawdown = p.Drawdown
		}
	}

	returns := periodReturns(curve)
	if sd := stdDevPop(returns); sd > 0 {
		m.SharpeRatio = mean(returns) / sd * math.Sqrt(annualization)
	}

	return m
}
