package reporter

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"trading-sim-go/internal/models"
)

// maxTradeRows caps the trade table so huge runs stay readable.
const maxTradeRows = 20

// Render writes a human-readable report for a backtest result: a run
// summary, the performance metrics, the risk statistics and the most
// recent trades.
func Render(w io.Writer, result *models.BacktestResult) {
	renderSummary(w, result)
	if result.Status != models.BacktestCompleted {
		return
	}
	renderMetrics(w, result.Metrics)
	renderRisk(w, result.Risk)
	renderTrades(w, result.Trades)
}

func renderSummary(w io.Writer, result *models.BacktestResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Backtest Summary")

	t.AppendRows([]table.Row{
		{"Run ID", result.ID},
		{"Strategy", result.StrategyID},
		{"Symbol", result.Symbol},
		{"Period", fmt.Sprintf("%s to %s",
			result.StartTime.Format("2006-01-02 15:04"),
			result.EndTime.Format("2006-01-02 15:04"))},
		{"Status", string(result.Status)},
	})
	if result.Error != "" {
		t.AppendRow(table.Row{"Error", result.Error})
	}
	t.Render()
}

func renderMetrics(w io.Writer, m models.BacktestMetrics) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Performance")

	t.AppendRows([]table.Row{
		{"Total Return", fmt.Sprintf("%.2f%%", m.TotalReturn)},
		{"Total Trades", m.TotalTrades},
		{"Winning / Losing", fmt.Sprintf("%d / %d", m.WinningTrades, m.LosingTrades)},
		{"Win Rate", fmt.Sprintf("%.2f%%", m.WinRate)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdown)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"Profit Factor", formatRatio(m.ProfitFactor)},
		{"Avg Trade Duration", m.AvgTradeDuration.Round(time.Second).String()},
	})
	t.Render()
}

func renderRisk(w io.Writer, r models.RiskReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Risk")

	t.AppendRows([]table.Row{
		{"VaR 95%", fmt.Sprintf("%.2f%%", r.ValueAtRisk95)},
		{"VaR 99%", fmt.Sprintf("%.2f%%", r.ValueAtRisk99)},
		{"CVaR 95%", fmt.Sprintf("%.2f%%", r.ConditionalVaR95)},
		{"Sortino Ratio", formatRatio(r.SortinoRatio)},
		{"Calmar Ratio", fmt.Sprintf("%.2f", r.CalmarRatio)},
		{"Max Consecutive Losses", r.MaxConsecutiveLosses},
	})
	t.Render()
}

func renderTrades(w io.Writer, trades []models.TradeRecord) {
	if len(trades) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Trades")
	t.AppendHeader(table.Row{"#", "Side", "Qty", "Entry", "Exit", "PnL", "PnL %"})

	start := 0
	if len(trades) > maxTradeRows {
		start = len(trades) - maxTradeRows
		t.SetCaption("showing last %d of %d trades", maxTradeRows, len(trades))
	}

	for i, trade := range trades[start:] {
		exit, pnl, pnlPct := "-", "-", "-"
		if trade.Closed() {
			exit = fmt.Sprintf("%.4f", *trade.ExitPrice)
			pnl = fmt.Sprintf("%.2f", *trade.PnL)
			pnlPct = fmt.Sprintf("%.2f%%", *trade.PnLPercent)
		}
		t.AppendRow(table.Row{
			start + i + 1,
			string(trade.Side),
			fmt.Sprintf("%.6f", trade.Quantity),
			fmt.Sprintf("%.4f", trade.EntryPrice),
			exit, pnl, pnlPct,
		})
	}
	t.Render()
}

// formatRatio renders +Inf values readably.
func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
