package analytics

import (
	"math"
	"sort"

	"trading-sim-go/internal/models"
)

// AnalyzeRisk derives tail-risk statistics from a completed run. It reads
// the same inputs as CalculateMetrics but does not depend on it.
//
// Sortino policy: the denominator is the population standard deviation of
// the negative returns only. When the series has no negative returns the
// ratio is +Inf if the mean return is positive and 0 otherwise.
func AnalyzeRisk(trades []models.TradeRecord, curve []models.EquityPoint, initialCapital float64) models.RiskReport {
	r := models.RiskReport{}

	returns := periodReturns(curve)
	r.ValueAtRisk95, r.ConditionalVaR95 = valueAtRisk(returns, 0.05)
	r.ValueAtRisk99, _ = valueAtRisk(returns, 0.01)
	r.SortinoRatio = sortino(returns)
	r.CalmarRatio = calmar(curve, initialCapital)
	r.MaxConsecutiveLosses = maxConsecutiveLosses(trades)

	return r
}

// valueAtRisk returns the loss at the alpha percentile of the return
// distribution and the average loss of its tail, both as positive
// percentages (0 when the percentile return is not a loss).
func valueAtRisk(returns []float64, alpha float64) (v, cv float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * alpha)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	if loss := -sorted[idx] * 100; loss > 0 {
		v = loss
	}
	if tail := -mean(sorted[:idx+1]) * 100; tail > 0 {
		cv = tail
	}
	return v, cv
}

func sortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	avg := mean(returns)
	if len(downside) == 0 {
		if avg > 0 {
			return math.Inf(1)
		}
		return 0
	}
	dd := stdDevPop(downside)
	if dd == 0 {
		return 0
	}
	return avg / dd * math.Sqrt(annualization)
}

func calmar(curve []models.EquityPoint, initialCapital float64) float64 {
	if len(curve) == 0 || initialCapital == 0 {
		return 0
	}
	totalReturn := (curve[len(curve)-1].Equity - initialCapital) / initialCapital * 100

	maxDD := 0.0
	for _, p := range curve {
		if p.Drawdown > maxDD {
			maxDD = p.Drawdown
		}
	}
	if maxDD == 0 {
		return 0
	}
	return totalReturn / maxDD
}

// maxConsecutiveLosses scans closed trades in chronological order; any
// non-losing trade resets the streak.
func maxConsecutiveLosses(trades []models.TradeRecord) int {
	longest, current := 0, 0
	for i := range trades {
		t := &trades[i]
		if !t.Closed() {
			continue
		}
		if *t.PnL < 0 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}
