package strategy

import (
	"math"

	"trading-sim-go/internal/models"
)

// Type selects one of the built-in signal generator families. The set is
// closed on purpose: each type maps to exactly one pure generation function,
// which keeps the dispatch exhaustively testable.
type Type string

const (
	Momentum       Type = "momentum"
	MeanReversion  Type = "mean_reversion"
	TrendFollowing Type = "trend_following"
)

// MomentumParams configures the lookback-return strategy. The exit check
// reuses the entry lookback window.
type MomentumParams struct {
	Lookback       int     `json:"lookback"`
	EntryThreshold float64 `json:"entry_threshold"`
	ExitThreshold  float64 `json:"exit_threshold"`
}

// MeanReversionParams configures the Bollinger-style band strategy.
type MeanReversionParams struct {
	Period           int     `json:"period"`
	StdDevMultiplier float64 `json:"std_dev_multiplier"`
}

// TrendParams configures the moving-average crossover strategy.
type TrendParams struct {
	FastPeriod int `json:"fast_period"`
	SlowPeriod int `json:"slow_period"`
}

// Params is the tagged union of strategy configurations. Only the variant
// matching Type is consulted.
type Params struct {
	Type          Type                `json:"type"`
	Momentum      MomentumParams      `json:"momentum"`
	MeanReversion MeanReversionParams `json:"mean_reversion"`
	Trend         TrendParams         `json:"trend"`
}

// Generate turns a bar series into an alternating entry/exit signal
// sequence. It is a pure function of its inputs and enforces the
// single-position state machine: flat -> long/short on entry, back to flat
// on exit. An unknown type falls back to momentum.
func Generate(bars []models.OHLCV, p Params) []models.Signal {
	switch p.Type {
	case MeanReversion:
		return generateMeanReversion(bars, p.MeanReversion)
	case TrendFollowing:
		return generateTrendFollowing(bars, p.Trend)
	default:
		return generateMomentum(bars, p.Momentum)
	}
}

func generateMomentum(bars []models.OHLCV, p MomentumParams) []models.Signal {
	var signals []models.Signal
	if p.Lookback < 1 || len(bars) <= p.Lookback {
		return signals
	}

	inPosition := false
	var side models.Side

	for i := p.Lookback; i < len(bars); i++ {
		base := bars[i-p.Lookback].Close
		if base == 0 {
			continue
		}
		ret := (bars[i].Close - base) / base

		if !inPosition {
			switch {
			case ret > p.EntryThreshold:
				signals = append(signals, entrySignal(bars[i], models.SideLong, ret))
				inPosition, side = true, models.SideLong
			case ret < -p.EntryThreshold:
				signals = append(signals, entrySignal(bars[i], models.SideShort, ret))
				inPosition, side = true, models.SideShort
			}
			continue
		}

		// Exit when the lookback return crosses the exit threshold in the
		// adverse direction for the held side.
		if (side == models.SideLong && ret < -p.ExitThreshold) ||
			(side == models.SideShort && ret > p.ExitThreshold) {
			signals = append(signals, exitSignal(bars[i], side, ret))
			inPosition = false
		}
	}
	return signals
}

func generateMeanReversion(bars []models.OHLCV, p MeanReversionParams) []models.Signal {
	var signals []models.Signal
	if p.Period < 2 || len(bars) < p.Period {
		return signals
	}

	inPosition := false
	var side models.Side

	for i := p.Period - 1; i < len(bars); i++ {
		mean := sma(bars, i, p.Period)
		sd := stdDev(bars, i, p.Period, mean)
		upper := mean + sd*p.StdDevMultiplier
		lower := mean - sd*p.StdDevMultiplier
		price := bars[i].Close

		if !inPosition {
			switch {
			case price < lower:
				signals = append(signals, entrySignal(bars[i], models.SideLong, (lower-price)/mean))
				inPosition, side = true, models.SideLong
			case price > upper:
				signals = append(signals, entrySignal(bars[i], models.SideShort, (price-upper)/mean))
				inPosition, side = true, models.SideShort
			}
			continue
		}

		// Exit when price reverts back through the rolling mean.
		if (side == models.SideLong && price >= mean) ||
			(side == models.SideShort && price <= mean) {
			signals = append(signals, exitSignal(bars[i], side, 0))
			inPosition = false
		}
	}
	return signals
}

func generateTrendFollowing(bars []models.OHLCV, p TrendParams) []models.Signal {
	var signals []models.Signal
	if p.FastPeriod < 1 || p.SlowPeriod <= p.FastPeriod || len(bars) <= p.SlowPeriod {
		return signals
	}

	inPosition := false
	var side models.Side

	// Crossovers are detected against the previous bar's relationship, not
	// just the current relative position of the averages.
	for i := p.SlowPeriod; i < len(bars); i++ {
		fast := sma(bars, i, p.FastPeriod)
		slow := sma(bars, i, p.SlowPeriod)
		prevFast := sma(bars, i-1, p.FastPeriod)
		prevSlow := sma(bars, i-1, p.SlowPeriod)

		crossUp := prevFast <= prevSlow && fast > slow
		crossDown := prevFast >= prevSlow && fast < slow

		if !inPosition {
			switch {
			case crossUp:
				signals = append(signals, entrySignal(bars[i], models.SideLong, fast-slow))
				inPosition, side = true, models.SideLong
			case crossDown:
				signals = append(signals, entrySignal(bars[i], models.SideShort, slow-fast))
				inPosition, side = true, models.SideShort
			}
			continue
		}

		if (side == models.SideLong && crossDown) ||
			(side == models.SideShort && crossUp) {
			signals = append(signals, exitSignal(bars[i], side, 0))
			inPosition = false
		}
	}
	return signals
}

func entrySignal(bar models.OHLCV, side models.Side, strength float64) models.Signal {
	return models.Signal{
		Timestamp: bar.Timestamp,
		Kind:      models.SignalEntry,
		Side:      side,
		Price:     bar.Close,
		Strength:  math.Abs(strength),
	}
}

func exitSignal(bar models.OHLCV, side models.Side, strength float64) models.Signal {
	return models.Signal{
		Timestamp: bar.Timestamp,
		Kind:      models.SignalExit,
		Side:      side,
		Price:     bar.Close,
		Strength:  math.Abs(strength),
	}
}

// sma is the simple moving average of the period bars ending at index end.
func sma(bars []models.OHLCV, end, period int) float64 {
	sum := 0.0
	for i := end - period + 1; i <= end; i++ {
		sum += bars[i].Close
	}
	return sum / float64(period)
}

// stdDev is the population standard deviation over the same window.
func stdDev(bars []models.OHLCV, end, period int, mean float64) float64 {
	sum := 0.0
	for i := end - period + 1; i <= end; i++ {
		d := bars[i].Close - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period))
}
