package strategy

import (
	"trading-sim-go/internal/models"
)

// Default windows used when the configuration omits a key.
const (
	defaultLookback       = 10
	defaultEntryThreshold = 0.02
	defaultExitThreshold  = 0.01
	defaultPeriod         = 20
	defaultStdDev         = 2.0
	defaultFastPeriod     = 10
	defaultSlowPeriod     = 30
)

// ParseParams builds strategy parameters from the flat key/value
// configuration supplied by the strategy config provider. Unknown strategy
// types are mapped to momentum, the documented fallback. The returned
// parameters are validated before they ever reach Generate.
func ParseParams(strategyType string, cfg map[string]float64) (Params, error) {
	get := func(key string, def float64) float64 {
		if v, ok := cfg[key]; ok {
			return v
		}
		return def
	}

	p := Params{Type: Type(strategyType)}
	switch p.Type {
	case MeanReversion:
		p.MeanReversion = MeanReversionParams{
			Period:           int(get("period", defaultPeriod)),
			StdDevMultiplier: get("std_dev_multiplier", defaultStdDev),
		}
	case TrendFollowing:
		p.Trend = TrendParams{
			FastPeriod: int(get("fast_period", defaultFastPeriod)),
			SlowPeriod: int(get("slow_period", defaultSlowPeriod)),
		}
	default:
		p.Type = Momentum
		p.Momentum = MomentumParams{
			Lookback:       int(get("lookback", defaultLookback)),
			EntryThreshold: get("entry_threshold", defaultEntryThreshold),
			ExitThreshold:  get("exit_threshold", defaultExitThreshold),
		}
	}

	if err := validate(p); err != nil {
		return Params{}, err
	}
	return p, nil
}

func validate(p Params) error {
	switch p.Type {
	case MeanReversion:
		if p.MeanReversion.Period < 2 {
			return &models.ValidationError{Field: "period", Reason: "must be at least 2"}
		}
		if p.MeanReversion.StdDevMultiplier <= 0 {
			return &models.ValidationError{Field: "std_dev_multiplier", Reason: "must be positive"}
		}
	case TrendFollowing:
		if p.Trend.FastPeriod < 1 {
			return &models.ValidationError{Field: "fast_period", Reason: "must be at least 1"}
		}
		if p.Trend.SlowPeriod <= p.Trend.FastPeriod {
			return &models.ValidationError{Field: "slow_period", Reason: "must be greater than fast_period"}
		}
	default:
		if p.Momentum.Lookback < 1 {
			return &models.ValidationError{Field: "lookback", Reason: "must be at least 1"}
		}
		if p.Momentum.EntryThreshold <= 0 {
			return &models.ValidationError{Field: "entry_threshold", Reason: "must be positive"}
		}
		if p.Momentum.ExitThreshold <= 0 {
			return &models.ValidationError{Field: "exit_threshold", Reason: "must be positive"}
		}
	}
	return nil
}
