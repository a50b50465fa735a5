package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-sim-go/internal/models"
)

// barsFromCloses builds a minute-bar series where every OHLC field tracks
// the close; good enough for close-driven generators.
func barsFromCloses(closes ...float64) []models.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = models.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	return bars
}

func TestMomentumLongRoundTrip(t *testing.T) {
	bars := barsFromCloses(100, 100, 100, 110, 108, 105)
	p := Params{
		Type:     Momentum,
		Momentum: MomentumParams{Lookback: 2, EntryThreshold: 0.05, ExitThreshold: 0.02},
	}

	signals := Generate(bars, p)
	require.Len(t, signals, 2)

	assert.Equal(t, models.SignalEntry, signals[0].Kind)
	assert.Equal(t, models.SideLong, signals[0].Side)
	assert.Equal(t, 110.0, signals[0].Price)

	assert.Equal(t, models.SignalExit, signals[1].Kind)
	assert.Equal(t, models.SideLong, signals[1].Side)
	assert.Equal(t, 105.0, signals[1].Price)
}

func TestMomentumShortRoundTrip(t *testing.T) {
	bars := barsFromCloses(100, 100, 100, 90, 92, 95)
	p := Params{
		Type:     Momentum,
		Momentum: MomentumParams{Lookback: 2, EntryThreshold: 0.05, ExitThreshold: 0.02},
	}

	signals := Generate(bars, p)
	require.Len(t, signals, 2)

	assert.Equal(t, models.SignalEntry, signals[0].Kind)
	assert.Equal(t, models.SideShort, signals[0].Side)
	assert.Equal(t, 90.0, signals[0].Price)

	assert.Equal(t, models.SignalExit, signals[1].Kind)
	assert.Equal(t, models.SideShort, signals[1].Side)
}

func TestMomentumColdStartEmitsNothing(t *testing.T) {
	bars := barsFromCloses(100, 120)
	p := Params{
		Type:     Momentum,
		Momentum: MomentumParams{Lookback: 5, EntryThreshold: 0.01, ExitThreshold: 0.01},
	}
	assert.Empty(t, Generate(bars, p), "lookback window longer than the series must stay silent")
}

func TestMeanReversionBandsAndReversion(t *testing.T) {
	// Price dips below the lower band at bar 3 and reverts through the SMA
	// at bar 4.
	bars := barsFromCloses(100, 100, 100, 90, 100)
	p := Params{
		Type:          MeanReversion,
		MeanReversion: MeanReversionParams{Period: 3, StdDevMultiplier: 1},
	}

	signals := Generate(bars, p)
	require.Len(t, signals, 2)

	assert.Equal(t, models.SignalEntry, signals[0].Kind)
	assert.Equal(t, models.SideLong, signals[0].Side)
	assert.Equal(t, 90.0, signals[0].Price)

	assert.Equal(t, models.SignalExit, signals[1].Kind)
	assert.Equal(t, 100.0, signals[1].Price)
}

func TestMeanReversionShortEntryAboveUpperBand(t *testing.T) {
	bars := barsFromCloses(100, 100, 100, 110, 100)
	p := Params{
		Type:          MeanReversion,
		MeanReversion: MeanReversionParams{Period: 3, StdDevMultiplier: 1},
	}

	signals := Generate(bars, p)
	require.Len(t, signals, 2)
	assert.Equal(t, models.SideShort, signals[0].Side)
	assert.Equal(t, models.SignalExit, signals[1].Kind)
}

func TestTrendFollowingUsesCrossoverEdge(t *testing.T) {
	bars := barsFromCloses(10, 10, 10, 14, 20, 10, 4)
	p := Params{
		Type:  TrendFollowing,
		Trend: TrendParams{FastPeriod: 2, SlowPeriod: 3},
	}

	signals := Generate(bars, p)
	require.Len(t, signals, 2)

	assert.Equal(t, models.SignalEntry, signals[0].Kind)
	assert.Equal(t, models.SideLong, signals[0].Side)
	assert.Equal(t, 14.0, signals[0].Price, "entry must fire on the crossing bar, not while fast merely stays above slow")

	assert.Equal(t, models.SignalExit, signals[1].Kind)
	assert.Equal(t, 4.0, signals[1].Price)
}

func TestSignalsStrictlyAlternate(t *testing.T) {
	// A jagged series that provokes several round trips in every family.
	closes := []float64{
		100, 101, 99, 104, 110, 104, 98, 92, 95, 103,
		111, 104, 96, 101, 109, 115, 106, 97, 104, 112,
		105, 96, 103, 111, 118, 108, 99, 106, 114, 107,
	}
	bars := barsFromCloses(closes...)

	cases := []Params{
		{Type: Momentum, Momentum: MomentumParams{Lookback: 3, EntryThreshold: 0.04, ExitThreshold: 0.02}},
		{Type: MeanReversion, MeanReversion: MeanReversionParams{Period: 5, StdDevMultiplier: 1.5}},
		{Type: TrendFollowing, Trend: TrendParams{FastPeriod: 3, SlowPeriod: 6}},
	}

	for _, p := range cases {
		p := p
		t.Run(string(p.Type), func(t *testing.T) {
			signals := Generate(bars, p)
			inPosition := false
			var side models.Side
			for i, s := range signals {
				if !inPosition {
					require.Equal(t, models.SignalEntry, s.Kind, "signal %d must be an entry while flat", i)
					inPosition, side = true, s.Side
				} else {
					require.Equal(t, models.SignalExit, s.Kind, "signal %d must be an exit while in position", i)
					require.Equal(t, side, s.Side, "exit %d must match the open side", i)
					inPosition = false
				}
			}
		})
	}
}

func TestUnknownTypeFallsBackToMomentum(t *testing.T) {
	bars := barsFromCloses(100, 100, 100, 110, 108, 105)
	momentum := Params{
		Type:     Momentum,
		Momentum: MomentumParams{Lookback: 2, EntryThreshold: 0.05, ExitThreshold: 0.02},
	}
	unknown := momentum
	unknown.Type = "grid_arbitrage"

	assert.Equal(t, Generate(bars, momentum), Generate(bars, unknown))
}

func TestParseParamsDefaultsAndFallback(t *testing.T) {
	p, err := ParseParams("nonsense", nil)
	require.NoError(t, err)
	assert.Equal(t, Momentum, p.Type)
	assert.Equal(t, defaultLookback, p.Momentum.Lookback)

	p, err = ParseParams(string(TrendFollowing), map[string]float64{"fast_period": 5, "slow_period": 21})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Trend.FastPeriod)
	assert.Equal(t, 21, p.Trend.SlowPeriod)
}

func TestParseParamsValidation(t *testing.T) {
	_, err := ParseParams(string(Momentum), map[string]float64{"entry_threshold": -1})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = ParseParams(string(TrendFollowing), map[string]float64{"fast_period": 30, "slow_period": 10})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = ParseParams(string(MeanReversion), map[string]float64{"period": 1})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}
