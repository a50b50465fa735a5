package backtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-sim-go/internal/models"
	"trading-sim-go/internal/strategy"
)

// fakeSink records stored results in memory.
type fakeSink struct {
	stored   []*models.BacktestResult
	storeErr error
}

func (f *fakeSink) Store(result *models.BacktestResult) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, result)
	return nil
}

func (f *fakeSink) Load(id string) (*models.BacktestResult, error) {
	for _, r := range f.stored {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeSink) Close() error { return nil }

func testEngine(sink *fakeSink) *Engine {
	if sink == nil {
		return NewEngine(nil, zap.NewNop().Sugar())
	}
	return NewEngine(sink, zap.NewNop().Sugar())
}

func momentumRequest() Request {
	closes := []float64{100, 100, 100, 100, 103, 106, 103, 100, 97, 94}
	return Request{
		StrategyID: "momentum-1",
		Symbol:     "BTC/USDT",
		Bars:       simBars(closes...),
		Params: strategy.Params{
			Type: strategy.Momentum,
			Momentum: strategy.MomentumParams{
				Lookback:       3,
				EntryThreshold: 0.02,
				ExitThreshold:  0.01,
			},
		},
		InitialCapital: 10000,
	}
}

func TestEngineRunCompletes(t *testing.T) {
	engine := testEngine(nil)

	result, err := engine.Run(momentumRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.BacktestCompleted, result.Status)
	assert.NotEmpty(t, result.ID)
	assert.Empty(t, result.Error)

	require.NotEmpty(t, result.EquityCurve)
	assert.Equal(t, 10000.0, result.EquityCurve[0].Equity)

	require.NotEmpty(t, result.Trades)
	for _, trade := range result.Trades {
		assert.Greater(t, trade.EntryPrice, 0.0)
		assert.Greater(t, trade.Quantity, 0.0)
		assert.Contains(t, []models.Side{models.SideLong, models.SideShort}, trade.Side)
	}

	assert.Equal(t, len(result.Trades), result.Metrics.TotalTrades)
	// Zero StartTime/EndTime default to the bar range.
	assert.Equal(t, momentumRequest().Bars[0].Timestamp, result.StartTime)
}

func TestEngineRunRejectsNonPositiveCapital(t *testing.T) {
	engine := testEngine(nil)

	req := momentumRequest()
	req.InitialCapital = 0

	result, err := engine.Run(req)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Contains(t, err.Error(), "initial_capital")

	require.NotNil(t, result)
	assert.Equal(t, models.BacktestFailed, result.Status)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Trades)
}

func TestEngineRunRejectsEmptyBars(t *testing.T) {
	engine := testEngine(nil)

	req := momentumRequest()
	req.Bars = nil

	result, err := engine.Run(req)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, models.BacktestFailed, result.Status)
}

func TestEngineRunRejectsInvertedDateRange(t *testing.T) {
	engine := testEngine(nil)

	req := momentumRequest()
	req.StartTime = req.Bars[len(req.Bars)-1].Timestamp
	req.EndTime = req.Bars[0].Timestamp

	result, err := engine.Run(req)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, models.BacktestFailed, result.Status)
	assert.Contains(t, result.Error, "date_range")
}

func TestEngineHistoryKeepsFailedAndCompletedRuns(t *testing.T) {
	engine := testEngine(nil)

	_, err := engine.Run(momentumRequest())
	require.NoError(t, err)

	bad := momentumRequest()
	bad.InitialCapital = -5
	_, err = engine.Run(bad)
	require.Error(t, err)

	history := engine.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.BacktestCompleted, history[0].Status)
	assert.Equal(t, models.BacktestFailed, history[1].Status)
}

func TestEngineStoresCompletedResultsInSink(t *testing.T) {
	sink := &fakeSink{}
	engine := testEngine(sink)

	result, err := engine.Run(momentumRequest())
	require.NoError(t, err)

	require.Len(t, sink.stored, 1)
	assert.Equal(t, result.ID, sink.stored[0].ID)

	// Failed runs never reach the sink.
	bad := momentumRequest()
	bad.InitialCapital = 0
	_, _ = engine.Run(bad)
	assert.Len(t, sink.stored, 1)
}

func TestEngineSinkFailureDoesNotFailTheRun(t *testing.T) {
	sink := &fakeSink{storeErr: errors.New("disk full")}
	engine := testEngine(sink)

	result, err := engine.Run(momentumRequest())
	require.NoError(t, err)
	assert.Equal(t, models.BacktestCompleted, result.Status)
	assert.Len(t, engine.History(), 1)
}
