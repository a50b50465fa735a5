package backtest

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trading-sim-go/internal/analytics"
	"trading-sim-go/internal/models"
	"trading-sim-go/internal/results"
	"trading-sim-go/internal/strategy"
)

// Request describes one backtest run. StartTime/EndTime default to the bar
// range when zero.
type Request struct {
	StrategyID     string
	Symbol         string
	Bars           []models.OHLCV
	Params         strategy.Params
	InitialCapital float64
	SlippagePct    float64
	CommissionPct  float64
	StartTime      time.Time
	EndTime        time.Time
}

// Engine is the orchestration boundary around the pure simulation core:
// it validates requests, wires generator -> simulator -> analytics, keeps
// an in-memory run history and forwards completed results to the optional
// sink. One Engine may serve concurrent runs; each run owns its state.
type Engine struct {
	mu      sync.Mutex
	history []*models.BacktestResult

	sink results.Sink // may be nil
	log  *zap.SugaredLogger
}

// NewEngine creates an engine. A nil sink disables persistence; the
// in-memory history is always retained.
func NewEngine(sink results.Sink, log *zap.SugaredLogger) *Engine {
	return &Engine{sink: sink, log: log}
}

// Run executes one backtest. Validation failures return a ValidationError
// together with a failed result; both are recorded in the history.
func (e *Engine) Run(req Request) (*models.BacktestResult, error) {
	if err := validateRequest(&req); err != nil {
		result := &models.BacktestResult{
			ID:         uuid.NewString(),
			StrategyID: req.StrategyID,
			Symbol:     req.Symbol,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			Status:     models.BacktestFailed,
			Error:      err.Error(),
			CreatedAt:  time.Now().UTC(),
		}
		e.record(result)
		e.log.Warnw("backtest rejected", "strategy", req.StrategyID, "symbol", req.Symbol, "error", err)
		return result, err
	}

	signals := strategy.Generate(req.Bars, req.Params)
	trades, curve := Simulate(req.Bars, signals, req.InitialCapital, req.SlippagePct, req.CommissionPct, req.Symbol)

	result := &models.BacktestResult{
		ID:          uuid.NewString(),
		StrategyID:  req.StrategyID,
		Symbol:      req.Symbol,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      models.BacktestCompleted,
		Metrics:     analytics.CalculateMetrics(trades, curve, req.InitialCapital),
		Risk:        analytics.AnalyzeRisk(trades, curve, req.InitialCapital),
		Trades:      trades,
		EquityCurve: curve,
		CreatedAt:   time.Now().UTC(),
	}
	e.record(result)

	if e.sink != nil {
		// Persistence is best effort; the run itself already succeeded.
		if err := e.sink.Store(result); err != nil {
			e.log.Errorw("failed to persist backtest result", "id", result.ID, "error", err)
		}
	}

	e.log.Infow("backtest completed",
		"id", result.ID,
		"strategy", req.StrategyID,
		"symbol", req.Symbol,
		"signals", len(signals),
		"trades", len(trades),
		"total_return_pct", result.Metrics.TotalReturn,
	)
	return result, nil
}

// History returns a snapshot of all results produced by this engine, oldest
// first.
func (e *Engine) History() []*models.BacktestResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.BacktestResult, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) record(result *models.BacktestResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, result)
}

func validateRequest(req *Request) error {
	if req.InitialCapital <= 0 {
		return &models.ValidationError{Field: "initial_capital", Reason: "must be positive"}
	}
	if len(req.Bars) == 0 {
		return &models.ValidationError{Field: "bars", Reason: "historical data is empty"}
	}
	if req.StartTime.IsZero() {
		req.StartTime = req.Bars[0].Timestamp
	}
	if req.EndTime.IsZero() {
		req.EndTime = req.Bars[len(req.Bars)-1].Timestamp
	}
	if !req.EndTime.After(req.StartTime) {
		return &models.ValidationError{Field: "date_range", Reason: "end date must be after start date"}
	}
	return nil
}
