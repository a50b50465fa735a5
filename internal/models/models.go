package models

import "time"

// OHLCV is a single price bar for a fixed interval.
// Bars are produced by a data source and never mutated afterwards.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Side is the direction of a trade or signal.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// SignalKind distinguishes position openings from closings.
type SignalKind string

const (
	SignalEntry SignalKind = "entry"
	SignalExit  SignalKind = "exit"
)

// Signal is one instruction emitted by a strategy. For a single symbol,
// entries and exits strictly alternate: the generator never emits two
// entries without an intervening exit.
type Signal struct {
	Timestamp time.Time  `json:"timestamp"`
	Kind      SignalKind `json:"kind"`
	Side      Side       `json:"side"`
	Price     float64    `json:"price"`
	Strength  float64    `json:"strength,omitempty"`
}

// TradeRecord is one simulated or paper trade. Exit fields are nil while
// the trade is open; once set, the record is never modified again.
type TradeRecord struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"side"`
	Quantity   float64    `json:"quantity"`
	EntryTime  time.Time  `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`
	PnL        *float64   `json:"pnl,omitempty"`
	PnLPercent *float64   `json:"pnl_percent,omitempty"`
}

// Closed reports whether the trade has been exited.
func (t *TradeRecord) Closed() bool {
	return t.ExitTime != nil && t.ExitPrice != nil
}

// EquityPoint is one sample of the account equity curve. Drawdown is the
// percentage decline from the running peak and is never negative.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	Drawdown  float64   `json:"drawdown"`
}

// BacktestMetrics are the performance statistics derived from a completed
// simulation run.
type BacktestMetrics struct {
	TotalReturn      float64       `json:"total_return"`
	TotalTrades      int           `json:"total_trades"`
	WinningTrades    int           `json:"winning_trades"`
	LosingTrades     int           `json:"losing_trades"`
	WinRate          float64       `json:"win_rate"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	SharpeRatio      float64       `json:"sharpe_ratio"`
	ProfitFactor     float64       `json:"profit_factor"`
	AvgTradeDuration time.Duration `json:"avg_trade_duration"`
}

// RiskReport holds the tail-risk statistics derived from the same run,
// computed independently of BacktestMetrics.
type RiskReport struct {
	ValueAtRisk95        float64 `json:"value_at_risk_95"`
	ValueAtRisk99        float64 `json:"value_at_risk_99"`
	ConditionalVaR95     float64 `json:"conditional_var_95"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	CalmarRatio          float64 `json:"calmar_ratio"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

// BacktestStatus is the terminal state of a simulation run.
type BacktestStatus string

const (
	BacktestCompleted BacktestStatus = "completed"
	BacktestFailed    BacktestStatus = "failed"
)

// BacktestResult is the immutable artifact of one simulation run.
type BacktestResult struct {
	ID          string          `json:"id"`
	StrategyID  string          `json:"strategy_id"`
	Symbol      string          `json:"symbol"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Status      BacktestStatus  `json:"status"`
	Error       string          `json:"error,omitempty"`
	Metrics     BacktestMetrics `json:"metrics"`
	Risk        RiskReport      `json:"risk"`
	Trades      []TradeRecord   `json:"trades"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderSide is the taker direction of a paper order.
type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// OrderType selects immediate or resting execution.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// OrderStatus is the lifecycle state of a paper order. Filled, cancelled
// and rejected are terminal; only pending orders may be cancelled.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
	OrderRejected  OrderStatus = "rejected"
)

// RiskLimits is the pre-trade gate configuration. MaxPositionSize,
// MaxDailyLoss and MaxDrawdown are fractions of equity. Limits change only
// through an explicit update on the risk manager.
type RiskLimits struct {
	MaxPositionSize    float64 `json:"max_position_size"`
	MaxDailyLoss       float64 `json:"max_daily_loss"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	MinRiskRewardRatio float64 `json:"min_risk_reward_ratio"`
	MaxOpenPositions   int     `json:"max_open_positions"`
}
