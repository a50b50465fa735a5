package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"trading-sim-go/internal/models"
)

// Method selects a position sizing model.
type Method string

const (
	FixedPercentage    Method = "fixed_percentage"
	KellyCriterion     Method = "kelly_criterion"
	FixedAmount        Method = "fixed_amount"
	VolatilityAdjusted Method = "volatility_adjusted"
)

// SizingInput carries the per-method parameters for CalculatePosition.
// Only the fields the chosen method reads need to be set.
type SizingInput struct {
	RiskPct           float64 // fixed_percentage, volatility_adjusted: fraction of equity
	Amount            float64 // fixed_amount: notional in quote currency
	WinRate           float64 // kelly_criterion
	AvgWin            float64 // kelly_criterion
	AvgLoss           float64 // kelly_criterion: positive magnitude
	CurrentVolatility float64 // volatility_adjusted
	AvgVolatility     float64 // volatility_adjusted
}

// Position is a risk-tracked open exposure.
type Position struct {
	Symbol     string
	Direction  models.Side
	Size       float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenedAt   time.Time

	unrealizedPnL float64
}

// ClosedTrade records a realized outcome for streak and win-rate tracking.
type ClosedTrade struct {
	Symbol   string
	PnL      float64
	ClosedAt time.Time
}

// Check is the outcome of a pre-trade risk gate. A rejected trade has
// Allowed false and at least one reason; an oversized trade stays allowed
// but comes back with a reduced AdjustedSize and a warning.
type Check struct {
	Allowed      bool
	Reasons      []string
	Warnings     []string
	AdjustedSize float64
}

// Metrics is a snapshot of the account's risk state.
type Metrics struct {
	Equity          float64
	UnrealizedPnL   float64
	UsedMargin      float64
	MarginUsagePct  float64
	CurrentDrawdown float64
	OpenPositions   int
	Wins            int
	Losses          int
}

// Manager enforces account-level risk limits for one trading session. Each
// session owns its Manager; there is no shared global state.
type Manager struct {
	mu sync.Mutex

	limits        models.RiskLimits
	equity        float64
	initialEquity float64
	peak          float64

	positions   map[string]*Position
	history     []ClosedTrade
	equityCurve []models.EquityPoint

	dailyPnL float64
	day      time.Time

	log *zap.SugaredLogger
}

// NewManager creates a risk manager seeded with the starting equity.
func NewManager(limits models.RiskLimits, initialEquity float64, log *zap.SugaredLogger) *Manager {
	return &Manager{
		limits:        limits,
		equity:        initialEquity,
		initialEquity: initialEquity,
		peak:          initialEquity,
		positions:     make(map[string]*Position),
		log:           log,
	}
}

// CalculatePosition sizes a trade with the chosen method, in units of the
// quote currency (a notional). Unknown methods fall back to fixed
// percentage.
func (m *Manager) CalculatePosition(method Method, in SizingInput) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch method {
	case KellyCriterion:
		return m.kellySize(in)
	case FixedAmount:
		// Never more than 10% of equity regardless of the requested amount.
		return math.Min(in.Amount, 0.10*m.equity)
	case VolatilityAdjusted:
		base := m.equity * in.RiskPct
		if in.CurrentVolatility <= 0 || in.AvgVolatility <= 0 {
			return base
		}
		return base * in.AvgVolatility / in.CurrentVolatility
	default:
		return m.equity * in.RiskPct
	}
}

// kellySize computes the Kelly fraction f = (b*p - q) / b with b the
// win/loss payoff ratio, then halves it and clamps to [0, 0.25] of equity.
func (m *Manager) kellySize(in SizingInput) float64 {
	if in.AvgLoss <= 0 || in.AvgWin <= 0 {
		return 0
	}
	b := in.AvgWin / in.AvgLoss
	p := in.WinRate
	q := 1 - p

	f := (b*p - q) / b
	f /= 2 // half-Kelly
	if f < 0 {
		f = 0
	}
	if f > 0.25 {
		f = 0.25
	}
	return m.equity * f
}

// CheckTradeRisk gates a proposed trade against the account limits.
// size is a quantity of the base asset; entry, stop and target are prices.
func (m *Manager) CheckTradeRisk(symbol string, direction models.Side, size, entry, stop, target float64) Check {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDay(time.Now().UTC())

	check := Check{Allowed: true, AdjustedSize: size}

	if entry > 0 && stop > 0 && target > 0 {
		risk := math.Abs(entry - stop)
		reward := math.Abs(target - entry)
		if risk > 0 && m.limits.MinRiskRewardRatio > 0 {
			rr := reward / risk
			if rr < m.limits.MinRiskRewardRatio {
				check.Allowed = false
				check.Reasons = append(check.Reasons,
					fmt.Sprintf("risk/reward ratio %.2f below minimum %.2f", rr, m.limits.MinRiskRewardRatio))
			}
		}
	}

	if m.limits.MaxOpenPositions > 0 && len(m.positions) >= m.limits.MaxOpenPositions {
		check.Allowed = false
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("open positions at limit (%d)", m.limits.MaxOpenPositions))
	}

	if m.limits.MaxDrawdown > 0 && m.currentDrawdown() >= m.limits.MaxDrawdown {
		check.Allowed = false
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("drawdown %.2f%% breaches limit %.2f%%", m.currentDrawdown()*100, m.limits.MaxDrawdown*100))
	}

	// Daily loss limit is a fraction of current equity.
	if m.limits.MaxDailyLoss > 0 && m.dailyPnL <= -m.limits.MaxDailyLoss*m.equity {
		check.Allowed = false
		check.Reasons = append(check.Reasons, "daily loss limit reached")
	}

	if m.limits.MaxPositionSize > 0 && entry > 0 {
		maxNotional := m.limits.MaxPositionSize * m.equity
		if size*entry > maxNotional {
			check.AdjustedSize = maxNotional / entry
			check.Warnings = append(check.Warnings,
				fmt.Sprintf("size reduced to %.8f to respect max position size", check.AdjustedSize))
		}
	}

	if _, exists := m.positions[symbol]; exists {
		check.Warnings = append(check.Warnings,
			fmt.Sprintf("already holding a position in %s", symbol))
	}

	if !check.Allowed {
		m.log.Warnw("trade rejected by risk gate", "symbol", symbol, "direction", direction, "reasons", check.Reasons)
	}
	return check
}

// OpenPosition registers a new exposure. The symbol must not already be
// tracked.
func (m *Manager) OpenPosition(symbol string, direction models.Side, size, entry, stop, target float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.positions[symbol]; exists {
		return &models.ValidationError{Field: "symbol", Reason: fmt.Sprintf("position in %s already open", symbol)}
	}
	m.positions[symbol] = &Position{
		Symbol:     symbol,
		Direction:  direction,
		Size:       size,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		OpenedAt:   time.Now().UTC(),
	}
	return nil
}

// UpdatePosition refreshes the unrealized pnl of one position from the
// current price.
func (m *Manager) UpdatePosition(symbol string, current float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrPositionNotFound, symbol)
	}
	pnl := (current - pos.EntryPrice) * pos.Size
	if pos.Direction == models.SideShort {
		pnl = -pnl
	}
	pos.unrealizedPnL = pnl
	return nil
}

// ClosePosition realizes a position at the given price, moving the pnl
// into equity and the daily tally.
func (m *Manager) ClosePosition(symbol string, exit float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrPositionNotFound, symbol)
	}
	delete(m.positions, symbol)

	pnl := (exit - pos.EntryPrice) * pos.Size
	if pos.Direction == models.SideShort {
		pnl = -pnl
	}

	now := time.Now().UTC()
	m.rollDay(now)
	m.equity += pnl
	m.dailyPnL += pnl
	if m.equity > m.peak {
		m.peak = m.equity
	}

	m.history = append(m.history, ClosedTrade{Symbol: symbol, PnL: pnl, ClosedAt: now})
	m.equityCurve = append(m.equityCurve, models.EquityPoint{
		Timestamp: now,
		Equity:    m.equity,
		Drawdown:  (m.peak - m.equity) / m.peak * 100,
	})

	m.log.Infow("position closed", "symbol", symbol, "pnl", pnl, "equity", m.equity)
	return pnl, nil
}

// StopLoss derives a protective stop from either a fixed risk percentage
// or an ATR multiple (when atr > 0).
func (m *Manager) StopLoss(entry float64, direction models.Side, riskPct, atr, atrMultiplier float64) float64 {
	offset := entry * riskPct
	if atr > 0 && atrMultiplier > 0 {
		offset = atr * atrMultiplier
	}
	if direction == models.SideShort {
		return entry + offset
	}
	return entry - offset
}

// TakeProfit places the target at rr times the stop distance from entry.
func (m *Manager) TakeProfit(entry, stop float64, direction models.Side, rr float64) float64 {
	risk := math.Abs(entry - stop)
	if direction == models.SideShort {
		return entry - risk*rr
	}
	return entry + risk*rr
}

// Metrics returns a snapshot of the current risk state.
func (m *Manager) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var unrealized, used float64
	for _, pos := range m.positions {
		unrealized += pos.unrealizedPnL
		used += pos.Size * pos.EntryPrice
	}

	var wins, losses int
	for _, t := range m.history {
		if t.PnL > 0 {
			wins++
		} else {
			losses++
		}
	}

	marginPct := 0.0
	if m.equity > 0 {
		marginPct = used / m.equity * 100
	}

	return Metrics{
		Equity:          m.equity,
		UnrealizedPnL:   unrealized,
		UsedMargin:      used,
		MarginUsagePct:  marginPct,
		CurrentDrawdown: m.currentDrawdown() * 100,
		OpenPositions:   len(m.positions),
		Wins:            wins,
		Losses:          losses,
	}
}

// EquityCurve returns a copy of the realized equity history.
func (m *Manager) EquityCurve() []models.EquityPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EquityPoint, len(m.equityCurve))
	copy(out, m.equityCurve)
	return out
}

// UpdateLimits swaps in a new limit set.
func (m *Manager) UpdateLimits(limits models.RiskLimits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = limits
}

// Limits returns the active limits.
func (m *Manager) Limits() models.RiskLimits {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits
}

// currentDrawdown is the fractional drop from the equity peak. Callers
// hold the mutex.
func (m *Manager) currentDrawdown() float64 {
	if m.peak <= 0 {
		return 0
	}
	return (m.peak - m.equity) / m.peak
}

// rollDay resets the daily pnl tally at UTC day boundaries. Callers hold
// the mutex.
func (m *Manager) rollDay(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if !day.Equal(m.day) {
		m.day = day
		m.dailyPnL = 0
	}
}
