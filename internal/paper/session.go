package paper

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trading-sim-go/internal/models"
	"trading-sim-go/internal/pricefeed"
	"trading-sim-go/internal/risk"
)

// OrderRequest is one trade proposal submitted to a session. Entry, Stop
// and Target are optional risk levels; when all three are set the risk
// gate checks the reward/risk ratio before the order reaches the ledger.
type OrderRequest struct {
	Symbol    string
	Side      models.OrderSide
	Type      models.OrderType
	Quantity  float64
	Price     float64 // limit price for limit orders
	Direction models.Side
	Entry     float64
	Stop      float64
	Target    float64
}

// Session is one isolated paper-trading run: its own account, its own risk
// manager and its own price feed. Two sessions never share state, so a
// multi-tenant host can run any number of them side by side.
type Session struct {
	account *Account
	riskMgr *risk.Manager
	feed    *pricefeed.Static
	log     *zap.SugaredLogger
}

// NewSession wires a session from its parts. The feed passed here must be
// the same one the account reads prices from.
func NewSession(account *Account, riskMgr *risk.Manager, feed *pricefeed.Static, log *zap.SugaredLogger) *Session {
	return &Session{account: account, riskMgr: riskMgr, feed: feed, log: log}
}

// Submit gates the request through the risk manager and, if allowed, books
// it on the account. A rejected request returns an error naming the
// reasons; a size reduction from the gate is applied silently apart from a
// log line.
func (s *Session) Submit(req OrderRequest) (*Order, error) {
	direction := req.Direction
	if direction == "" {
		direction = models.SideLong
	}

	check := s.riskMgr.CheckTradeRisk(req.Symbol, direction, req.Quantity, req.Entry, req.Stop, req.Target)
	if !check.Allowed {
		return nil, fmt.Errorf("order rejected: %s", strings.Join(check.Reasons, "; "))
	}
	for _, w := range check.Warnings {
		s.log.Warnw("risk warning", "symbol", req.Symbol, "warning", w)
	}

	quantity := req.Quantity
	if check.AdjustedSize > 0 && check.AdjustedSize < quantity {
		s.log.Infow("order size adjusted by risk gate",
			"symbol", req.Symbol, "requested", quantity, "adjusted", check.AdjustedSize)
		quantity = check.AdjustedSize
	}

	return s.account.CreateOrder(req.Symbol, req.Side, req.Type, quantity, req.Price)
}

// Cancel cancels a pending order on the session's account.
func (s *Session) Cancel(orderID string) error {
	return s.account.CancelOrder(orderID)
}

// OnPrice feeds a new price into the session and sweeps pending orders.
// It is the callback a live stream hooks into.
func (s *Session) OnPrice(symbol string, price float64) {
	s.feed.Set(symbol, price)
	for _, order := range s.account.ProcessPendingOrders() {
		s.log.Infow("pending order filled on tick",
			"order_id", order.ID, "symbol", order.Symbol, "price", price)
	}
}

// Account exposes the underlying ledger for balance and trade queries.
func (s *Session) Account() *Account {
	return s.account
}

// Risk exposes the session's risk manager.
func (s *Session) Risk() *risk.Manager {
	return s.riskMgr
}
