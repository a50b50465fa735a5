package paper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-sim-go/internal/models"
	"trading-sim-go/internal/pricefeed"
	"trading-sim-go/internal/risk"
)

func newTestSession(t *testing.T, limits models.RiskLimits, balances map[string]float64) (*Session, *pricefeed.Static) {
	t.Helper()
	log := zap.NewNop().Sugar()
	feed := pricefeed.NewStatic()
	account := NewAccount(balances, feed, log)
	riskMgr := risk.NewManager(limits, 100000, log)
	return NewSession(account, riskMgr, feed, log), feed
}

func TestSessionRejectsPoorRiskReward(t *testing.T) {
	session, feed := newTestSession(t,
		models.RiskLimits{MinRiskRewardRatio: 1.5},
		map[string]float64{"USDT": 100000})
	feed.Set("BTC/USDT", 45000)

	// Reward 500 against risk 1000: ratio 0.5, well under the 1.5 floor.
	_, err := session.Submit(OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     models.OrderBuy,
		Type:     models.OrderMarket,
		Quantity: 0.1,
		Entry:    45000,
		Stop:     44000,
		Target:   45500,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk/reward")

	// Nothing reached the ledger.
	assertBalance(t, session.Account(), "USDT", 100000, 0)
}

func TestSessionAllowsGoodRiskReward(t *testing.T) {
	session, feed := newTestSession(t,
		models.RiskLimits{MinRiskRewardRatio: 1.5},
		map[string]float64{"USDT": 100000})
	feed.Set("BTC/USDT", 45000)

	order, err := session.Submit(OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     models.OrderBuy,
		Type:     models.OrderMarket,
		Quantity: 0.1,
		Entry:    45000,
		Stop:     44000,
		Target:   47000, // reward 2000, risk 1000
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderFilled, order.Status)
}

func TestSessionAppliesAdjustedSize(t *testing.T) {
	// Max position size 10% of 100000 equity = 10000 notional.
	session, feed := newTestSession(t,
		models.RiskLimits{MaxPositionSize: 0.10},
		map[string]float64{"USDT": 100000})
	feed.Set("BTC/USDT", 50000)

	order, err := session.Submit(OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     models.OrderBuy,
		Type:     models.OrderMarket,
		Quantity: 1, // 50000 notional, five times the cap
		Entry:    50000,
	})
	require.NoError(t, err)

	// 10000 / 50000 = 0.2 BTC.
	assert.True(t, order.Quantity.Equal(dec(0.2)), "got %s", order.Quantity)
	assertBalance(t, session.Account(), "USDT", 90000, 0)
}

func TestSessionOnPriceSweepsPendingOrders(t *testing.T) {
	session, _ := newTestSession(t,
		models.RiskLimits{},
		map[string]float64{"USDT": 10000})

	order, err := session.Submit(OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     models.OrderBuy,
		Type:     models.OrderLimit,
		Quantity: 0.1,
		Price:    45000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)

	session.OnPrice("BTC/USDT", 46000)
	assert.Len(t, session.Account().PendingOrders(), 1)

	session.OnPrice("BTC/USDT", 44800)
	assert.Empty(t, session.Account().PendingOrders())

	got, err := session.Account().GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFilled, got.Status)
	assert.True(t, got.AveragePrice.Equal(dec(44800)))
}

func TestSessionCancelDelegatesToAccount(t *testing.T) {
	session, _ := newTestSession(t,
		models.RiskLimits{},
		map[string]float64{"USDT": 10000})

	order, err := session.Submit(OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     models.OrderBuy,
		Type:     models.OrderLimit,
		Quantity: 0.1,
		Price:    45000,
	})
	require.NoError(t, err)

	require.NoError(t, session.Cancel(order.ID))
	assertBalance(t, session.Account(), "USDT", 10000, 0)
}
