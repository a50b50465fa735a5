package paper

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jxskiss/base62"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trading-sim-go/internal/models"
	"trading-sim-go/internal/pricefeed"
)

// Balance splits an asset's holdings into a freely spendable part and a
// part locked behind pending orders.
type Balance struct {
	Available decimal.Decimal
	Locked    decimal.Decimal
}

// Total is Available + Locked.
func (b *Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Locked)
}

// Position is the account's net holding in one symbol, carried at the
// weighted-average entry price.
type Position struct {
	Symbol        string
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
	OpenedAt      time.Time
}

// Order is a paper order. Market orders fill on submission; limit orders
// lock funds and wait for a matching price.
type Order struct {
	ID             string
	Symbol         string
	Side           models.OrderSide
	Type           models.OrderType
	Quantity       decimal.Decimal
	Price          decimal.Decimal // limit price; zero for market orders
	Status         models.OrderStatus
	FilledQuantity decimal.Decimal
	AveragePrice   decimal.Decimal
	LockedAsset    string
	LockedAmount   decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Account is a self-contained paper-trading ledger: per-asset balances
// with explicit lock accounting, pending limit orders, net positions and a
// realized-trade log. Prices come from the injected feed; the account never
// reaches for global state.
//
// Funds conservation holds across every operation: for each asset,
// available + locked only changes by explicit fills, never by bookkeeping.
type Account struct {
	mu sync.Mutex

	feed pricefeed.Feed
	log  *zap.SugaredLogger

	balances  map[string]*Balance
	positions map[string]*Position
	orders    map[string]*Order
	pending   []string // order ids in insertion order
	trades    []models.TradeRecord

	nextOrderID int64
}

// NewAccount creates a ledger seeded with the given asset balances.
func NewAccount(initialBalances map[string]float64, feed pricefeed.Feed, log *zap.SugaredLogger) *Account {
	a := &Account{
		feed:      feed,
		log:       log,
		balances:  make(map[string]*Balance),
		positions: make(map[string]*Position),
		orders:    make(map[string]*Order),
	}
	for asset, amount := range initialBalances {
		a.balances[asset] = &Balance{Available: decimal.NewFromFloat(amount)}
	}
	return a
}

// splitSymbol breaks "BTC/USDT" into base and quote assets.
func splitSymbol(symbol string) (base, quote string, err error) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &models.ValidationError{Field: "symbol", Reason: fmt.Sprintf("expected BASE/QUOTE form, got %q", symbol)}
	}
	return parts[0], parts[1], nil
}

func (a *Account) balance(asset string) *Balance {
	b, ok := a.balances[asset]
	if !ok {
		b = &Balance{}
		a.balances[asset] = b
	}
	return b
}

// lock moves amount from available to locked, all or nothing.
func (a *Account) lock(asset string, amount decimal.Decimal) error {
	b := a.balance(asset)
	if b.Available.LessThan(amount) {
		return fmt.Errorf("%w: need %s %s, available %s",
			models.ErrInsufficientBalance, amount, asset, b.Available)
	}
	b.Available = b.Available.Sub(amount)
	b.Locked = b.Locked.Add(amount)
	return nil
}

// unlock returns a locked amount to available. Used on cancellation.
func (a *Account) unlock(asset string, amount decimal.Decimal) {
	b := a.balance(asset)
	b.Locked = b.Locked.Sub(amount)
	b.Available = b.Available.Add(amount)
}

// consume removes a locked amount permanently (it has been spent on a fill).
func (a *Account) consume(asset string, amount decimal.Decimal) {
	b := a.balance(asset)
	b.Locked = b.Locked.Sub(amount)
}

// credit adds to an asset's available balance.
func (a *Account) credit(asset string, amount decimal.Decimal) {
	b := a.balance(asset)
	b.Available = b.Available.Add(amount)
}

// CreateOrder validates and books an order. Market orders fill at the
// feed's current price before returning; limit orders lock funds and join
// the pending queue.
func (a *Account) CreateOrder(symbol string, side models.OrderSide, orderType models.OrderType, quantity, limitPrice float64) (*Order, error) {
	base, quote, err := splitSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, &models.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if orderType == models.OrderLimit && limitPrice <= 0 {
		return nil, &models.ValidationError{Field: "price", Reason: "limit orders require a positive price"}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextOrderID++
	now := time.Now().UTC()
	order := &Order{
		ID:        string(base62.FormatInt(a.nextOrderID)),
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Quantity:  decimal.NewFromFloat(quantity),
		Status:    models.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if orderType == models.OrderLimit {
		order.Price = decimal.NewFromFloat(limitPrice)
	}

	switch orderType {
	case models.OrderMarket:
		price, err := a.feed.Price(symbol)
		if err != nil {
			return nil, err
		}
		px := decimal.NewFromFloat(price)

		if side == models.OrderBuy {
			cost := order.Quantity.Mul(px)
			if err := a.lock(quote, cost); err != nil {
				return nil, err
			}
			order.LockedAsset, order.LockedAmount = quote, cost
		} else {
			if err := a.lock(base, order.Quantity); err != nil {
				return nil, err
			}
			order.LockedAsset, order.LockedAmount = base, order.Quantity
		}
		a.orders[order.ID] = order
		a.fill(order, px)

	case models.OrderLimit:
		if side == models.OrderBuy {
			cost := order.Quantity.Mul(order.Price)
			if err := a.lock(quote, cost); err != nil {
				return nil, err
			}
			order.LockedAsset, order.LockedAmount = quote, cost
		} else {
			if err := a.lock(base, order.Quantity); err != nil {
				return nil, err
			}
			order.LockedAsset, order.LockedAmount = base, order.Quantity
		}
		a.orders[order.ID] = order
		a.pending = append(a.pending, order.ID)
		a.log.Debugw("limit order booked",
			"order_id", order.ID, "symbol", symbol, "side", side,
			"quantity", order.Quantity, "limit", order.Price)

	default:
		return nil, &models.ValidationError{Field: "type", Reason: fmt.Sprintf("unsupported order type %q", orderType)}
	}

	return order, nil
}

// ProcessPendingOrders sweeps the pending queue in insertion order and
// fills every limit order whose condition the current feed price satisfies:
// buys when price <= limit, sells when price >= limit. Fills execute at the
// current price, not the limit price; on buys the difference between the
// lock (taken at the limit) and the actual cost is refunded to available.
// Symbols with no price are skipped, and the sweep is idempotent.
func (a *Account) ProcessPendingOrders() []*Order {
	a.mu.Lock()
	defer a.mu.Unlock()

	var filled []*Order
	remaining := a.pending[:0]

	for _, id := range a.pending {
		order, ok := a.orders[id]
		if !ok || order.Status != models.OrderPending {
			continue // dropped from the queue
		}

		price, err := a.feed.Price(order.Symbol)
		if err != nil {
			remaining = append(remaining, id)
			continue
		}
		px := decimal.NewFromFloat(price)

		crossed := (order.Side == models.OrderBuy && px.LessThanOrEqual(order.Price)) ||
			(order.Side == models.OrderSell && px.GreaterThanOrEqual(order.Price))
		if !crossed {
			remaining = append(remaining, id)
			continue
		}

		a.fill(order, px)
		filled = append(filled, order)
	}

	a.pending = remaining
	return filled
}

// fill settles an order at px: the lock is consumed, the counter-asset is
// credited and the position bookkeeping runs. Callers hold the mutex.
func (a *Account) fill(order *Order, px decimal.Decimal) {
	base, quote, _ := splitSymbol(order.Symbol)

	if order.Side == models.OrderBuy {
		cost := order.Quantity.Mul(px)
		a.consume(order.LockedAsset, order.LockedAmount)
		// A limit lock was taken at the limit price; refund what the
		// cheaper fill did not spend.
		if surplus := order.LockedAmount.Sub(cost); surplus.IsPositive() {
			a.credit(quote, surplus)
		}
		a.credit(base, order.Quantity)
	} else {
		a.consume(order.LockedAsset, order.LockedAmount)
		a.credit(quote, order.Quantity.Mul(px))
	}

	order.Status = models.OrderFilled
	order.FilledQuantity = order.Quantity
	order.AveragePrice = px
	order.UpdatedAt = time.Now().UTC()

	a.applyFill(order, px)

	a.log.Infow("order filled",
		"order_id", order.ID, "symbol", order.Symbol, "side", order.Side,
		"type", order.Type, "quantity", order.Quantity, "price", px)
}

// applyFill keeps the position book in sync with a fill. Buys average into
// the position; sells realize pnl against the held average and close up to
// the held quantity. A sell with no position moves balances only.
func (a *Account) applyFill(order *Order, px decimal.Decimal) {
	if order.Side == models.OrderBuy {
		pos, ok := a.positions[order.Symbol]
		if !ok {
			a.positions[order.Symbol] = &Position{
				Symbol:        order.Symbol,
				Quantity:      order.Quantity,
				AvgEntryPrice: px,
				OpenedAt:      order.UpdatedAt,
			}
			return
		}
		// Weighted-average entry across adds.
		oldNotional := pos.Quantity.Mul(pos.AvgEntryPrice)
		addNotional := order.Quantity.Mul(px)
		pos.Quantity = pos.Quantity.Add(order.Quantity)
		pos.AvgEntryPrice = oldNotional.Add(addNotional).Div(pos.Quantity)
		return
	}

	pos, ok := a.positions[order.Symbol]
	if !ok {
		return
	}

	closed := decimal.Min(order.Quantity, pos.Quantity)
	pnl := px.Sub(pos.AvgEntryPrice).Mul(closed)
	pnlPct := px.Sub(pos.AvgEntryPrice).Div(pos.AvgEntryPrice).Mul(decimal.NewFromInt(100))

	exitTime := order.UpdatedAt
	exitPx := px.InexactFloat64()
	realized := pnl.InexactFloat64()
	realizedPct := pnlPct.InexactFloat64()
	a.trades = append(a.trades, models.TradeRecord{
		ID:         uuid.NewString(),
		Symbol:     order.Symbol,
		Side:       models.SideLong,
		Quantity:   closed.InexactFloat64(),
		EntryTime:  pos.OpenedAt,
		EntryPrice: pos.AvgEntryPrice.InexactFloat64(),
		ExitTime:   &exitTime,
		ExitPrice:  &exitPx,
		PnL:        &realized,
		PnLPercent: &realizedPct,
	})

	pos.Quantity = pos.Quantity.Sub(closed)
	if pos.Quantity.IsZero() {
		delete(a.positions, order.Symbol)
	}
}

// CancelOrder cancels a pending order and returns its locked funds to
// available. Only pending orders can be cancelled.
func (a *Account) CancelOrder(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	order, ok := a.orders[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	switch order.Status {
	case models.OrderFilled:
		return models.ErrOrderFilled
	case models.OrderCancelled:
		return models.ErrOrderCancelled
	}

	a.unlock(order.LockedAsset, order.LockedAmount)
	order.Status = models.OrderCancelled
	order.UpdatedAt = time.Now().UTC()

	a.log.Infow("order cancelled", "order_id", id, "symbol", order.Symbol,
		"refunded", order.LockedAmount, "asset", order.LockedAsset)
	return nil
}

// GetOrder returns an order by id.
func (a *Account) GetOrder(id string) (*Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	order, ok := a.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	return order, nil
}

// Balances returns a copy of all asset balances.
func (a *Account) Balances() map[string]Balance {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]Balance, len(a.balances))
	for asset, b := range a.balances {
		out[asset] = *b
	}
	return out
}

// GetPosition returns the net position in a symbol, or ErrPositionNotFound.
func (a *Account) GetPosition(symbol string) (Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pos, ok := a.positions[symbol]
	if !ok {
		return Position{}, fmt.Errorf("%w: %s", models.ErrPositionNotFound, symbol)
	}
	return *pos, nil
}

// Trades returns a copy of the realized-trade log, oldest first.
func (a *Account) Trades() []models.TradeRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.TradeRecord, len(a.trades))
	copy(out, a.trades)
	return out
}

// PendingOrders returns the still-pending limit orders in insertion order.
func (a *Account) PendingOrders() []*Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*Order
	for _, id := range a.pending {
		if order, ok := a.orders[id]; ok && order.Status == models.OrderPending {
			out = append(out, order)
		}
	}
	return out
}
