package backtest

import (
	"time"

	"github.com/google/uuid"

	"trading-sim-go/internal/models"
)

// Fraction of current capital committed on each entry; the remainder is
// headroom for commission.
const positionSizeFraction = 0.95

// openPosition is the simulator's single in-flight trade.
type openPosition struct {
	side       models.Side
	quantity   float64
	entryPrice float64
	entryTime  time.Time
}

// Simulate replays a signal sequence against a bar series and returns the
// closed trades plus the equity curve. The pass is deterministic and holds
// at most one open position at a time.
//
// Slippage is applied against the trader on both legs and commission is
// charged on the traded notional of both legs. Capital moves only on closed
// trades, so the curve gains one point per realized exit on top of the seed
// point at the first bar's timestamp.
//
// An entry while a position is open and an exit while flat are silent
// no-ops, not errors. Input validation (positive capital, non-empty bars)
// belongs to the orchestration boundary, not here.
func Simulate(bars []models.OHLCV, signals []models.Signal, initialCapital, slippagePct, commissionPct float64, symbol string) ([]models.TradeRecord, []models.EquityPoint) {
	capital := initialCapital
	peak := initialCapital

	trades := make([]models.TradeRecord, 0, len(signals)/2)
	curve := make([]models.EquityPoint, 0, len(signals)/2+1)
	curve = append(curve, models.EquityPoint{
		Timestamp: bars[0].Timestamp,
		Equity:    initialCapital,
		Drawdown:  0,
	})

	var open *openPosition

	for _, sig := range signals {
		switch sig.Kind {
		case models.SignalEntry:
			if open != nil {
				continue
			}
			execPrice := entryPrice(sig.Price, sig.Side, slippagePct)
			notional := capital * positionSizeFraction
			quantity := notional / execPrice
			capital -= notional * commissionPct

			open = &openPosition{
				side:       sig.Side,
				quantity:   quantity,
				entryPrice: execPrice,
				entryTime:  sig.Timestamp,
			}

		case models.SignalExit:
			if open == nil || open.side != sig.Side {
				continue
			}
			execPrice := exitPrice(sig.Price, sig.Side, slippagePct)

			delta := execPrice - open.entryPrice
			if open.side == models.SideShort {
				delta = open.entryPrice - execPrice
			}
			pnl := delta * open.quantity
			capital += pnl
			capital -= execPrice * open.quantity * commissionPct

			exitTime := sig.Timestamp
			exitPx := execPrice
			pnlPct := delta / open.entryPrice * 100
			realized := pnl
			trades = append(trades, models.TradeRecord{
				ID:         uuid.NewString(),
				Symbol:     symbol,
				Side:       open.side,
				Quantity:   open.quantity,
				EntryTime:  open.entryTime,
				EntryPrice: open.entryPrice,
				ExitTime:   &exitTime,
				ExitPrice:  &exitPx,
				PnL:        &realized,
				PnLPercent: &pnlPct,
			})

			if capital > peak {
				peak = capital
			}
			curve = append(curve, models.EquityPoint{
				Timestamp: sig.Timestamp,
				Equity:    capital,
				Drawdown:  (peak - capital) / peak * 100,
			})
			open = nil
		}
	}

	return trades, curve
}

// entryPrice inflates the fill against the trader: buying long pays more,
// selling short receives less.
func entryPrice(price float64, side models.Side, slippagePct float64) float64 {
	if side == models.SideLong {
		return price * (1 + slippagePct)
	}
	return price * (1 - slippagePct)
}

// exitPrice applies slippage adversely on the closing leg.
func exitPrice(price float64, side models.Side, slippagePct float64) float64 {
	if side == models.SideLong {
		return price * (1 - slippagePct)
	}
	return price * (1 + slippagePct)
}
