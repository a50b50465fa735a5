package pricefeed

import (
	"fmt"
	"sync"

	"trading-sim-go/internal/models"
)

// Feed supplies the latest known price per symbol. Symbols use the
// "BASE/QUOTE" form, e.g. "BTC/USDT".
type Feed interface {
	Price(symbol string) (float64, error)
}

// Static is an in-memory feed fed by explicit Set calls. It backs paper
// sessions (prices pushed from a live stream or a test) and is safe for
// concurrent use.
type Static struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func NewStatic() *Static {
	return &Static{prices: make(map[string]float64)}
}

// Set records the latest price for a symbol.
func (s *Static) Set(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// Price returns the last recorded price. Symbols never seen return
// models.ErrNoPrice.
func (s *Static) Price(symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrNoPrice, symbol)
	}
	return price, nil
}
