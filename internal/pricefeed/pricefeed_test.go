package pricefeed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-sim-go/internal/models"
)

func TestStaticFeed(t *testing.T) {
	feed := NewStatic()

	_, err := feed.Price("BTC/USDT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNoPrice))

	feed.Set("BTC/USDT", 50000)
	price, err := feed.Price("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, price)

	feed.Set("BTC/USDT", 50100)
	price, _ = feed.Price("BTC/USDT")
	assert.Equal(t, 50100.0, price)
}

func TestStreamSymbol(t *testing.T) {
	assert.Equal(t, "btcusdt", streamSymbol("BTC/USDT"))
	assert.Equal(t, "ethusdt", streamSymbol("ETH/USDT"))
}

func TestHandleMessageUpdatesFeedAndHook(t *testing.T) {
	feed := NewStatic()
	ws := NewBinanceWS("wss://example", []string{"BTC/USDT"}, feed, zap.NewNop().Sugar())

	var gotSymbol string
	var gotPrice float64
	ws.OnPrice = func(symbol string, price float64) {
		gotSymbol = symbol
		gotPrice = price
	}

	ws.handleMessage([]byte(`{"stream":"btcusdt@miniTicker","data":{"s":"BTCUSDT","c":"50123.45"}}`))

	price, err := feed.Price("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 50123.45, price)
	assert.Equal(t, "BTC/USDT", gotSymbol)
	assert.Equal(t, 50123.45, gotPrice)
}

func TestHandleMessageIgnoresGarbage(t *testing.T) {
	feed := NewStatic()
	ws := NewBinanceWS("wss://example", []string{"BTC/USDT"}, feed, zap.NewNop().Sugar())

	ws.handleMessage([]byte(`not json`))
	ws.handleMessage([]byte(`{"stream":"x","data":{"s":"BTCUSDT","c":"oops"}}`))
	ws.handleMessage([]byte(`{"result":null,"id":1}`)) // subscription ack

	_, err := feed.Price("BTC/USDT")
	assert.Error(t, err)
}
