package pricefeed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be shorter than pongWait

	reconnectDelay = 5 * time.Second
)

// BinanceWS streams miniTicker updates for a set of symbols over a single
// combined websocket connection and pushes each close price into a Static
// feed. An optional OnPrice hook fires after every update, which is how a
// paper session triggers its pending-order sweep.
type BinanceWS struct {
	baseURL string
	symbols []string // "BTC/USDT" form
	feed    *Static
	log     *zap.SugaredLogger

	// OnPrice, when set, is called after the feed has been updated.
	OnPrice func(symbol string, price float64)

	stop chan struct{}
	conn *websocket.Conn
}

// NewBinanceWS creates a stream for the given symbols. baseURL is the
// websocket endpoint, e.g. "wss://stream.binance.com:9443".
func NewBinanceWS(baseURL string, symbols []string, feed *Static, log *zap.SugaredLogger) *BinanceWS {
	return &BinanceWS{
		baseURL: baseURL,
		symbols: symbols,
		feed:    feed,
		log:     log,
		stop:    make(chan struct{}),
	}
}

// Run connects and processes messages until Stop is called, reconnecting
// after connection loss. It blocks, so callers run it in a goroutine.
func (w *BinanceWS) Run() {
	for {
		select {
		case <-w.stop:
			w.log.Info("price stream stopped")
			return
		default:
			if err := w.connect(); err != nil {
				w.log.Warnw("price stream connect failed, retrying", "error", err)
				time.Sleep(reconnectDelay)
				continue
			}
			w.log.Infow("price stream connected", "symbols", w.symbols)

			if err := w.readLoop(); err != nil {
				w.log.Warnw("price stream disconnected", "error", err)
			}
			if w.conn != nil {
				w.conn.Close()
			}
			time.Sleep(reconnectDelay)
		}
	}
}

// Stop ends the stream. Safe to call once.
func (w *BinanceWS) Stop() {
	close(w.stop)
}

func (w *BinanceWS) connect() error {
	streams := make([]string, len(w.symbols))
	for i, s := range w.symbols {
		streams[i] = streamSymbol(s) + "@miniTicker"
	}
	url := fmt.Sprintf("%s/stream?streams=%s", w.baseURL, strings.Join(streams, "/"))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return err
	}
	w.conn = conn
	return nil
}

// readLoop reads messages until the connection breaks or Stop is called,
// keeping the connection alive with periodic pings.
func (w *BinanceWS) readLoop() error {
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	pingStop := make(chan struct{})
	defer close(pingStop)

	go func() {
		for {
			select {
			case <-pingTicker.C:
				if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingStop:
				return
			case <-w.stop:
				return
			}
		}
	}()

	for {
		select {
		case <-w.stop:
			err := w.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				return fmt.Errorf("send close frame: %w", err)
			}
			return nil
		default:
			_, message, err := w.conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("read message: %w", err)
			}
			w.handleMessage(message)
		}
	}
}

// combinedMessage is the envelope of the combined-stream endpoint.
type combinedMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string      `json:"s"`
		Close  json.Number `json:"c"`
	} `json:"data"`
}

func (w *BinanceWS) handleMessage(message []byte) {
	var msg combinedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		w.log.Debugw("skipping unparseable stream message", "error", err)
		return
	}
	if msg.Data.Symbol == "" {
		return
	}

	price, err := msg.Data.Close.Float64()
	if err != nil {
		w.log.Debugw("skipping bad price", "symbol", msg.Data.Symbol, "error", err)
		return
	}

	symbol := w.displaySymbol(msg.Data.Symbol)
	w.feed.Set(symbol, price)
	if w.OnPrice != nil {
		w.OnPrice(symbol, price)
	}
}

// displaySymbol maps a stream symbol like "BTCUSDT" back to the configured
// "BTC/USDT" form.
func (w *BinanceWS) displaySymbol(stream string) string {
	for _, s := range w.symbols {
		if strings.EqualFold(strings.ReplaceAll(s, "/", ""), stream) {
			return s
		}
	}
	return stream
}

// streamSymbol converts "BTC/USDT" to the lowercase "btcusdt" stream form.
func streamSymbol(symbol string) string {
	return strings.ToLower(strings.ReplaceAll(symbol, "/", ""))
}
