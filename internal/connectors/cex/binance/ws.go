// Package binance connects to a Binance-style exchange: a websocket book
// ticker feed for the engine and a signed REST client for balances.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/you/arb-core/internal/types"
	"go.uber.org/zap"
)

// WS streams raw bookTicker frames for a set of venue symbols. It
// reconnects with backoff on its own; callers only see a message channel.
type WS struct {
	venue   types.VenueID
	url     string
	symbols []string
	dialer  *websocket.Dialer
	log     *zap.Logger
}

func NewWS(venue types.VenueID, url string, symbols []string, log *zap.Logger) *WS {
	return &WS{
		venue:   venue,
		url:     strings.TrimRight(url, "/"),
		symbols: symbols,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
		log: log,
	}
}

func (w *WS) Venue() types.VenueID { return w.venue }

// Run pushes raw frames into out until ctx is done. Dial or read failures
// trigger a reconnect after backoff; the error return is reserved for
// context cancellation.
func (w *WS) Run(ctx context.Context, out chan<- []byte) error {
	backoff := time.Second
	for {
		if err := w.stream(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn("ws stream interrupted, reconnecting",
				zap.String("venue", string(w.venue)),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (w *WS) stream(ctx context.Context, out chan<- []byte) error {
	h := http.Header{}
	if u, err := url.Parse(w.url); err == nil && u.Host != "" {
		h.Set("Origin", "https://"+u.Host)
	}
	conn, _, err := w.dialer.DialContext(ctx, w.url, h)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.url, err)
	}
	defer conn.Close()

	// unblock the reader on shutdown; ReadMessage does not watch ctx
	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-readerDone:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	params := make([]string, 0, len(w.symbols))
	for _, s := range w.symbols {
		params = append(params, strings.ToLower(s)+"@bookTicker")
	}
	sub := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int      `json:"id"`
	}{Method: "SUBSCRIBE", Params: params, ID: 1}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		t := time.NewTicker(20 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pingDone:
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		if isControlFrame(data) {
			continue
		}

		select {
		case out <- data:
		case <-ctx.Done():
			return ctx.Err()
		default:
			w.log.Warn("feed channel full, frame dropped", zap.String("venue", string(w.venue)))
		}
	}
}

// isControlFrame filters subscription acks and anything else that is not
// a book ticker payload.
func isControlFrame(data []byte) bool {
	var probe struct {
		ID     *int            `json:"id"`
		Result json.RawMessage `json:"result"`
		Symbol string          `json:"s"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false // let the normalizer count it as malformed
	}
	return probe.ID != nil || probe.Symbol == ""
}
