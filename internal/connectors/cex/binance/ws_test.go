package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWS_StreamsFramesWithOrigin(t *testing.T) {
	originCh := make(chan string, 1)
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originCh <- r.Header.Get("Origin")
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// consume the subscribe request, ack it, then push one ticker frame
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"s":"BTCUSDT","b":"99.9","B":"1","a":"100.1","A":"1","u":5}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan []byte, 8)
	ws := NewWS("binance", wsURL, []string{"BTCUSDT"}, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- ws.Run(ctx, out) }()

	// the ack frame is filtered; only the ticker payload comes through
	select {
	case frame := <-out:
		assert.Contains(t, string(frame), `"s":"BTCUSDT"`)
	case <-ctx.Done():
		t.Fatal("no frame before timeout")
	}

	host := strings.TrimPrefix(srv.URL, "http://")
	assert.Equal(t, "https://"+host, <-originCh)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ws did not stop on cancel")
	}
}
