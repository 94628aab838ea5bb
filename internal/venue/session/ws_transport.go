package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// foreverTaskTimeout bounds every blocking websocket read. A venue that
// goes silent for this long is treated as disconnected and reconnected,
// the same ceiling cryptotrader.const.FOREVER_TASK_TIMEOUT placed on every
// awaited coroutine.
const foreverTaskTimeout = 8 * time.Second

// pingInterval is the minimum gap between WebsocketTransport's keepalive
// pings. Pings go out only after a received message; a connection with no
// traffic hits foreverTaskTimeout and is reconnected instead.
const pingInterval = 30 * time.Second

// WebsocketTransport manages one venue's streaming connection: connect,
// optional auth handshake, a read loop that hands each message to a
// callback, pings between messages, and reconnect-with-reauth on drop.
// Ported from
// cryptotrader.exchange.base.transport.WebsocketTransport.
type WebsocketTransport struct {
	url  string
	auth func(ctx context.Context, conn *websocket.Conn) error
	log  zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocketTransport builds a WebsocketTransport for the given URL. auth
// may be nil for feeds that don't require an authenticated handshake; it is
// re-invoked on every reconnect, the way the source's auth_wrapped did.
func NewWebsocketTransport(url string, auth func(ctx context.Context, conn *websocket.Conn) error, log zerolog.Logger) *WebsocketTransport {
	return &WebsocketTransport{url: url, auth: auth, log: log}
}

// Connect dials the venue and runs auth if configured.
func (t *WebsocketTransport) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.url, err)
	}
	if t.auth != nil {
		if err := t.auth(ctx, conn); err != nil {
			conn.Close()
			return fmt.Errorf("auth %s: %w", t.url, err)
		}
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

// Close tears down the current connection, if any.
func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Send writes a JSON message to the venue, e.g. a subscribe request.
func (t *WebsocketTransport) Send(v interface{}) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket transport: not connected")
	}
	return conn.WriteJSON(v)
}

// RecvForever reads messages until ctx is cancelled, calling handle for
// each one, reconnecting (with reauth) whenever the read loop times out or
// the connection drops. After handling a message it sends a ping if a
// pingInterval tick has passed; no ping is sent while no messages arrive.
//
// Ported from cryptotrader.exchange.base.transport.WebsocketTransport
// .ws_recv_forever, which looped wait_ws/ws_recv/consumer and reconnected
// on WebsocketAuthError or timeout.
func (t *WebsocketTransport) RecvForever(ctx context.Context, handle func([]byte)) {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			if err := t.Connect(ctx); err != nil {
				t.log.Warn().Err(err).Msg("websocket reconnect failed, retrying")
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			t.mu.Lock()
			conn = t.conn
			t.mu.Unlock()
		}

		conn.SetReadDeadline(time.Now().Add(foreverTaskTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.log.Warn().Err(err).Msg("websocket read failed, reconnecting")
			t.Close()
			continue
		}
		handle(data)

		select {
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.log.Warn().Err(err).Msg("websocket ping failed, reconnecting")
				t.Close()
			}
		default:
		}
	}
}
