package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrUnauthorized = errors.New("credential rejected by server")

// Transport is one physical connection to the server.
type Transport interface {
	Read() ([]byte, error)
	Write(b []byte) error
	Close() error
}

// Dialer opens a transport presenting the credential at handshake time.
type Dialer interface {
	Dial(ctx context.Context, credential string) (Transport, error)
}

// DefaultReadTimeout outlasts the server's pong wait, so a live server always
// pings before it expires.
const DefaultReadTimeout = 70 * time.Second

// WebSocketDialer sends the credential as a bearer Authorization header.
// A transport that hears nothing, not even a ping, for ReadTimeout fails its
// next Read.
type WebSocketDialer struct {
	URL         string
	Dialer      *websocket.Dialer
	WriteWait   time.Duration
	ReadTimeout time.Duration
}

func (d WebSocketDialer) Dial(ctx context.Context, credential string) (Transport, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)

	ws, resp, err := dialer.DialContext(ctx, d.URL, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	wait := d.WriteWait
	if wait <= 0 {
		wait = 10 * time.Second
	}
	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	t := &wsTransport{conn: ws, writeWait: wait, readTimeout: readTimeout}
	ws.SetPingHandler(t.onPing)
	return t, nil
}

type wsTransport struct {
	conn        *websocket.Conn
	writeWait   time.Duration
	readTimeout time.Duration

	writeMu sync.Mutex
}

func (t *wsTransport) Read() ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return nil, err
	}
	_, b, err := t.conn.ReadMessage()
	return b, err
}

// onPing runs inside ReadMessage. It extends the read deadline and answers
// with a pong the way gorilla's default handler does.
func (t *wsTransport) onPing(data string) error {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return err
	}
	err := t.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(t.writeWait))
	if err == nil || errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil
	}
	return err
}

func (t *wsTransport) Write(b []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, b)
}

func (t *wsTransport) Close() error {
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return t.conn.Close()
}
