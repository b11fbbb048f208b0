package realtime

import (
	"context"

	"github.com/gorilla/websocket"
)

// Conn is the minimal connection surface the manager needs
type Conn interface {
	// ReadMessage blocks until the next inbound message or a connection error
	ReadMessage() ([]byte, error)

	// WriteJSON sends a JSON-encoded frame
	WriteJSON(v any) error

	// Close terminates the connection
	Close() error
}

// Dialer opens a connection to the channel endpoint
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsDialer is the gorilla/websocket-backed production dialer
type wsDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer creates the default websocket dialer
func NewWebsocketDialer() Dialer {
	return &wsDialer{dialer: websocket.DefaultDialer}
}

func (d *wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn}, nil
}

type wsConn struct {
	*websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.Conn.ReadMessage()
	return data, err
}
