// internal/transport/websocket.go
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/meowgames/internal/protocol"
)

// ErrTextMessage is returned when a client sends a text frame; the protocol
// is binary only.
var ErrTextMessage = errors.New("unexpected text message")

// WebSocket carries one packet per binary message as [type:1][data].
type WebSocket struct {
	c      *websocket.Conn
	remote string
}

func NewWebSocket(c *websocket.Conn, remote string, maxFrameSize int) *WebSocket {
	c.SetReadLimit(int64(maxFrameSize) + 1)
	return &WebSocket{c: c, remote: remote}
}

func (w *WebSocket) ReadPacket(ctx context.Context) (protocol.Packet, error) {
	typ, data, err := w.c.Read(ctx)
	if err != nil {
		return protocol.Packet{}, err
	}
	if typ != websocket.MessageBinary {
		return protocol.Packet{}, ErrTextMessage
	}
	p, err := protocol.DecodeDatagram(data)
	if err != nil {
		return protocol.Packet{}, fmt.Errorf("websocket frame: %w", err)
	}
	return p, nil
}

func (w *WebSocket) WritePacket(ctx context.Context, p protocol.Packet) error {
	return w.c.Write(ctx, websocket.MessageBinary, protocol.EncodeDatagram(p))
}

// Close sends a normal closure with reason, truncated to fit a close frame.
func (w *WebSocket) Close(reason string) error {
	if len(reason) > 120 {
		reason = reason[:120]
	}
	return w.c.Close(websocket.StatusNormalClosure, reason)
}

func (w *WebSocket) RemoteAddr() string { return w.remote }
func (w *WebSocket) Kind() string       { return "ws" }

// IsNormalClose reports whether err is an orderly WebSocket shutdown.
func IsNormalClose(err error) bool {
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
