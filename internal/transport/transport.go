// internal/transport/transport.go

// Package transport carries protocol packets over a raw TCP stream or a
// WebSocket. Both present the same Conn so sessions never care which one a
// client picked.
package transport

import (
	"context"

	"github.com/jason-s-yu/meowgames/internal/protocol"
)

// Conn is one client connection. ReadPacket is called from a single reader
// goroutine and WritePacket from a single writer goroutine; Close may be
// called from anywhere.
type Conn interface {
	ReadPacket(ctx context.Context) (protocol.Packet, error)
	WritePacket(ctx context.Context, p protocol.Packet) error
	Close(reason string) error
	RemoteAddr() string
	// Kind names the transport for logs ("tcp" or "ws").
	Kind() string
}
