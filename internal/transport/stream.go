// internal/transport/stream.go
package transport

import (
	"context"
	"net"
	"time"

	"github.com/jason-s-yu/meowgames/internal/protocol"
)

const readChunk = 4096

// Stream frames packets as [type:1][length:4][data] over a net.Conn.
type Stream struct {
	conn net.Conn
	dec  *protocol.StreamDecoder
	buf  []byte
}

func NewStream(conn net.Conn, maxFrameSize int) *Stream {
	return &Stream{
		conn: conn,
		dec:  protocol.NewStreamDecoder(maxFrameSize),
		buf:  make([]byte, readChunk),
	}
}

// ReadPacket returns the next complete packet, reading more bytes as needed.
// Cancelling ctx unblocks a pending read.
func (s *Stream) ReadPacket(ctx context.Context) (protocol.Packet, error) {
	stop := context.AfterFunc(ctx, func() { s.conn.SetReadDeadline(time.Now()) })
	defer stop()

	for {
		p, ok, err := s.dec.Next()
		if err != nil {
			return protocol.Packet{}, err
		}
		if ok {
			return p, nil
		}
		n, err := s.conn.Read(s.buf)
		if n > 0 {
			s.dec.Feed(s.buf[:n])
		}
		if err != nil {
			if ctx.Err() != nil {
				return protocol.Packet{}, ctx.Err()
			}
			return protocol.Packet{}, err
		}
	}
}

// WritePacket honors ctx's deadline as the write deadline, and cancellation
// aborts a blocked write.
func (s *Stream) WritePacket(ctx context.Context, p protocol.Packet) error {
	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { s.conn.SetWriteDeadline(time.Now()) })
	defer stop()

	_, err := s.conn.Write(protocol.EncodeStream(p))
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Stream) Close(string) error { return s.conn.Close() }
func (s *Stream) RemoteAddr() string { return s.conn.RemoteAddr().String() }
func (s *Stream) Kind() string       { return "tcp" }
