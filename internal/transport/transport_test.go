// internal/transport/transport_test.go
package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamReadsAcrossChunks(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	s := NewStream(server, protocol.DefaultMaxFrameSize)
	defer s.Close("")

	frames := append(
		protocol.EncodeStream(protocol.Packet{Type: 3, Data: []byte("hello")}),
		protocol.EncodeStream(protocol.Packet{Type: 9})...,
	)
	go func() {
		for _, b := range frames {
			if _, err := client.Write([]byte{b}); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := s.ReadPacket(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(3), p.Type)
	assert.Equal(t, []byte("hello"), p.Data)

	p, err = s.ReadPacket(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(9), p.Type)
	assert.Empty(t, p.Data)
}

func TestStreamReadHonorsCancel(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	s := NewStream(server, protocol.DefaultMaxFrameSize)
	defer s.Close("")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := s.ReadPacket(ctx)
		errc <- err
	}()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("read did not unblock")
	}
}

func TestStreamRejectsOversizedFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	s := NewStream(server, 8)
	defer s.Close("")

	go client.Write(protocol.EncodeStream(protocol.Packet{Type: 1, Data: make([]byte, 64)}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.ReadPacket(ctx)
	assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
}

func TestStreamWrite(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	s := NewStream(server, protocol.DefaultMaxFrameSize)
	defer s.Close("")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.WritePacket(ctx, protocol.Packet{Type: 20, Data: []byte{7, 0}})
	}()

	buf := make([]byte, 7)
	client.SetReadDeadline(time.Now().Add(time.Second))
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{20, 2, 0, 0, 0, 7, 0}, buf)
	assert.Equal(t, "tcp", s.Kind())
}

func TestWebSocketRoundTrip(t *testing.T) {
	got := make(chan protocol.Packet, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ws := NewWebSocket(c, r.RemoteAddr, protocol.DefaultMaxFrameSize)
		defer ws.Close("bye")

		p, err := ws.ReadPacket(r.Context())
		if err != nil {
			return
		}
		got <- p
		ws.WritePacket(r.Context(), protocol.Packet{Type: p.Type + 1, Data: p.Data})
		ws.ReadPacket(r.Context())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, c.Write(ctx, websocket.MessageBinary, []byte{11, 1, 2}))
	p := <-got
	assert.Equal(t, byte(11), p.Type)
	assert.Equal(t, []byte{1, 2}, p.Data)

	typ, data, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, typ)
	assert.Equal(t, []byte{12, 1, 2}, data)
}

func TestWebSocketRejectsText(t *testing.T) {
	errc := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ws := NewWebSocket(c, r.RemoteAddr, protocol.DefaultMaxFrameSize)
		defer ws.Close("")
		_, err = ws.ReadPacket(r.Context())
		errc <- err
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("hi")))
	assert.ErrorIs(t, <-errc, ErrTextMessage)
}
