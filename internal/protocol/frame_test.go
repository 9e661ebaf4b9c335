// internal/protocol/frame_test.go
package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, d *StreamDecoder) []Packet {
	t.Helper()
	var out []Packet
	for {
		p, ok, err := d.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

func TestStreamDecoderChunking(t *testing.T) {
	packets := []Packet{
		{Type: byte(ServerUID), Data: []byte{7, 0}},
		{Type: byte(ServerStart), Data: []byte{}},
		{Type: byte(ServerChat), Data: bytes.Repeat([]byte{'z'}, 300)},
	}
	var stream []byte
	for _, p := range packets {
		stream = append(stream, EncodeStream(p)...)
	}

	// Every chunk size must yield the same packets.
	for chunk := 1; chunk <= len(stream); chunk += 7 {
		d := NewStreamDecoder(0)
		var got []Packet
		for off := 0; off < len(stream); off += chunk {
			end := off + chunk
			if end > len(stream) {
				end = len(stream)
			}
			d.Feed(stream[off:end])
			got = append(got, drain(t, d)...)
		}
		require.Len(t, got, len(packets), "chunk size %d", chunk)
		for i := range packets {
			assert.Equal(t, packets[i].Type, got[i].Type)
			assert.Equal(t, len(packets[i].Data), len(got[i].Data))
		}
		assert.Zero(t, d.Buffered())
	}
}

func TestStreamDecoderWaitsForBody(t *testing.T) {
	d := NewStreamDecoder(0)
	frame := EncodeStream(Packet{Type: 3, Data: []byte("abc")})

	d.Feed(frame[:StreamHeaderSize+1])
	_, ok, err := d.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	d.Feed(frame[StreamHeaderSize+1:])
	p, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), p.Data)
}

func TestStreamDecoderRejectsOversizedFrame(t *testing.T) {
	d := NewStreamDecoder(16)
	d.Feed(EncodeStream(Packet{Type: 1, Data: make([]byte, 17)}))
	_, _, err := d.Next()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDatagramFraming(t *testing.T) {
	frame := EncodeDatagram(Packet{Type: byte(ClientVersion), Data: []byte{3, 0, 0, 0}})
	assert.Equal(t, []byte{byte(ClientVersion), 3, 0, 0, 0}, frame)

	p, err := DecodeDatagram(frame)
	require.NoError(t, err)
	req, err := DecodeRequest(p)
	require.NoError(t, err)
	assert.Equal(t, &VersionRequest{Version: 3}, req)

	_, err = DecodeDatagram(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestReaderTruncation(t *testing.T) {
	r := NewReader([]byte{5, 'a', 'b'})
	assert.Equal(t, "", r.String())
	assert.ErrorIs(t, r.Err(), ErrTruncated)
	assert.Zero(t, r.Uint16())
}

func TestWriterCountLimit(t *testing.T) {
	var w Writer
	w.Count(256)
	assert.ErrorIs(t, w.Err(), ErrListTooLong)
}
