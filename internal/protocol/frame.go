// internal/protocol/frame.go
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// StreamHeaderSize is the size of the stream frame header: type plus length.
const StreamHeaderSize = 5

// DefaultMaxFrameSize bounds the body a stream frame may declare.
const DefaultMaxFrameSize = 64 * 1024

var (
	// ErrFrameTooLarge is returned when a stream header declares an oversized body.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")
	// ErrEmptyFrame is returned for a datagram with no type byte.
	ErrEmptyFrame = errors.New("protocol: empty frame")
)

// Packet is one framed message: a type tag and its payload.
type Packet struct {
	Type byte
	Data []byte
}

// EncodeStream frames p as [type:1][length:4 LE][data].
func EncodeStream(p Packet) []byte {
	out := make([]byte, StreamHeaderSize+len(p.Data))
	out[0] = p.Type
	binary.LittleEndian.PutUint32(out[1:5], uint32(len(p.Data)))
	copy(out[StreamHeaderSize:], p.Data)
	return out
}

// EncodeDatagram frames p as [type:1][data].
func EncodeDatagram(p Packet) []byte {
	out := make([]byte, 1+len(p.Data))
	out[0] = p.Type
	copy(out[1:], p.Data)
	return out
}

// DecodeDatagram splits a single message-oriented frame into a packet.
func DecodeDatagram(frame []byte) (Packet, error) {
	if len(frame) == 0 {
		return Packet{}, ErrEmptyFrame
	}
	data := make([]byte, len(frame)-1)
	copy(data, frame[1:])
	return Packet{Type: frame[0], Data: data}, nil
}

// StreamDecoder reassembles stream frames from arbitrarily chunked reads.
// It is not safe for concurrent use.
type StreamDecoder struct {
	buf     []byte
	maxSize int
}

// NewStreamDecoder returns a decoder that rejects bodies above maxSize bytes.
// A non-positive maxSize selects DefaultMaxFrameSize.
func NewStreamDecoder(maxSize int) *StreamDecoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &StreamDecoder{maxSize: maxSize}
}

// Feed appends freshly read bytes to the internal buffer.
func (d *StreamDecoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Next returns the next complete packet. ok is false when more input is
// needed. A non-nil error means the stream is desynchronized.
func (d *StreamDecoder) Next() (p Packet, ok bool, err error) {
	if len(d.buf) < StreamHeaderSize {
		return Packet{}, false, nil
	}
	length := binary.LittleEndian.Uint32(d.buf[1:5])
	if uint64(length) > uint64(d.maxSize) {
		return Packet{}, false, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, d.maxSize)
	}
	total := StreamHeaderSize + int(length)
	if len(d.buf) < total {
		return Packet{}, false, nil
	}

	data := make([]byte, length)
	copy(data, d.buf[StreamHeaderSize:total])
	p = Packet{Type: d.buf[0], Data: data}

	n := copy(d.buf, d.buf[total:])
	d.buf = d.buf[:n]
	return p, true, nil
}

// Buffered reports how many bytes are waiting for a complete frame.
func (d *StreamDecoder) Buffered() int { return len(d.buf) }
