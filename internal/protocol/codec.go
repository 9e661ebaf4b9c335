// internal/protocol/codec.go
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a payload ends before a field is complete.
	ErrTruncated = errors.New("protocol: payload truncated")
	// ErrStringTooLong is returned when a string exceeds MaxStringLen bytes.
	ErrStringTooLong = errors.New("protocol: string longer than 255 bytes")
	// ErrListTooLong is returned when a list does not fit a 1-byte count.
	ErrListTooLong = errors.New("protocol: list longer than 255 entries")
	// ErrTrailingBytes is returned when a fixed-layout payload has extra data.
	ErrTrailingBytes = errors.New("protocol: unexpected trailing bytes")
)

const maxListLen = 0xff

// Writer appends little-endian primitives to a buffer. The first failure is
// kept and every later call becomes a no-op.
type Writer struct {
	buf []byte
	err error
}

func (w *Writer) Uint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (w *Writer) Uint16(v uint16) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }

func (w *Writer) Uint32(v uint32) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

// String writes a 1-byte length followed by the UTF-8 bytes of s.
func (w *Writer) String(s string) {
	if w.err != nil {
		return
	}
	if len(s) > MaxStringLen {
		w.err = fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
		return
	}
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
}

// Raw writes s with no length prefix.
func (w *Writer) Raw(s string) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, s...)
}

// Count writes a 1-byte list length.
func (w *Writer) Count(n int) {
	if w.err != nil {
		return
	}
	if n > maxListLen {
		w.err = fmt.Errorf("%w: %d entries", ErrListTooLong, n)
		return
	}
	w.buf = append(w.buf, byte(n))
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Err() error    { return w.err }

// Reader consumes little-endian primitives from a payload. Once a read runs
// past the end, every later read returns zero values and Err reports
// ErrTruncated.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader { return &Reader{data: data} }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.off < n {
		r.err = ErrTruncated
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool { return r.Uint8() != 0 }

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Int16() int16 { return int16(r.Uint16()) }

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

// String reads a 1-byte length followed by that many bytes.
func (r *Reader) String() string {
	n := int(r.Uint8())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// Rest consumes and returns everything left in the payload.
func (r *Reader) Rest() string {
	if r.err != nil {
		return ""
	}
	s := string(r.data[r.off:])
	r.off = len(r.data)
	return s
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) Err() error { return r.err }

// Done returns the read error, or ErrTrailingBytes if unread data remains.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d left", ErrTrailingBytes, len(r.data)-r.off)
	}
	return nil
}
