package protocol

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrBadFrame describes a framing fault: an oversize declared payload length.
// TryDecodeOne reports this case as the Bad status rather than returning this
// error; the caller (the reactor) closes the connection on Bad.
var ErrBadFrame = errors.New("protocol: frame declares oversize payload")

// DecodeStatus is the tri-state result of try-decoding one frame from a
// buffer. A partial read is an expected state, not an error.
type DecodeStatus int

const (
	// NeedMore means the buffer does not yet hold a complete frame.
	NeedMore DecodeStatus = iota
	// Bad means the frame's declared length is malformed; close the conn.
	Bad
	// Ready means a complete frame was found at the front of the buffer.
	Ready
)

// Frame is one decoded packet: its type code and raw payload bytes.
type Frame struct {
	Version Version8
	Type    Type
	Payload []byte
}

// Version8 aliases uint8 so the header's version byte is self-documenting
// at call sites.
type Version8 = uint8

// TryDecodeOne inspects buf for one complete frame. It never mutates buf;
// on Ready it returns the frame and the number of bytes consumed so the
// caller can advance its own cursor.
func TryDecodeOne(buf []byte) (status DecodeStatus, frame Frame, consumed int) {
	if len(buf) < HeaderSize {
		return NeedMore, Frame{}, 0
	}
	payloadLen := binary.BigEndian.Uint32(buf[3:7])
	if payloadLen > MaxPayloadLen {
		return Bad, Frame{}, 0
	}
	total := HeaderSize + int(payloadLen)
	if len(buf) < total {
		return NeedMore, Frame{}, 0
	}
	return Ready, Frame{
		Version: buf[0],
		Type:    Type(binary.BigEndian.Uint16(buf[1:3])),
		Payload: buf[HeaderSize:total],
	}, total
}

// Encode assembles a full frame (header + payload) ready to write to a
// socket.
func Encode(t Type, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = Version
	binary.BigEndian.PutUint16(buf[1:3], uint16(t))
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// ---------------------------------------------------------------------------
// Payload primitive encoding: a tiny writer/reader pair used by every
// packet's MarshalPayload/UnmarshalPayload below.
// ---------------------------------------------------------------------------

// Writer accumulates payload bytes for one packet.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

func (w *Writer) U16(v uint16) *Writer {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) Str(s string) *Writer {
	w.U16(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Reader consumes payload bytes in the same order a Writer produced them.
type Reader struct {
	buf []byte
	pos int
	err error
}

func NewReader(payload []byte) *Reader { return &Reader{buf: payload} }

// Err returns the first error encountered (short buffer), if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.err = errors.New("protocol: payload truncated")
		return false
	}
	return true
}

func (r *Reader) U8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *Reader) Bool() bool { return r.U8() != 0 }

func (r *Reader) U16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v
}

func (r *Reader) U32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *Reader) Str() string {
	n := int(r.U16())
	if !r.need(n) {
		return ""
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s
}
