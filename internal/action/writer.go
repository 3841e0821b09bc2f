// Package action implements deterministic binary encoding of trading
// actions (§4.2). The framing this writer produces is byte-identical to
// MessagePack for the subset of types an action ever contains (maps,
// arrays, strings, bools, unsigned ints), which is why the exchange's own
// server-side decoder — a generic MessagePack reader — can parse it.
//
// A generic msgpack.Marshal over a map[string]interface{} was considered
// (it's how other_examples/…guyghost-constantine…hyperliquid-client.go
// builds its action hash) and rejected: Go randomizes map iteration
// order, so two marshals of the same logical action can commit to
// different byte sequences and therefore different signatures. Field
// order here is fixed by the Go struct layout and the explicit encode
// methods in action.go, never by map iteration.
package action

import "encoding/binary"

// Writer accumulates the canonical byte sequence for one action.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 128)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteMapHeader emits a map header for n key/value pairs.
func (w *Writer) WriteMapHeader(n int) {
	switch {
	case n <= 15:
		w.buf = append(w.buf, 0x80|byte(n))
	case n <= 65535:
		w.buf = append(w.buf, 0xde)
		w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(n))
	default:
		panic("action: map header count exceeds 65535")
	}
}

// WriteArrayHeader emits an array header for n elements.
func (w *Writer) WriteArrayHeader(n int) {
	switch {
	case n <= 15:
		w.buf = append(w.buf, 0x90|byte(n))
	case n <= 65535:
		w.buf = append(w.buf, 0xdc)
		w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(n))
	default:
		panic("action: array header count exceeds 65535")
	}
}

// WriteString emits a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	b := []byte(s)
	n := len(b)
	switch {
	case n <= 31:
		w.buf = append(w.buf, 0xa0|byte(n))
	case n <= 255:
		w.buf = append(w.buf, 0xd9, byte(n))
	case n <= 65535:
		w.buf = append(w.buf, 0xda)
		w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(n))
	default:
		panic("action: string length exceeds 65535")
	}
	w.buf = append(w.buf, b...)
}

// WriteBool emits a single-byte boolean.
func (w *Writer) WriteBool(b bool) {
	if b {
		w.buf = append(w.buf, 0xc3)
	} else {
		w.buf = append(w.buf, 0xc2)
	}
}

// WriteUint emits an unsigned integer using the shortest of the fixed
// widths that can hold it.
func (w *Writer) WriteUint(u uint64) {
	switch {
	case u <= 127:
		w.buf = append(w.buf, byte(u))
	case u <= 0xff:
		w.buf = append(w.buf, 0xcc, byte(u))
	case u <= 0xffff:
		w.buf = append(w.buf, 0xcd)
		w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(u))
	case u <= 0xffffffff:
		w.buf = append(w.buf, 0xce)
		w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(u))
	default:
		w.buf = append(w.buf, 0xcf)
		w.buf = binary.BigEndian.AppendUint64(w.buf, u)
	}
}
