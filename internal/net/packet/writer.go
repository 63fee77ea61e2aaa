package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds a server packet. All multi-byte writes are little-endian.
// Datagrams carry their own length, so no framing or padding is added.
type Writer struct {
	buf     []byte
	charset Charset
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64), charset: UTF8}
}

func NewWriterWithOpcode(opcode byte) *Writer {
	w := NewWriter()
	w.WriteC(opcode)
	return w
}

// WithCharset sets the encoding used by WriteS.
func (w *Writer) WithCharset(cs Charset) *Writer {
	w.charset = cs
	return w
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteD writes 4 bytes little-endian (signed or unsigned via cast).
func (w *Writer) WriteD(v int32) {
	w.WriteDU(uint32(v))
}

// WriteDU writes 4 bytes little-endian unsigned.
func (w *Writer) WriteDU(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteF writes a float32 as 4 bytes little-endian.
func (w *Writer) WriteF(v float32) {
	w.WriteDU(math.Float32bits(v))
}

// WriteS writes a NUL-terminated string in the writer's charset.
func (w *Writer) WriteS(s string) {
	w.buf = append(w.buf, w.charset.encode(s)...)
	w.buf = append(w.buf, 0) // null terminator
}

// Bytes returns the packet content.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}
