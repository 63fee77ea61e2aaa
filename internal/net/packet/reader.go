package packet

import (
	"encoding/binary"
	"math"
)

// Reader reads packet fields from a datagram payload.
// Byte 0 is always the opcode. Reads past the end return zero values and
// set Short, so handlers can validate once after reading every field.
type Reader struct {
	data    []byte
	off     int
	charset Charset
	short   bool
}

func NewReader(data []byte) *Reader {
	return NewReaderCharset(data, UTF8)
}

func NewReaderCharset(data []byte, cs Charset) *Reader {
	return &Reader{data: data, off: 1, charset: cs} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadDU reads 4 bytes as little-endian uint32.
func (r *Reader) ReadDU() uint32 {
	if r.off+4 > len(r.data) {
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() int32 {
	return int32(r.ReadDU())
}

// ReadF reads 4 bytes as a little-endian IEEE-754 float32.
func (r *Reader) ReadF() float32 {
	return math.Float32frombits(r.ReadDU())
}

// ReadS reads a NUL-terminated string in the reader's charset and returns
// UTF-8. A missing terminator sets Short.
func (r *Reader) ReadS() string {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			raw := r.data[start:r.off]
			r.off++ // skip null terminator
			return r.charset.decode(raw)
		}
		r.off++
	}
	r.short = true
	return r.charset.decode(r.data[start:r.off])
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Short reports whether any read ran past the end of the payload.
func (r *Reader) Short() bool {
	return r.short
}
