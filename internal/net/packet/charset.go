package packet

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Charset converts strings between UTF-8 and the wire encoding.
type Charset struct {
	name string
	enc  encoding.Encoding
}

// UTF8 is the default wire charset.
var UTF8 = Charset{name: "utf-8", enc: unicode.UTF8}

// LookupCharset resolves a WHATWG encoding label such as "utf-8",
// "big5" or "windows-1252".
func LookupCharset(label string) (Charset, error) {
	if label == "" {
		return UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return Charset{}, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	name, _ := htmlindex.Name(enc)
	return Charset{name: strings.ToLower(name), enc: enc}, nil
}

func (c Charset) Name() string { return c.name }

func (c Charset) decode(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	// Fast path: if all bytes are ASCII, no conversion needed
	allASCII := true
	for _, b := range raw {
		if b >= 0x80 {
			allASCII = false
			break
		}
	}
	if allASCII || c.enc == nil || c.enc == unicode.UTF8 {
		return string(raw)
	}
	decoded, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw) // fallback to raw bytes
	}
	return string(decoded)
}

func (c Charset) encode(s string) []byte {
	if c.enc == nil || c.enc == unicode.UTF8 {
		return []byte(s)
	}
	encoded, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Fallback: write raw bytes (works for pure ASCII)
		return []byte(s)
	}
	return encoded
}
