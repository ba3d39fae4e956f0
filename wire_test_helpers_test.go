package tds

import (
	"bytes"
	"context"
	"unicode/utf16"
)

// wireBuilder assembles fixture byte streams the way the teacher's own
// tests would hand-roll a TDS packet: a bytes.Buffer plus typed append
// helpers matching C1's read primitives one-for-one.
type wireBuilder struct {
	bytes.Buffer
}

func newWire() *wireBuilder { return &wireBuilder{} }

func (w *wireBuilder) u8(b byte) *wireBuilder {
	w.WriteByte(b)
	return w
}

func (w *wireBuilder) raw(b []byte) *wireBuilder {
	w.Write(b)
	return w
}

func (w *wireBuilder) u16(v uint16) *wireBuilder {
	return w.raw([]byte{byte(v), byte(v >> 8)})
}

func (w *wireBuilder) i16(v int16) *wireBuilder { return w.u16(uint16(v)) }

func (w *wireBuilder) u32(v uint32) *wireBuilder {
	return w.raw([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func (w *wireBuilder) i32(v int32) *wireBuilder { return w.u32(uint32(v)) }

func (w *wireBuilder) u64(v uint64) *wireBuilder {
	return w.raw([]byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	})
}

// bstr writes a one-byte length prefix followed by the raw bytes of s:
// the pre-TDS7 "byte-for-byte" string form spec.md §4.1 describes.
func (w *wireBuilder) bstr(s string) *wireBuilder {
	w.u8(byte(len(s)))
	w.raw([]byte(s))
	return w
}

// rawstr writes just the raw bytes of s with no length prefix, for
// callers that already wrote an explicit length field.
func (w *wireBuilder) rawstr(s string) *wireBuilder {
	w.raw([]byte(s))
	return w
}

// ucs2 encodes s as UCS-2LE, the wire form TDS 7+ uses for every
// string field.
func ucs2(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

// ucs2bstr writes a one-byte character-count prefix followed by s
// encoded as UCS-2LE: the TDS 7+ column-name form.
func (w *wireBuilder) ucs2bstr(s string) *wireBuilder {
	w.u8(byte(len([]rune(s))))
	w.raw(ucs2(s))
	return w
}

// newTestSession builds a Session reading from a wireBuilder's
// contents, with the named collaborators left nil unless the caller
// sets them afterward.
func newTestSession(w *wireBuilder, version TDSVersion) *Session {
	return NewSession(bytes.NewReader(w.Bytes()), version)
}

var testCtx = context.Background()
