package tds

import (
	"encoding/binary"
	"io"

	"golang.org/x/text/encoding/unicode"
)

// utf16Decoder narrows UCS-2LE wire bytes to Go strings under TDS 7+.
// Same construction as the teacher's package-level utf16Decoder in
// token.go.
var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// Reader is the typed-primitive wire reader of spec.md §4.1 (C1): it
// layers get_u8/get_i16/get_i32/get_bytes/get_string and one byte of
// lookahead over a ByteSource. Endian normalization of multi-byte
// primitives happens here (the wire is always little-endian); the
// value-decoder's big-endian-host fixups in values.go are a separate,
// later step applied only to already-decoded column payloads.
type Reader struct {
	src     ByteSource
	version TDSVersion
	ungot   *byte
}

// NewReader constructs a Reader over src for the given protocol
// version, which selects the get_string narrowing rule.
func NewReader(src ByteSource, version TDSVersion) *Reader {
	return &Reader{src: src, version: version}
}

// readByte is the single point where ByteSource errors become a
// transport-death panic: spec.md §4.1 "Fails with DEAD when the
// underlying source reports EOF or error".
func (r *Reader) readByte() byte {
	if r.ungot != nil {
		b := *r.ungot
		r.ungot = nil
		return b
	}
	b, err := r.src.ReadByte()
	if err != nil {
		deadPanic(err)
	}
	return b
}

// readFull fills dst entirely from the source, honoring one byte of
// lookahead if present.
func (r *Reader) readFull(dst []byte) {
	i := 0
	if r.ungot != nil && len(dst) > 0 {
		dst[0] = *r.ungot
		r.ungot = nil
		i = 1
	}
	for i < len(dst) {
		n, err := r.src.Read(dst[i:])
		if n > 0 {
			i += n
		}
		if err != nil {
			if err == io.EOF && i == len(dst) {
				break
			}
			deadPanic(err)
		}
		if n == 0 && err == nil {
			deadPanic(io.ErrNoProgress)
		}
	}
}

// GetU8 reads one unsigned byte.
func (r *Reader) GetU8() uint8 { return r.readByte() }

// GetI16 reads a little-endian signed 16-bit integer.
func (r *Reader) GetI16() int16 { return int16(r.GetU16()) }

// GetU16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) GetU16() uint16 {
	var buf [2]byte
	r.readFull(buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

// GetI32 reads a little-endian signed 32-bit integer.
func (r *Reader) GetI32() int32 { return int32(r.GetU32()) }

// GetU32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) GetU32() uint32 {
	var buf [4]byte
	r.readFull(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// GetU64 reads a little-endian unsigned 64-bit integer.
func (r *Reader) GetU64() uint64 {
	var buf [8]byte
	r.readFull(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// GetBytes fills dst with exactly len(dst) raw bytes, no narrowing.
func (r *Reader) GetBytes(dst []byte) {
	r.readFull(dst)
}

// GetString consumes n characters: under TDS 7+ that is 2n wire bytes,
// UCS-2LE, narrowed to a Go string; under earlier versions it is a
// byte-for-byte copy of n bytes: spec.md §4.1.
func (r *Reader) GetString(n int) string {
	if n == 0 {
		return ""
	}
	if r.version >= TDS70 {
		buf := make([]byte, n*2)
		r.readFull(buf)
		out, err := utf16Decoder.Bytes(buf)
		if err != nil {
			protocolPanicf("tds: invalid UCS-2 string data: %v", err)
		}
		return string(out)
	}
	buf := make([]byte, n)
	r.readFull(buf)
	return string(buf)
}

// AllocGetString is the alloc_get_string entry point of the C1 reader;
// behavior is identical to GetString. The value decoders in values.go
// call GetString directly.
func (r *Reader) AllocGetString(n int) string { return r.GetString(n) }

// UngetU8 pushes exactly one byte of lookahead back onto the stream;
// the dispatcher uses this to peek the next token marker: spec.md
// §4.1, §4.6.
func (r *Reader) UngetU8(b byte) {
	if r.ungot != nil {
		protocolPanicf("tds: unget_u8 called with lookahead already pending")
	}
	r.ungot = &b
}

// PeekMarker reads one byte and immediately ungets it, leaving the
// stream position unchanged. Used by processParamResultTokens to look
// at the marker after a PARAM token before deciding whether to consume it.
func (r *Reader) PeekMarker() token {
	b := r.readByte()
	r.UngetU8(b)
	return token(b)
}

// NextMarker consumes and returns the next token marker byte.
func (r *Reader) NextMarker() token {
	return token(r.readByte())
}

// Skip discards n raw bytes.
func (r *Reader) Skip(n int) {
	if n <= 0 {
		return
	}
	buf := make([]byte, n)
	r.readFull(buf)
}
