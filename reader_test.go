package tds

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderTypedPrimitives(t *testing.T) {
	w := newWire().
		u8(0x42).
		i16(-7).
		u16(0xfeed).
		i32(-12345).
		u32(0xdeadbeef).
		u64(0x0102030405060708)
	r := NewReader(bytes.NewReader(w.Bytes()), TDS80)

	assert.Equal(t, uint8(0x42), r.GetU8())
	assert.Equal(t, int16(-7), r.GetI16())
	assert.Equal(t, uint16(0xfeed), r.GetU16())
	assert.Equal(t, int32(-12345), r.GetI32())
	assert.Equal(t, uint32(0xdeadbeef), r.GetU32())
	assert.Equal(t, uint64(0x0102030405060708), r.GetU64())
}

func TestReaderGetBytes(t *testing.T) {
	w := newWire().raw([]byte{1, 2, 3, 4, 5})
	r := NewReader(bytes.NewReader(w.Bytes()), TDS80)
	dst := make([]byte, 5)
	r.GetBytes(dst)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, dst)
}

func TestReaderGetStringPreTDS7IsByteForByteCopy(t *testing.T) {
	w := newWire().rawstr("hello")
	r := NewReader(bytes.NewReader(w.Bytes()), TDS50)
	assert.Equal(t, "hello", r.GetString(5))
}

func TestReaderGetStringTDS7IsUCS2LE(t *testing.T) {
	w := newWire().raw(ucs2("héllo"))
	r := NewReader(bytes.NewReader(w.Bytes()), TDS70)
	assert.Equal(t, "héllo", r.GetString(5))
}

func TestReaderGetStringZeroLengthConsumesNothing(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), TDS70)
	assert.Equal(t, "", r.GetString(0))
}

func TestReaderUngetAndPeekMarker(t *testing.T) {
	w := newWire().u8(0xaa).u8(0xbb)
	r := NewReader(bytes.NewReader(w.Bytes()), TDS80)

	assert.Equal(t, token(0xaa), r.PeekMarker())
	assert.Equal(t, token(0xaa), r.NextMarker())
	assert.Equal(t, token(0xbb), r.NextMarker())
}

func TestReaderUngetU8TwiceInARowPanics(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1}), TDS80)
	r.UngetU8(0x01)
	assert.Panics(t, func() { r.UngetU8(0x02) })
}

func TestReaderSkip(t *testing.T) {
	w := newWire().raw([]byte{1, 2, 3}).u8(0x99)
	r := NewReader(bytes.NewReader(w.Bytes()), TDS80)
	r.Skip(3)
	assert.Equal(t, uint8(0x99), r.GetU8())
}

func TestReaderDeadOnShortRead(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}), TDS80)
	var perr protocolErr
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				perr = rec.(protocolErr)
			}
		}()
		r.GetU32() // only 2 bytes available, needs 4
	}()
	require.True(t, perr.dead)
	assert.ErrorIs(t, perr.err, ErrDead)
}
