package jxl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bitWriter packs fields least significant bit first, mirroring bitReader
type bitWriter struct {
	buf []byte
	n   int
}

func (w *bitWriter) write(v uint32, n int) {
	for i := 0; i < n; i++ {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if (v>>i)&1 == 1 {
			w.buf[len(w.buf)-1] |= 1 << (w.n % 8)
		}
		w.n++
	}
}

func (w *bitWriter) flag(b bool) {
	if b {
		w.write(1, 1)
	} else {
		w.write(0, 1)
	}
}

// u32 writes selector sel followed by v in n bits
func (w *bitWriter) u32(sel uint32, v uint32, n int) {
	w.write(sel, 2)
	w.write(v, n)
}

func (w *bitWriter) codestream() []byte {
	return append([]byte{0xFF, 0x0A}, w.buf...)
}

func TestBitReader_ReadBits(t *testing.T) {
	br := newBitReader([]byte{0xA5, 0x0F}) // 1010 0101, 0000 1111
	v, err := br.readBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x5), v)

	v, err = br.readBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFA), v)

	_, err = br.readBits(5)
	assert.ErrorIs(t, err, errShortInput)
}

func TestBitReader_ReadU32(t *testing.T) {
	var w bitWriter
	w.u32(0, 0, 0)    // Val(8)
	w.u32(3, 5, 6)    // BitsOffset(6, 1) -> 6
	w.u32(2, 300, 13) // BitsOffset(13, 1) -> 301
	br := newBitReader(w.buf)

	v, err := br.readU32(val(8), val(10), val(12), bitsOffset(6, 1))
	require.NoError(t, err)
	assert.Equal(t, uint32(8), v)

	v, err = br.readU32(val(8), val(10), val(12), bitsOffset(6, 1))
	require.NoError(t, err)
	assert.Equal(t, uint32(6), v)

	v, err = br.readU32(bitsOffset(9, 1), bitsOffset(13, 1), bitsOffset(13, 1), bitsOffset(30, 1))
	require.NoError(t, err)
	assert.Equal(t, uint32(301), v)
}

func TestParseBasicInfo_AllDefault(t *testing.T) {
	var w bitWriter
	w.flag(true)   // div8
	w.write(0, 5)  // ysize_div8 - 1
	w.write(1, 3)  // ratio 1:1
	w.flag(true)   // all_default
	cs := w.codestream()
	assert.Equal(t, []byte{0xFF, 0x0A, 0x41, 0x02}, cs)

	info, err := parseBasicInfo(cs)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), info.Width)
	assert.Equal(t, uint32(8), info.Height)
	assert.Equal(t, uint32(8), info.BitsPerSample)
	assert.Equal(t, uint32(1), info.Orientation)
	assert.False(t, info.HasAlpha())
	assert.False(t, info.HaveAnimation)
}

func TestParseBasicInfo_Ratio(t *testing.T) {
	var w bitWriter
	w.flag(false)     // div8
	w.u32(0, 89, 9)   // ysize 90
	w.write(5, 3)     // 16:9
	w.flag(true)      // all_default

	info, err := parseBasicInfo(w.codestream())
	require.NoError(t, err)
	assert.Equal(t, uint32(160), info.Width)
	assert.Equal(t, uint32(90), info.Height)
}

func alphaAnimationHeader() []byte {
	var w bitWriter
	w.flag(false)   // div8
	w.u32(0, 49, 9) // ysize 50
	w.write(0, 3)   // explicit xsize
	w.u32(0, 99, 9) // xsize 100
	w.flag(false)   // all_default
	w.flag(true)    // extra_fields
	w.write(0, 3)   // orientation 1
	w.flag(false)   // intrinsic size
	w.flag(false)   // preview
	w.flag(true)    // animation
	w.u32(1, 0, 0)  // tps numerator 1000
	w.u32(0, 0, 0)  // tps denominator 1
	w.u32(1, 3, 3)  // loops 3
	w.flag(false)   // timecodes
	w.flag(false)   // float sample
	w.u32(0, 0, 0)  // 8 bits
	w.flag(true)    // modular_16_bit_buffers
	w.u32(1, 0, 0)  // one extra channel
	w.flag(true)    // default alpha
	return w.codestream()
}

func TestParseBasicInfo_AlphaAnimation(t *testing.T) {
	info, err := parseBasicInfo(alphaAnimationHeader())
	require.NoError(t, err)
	assert.Equal(t, uint32(100), info.Width)
	assert.Equal(t, uint32(50), info.Height)
	assert.True(t, info.HaveAnimation)
	assert.Equal(t, uint32(1000), info.AnimTPSNumerator)
	assert.Equal(t, uint32(1), info.AnimTPSDenominator)
	assert.Equal(t, uint32(3), info.AnimNumLoops)
	assert.Equal(t, uint32(1), info.NumExtraChannels)
	assert.Equal(t, uint32(8), info.AlphaBits)
	assert.True(t, info.HasAlpha())
}

func TestParseBasicInfo_OrientationTransposes(t *testing.T) {
	var w bitWriter
	w.flag(false)   // div8
	w.u32(0, 19, 9) // ysize 20
	w.write(0, 3)
	w.u32(0, 39, 9) // xsize 40
	w.flag(false)   // all_default
	w.flag(true)    // extra_fields
	w.write(5, 3)   // orientation 6
	w.flag(false)
	w.flag(false)
	w.flag(false)
	w.flag(false)  // float sample
	w.u32(1, 0, 0) // 10 bits
	w.flag(false)
	w.u32(0, 0, 0) // no extra channels

	info, err := parseBasicInfo(w.codestream())
	require.NoError(t, err)
	assert.Equal(t, uint32(6), info.Orientation)
	assert.Equal(t, uint32(20), info.Width)
	assert.Equal(t, uint32(40), info.Height)
	assert.Equal(t, uint32(10), info.BitsPerSample)
	assert.False(t, info.HasAlpha())
}

func TestParseBasicInfo_NamedAlphaChannel(t *testing.T) {
	var w bitWriter
	w.flag(true)
	w.write(1, 5) // 16 rows
	w.write(1, 3)
	w.flag(false) // all_default
	w.flag(false) // extra_fields
	w.flag(false)
	w.u32(0, 0, 0) // 8 bits
	w.flag(false)
	w.u32(1, 0, 0)  // one extra channel
	w.flag(false)   // not default
	w.u32(0, 0, 0)  // type alpha
	w.flag(false)   // integer
	w.u32(3, 15, 6) // 16 bits
	w.u32(0, 0, 0)  // dim_shift
	w.u32(1, 2, 4)  // name length 2
	w.write('a', 8)
	w.write('b', 8)
	w.flag(true) // premultiplied

	info, err := parseBasicInfo(w.codestream())
	require.NoError(t, err)
	assert.Equal(t, uint32(16), info.Width)
	assert.Equal(t, uint32(16), info.AlphaBits)
	assert.True(t, info.AlphaPremultiplied)
}

func TestParseBasicInfo_Truncated(t *testing.T) {
	full := alphaAnimationHeader()
	for i := 0; i < len(full); i++ {
		_, err := parseBasicInfo(full[:i])
		assert.ErrorIs(t, err, errShortInput, "prefix of %d bytes", i)
	}
	_, err := parseBasicInfo(full)
	assert.NoError(t, err)
}

func TestParseBasicInfo_InvalidSignature(t *testing.T) {
	_, err := parseBasicInfo([]byte{0xFF, 0xD8, 0x00})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = parseBasicInfo([]byte{0x89})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
