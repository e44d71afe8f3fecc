package jxl

// bitReader reads JPEG XL header fields from a byte slice.
// Bits are consumed least significant first within each byte.
type bitReader struct {
	data []byte
	pos  int // in bits
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// readBits reads n (<= 32) bits
func (b *bitReader) readBits(n int) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if b.pos+n > len(b.data)*8 {
		return 0, errShortInput
	}
	var val uint64
	for i := 0; i < n; i++ {
		p := b.pos + i
		bit := (b.data[p>>3] >> (p & 7)) & 1
		val |= uint64(bit) << i
	}
	b.pos += n
	return uint32(val), nil
}

func (b *bitReader) readBool() (bool, error) {
	v, err := b.readBits(1)
	return v == 1, err
}

// skipBits advances without decoding, failing on short input
func (b *bitReader) skipBits(n int) error {
	if b.pos+n > len(b.data)*8 {
		return errShortInput
	}
	b.pos += n
	return nil
}

// u32Dist is one of the four distributions of a U32 field:
// offset plus an optional number of raw bits
type u32Dist struct {
	bits   int
	offset uint32
}

func val(c uint32) u32Dist { return u32Dist{offset: c} }
func bits(n int) u32Dist { return u32Dist{bits: n} }
func bitsOffset(n int, o uint32) u32Dist { return u32Dist{bits: n, offset: o} }

// readU32 reads a 2-bit selector followed by the selected distribution
func (b *bitReader) readU32(d0, d1, d2, d3 u32Dist) (uint32, error) {
	sel, err := b.readBits(2)
	if err != nil {
		return 0, err
	}
	d := [4]u32Dist{d0, d1, d2, d3}[sel]
	v, err := b.readBits(d.bits)
	if err != nil {
		return 0, err
	}
	return v + d.offset, nil
}

// readEnum reads an enum-coded value
func (b *bitReader) readEnum() (uint32, error) {
	return b.readU32(val(0), val(1), bitsOffset(4, 2), bitsOffset(6, 18))
}
