package actigraph

import "io"

// bitReader pulls big-endian bit fields off a byte stream. The 12-bit
// activity encodings pack three values per 36 bits, so fields routinely
// straddle byte boundaries.
type bitReader struct {
	r     io.ByteReader
	buf   uint32
	nbits uint
}

func newBitReader(r io.ByteReader) *bitReader {
	return &bitReader{r: r}
}

// take12 returns the next 12 bits, MSB first.
func (b *bitReader) take12() (uint16, error) {
	for b.nbits < 12 {
		c, err := b.r.ReadByte()
		if err != nil {
			return 0, err
		}
		b.buf = b.buf<<8 | uint32(c)
		b.nbits += 8
	}
	b.nbits -= 12
	v := uint16(b.buf >> b.nbits & 0x0FFF)
	return v, nil
}
