package cmd

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/jpfielding/jxl.go/pkg/loader"
)

const (
	bmpFileHeaderLen = 14
	bmpInfoHeaderLen = 40
)

// bmpSink streams loader rows into a Windows bitmap. Rows arrive bottom-up
// as BGRA (32 bpp) or as 8-bit grey levels written against a grey palette.
type bmpSink struct {
	w    *bufio.Writer
	mode loader.LoadMode
	row  []byte
	pad  int
	rows int
	err  error
}

func newBMPSink(w io.Writer, mode loader.LoadMode) *bmpSink {
	return &bmpSink{w: bufio.NewWriter(w), mode: mode}
}

func (s *bmpSink) SetSize(width, height int) {
	bpp := s.mode.BytesPerPixel()
	rowLen := width * bpp
	s.pad = (4 - rowLen%4) % 4
	s.row = make([]byte, rowLen+s.pad)

	palette := 0
	if bpp == 1 {
		palette = 256 * 4
	}
	offset := bmpFileHeaderLen + bmpInfoHeaderLen + palette
	imageLen := (rowLen + s.pad) * height

	hdr := make([]byte, offset)
	le := binary.LittleEndian
	hdr[0], hdr[1] = 'B', 'M'
	le.PutUint32(hdr[2:], uint32(offset+imageLen))
	le.PutUint32(hdr[10:], uint32(offset))

	info := hdr[bmpFileHeaderLen:]
	le.PutUint32(info[0:], bmpInfoHeaderLen)
	le.PutUint32(info[4:], uint32(width))
	le.PutUint32(info[8:], uint32(height)) // positive: bottom-up
	le.PutUint16(info[12:], 1)
	le.PutUint16(info[14:], uint16(bpp*8))
	le.PutUint32(info[20:], uint32(imageLen))
	le.PutUint32(info[24:], 2835) // 72 dpi
	le.PutUint32(info[28:], 2835)
	if bpp == 1 {
		le.PutUint32(info[32:], 256)
		pal := hdr[bmpFileHeaderLen+bmpInfoHeaderLen:]
		for i := 0; i < 256; i++ {
			pal[i*4], pal[i*4+1], pal[i*4+2] = byte(i), byte(i), byte(i)
		}
	}
	_, s.err = s.w.Write(hdr)
}

func (s *bmpSink) Scanline(y int) []byte {
	if s.err != nil {
		return nil
	}
	return s.row[:len(s.row)-s.pad]
}

func (s *bmpSink) EndScanline() {
	if s.err != nil {
		return
	}
	_, s.err = s.w.Write(s.row)
	s.rows++
}

// Close flushes the bitmap and reports the first write error
func (s *bmpSink) Close() error {
	if s.err != nil {
		return s.err
	}
	return s.w.Flush()
}
