package loader

import (
	"fmt"
	"image"
)

// LoadMode selects the size of an output pixel
type LoadMode int

const (
	// ModeNormal emits 4 bytes per pixel (BGRA)
	ModeNormal LoadMode = iota
	// ModeGrayscale emits 1 byte per pixel through the Reducer
	ModeGrayscale
)

// BytesPerPixel returns 4 for ModeNormal and 1 for ModeGrayscale
func (m LoadMode) BytesPerPixel() int {
	if m == ModeNormal {
		return 4
	}
	return 1
}

func (m LoadMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeGrayscale:
		return "grayscale"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// RowOrder is the vertical order of rows handed to a Sink
type RowOrder int

const (
	// BottomUp hands the bottom image row out first, as bitmap files store it
	BottomUp RowOrder = iota
	// TopDown hands the top image row out first
	TopDown
)

// Sink receives a decoded image row by row. SetSize is called once before
// any row. Scanline returns the buffer for row y, or nil to stop the
// transfer early; EndScanline follows each filled row.
type Sink interface {
	SetSize(width, height int)
	Scanline(y int) []byte
	EndScanline()
}

// FuncSink adapts host-style callbacks to a Sink. The end of a row is
// signalled by calling ScanlineFunc with -1.
type FuncSink struct {
	SizeFunc     func(width, height int)
	ScanlineFunc func(y int) []byte
}

// SetSize implements Sink
func (f FuncSink) SetSize(width, height int) {
	if f.SizeFunc != nil {
		f.SizeFunc(width, height)
	}
}

// Scanline implements Sink
func (f FuncSink) Scanline(y int) []byte {
	return f.ScanlineFunc(y)
}

// EndScanline implements Sink
func (f FuncSink) EndScanline() {
	f.ScanlineFunc(-1)
}

// ImageSink collects rows into an *image.NRGBA (ModeNormal) or an
// *image.Gray (ModeGrayscale). Order and Mode must match the load call.
type ImageSink struct {
	Order RowOrder
	Mode  LoadMode

	nrgba  *image.NRGBA
	gray   *image.Gray
	height int
	row    []byte
}

// SetSize implements Sink
func (s *ImageSink) SetSize(width, height int) {
	r := image.Rect(0, 0, width, height)
	s.height = height
	if s.Mode == ModeNormal {
		s.nrgba = image.NewNRGBA(r)
	} else {
		s.gray = image.NewGray(r)
	}
}

// Scanline implements Sink, returning the destination row itself
func (s *ImageSink) Scanline(y int) []byte {
	if y < 0 || y >= s.height {
		return nil
	}
	if s.Order == BottomUp {
		y = s.height - 1 - y
	}
	if s.nrgba != nil {
		s.row = s.nrgba.Pix[y*s.nrgba.Stride : y*s.nrgba.Stride+s.nrgba.Rect.Dx()*4]
	} else {
		s.row = s.gray.Pix[y*s.gray.Stride : y*s.gray.Stride+s.gray.Rect.Dx()]
	}
	return s.row
}

// EndScanline implements Sink, restoring RGBA order for colour rows. This
// undoes the swap LoadImage applied to produce BGRA.
func (s *ImageSink) EndScanline() {
	if s.nrgba != nil {
		SwapRB(s.row)
	}
	s.row = nil
}

// Image returns the collected image, nil before SetSize
func (s *ImageSink) Image() image.Image {
	switch {
	case s.nrgba != nil:
		return s.nrgba
	case s.gray != nil:
		return s.gray
	}
	return nil
}

// MetaSink receives header metadata as key/value pairs
type MetaSink interface {
	SetMeta(key string, value int)
}

// MetaMap is a MetaSink backed by a map
type MetaMap map[string]int

// SetMeta implements MetaSink
func (m MetaMap) SetMeta(key string, value int) {
	m[key] = value
}
