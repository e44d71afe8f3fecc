package loader

// Reducer converts a row of BGRA8 pixels (src) into one byte per pixel (dst)
type Reducer func(dst, src []byte)

// Luminance is the default Reducer: a channel-weighted grey level with
// weights summing to 256.
func Luminance(dst, src []byte) {
	n := min(len(dst), len(src)/4)
	for i := 0; i < n; i++ {
		p := src[i*4 : i*4+4]
		dst[i] = byte((uint32(p[0])*19 + uint32(p[1])*183 + uint32(p[2])*54) >> 8)
	}
}

// SwapRB exchanges bytes 0 and 2 of every 4-byte pixel, turning RGBA8 into
// BGRA8 and back.
func SwapRB(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

// FlipSwap rewrites a top-down RGBA8 buffer in place as bottom-up BGRA8:
// row j of the result is row height-1-j of the input with red and blue
// exchanged.
func FlipSwap(pix []byte, width, height int) {
	stride := width * 4
	tmp := make([]byte, stride)
	for j := 0; j < height/2; j++ {
		top := pix[j*stride : (j+1)*stride]
		bottom := pix[(height-1-j)*stride : (height-j)*stride]
		copy(tmp, top)
		copy(top, bottom)
		copy(bottom, tmp)
	}
	SwapRB(pix[:stride*height])
}

// convert applies the destination pixel layout to a decoded buffer
func convert(pix []byte, width, height int, order RowOrder) {
	if order == TopDown {
		SwapRB(pix[:width*height*4])
		return
	}
	FlipSwap(pix, width, height)
}
