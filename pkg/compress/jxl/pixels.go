package jxl

import (
	"image"
	"image/color"
)

// writeRows converts img into buf laid out as format, one task per row.
// Samples are non-premultiplied, matching libjxl's default output.
func writeRows(runner ParallelRunner, img image.Image, buf []byte, format PixelFormat) {
	b := img.Bounds()
	width := b.Dx()
	stride := format.Stride(width)
	channels := format.NumChannels

	runner.Run(b.Dy(), func(y int) {
		row := buf[y*stride : y*stride+width*channels]
		if channels == 4 {
			if src, ok := img.(*image.NRGBA); ok {
				off := src.PixOffset(b.Min.X, b.Min.Y+y)
				copy(row, src.Pix[off:off+width*4])
				return
			}
		}
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			px := row[x*channels : (x+1)*channels]
			switch channels {
			case 4:
				px[0], px[1], px[2], px[3] = c.R, c.G, c.B, c.A
			case 3:
				px[0], px[1], px[2] = c.R, c.G, c.B
			case 2:
				px[0], px[1] = gray(c), c.A
			case 1:
				px[0] = gray(c)
			}
		}
	})
}

func gray(c color.NRGBA) uint8 {
	return color.GrayModel.Convert(color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}).(color.Gray).Y
}
