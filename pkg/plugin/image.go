package plugin

import (
	"context"
	"image"
	"image/color"
	"io"

	"github.com/jpfielding/jxl.go/pkg/loader"
)

// Decode reads the first frame of a JPEG XL stream as an *image.NRGBA. It has
// the signature expected by image.RegisterFormat.
func Decode(r io.Reader) (image.Image, error) {
	// the loader hands out BGRA rows and ImageSink swaps each one back to
	// RGBA, so every pixel is swapped twice on this path
	sink := &loader.ImageSink{Order: loader.TopDown}
	err := loader.LoadImage(context.Background(), r, sink, loader.ModeNormal, loader.WithRowOrder(loader.TopDown))
	if err != nil {
		return nil, err
	}
	return sink.Image(), nil
}

// DecodeConfig returns the dimensions of a JPEG XL stream without decoding
// pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := loader.LoadHeader(context.Background(), r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      h.Width,
		Height:     h.Height,
	}, nil
}
