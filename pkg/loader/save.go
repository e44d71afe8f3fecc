package loader

import (
	"image"
	"io"
)

// AcceptSave reports whether images can be saved as type typ. JPEG XL
// encoding is not supported, so it always reports false.
func AcceptSave(typ string) bool {
	return false
}

// Save always fails with ErrSaveNotImplemented
func Save(dst io.Writer, typ string, img image.Image) error {
	return ErrSaveNotImplemented
}
