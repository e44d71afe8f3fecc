// Package jxl implements an incremental JPEG XL decoder state machine.
// Input is pushed in chunks with SetInput and the decoder is driven by
// ProcessInput, which reports one Status per call: a subscribed event, a
// request for more input or an output buffer, success, or an error.
//
// Header metadata (size, bit depth, extra channels, animation) is parsed
// natively from the codestream or the ISOBMFF container. Pixel data of the
// first frame is decoded by libjxl running on wazero.
package jxl

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidFormat     = errors.New("invalid JPEG XL format")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrNotReady          = errors.New("basic info not yet available")
	ErrAlreadyStarted    = errors.New("decoder already started")
	ErrInputAlreadySet   = errors.New("input already set, release it first")
	ErrInputClosed       = errors.New("input already closed")
	ErrBufferTooSmall    = errors.New("output buffer too small")
	ErrClosed            = errors.New("decoder closed")

	// errShortInput means the parser ran off the end of the available bytes
	errShortInput = errors.New("short input")
)

// Signatures of the bare codestream and the container
var (
	CodestreamSignature = []byte{0xFF, 0x0A}
	ContainerSignature  = []byte{0x00, 0x00, 0x00, 0x0C, 'J', 'X', 'L', ' ', 0x0D, 0x0A, 0x87, 0x0A}
)

// Status is the result of a single ProcessInput call
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusNeedMoreInput
	StatusBasicInfo
	StatusNeedImageOutBuffer
	StatusFullImage
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusNeedMoreInput:
		return "need-more-input"
	case StatusBasicInfo:
		return "basic-info"
	case StatusNeedImageOutBuffer:
		return "need-image-out-buffer"
	case StatusFullImage:
		return "full-image"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Event is a bit set of subscribable decoder events
type Event uint32

const (
	EventBasicInfo Event = 1 << iota
	EventFullImage
)

// DataType is the sample type of an output pixel format
type DataType int

const (
	TypeUint8 DataType = iota
	TypeUint16
	TypeFloat
)

// Endianness of multi-byte samples in the output buffer
type Endianness int

const (
	NativeEndian Endianness = iota
	LittleEndian
	BigEndian
)

// PixelFormat describes the layout of the image output buffer
type PixelFormat struct {
	NumChannels int // 1 (gray), 2 (gray+alpha), 3 (RGB) or 4 (RGBA)
	DataType    DataType
	Endianness  Endianness
	Align       int // row stride alignment in bytes, 0 or 1 for none
}

// RGBA8 is interleaved 8-bit RGBA without row padding
var RGBA8 = PixelFormat{NumChannels: 4, DataType: TypeUint8, Endianness: LittleEndian, Align: 0}

func (f PixelFormat) bytesPerSample() int {
	switch f.DataType {
	case TypeUint8:
		return 1
	case TypeUint16:
		return 2
	case TypeFloat:
		return 4
	}
	return 0
}

// Stride returns the row size in bytes for an image of the given width
func (f PixelFormat) Stride(width int) int {
	stride := width * f.NumChannels * f.bytesPerSample()
	if f.Align > 1 {
		stride = (stride + f.Align - 1) / f.Align * f.Align
	}
	return stride
}

// BasicInfo holds the image header fields reported by the decoder
type BasicInfo struct {
	Width                 uint32
	Height                uint32
	BitsPerSample         uint32
	ExponentBitsPerSample uint32
	AlphaBits             uint32
	AlphaExponentBits     uint32
	AlphaPremultiplied    bool
	Orientation           uint32 // 1..8, EXIF semantics
	NumExtraChannels      uint32
	HaveContainer         bool
	HavePreview           bool
	PreviewWidth          uint32
	PreviewHeight         uint32
	IntrinsicWidth        uint32
	IntrinsicHeight       uint32
	HaveAnimation         bool
	AnimTPSNumerator      uint32
	AnimTPSDenominator    uint32
	AnimNumLoops          uint32
	AnimHaveTimecodes     bool
}

// HasAlpha reports whether the image carries an alpha extra channel
func (b BasicInfo) HasAlpha() bool {
	return b.AlphaBits != 0
}
