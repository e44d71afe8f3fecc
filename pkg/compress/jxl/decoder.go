package jxl

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gen2brain/jpegxl"
)

// FrameDecoder decodes the first frame of a complete JPEG XL stream
type FrameDecoder func(r io.Reader) (image.Image, error)

// DecoderOption configures a Decoder
type DecoderOption func(d *Decoder) error

// WithFrameDecoder replaces the libjxl pixel backend
func WithFrameDecoder(fd FrameDecoder) DecoderOption {
	return func(d *Decoder) error {
		if fd == nil {
			return errors.New("nil frame decoder")
		}
		d.decodeFrame = fd
		return nil
	}
}

// Decoder is a resumable JPEG XL decoder. It is not safe for concurrent use.
type Decoder struct {
	events Event
	runner ParallelRunner

	pending  []byte // set by SetInput, not yet consumed
	hasInput bool
	data     []byte // everything consumed so far
	closed   bool   // no input will follow
	started  bool

	info     BasicInfo
	infoDone bool
	infoSent bool

	out       []byte
	outFormat PixelFormat
	frameDone bool

	decodeFrame FrameDecoder
	err         error
	destroyed   bool
}

// NewDecoder creates a decoder subscribed to no events
func NewDecoder(opts ...DecoderOption) (*Decoder, error) {
	d := &Decoder{
		decodeFrame: jpegxl.Decode,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SubscribeEvents selects which events ProcessInput reports. It must be
// called before the first ProcessInput.
func (d *Decoder) SubscribeEvents(events Event) error {
	if d.started {
		return ErrAlreadyStarted
	}
	if events&^(EventBasicInfo|EventFullImage) != 0 {
		return fmt.Errorf("unknown events %#x", uint32(events))
	}
	d.events = events
	return nil
}

// SetParallelRunner sets the runner used for pixel conversion
func (d *Decoder) SetParallelRunner(r ParallelRunner) error {
	if d.started {
		return ErrAlreadyStarted
	}
	d.runner = r
	return nil
}

// SetInput provides the next chunk of the stream. The decoder copies what
// it consumes, so p may be reused after ReleaseInput.
func (d *Decoder) SetInput(p []byte) error {
	switch {
	case d.destroyed:
		return ErrClosed
	case d.closed:
		return ErrInputClosed
	case d.hasInput:
		return ErrInputAlreadySet
	}
	d.pending = p
	d.hasInput = true
	return nil
}

// ReleaseInput drops the current input and returns the number of bytes
// that were not consumed.
func (d *Decoder) ReleaseInput() int {
	n := len(d.pending)
	d.pending = nil
	d.hasInput = false
	return n
}

// CloseInput marks the end of the stream
func (d *Decoder) CloseInput() {
	d.closed = true
}

// BasicInfo returns the header fields once StatusBasicInfo was reached
func (d *Decoder) BasicInfo() (BasicInfo, error) {
	if !d.infoDone {
		return BasicInfo{}, ErrNotReady
	}
	return d.info, nil
}

// ImageOutBufferSize returns the buffer size required for format
func (d *Decoder) ImageOutBufferSize(format PixelFormat) (int, error) {
	if !d.infoDone {
		return 0, ErrNotReady
	}
	if err := checkFormat(format); err != nil {
		return 0, err
	}
	return format.Stride(int(d.info.Width)) * int(d.info.Height), nil
}

// SetImageOutBuffer sets the buffer receiving the first frame
func (d *Decoder) SetImageOutBuffer(format PixelFormat, buf []byte) error {
	size, err := d.ImageOutBufferSize(format)
	if err != nil {
		return err
	}
	if len(buf) < size {
		return fmt.Errorf("%w: %d < %d", ErrBufferTooSmall, len(buf), size)
	}
	d.out = buf
	d.outFormat = format
	return nil
}

// Err returns the cause of the last StatusError
func (d *Decoder) Err() error {
	return d.err
}

// ProcessInput advances the decoder as far as the available input allows
// and returns the next status.
func (d *Decoder) ProcessInput() Status {
	if d.destroyed {
		d.err = ErrClosed
		return StatusError
	}
	if d.err != nil {
		return StatusError
	}
	d.started = true
	if len(d.pending) > 0 {
		d.data = append(d.data, d.pending...)
		d.pending = d.pending[len(d.pending):]
	}

	if !d.infoDone {
		cs, container, err := codestream(d.data)
		if err == nil {
			d.info, err = parseBasicInfo(cs)
		}
		if errors.Is(err, errShortInput) {
			return StatusNeedMoreInput
		}
		if err != nil {
			d.err = err
			return StatusError
		}
		d.info.HaveContainer = container
		d.infoDone = true
	}

	if d.events&EventBasicInfo != 0 && !d.infoSent {
		d.infoSent = true
		return StatusBasicInfo
	}
	if d.events&EventFullImage == 0 || d.frameDone {
		return StatusSuccess
	}
	if d.out == nil {
		return StatusNeedImageOutBuffer
	}
	// the pixel backend needs the whole stream
	if !d.closed {
		return StatusNeedMoreInput
	}

	if err := d.decodeFirstFrame(); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return StatusNeedMoreInput
		}
		d.err = err
		return StatusError
	}
	d.frameDone = true
	return StatusFullImage
}

// Close releases all state. The decoder cannot be used afterwards.
func (d *Decoder) Close() {
	d.destroyed = true
	d.pending = nil
	d.data = nil
	d.out = nil
	d.runner = nil
}

func (d *Decoder) decodeFirstFrame() error {
	img, err := d.decodeFrame(bytes.NewReader(d.data))
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != int(d.info.Width) || b.Dy() != int(d.info.Height) {
		return fmt.Errorf("%w: frame is %dx%d, header says %dx%d",
			ErrInvalidFormat, b.Dx(), b.Dy(), d.info.Width, d.info.Height)
	}
	runner := d.runner
	if runner == nil {
		runner = serialRunner{}
	}
	writeRows(runner, img, d.out, d.outFormat)
	return nil
}

func checkFormat(f PixelFormat) error {
	if f.DataType != TypeUint8 {
		return fmt.Errorf("%w: only 8-bit samples are supported", ErrUnsupportedFormat)
	}
	if f.NumChannels < 1 || f.NumChannels > 4 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.NumChannels)
	}
	if f.Align < 0 {
		return fmt.Errorf("%w: negative alignment", ErrUnsupportedFormat)
	}
	return nil
}

type serialRunner struct{}

func (serialRunner) Run(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}
