// Package loader drives an incremental JPEG XL engine from a byte source
// and delivers the first frame row by row to a bitmap sink, or just the
// header fields to a metadata sink.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jpfielding/jxl.go/pkg/compress/jxl"
	"github.com/jpfielding/jxl.go/pkg/logging"
	"github.com/jpfielding/jxl.go/pkg/util"
)

// LoadImage decodes the first frame of the JPEG XL stream in src and hands
// it to sink as BGRA rows (ModeNormal) or reduced 8-bit rows
// (ModeGrayscale). Nothing reaches the sink unless decoding succeeded.
func LoadImage(ctx context.Context, src io.Reader, sink Sink, mode LoadMode, opts ...Option) error {
	if mode != ModeNormal && mode != ModeGrayscale {
		return fmt.Errorf("%w: unsupported load mode %v", ErrDecode, mode)
	}
	cfg := newConfig(opts)
	ctx = logging.AppendCtx(ctx, slog.String("decode_id", util.CorrelationID()))

	ld := &imageLoad{cfg: cfg}
	defer ld.release()

	if err := ld.decode(ctx, src); err != nil {
		cfg.log.DebugContext(ctx, "jxl load failed", "error", err)
		return err
	}
	convert(ld.buf, ld.width, ld.height, cfg.order)
	ld.emit(sink, mode)
	return nil
}

// imageLoad is the state of one LoadImage call
type imageLoad struct {
	cfg    *config
	engine Engine
	runner Runner
	buf    []byte

	width, height, stride int
}

// release is the single cleanup path: buffer, then runner, then engine
func (ld *imageLoad) release() {
	if ld.buf != nil {
		ld.cfg.alloc.Free(ld.buf)
		ld.buf = nil
	}
	if ld.runner != nil {
		ld.runner.Close()
		ld.runner = nil
	}
	if ld.engine != nil {
		ld.engine.CloseInput()
		ld.engine.Close()
		ld.engine = nil
	}
}

func (ld *imageLoad) decode(ctx context.Context, src io.Reader) error {
	runner, err := ld.cfg.newRunner()
	if err != nil {
		return fmt.Errorf("%w: create parallel runner: %w", ErrEngineInit, err)
	}
	ld.runner = runner

	eng, err := ld.cfg.newEngine()
	if err != nil {
		return fmt.Errorf("%w: create decoder: %w", ErrEngineInit, err)
	}
	ld.engine = eng

	if err := eng.SubscribeEvents(jxl.EventBasicInfo | jxl.EventFullImage); err != nil {
		return fmt.Errorf("%w: subscribe events: %w", ErrEngineInit, err)
	}
	if err := eng.SetParallelRunner(runner); err != nil {
		return fmt.Errorf("%w: set parallel runner: %w", ErrEngineInit, err)
	}

	feed := newFeeder(src, eng, ld.cfg.chunkSize)
	if err := feed.first(); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		switch status := eng.ProcessInput(); status {
		case jxl.StatusError:
			return decodeError(eng)

		case jxl.StatusNeedMoreInput:
			if err := feed.more(); err != nil {
				return err
			}

		case jxl.StatusBasicInfo:
			info, err := eng.BasicInfo()
			if err != nil {
				return fmt.Errorf("%w: get basic info: %w", ErrDecode, err)
			}
			ld.width, ld.height = int(info.Width), int(info.Height)
			ld.stride = ld.width * 4
			threads := jxl.SuggestThreads(uint64(info.Width), uint64(info.Height))
			runner.SetThreads(threads)
			ld.cfg.log.DebugContext(ctx, "jxl basic info",
				"width", ld.width, "height", ld.height,
				"alpha_bits", info.AlphaBits, "animation", info.HaveAnimation,
				"threads", threads)

		case jxl.StatusNeedImageOutBuffer:
			if err := ld.allocate(); err != nil {
				return err
			}

		case jxl.StatusFullImage, jxl.StatusSuccess:
			// first frame only, further frames are never requested
			if ld.buf == nil {
				return fmt.Errorf("%w: decoder finished without an image", ErrDecode)
			}
			ld.cfg.log.DebugContext(ctx, "jxl image decoded",
				"status", status.String(), "bytes_read", feed.bytesRead())
			return nil

		default:
			return fmt.Errorf("%w: %v", ErrUnknownStatus, status)
		}
	}
}

// allocate negotiates and installs the output buffer
func (ld *imageLoad) allocate() error {
	size, err := ld.engine.ImageOutBufferSize(jxl.RGBA8)
	if err != nil {
		return fmt.Errorf("%w: query output buffer size: %w", ErrDecode, err)
	}
	if want := ld.width * ld.height * 4; size != want {
		return fmt.Errorf("%w: engine wants %d bytes, %dx%d needs %d", ErrSizeMismatch, size, ld.width, ld.height, want)
	}
	if size > ld.cfg.maxPixelBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrAllocation, size, ld.cfg.maxPixelBytes)
	}
	if ld.buf != nil {
		ld.cfg.alloc.Free(ld.buf)
		ld.buf = nil
	}
	buf, err := ld.cfg.alloc.Alloc(size)
	if err != nil {
		return fmt.Errorf("%w: unable to allocate bitmap data: %w", ErrAllocation, err)
	}
	ld.buf = buf
	clear(buf)
	if err := ld.engine.SetImageOutBuffer(jxl.RGBA8, buf); err != nil {
		return fmt.Errorf("%w: set output buffer: %w", ErrDecode, err)
	}
	return nil
}

// emit declares the size and copies rows until done or the sink stops
func (ld *imageLoad) emit(sink Sink, mode LoadMode) {
	sink.SetSize(ld.width, ld.height)
	for y := 0; y < ld.height; y++ {
		line := sink.Scanline(y)
		if line == nil {
			return
		}
		row := ld.buf[y*ld.stride : (y+1)*ld.stride]
		if mode == ModeNormal {
			copy(line, row)
		} else {
			ld.cfg.reduce(line, row)
		}
		sink.EndScanline()
	}
}
