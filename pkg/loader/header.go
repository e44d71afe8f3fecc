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

// Header is the metadata record produced by LoadHeader
type Header struct {
	Width        int  `json:"width"`
	Height       int  `json:"height"`
	BPP          int  `json:"bpp"`
	HasAlpha     bool `json:"has_alpha"`
	HasAnimation bool `json:"has_animation"`

	Info jxl.BasicInfo `json:"-"`
}

// Field is one entry of an ordered metadata record
type Field struct {
	Key   string
	Value int
}

func newHeader(info jxl.BasicInfo) *Header {
	bpp := 24
	if info.AlphaBits != 0 {
		bpp = 32
	}
	return &Header{
		Width:        int(info.Width),
		Height:       int(info.Height),
		BPP:          bpp,
		HasAlpha:     info.AlphaBits != 0,
		HasAnimation: info.HaveAnimation,
		Info:         info,
	}
}

// Record returns the header as ordered key/value pairs with the flags
// encoded as 0 or 1.
func (h *Header) Record() []Field {
	return []Field{
		{"width", h.Width},
		{"height", h.Height},
		{"bpp", h.BPP},
		{"has_alpha", boolInt(h.HasAlpha)},
		{"has_animation", boolInt(h.HasAnimation)},
	}
}

// Push writes Record to m in order
func (h *Header) Push(m MetaSink) {
	for _, f := range h.Record() {
		m.SetMeta(f.Key, f.Value)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// LoadHeader reads just enough of src to report the image header. No pixel
// buffer is allocated and no record is returned on failure.
func LoadHeader(ctx context.Context, src io.Reader, opts ...Option) (*Header, error) {
	cfg := newConfig(opts)
	ctx = logging.AppendCtx(ctx, slog.String("decode_id", util.CorrelationID()))

	eng, err := cfg.newEngine()
	if err != nil {
		return nil, fmt.Errorf("%w: create decoder: %w", ErrEngineInit, err)
	}
	defer func() {
		eng.CloseInput()
		eng.Close()
	}()

	info, err := readBasicInfo(ctx, eng, newFeeder(src, eng, cfg.chunkSize))
	if err != nil {
		cfg.log.DebugContext(ctx, "jxl header failed", "error", err)
		return nil, err
	}
	h := newHeader(info)
	cfg.log.DebugContext(ctx, "jxl header", "width", h.Width, "height", h.Height, "bpp", h.BPP)
	return h, nil
}

// readBasicInfo runs the engine until basic info or success
func readBasicInfo(ctx context.Context, eng Engine, feed *feeder) (jxl.BasicInfo, error) {
	if err := eng.SubscribeEvents(jxl.EventBasicInfo); err != nil {
		return jxl.BasicInfo{}, fmt.Errorf("%w: subscribe events: %w", ErrEngineInit, err)
	}
	if err := feed.first(); err != nil {
		return jxl.BasicInfo{}, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return jxl.BasicInfo{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		switch status := eng.ProcessInput(); status {
		case jxl.StatusError:
			return jxl.BasicInfo{}, decodeError(eng)

		case jxl.StatusNeedMoreInput:
			if err := feed.more(); err != nil {
				return jxl.BasicInfo{}, err
			}

		case jxl.StatusBasicInfo, jxl.StatusSuccess:
			info, err := eng.BasicInfo()
			if err != nil {
				return jxl.BasicInfo{}, fmt.Errorf("%w: get basic info: %w", ErrDecode, err)
			}
			return info, nil

		default:
			return jxl.BasicInfo{}, fmt.Errorf("%w: %v", ErrUnknownStatus, status)
		}
	}
}
