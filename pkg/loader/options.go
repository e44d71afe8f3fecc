package loader

import (
	"log/slog"

	"github.com/jpfielding/jxl.go/pkg/source"
)

// DefaultMaxPixelBytes caps the pixel buffer of a single image (1 GiB)
const DefaultMaxPixelBytes = 1 << 30

type config struct {
	chunkSize     int
	maxPixelBytes int
	alloc         Allocator
	newEngine     EngineFactory
	newRunner     RunnerFactory
	reduce        Reducer
	order         RowOrder
	log           *slog.Logger
}

// Option configures LoadImage and LoadHeader
type Option func(c *config)

func newConfig(opts []Option) *config {
	c := &config{
		chunkSize:     source.DefaultChunkSize,
		maxPixelBytes: DefaultMaxPixelBytes,
		alloc:         heapAllocator{},
		newEngine:     newJXLEngine,
		newRunner:     newJXLRunner,
		reduce:        Luminance,
		order:         BottomUp,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// WithChunkSize sets how many bytes are requested from the source at once
func WithChunkSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithMaxPixelBytes rejects images whose pixel buffer would exceed n bytes
func WithMaxPixelBytes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPixelBytes = n
		}
	}
}

// WithAllocator replaces the heap allocator for the pixel buffer
func WithAllocator(a Allocator) Option {
	return func(c *config) {
		if a != nil {
			c.alloc = a
		}
	}
}

// WithEngineFactory replaces the JPEG XL engine
func WithEngineFactory(f EngineFactory) Option {
	return func(c *config) {
		if f != nil {
			c.newEngine = f
		}
	}
}

// WithRunnerFactory replaces the parallel runner
func WithRunnerFactory(f RunnerFactory) Option {
	return func(c *config) {
		if f != nil {
			c.newRunner = f
		}
	}
}

// WithReducer sets the 32-bit to 8-bit conversion used by ModeGrayscale
func WithReducer(r Reducer) Option {
	return func(c *config) {
		if r != nil {
			c.reduce = r
		}
	}
}

// WithRowOrder selects the order rows are handed to the sink
func WithRowOrder(o RowOrder) Option {
	return func(c *config) {
		c.order = o
	}
}

// WithLogger sets the logger, slog.Default() otherwise
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}
