package loader

import (
	"github.com/jpfielding/jxl.go/pkg/compress/jxl"
)

// Engine is the incremental decoder driven by the load loops.
// *jxl.Decoder implements it; tests substitute scripted engines.
type Engine interface {
	SubscribeEvents(events jxl.Event) error
	SetParallelRunner(r jxl.ParallelRunner) error
	SetInput(p []byte) error
	// CloseInput announces that no further input follows
	CloseInput()
	ProcessInput() jxl.Status
	BasicInfo() (jxl.BasicInfo, error)
	ImageOutBufferSize(format jxl.PixelFormat) (int, error)
	SetImageOutBuffer(format jxl.PixelFormat, buf []byte) error
	// ReleaseInput returns the number of unconsumed bytes
	ReleaseInput() int
	// Err returns the cause of the last jxl.StatusError, if known
	Err() error
	Close()
}

// Runner is a resizable parallel runner handed to the engine
type Runner interface {
	jxl.ParallelRunner
	SetThreads(n int)
	Close()
}

// EngineFactory creates one engine per load call
type EngineFactory func() (Engine, error)

// RunnerFactory creates one runner per image load call
type RunnerFactory func() (Runner, error)

// Allocator provides the pixel buffer of an image load. Free is called
// exactly once for every buffer returned by Alloc.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(buf []byte)
}

func newJXLEngine() (Engine, error) {
	d, err := jxl.NewDecoder()
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newJXLRunner() (Runner, error) {
	return jxl.NewResizableRunner(), nil
}

type heapAllocator struct{}

func (heapAllocator) Alloc(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func (heapAllocator) Free([]byte) {}
