package loader

import (
	"fmt"
	"testing"

	"github.com/jpfielding/jxl.go/pkg/compress/jxl"
	"github.com/stretchr/testify/assert"
)

// tracker counts resource lifecycles and records the order of releases
type tracker struct {
	events        []string
	engines       int
	enginesClosed int
	runners       int
	runnersClosed int
	allocs        int
	frees         int
	failAlloc     error
	failRunner    error
	failEngine    error
}

func (tr *tracker) options(eng Engine) []Option {
	return []Option{
		WithEngineFactory(func() (Engine, error) {
			if tr.failEngine != nil {
				return nil, tr.failEngine
			}
			tr.engines++
			return &trackedEngine{Engine: eng, tr: tr}, nil
		}),
		WithRunnerFactory(func() (Runner, error) {
			if tr.failRunner != nil {
				return nil, tr.failRunner
			}
			tr.runners++
			return &fakeRunner{tr: tr}, nil
		}),
		WithAllocator(trackedAllocator{tr}),
	}
}

func (tr *tracker) assertBalanced(t *testing.T) {
	t.Helper()
	assert.Equal(t, tr.engines, tr.enginesClosed, "engines leaked")
	assert.Equal(t, tr.runners, tr.runnersClosed, "runners leaked")
	assert.Equal(t, tr.allocs, tr.frees, "pixel buffers leaked")
}

type trackedEngine struct {
	Engine
	tr *tracker
}

func (e *trackedEngine) Close() {
	e.tr.enginesClosed++
	e.tr.events = append(e.tr.events, "engine.close")
	e.Engine.Close()
}

type fakeRunner struct {
	tr      *tracker
	threads int
}

func (r *fakeRunner) Run(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

func (r *fakeRunner) SetThreads(n int) { r.threads = n }

func (r *fakeRunner) Close() {
	r.tr.runnersClosed++
	r.tr.events = append(r.tr.events, "runner.close")
}

type trackedAllocator struct {
	tr *tracker
}

func (a trackedAllocator) Alloc(n int) ([]byte, error) {
	if a.tr.failAlloc != nil {
		return nil, a.tr.failAlloc
	}
	a.tr.allocs++
	return make([]byte, n), nil
}

func (a trackedAllocator) Free([]byte) {
	a.tr.frees++
	a.tr.events = append(a.tr.events, "buffer.free")
}

// scriptedEngine replays a fixed sequence of statuses
type scriptedEngine struct {
	script    []jxl.Status
	info      jxl.BasicInfo
	outSize   int // 0 means width*height*4
	fill      func(buf []byte)
	cause     error
	subErr    error
	events    jxl.Event
	out       []byte
	inputs    int
	inputSet  bool
	inputDone bool
	closed    bool
}

func (e *scriptedEngine) SubscribeEvents(events jxl.Event) error {
	if e.subErr != nil {
		return e.subErr
	}
	e.events = events
	return nil
}

func (e *scriptedEngine) SetParallelRunner(jxl.ParallelRunner) error { return nil }

func (e *scriptedEngine) SetInput(p []byte) error {
	if e.inputSet {
		return jxl.ErrInputAlreadySet
	}
	e.inputSet = true
	e.inputs++
	return nil
}

func (e *scriptedEngine) CloseInput() { e.inputDone = true }

func (e *scriptedEngine) ReleaseInput() int {
	e.inputSet = false
	return 0
}

func (e *scriptedEngine) ProcessInput() jxl.Status {
	if len(e.script) == 0 {
		return jxl.StatusError
	}
	st := e.script[0]
	e.script = e.script[1:]
	if st == jxl.StatusFullImage && e.fill != nil && e.out != nil {
		e.fill(e.out)
	}
	return st
}

func (e *scriptedEngine) BasicInfo() (jxl.BasicInfo, error) { return e.info, nil }

func (e *scriptedEngine) ImageOutBufferSize(jxl.PixelFormat) (int, error) {
	if e.outSize != 0 {
		return e.outSize, nil
	}
	return int(e.info.Width * e.info.Height * 4), nil
}

func (e *scriptedEngine) SetImageOutBuffer(_ jxl.PixelFormat, buf []byte) error {
	e.out = buf
	return nil
}

func (e *scriptedEngine) Err() error { return e.cause }

func (e *scriptedEngine) Close() { e.closed = true }

// recordingSink logs every call and keeps a copy of each completed row
type recordingSink struct {
	calls  []string
	rows   [][]byte
	stopAt int
	bpp    int
	width  int
	cur    []byte
}

func newRecordingSink(bpp int) *recordingSink {
	return &recordingSink{stopAt: -1, bpp: bpp}
}

func (s *recordingSink) SetSize(width, height int) {
	s.calls = append(s.calls, fmt.Sprintf("size %dx%d", width, height))
	s.width = width
}

func (s *recordingSink) Scanline(y int) []byte {
	s.calls = append(s.calls, fmt.Sprintf("line %d", y))
	if y == s.stopAt {
		return nil
	}
	s.cur = make([]byte, s.width*s.bpp)
	return s.cur
}

func (s *recordingSink) EndScanline() {
	s.calls = append(s.calls, "end")
	s.rows = append(s.rows, s.cur)
}

// pixel is the RGBA value the scripted engine writes at (x, y)
func pixel(x, y int) [4]byte {
	return [4]byte{byte(10*y + x), byte(100 + x), byte(200 + y), byte(50 + x + y)}
}

func fillPixels(width int) func(buf []byte) {
	return func(buf []byte) {
		for i := 0; i < len(buf)/4; i++ {
			p := pixel(i%width, i/width)
			copy(buf[i*4:], p[:])
		}
	}
}

func fullImageScript() []jxl.Status {
	return []jxl.Status{jxl.StatusBasicInfo, jxl.StatusNeedImageOutBuffer, jxl.StatusFullImage}
}
