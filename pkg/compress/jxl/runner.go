package jxl

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// ParallelRunner executes fn for every index in [0, n) and returns once
// all calls have completed.
type ParallelRunner interface {
	Run(n int, fn func(i int))
}

// ResizableRunner is a ParallelRunner whose worker count can be changed
// between runs, typically once the image size is known.
type ResizableRunner struct {
	threads atomic.Int32
	closed  atomic.Bool
}

// NewResizableRunner creates a runner that starts out single threaded
func NewResizableRunner() *ResizableRunner {
	r := &ResizableRunner{}
	r.threads.Store(1)
	return r
}

// SuggestThreads returns a worker count for an image: roughly one worker
// per 256x256 group, bounded by the number of CPUs.
func SuggestThreads(xsize, ysize uint64) int {
	n := xsize * ysize / (256 * 256)
	if cpus := uint64(runtime.NumCPU()); n > cpus {
		n = cpus
	}
	if n < 1 {
		n = 1
	}
	return int(n)
}

// SetThreads sets the number of workers used by subsequent runs
func (r *ResizableRunner) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	r.threads.Store(int32(n))
}

// Threads returns the current worker count
func (r *ResizableRunner) Threads() int {
	return int(r.threads.Load())
}

// Run implements ParallelRunner. Work is pulled from a shared counter so
// uneven tasks still balance across workers.
func (r *ResizableRunner) Run(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := min(r.Threads(), n)
	if workers <= 1 || r.closed.Load() {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return
				}
				fn(i)
			}
		}()
	}
	wg.Wait()
}

// Close releases the runner. Later runs execute on the calling goroutine.
func (r *ResizableRunner) Close() {
	r.closed.Store(true)
}
