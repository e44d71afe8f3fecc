package loader

import (
	"fmt"
	"io"

	"github.com/jpfielding/jxl.go/pkg/source"
)

// feeder moves chunks from the byte source into the engine
type feeder struct {
	chunks *source.Chunker
	eng    Engine
	fed    bool
	closed bool
}

func newFeeder(src io.Reader, eng Engine, chunkSize int) *feeder {
	return &feeder{
		chunks: source.NewChunker(src, chunkSize),
		eng:    eng,
	}
}

// first provides the initial chunk; an empty source is an error
func (f *feeder) first() error {
	return f.next("no input available")
}

// more answers jxl.StatusNeedMoreInput. A source that has nothing left is
// treated as the end of the stream.
func (f *feeder) more() error {
	f.eng.ReleaseInput()
	return f.next("already provided all input")
}

func (f *feeder) next(exhausted string) error {
	chunk, last, err := f.chunks.Next()
	if err != nil {
		return fmt.Errorf("%w: read failed: %w", ErrInputExhausted, err)
	}
	if len(chunk) == 0 {
		// the end showed up only after the final data: let the engine
		// finish with what it has before giving up
		if last && f.fed && !f.closed {
			f.close()
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInputExhausted, exhausted)
	}
	if err := f.eng.SetInput(chunk); err != nil {
		return fmt.Errorf("%w: set input: %w", ErrDecode, err)
	}
	f.fed = true
	if last {
		f.close()
	}
	return nil
}

func (f *feeder) close() {
	f.closed = true
	f.eng.CloseInput()
}

func (f *feeder) bytesRead() int64 {
	return f.chunks.BytesRead()
}
