// Package source adapts an io.Reader into the fixed-size chunks consumed by
// the incremental decoders, detecting end of data one chunk early so the
// decoder can be told no more input will follow.
package source

import (
	"bufio"
	"errors"
	"io"
)

// DefaultChunkSize matches the decode input buffer of 64 KiB
const DefaultChunkSize = 1 << 16

// maxEmptyReads bounds consecutive (0, nil) reads before giving up
const maxEmptyReads = 100

// Chunker pulls chunks of at most size bytes from a reader. The returned
// chunk aliases an internal buffer that is overwritten by the next call.
// Only a full chunk is followed by a one byte lookahead, so a slow stream
// is never held back waiting for data beyond what was read. When the end
// cannot be seen early, Next returns an empty chunk with last set.
type Chunker struct {
	r    *bufio.Reader
	buf  []byte
	done bool
	read int64
}

// NewChunker wraps r. A size <= 0 selects DefaultChunkSize.
func NewChunker(r io.Reader, size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{
		r:   bufio.NewReaderSize(r, size),
		buf: make([]byte, size),
	}
}

// Next returns the next chunk. An empty chunk means the source is
// exhausted. last is true when the chunk is known to be the final one.
func (c *Chunker) Next() (chunk []byte, last bool, err error) {
	if c.done {
		return nil, true, nil
	}

	var n int
	for empty := 0; ; empty++ {
		n, err = c.r.Read(c.buf)
		if n > 0 || err != nil {
			break
		}
		if empty >= maxEmptyReads {
			return nil, false, io.ErrNoProgress
		}
	}
	c.read += int64(n)
	if errors.Is(err, io.EOF) {
		c.done = true
		return c.buf[:n], true, nil
	}
	if err != nil {
		return nil, false, err
	}

	// a short read hands over what arrived without waiting for more; the
	// end is then reported by the following call
	if n < len(c.buf) {
		return c.buf[:n], false, nil
	}
	// look ahead so the caller learns about EOF with the final chunk
	if _, perr := c.r.Peek(1); errors.Is(perr, io.EOF) {
		c.done = true
		return c.buf[:n], true, nil
	}
	return c.buf[:n], false, nil
}

// BytesRead returns the total number of bytes handed out so far
func (c *Chunker) BytesRead() int64 {
	return c.read
}
