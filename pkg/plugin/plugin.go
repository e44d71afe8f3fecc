// Package plugin exposes the JPEG XL loader through an extension keyed
// handler table with link/unlink lifecycle bookkeeping.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jpfielding/jxl.go/pkg/loader"
)

// Extension is the file extension served by JXLHandler
const Extension = ".jxl"

var (
	// ErrInUse is returned by Unlink while loads started after Link are running
	ErrInUse = errors.New("handler in use")
	// ErrNoHandler is returned when no handler matches a name
	ErrNoHandler = errors.New("no handler registered")
)

// Handler is the set of entry points a host calls for one image type
type Handler struct {
	Name       string
	Load       func(ctx context.Context, src io.Reader, sink loader.Sink, mode loader.LoadMode) error
	LoadHeader func(ctx context.Context, src io.Reader) (*loader.Header, error)
	Save       func(dst io.Writer, typ string, img image.Image) error
	AcceptSave func(typ string) bool
}

// Registry maps lower-case file extensions to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Default is the process-wide registry
var Default = NewRegistry()

func normExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Register installs h for ext, replacing any previous handler
func (r *Registry) Register(ext string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[normExt(ext)] = h
}

// Unregister removes the handler for ext
func (r *Registry) Unregister(ext string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, normExt(ext))
}

// Handler returns the handler registered for ext
func (r *Registry) Handler(ext string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[normExt(ext)]
	return h, ok
}

// Lookup finds the handler for a file name or URI by its extension
func (r *Registry) Lookup(name string) (Handler, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return Handler{}, fmt.Errorf("%w: %q has no extension", ErrNoHandler, name)
	}
	h, ok := r.Handler(ext)
	if !ok {
		return Handler{}, fmt.Errorf("%w: %s", ErrNoHandler, ext)
	}
	return h, nil
}

// Extensions lists the registered extensions in sorted order
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.handlers))
	for ext := range r.handlers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// RefCount counts loads in flight
type RefCount struct {
	n atomic.Int64
}

// Acquire adds a reference
func (c *RefCount) Acquire() { c.n.Add(1) }

// Release drops a reference
func (c *RefCount) Release() { c.n.Add(-1) }

// Count returns the current number of references
func (c *RefCount) Count() int64 { return c.n.Load() }

// Refs counts loads through handlers from JXLHandler(&Refs)
var Refs RefCount

// Linkage is the result of Link, undone by Unlink
type Linkage struct {
	reg      *Registry
	refs     *RefCount
	snapshot int64
	once     sync.Once
}

// Link registers the JPEG XL handler in reg and records the reference count
// at that moment.
func Link(reg *Registry, refs *RefCount) *Linkage {
	reg.Register(Extension, JXLHandler(refs))
	return &Linkage{reg: reg, refs: refs, snapshot: refs.Count()}
}

// Unlink unregisters the handler unless more references are held than at
// Link time.
func (l *Linkage) Unlink() error {
	if n := l.refs.Count(); n > l.snapshot {
		return fmt.Errorf("%w: %d loads running", ErrInUse, n-l.snapshot)
	}
	l.once.Do(func() { l.reg.Unregister(Extension) })
	return nil
}

// JXLHandler returns the JPEG XL entry points. Every load holds a reference
// on refs while it runs; refs may be nil.
func JXLHandler(refs *RefCount, opts ...loader.Option) Handler {
	hold := func() func() {
		if refs == nil {
			return func() {}
		}
		refs.Acquire()
		return refs.Release
	}
	return Handler{
		Name: "JPEG XL",
		Load: func(ctx context.Context, src io.Reader, sink loader.Sink, mode loader.LoadMode) error {
			defer hold()()
			return loader.LoadImage(ctx, src, sink, mode, opts...)
		},
		LoadHeader: func(ctx context.Context, src io.Reader) (*loader.Header, error) {
			defer hold()()
			return loader.LoadHeader(ctx, src, opts...)
		},
		Save:       loader.Save,
		AcceptSave: loader.AcceptSave,
	}
}
