package provenance

import (
	"fmt"
	"io"
	"sync"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100
	DefaultMaxPages = 1000
)

type Options struct {
	CommitPageSize  int
	FilePageSize    int
	HistoryPageSize int
	// MaxPages bounds every cursor walk.
	MaxPages int
	// Workers is the number of files classified at once. 1 keeps
	// enumerator order end to end.
	Workers int
	// ReportAllOverlaps lists every owned line a foreign range overlaps
	// instead of stopping at the first one.
	ReportAllOverlaps bool
}

func DefaultOptions() Options {
	return Options{
		CommitPageSize:  DefaultPageSize,
		FilePageSize:    DefaultPageSize,
		HistoryPageSize: DefaultPageSize,
		MaxPages:        DefaultMaxPages,
		Workers:         1,
	}
}

func (o Options) normalized() Options {
	o.CommitPageSize = clampPageSize(o.CommitPageSize)
	o.FilePageSize = clampPageSize(o.FilePageSize)
	o.HistoryPageSize = clampPageSize(o.HistoryPageSize)
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

func clampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	return min(size, MaxPageSize)
}

type Engine struct {
	source        Source
	opts          Options
	infoBuffer    io.Writer
	warningBuffer io.Writer
}

func NewEngine(source Source, opts Options) *Engine {
	return &Engine{
		source:        source,
		opts:          opts.normalized(),
		infoBuffer:    io.Discard,
		warningBuffer: io.Discard,
	}
}

func (e *Engine) Options() Options {
	return e.opts
}

// SetInfoBuffer sets the progress sink. Writes are serialised, so the
// same writer may be shared with other goroutines through the engine.
func (e *Engine) SetInfoBuffer(writer io.Writer) {
	e.infoBuffer = NewLockedWriter(writer)
}

func (e *Engine) SetWarningBuffer(writer io.Writer) {
	e.warningBuffer = NewLockedWriter(writer)
}

func (e *Engine) printDebug(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(e.infoBuffer, format, args...)
}

func (e *Engine) printWarn(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(e.warningBuffer, format, args...)
}

// LockedWriter serialises writes to w. Every component writing to the same
// sink must share one LockedWriter for the writes to be ordered.
type LockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLockedWriter wraps w, returning w itself when it is already locked.
func NewLockedWriter(w io.Writer) *LockedWriter {
	if l, ok := w.(*LockedWriter); ok {
		return l
	}
	return &LockedWriter{w: w}
}

func (l *LockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
