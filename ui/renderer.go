// Package ui renders run progress. A Renderer polls an engine.Progress on
// its own goroutine and hands snapshots to a Sink, so workers only ever pay
// for an atomic increment.
package ui

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/franksops/pixmirror/engine"
)

// DefaultRefreshInterval is how often a Renderer polls its Progress.
const DefaultRefreshInterval = 100 * time.Millisecond

// Sink displays progress snapshots. Writes are diagnostics that must not be
// garbled by the progress display.
type Sink interface {
	io.Writer
	Render(engine.ProgressSnapshot)
	// Finish renders the final snapshot and releases the display.
	Finish(engine.ProgressSnapshot)
}

// NopSink drops progress and passes diagnostics to W.
type NopSink struct {
	W io.Writer
}

func (NopSink) Render(engine.ProgressSnapshot) {}
func (NopSink) Finish(engine.ProgressSnapshot) {}

func (n NopSink) Write(p []byte) (int, error) {
	if n.W == nil {
		return len(p), nil
	}
	return n.W.Write(p)
}

// NewSink picks a TUISink when f is a terminal and a TextSink otherwise.
func NewSink(f *os.File) Sink {
	if f == nil {
		return NopSink{}
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return NewTUISink(f)
	}
	return NewTextSink(f, DefaultTextInterval)
}

// Renderer periodically forwards Progress snapshots to a Sink.
type Renderer struct {
	progress *engine.Progress
	sink     Sink
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewRenderer creates a Renderer. A non-positive interval selects
// DefaultRefreshInterval.
func NewRenderer(p *engine.Progress, sink Sink, interval time.Duration) *Renderer {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Renderer{
		progress: p,
		sink:     sink,
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins polling.
func (r *Renderer) Start() {
	r.startOnce.Do(func() {
		go func() {
			defer close(r.done)
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()
			for {
				select {
				case <-r.quit:
					return
				case <-ticker.C:
					r.sink.Render(r.progress.Snapshot())
				}
			}
		}()
	})
}

// Stop ends polling and renders the final snapshot.
func (r *Renderer) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
		r.startOnce.Do(func() { close(r.done) })
		<-r.done
		r.sink.Finish(r.progress.Snapshot())
	})
}
