package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/franksops/pixmirror/engine"
)

// DefaultTextInterval is how often TextSink prints a progress line.
const DefaultTextInterval = 5 * time.Second

// TextSink prints one progress line per interval, for output that is not a
// terminal. A failed write disables further progress lines.
type TextSink struct {
	mu       sync.Mutex
	out      io.Writer
	interval time.Duration
	last     time.Time
	broken   bool
	now      func() time.Time
}

// NewTextSink creates a TextSink writing to out at most once per interval.
func NewTextSink(out io.Writer, interval time.Duration) *TextSink {
	if interval <= 0 {
		interval = DefaultTextInterval
	}
	return &TextSink{out: out, interval: interval, now: time.Now}
}

func (s *TextSink) Render(snap engine.ProgressSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.broken || now.Sub(s.last) < s.interval {
		return
	}
	s.last = now
	s.line(snap)
}

func (s *TextSink) Finish(snap engine.ProgressSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.broken {
		s.line(snap)
	}
}

func (s *TextSink) line(snap engine.ProgressSnapshot) {
	_, err := fmt.Fprintf(s.out, "progress: %s (%.0f%%) %s eta %s\n",
		formatCount(snap.Done, snap.Total), snap.Fraction()*100, formatBytes(snap.Bytes), formatETA(snap))
	if err != nil {
		s.broken = true
	}
}

// Write passes diagnostics through unchanged.
func (s *TextSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}
