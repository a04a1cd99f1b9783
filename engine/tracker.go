package engine

import (
	"io"
	"sync/atomic"
	"time"
)

// Progress counts completed tasks against a best-effort total. All methods
// are safe for concurrent use; Inc and AddBytes are single atomic adds so
// workers never wait on a renderer.
type Progress struct {
	total atomic.Int64
	done  atomic.Int64
	bytes atomic.Int64
	start time.Time
}

// NewProgress creates a Progress whose clock starts now.
func NewProgress() *Progress {
	return &Progress{start: time.Now()}
}

// SetTotal records the expected number of tasks. The walk that produces the
// tasks may disagree if the tree changes in between.
func (p *Progress) SetTotal(n int64) { p.total.Store(n) }

// Inc marks one task as finished, whatever its outcome.
func (p *Progress) Inc() { p.done.Add(1) }

// AddBytes records bytes written to the destination.
func (p *Progress) AddBytes(n int64) { p.bytes.Add(n) }

// ProgressSnapshot is a point-in-time copy of a Progress.
type ProgressSnapshot struct {
	Done    int64
	Total   int64
	Bytes   int64
	Elapsed time.Duration
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		Done:    p.done.Load(),
		Total:   p.total.Load(),
		Bytes:   p.bytes.Load(),
		Elapsed: time.Since(p.start),
	}
}

// Fraction returns Done/Total clamped to [0, 1]. It is 0 while the total is
// unknown.
func (s ProgressSnapshot) Fraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	f := float64(s.Done) / float64(s.Total)
	if f > 1 {
		return 1
	}
	return f
}

// Remaining estimates the time left from the average task duration so far.
// ok is false until at least one task has finished.
func (s ProgressSnapshot) Remaining() (d time.Duration, ok bool) {
	if s.Done <= 0 || s.Total <= 0 {
		return 0, false
	}
	left := s.Total - s.Done
	if left <= 0 {
		return 0, true
	}
	per := s.Elapsed / time.Duration(s.Done)
	return per * time.Duration(left), true
}

// TrackedWriter wraps an io.Writer and reports bytes written to a Progress.
type TrackedWriter struct {
	io.Writer
	progress *Progress
	n        int64
}

// NewTrackedWriter creates a TrackedWriter. A nil progress only counts
// locally.
func NewTrackedWriter(w io.Writer, progress *Progress) *TrackedWriter {
	return &TrackedWriter{Writer: w, progress: progress}
}

// Write implements io.Writer.
func (tw *TrackedWriter) Write(p []byte) (int, error) {
	n, err := tw.Writer.Write(p)
	if n > 0 {
		tw.n += int64(n)
		if tw.progress != nil {
			tw.progress.AddBytes(int64(n))
		}
	}
	return n, err
}

// BytesWritten returns the number of bytes written through tw.
func (tw *TrackedWriter) BytesWritten() int64 {
	return tw.n
}
