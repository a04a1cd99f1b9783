package engine

import (
	"bufio"
	"context"
	"log"
	"time"

	"github.com/franksops/pixmirror/codec"
	"github.com/franksops/pixmirror/provider"
)

// Outcome describes what materializing a Task produced.
type Outcome int

const (
	// OutcomeIgnored is returned for entries that are neither files nor
	// directory-like.
	OutcomeIgnored Outcome = iota
	OutcomeDirectory
	OutcomeImage
	OutcomeCopied
	// OutcomeSkipped is returned when the source could not be opened.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDirectory:
		return "directory"
	case OutcomeImage:
		return "image"
	case OutcomeCopied:
		return "copied"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "ignored"
	}
}

// Materializer produces the destination artifact for a Task: a directory,
// a re-encoded image, or a byte-for-byte copy.
type Materializer struct {
	Provider provider.Provider
	Buffers  *CopyPool

	// Progress, when set, receives the number of bytes written.
	Progress *Progress

	// PreserveTimes carries the source access and modification times over
	// to written files. Failing to do so is fatal.
	PreserveTimes bool

	// Verify reads every copied file back and compares its CRC64 with the
	// source stream. A mismatch is a CopyError wrapping ErrChecksumMismatch.
	Verify bool

	// Logger receives skipped entries. Nil discards them.
	Logger *log.Logger
}

// NewMaterializer creates a Materializer writing through p.
func NewMaterializer(p provider.Provider) *Materializer {
	return &Materializer{
		Provider: p,
		Buffers:  NewCopyPool(DefaultBufferSize),
	}
}

// Materialize produces the destination artifact for task. A source file that
// cannot be opened is logged and reported as OutcomeSkipped with a nil
// error. Any returned error is fatal for the run.
func (m *Materializer) Materialize(ctx context.Context, task Task) (Outcome, error) {
	switch {
	case task.Kind.DirectoryLike():
		if err := m.Provider.MkdirAll(ctx, task.DestinationPath); err != nil {
			return OutcomeDirectory, &DirectoryCreateError{Path: task.DestinationPath, Err: err}
		}
		return OutcomeDirectory, nil
	case task.Kind == KindFile:
		return m.materializeFile(ctx, task)
	default:
		return OutcomeIgnored, nil
	}
}

func (m *Materializer) materializeFile(ctx context.Context, task Task) (Outcome, error) {
	src, err := m.Provider.OpenRead(ctx, task.SourcePath)
	if err != nil {
		m.logf("skipping %s: %v", task.SourcePath, err)
		return OutcomeSkipped, nil
	}
	res := codec.Probe(task.SourcePath, bufio.NewReader(src))
	src.Close()

	outcome := OutcomeCopied
	if res.Outcome == codec.Decoded {
		outcome = OutcomeImage
		err = m.writeImage(ctx, task, res)
	} else {
		err = m.copyFile(ctx, task)
	}
	if err != nil {
		return outcome, err
	}

	if m.PreserveTimes {
		if err := m.preserveTimes(ctx, task); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (m *Materializer) writeImage(ctx context.Context, task Task, res codec.Result) (rerr error) {
	dst, err := m.Provider.OpenWrite(ctx, task.DestinationPath, task.Info)
	if err != nil {
		return &ImageWriteError{Path: task.DestinationPath, Err: err}
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && rerr == nil {
			rerr = &ImageWriteError{Path: task.DestinationPath, Err: cerr}
		}
	}()

	w := bufio.NewWriter(NewTrackedWriter(dst, m.Progress))
	if err := codec.Encode(w, res.Format, res.Bitmap); err != nil {
		return &ImageWriteError{Path: task.DestinationPath, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &ImageWriteError{Path: task.DestinationPath, Err: err}
	}
	return nil
}

// copyFile reopens the source rather than rewinding the probe reader; a
// source that vanished in between is a copy failure.
func (m *Materializer) copyFile(ctx context.Context, task Task) error {
	fail := func(err error) error {
		return &CopyError{Source: task.SourcePath, Destination: task.DestinationPath, Err: err}
	}

	buffers := m.Buffers
	if buffers == nil {
		buffers = NewCopyPool(DefaultBufferSize)
	}
	scratch := buffers.get()
	defer buffers.put(scratch)

	src, err := m.Provider.OpenRead(ctx, task.SourcePath)
	if err != nil {
		return fail(err)
	}
	defer src.Close()

	dst, err := m.Provider.OpenWrite(ctx, task.DestinationPath, task.Info)
	if err != nil {
		return fail(err)
	}
	sum, n, err := scratch.copy(NewTrackedWriter(dst, m.Progress), src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(err)
	}

	if !m.Verify {
		return nil
	}
	written, err := m.Provider.OpenRead(ctx, task.DestinationPath)
	if err != nil {
		return fail(err)
	}
	defer written.Close()
	if err := scratch.verify(written, sum, n); err != nil {
		return fail(err)
	}
	return nil
}

// preserveTimes prefers the discovery snapshot: reading the source to
// decode or copy it may already have moved its access time.
func (m *Materializer) preserveTimes(ctx context.Context, task Task) error {
	var atime, mtime time.Time
	var err error
	if task.Info != nil {
		atime, mtime = task.Info.AccessTime(), task.Info.ModTime()
	} else {
		atime, mtime, err = m.Provider.Times(ctx, task.SourcePath)
	}
	if err == nil {
		err = m.Provider.SetTimes(ctx, task.DestinationPath, atime, mtime)
	}
	if err != nil {
		return &TimestampError{Path: task.DestinationPath, Err: err}
	}
	return nil
}

func (m *Materializer) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
	}
}
