package engine

import "fmt"

// WalkError reports an entry the walker could not read. The entry and
// anything below it are skipped; the walk continues.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// DirectoryCreateError is returned when a destination directory cannot be
// created. It is fatal for the run.
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("create directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreateError) Unwrap() error { return e.Err }

// ImageWriteError is returned when a decoded image cannot be re-encoded to
// its destination. It is fatal for the run.
type ImageWriteError struct {
	Path string
	Err  error
}

func (e *ImageWriteError) Error() string {
	return fmt.Sprintf("write image %s: %v", e.Path, e.Err)
}

func (e *ImageWriteError) Unwrap() error { return e.Err }

// CopyError is returned when a file that is not an image cannot be copied.
// It is fatal for the run.
type CopyError struct {
	Source      string
	Destination string
	Err         error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Source, e.Destination, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// TimestampError is returned when timestamps cannot be carried over to a
// destination file while timestamp preservation is enabled. It is fatal for
// the run.
type TimestampError struct {
	Path string
	Err  error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("preserve timestamps on %s: %v", e.Path, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }
