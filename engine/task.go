package engine

import (
	"io/fs"

	"github.com/franksops/pixmirror/provider"
)

// DefaultQueueCapacity is the number of discovered entries that may wait for
// a worker before the walker blocks.
const DefaultQueueCapacity = 100

// Kind classifies a discovered entry. The classification is taken once, when
// the walker discovers the entry, and is never re-checked.
type Kind uint8

const (
	// KindOther covers FIFOs, sockets and devices. They are not mirrored.
	KindOther Kind = iota
	KindFile
	KindDir
	// KindSymlink is a symbolic link that is mirrored as a directory.
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// DirectoryLike reports whether entries of this kind are materialized as a
// directory.
func (k Kind) DirectoryLike() bool {
	return k == KindDir || k == KindSymlink
}

// Classify maps a file mode to a Kind.
func Classify(mode fs.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

// Task is one discovered filesystem entry paired with the path it is
// mirrored to.
type Task struct {
	// SourcePath is the path of the entry as the walker reached it.
	SourcePath string

	// DestinationPath is the destination root joined with the entry's path
	// relative to the source root.
	DestinationPath string

	// Kind is the classification snapshot taken at discovery.
	Kind Kind

	// Info is the metadata of the entry, with links followed.
	Info provider.FileInfo
}

// TaskChannel is the bounded queue between the walker and the worker pool.
// The walker is its only sender and closes it once the walk is complete.
type TaskChannel chan Task

// NewTaskChannel creates a TaskChannel holding at most capacity pending
// tasks. A non-positive capacity selects DefaultQueueCapacity.
func NewTaskChannel(capacity int) TaskChannel {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return make(TaskChannel, capacity)
}
