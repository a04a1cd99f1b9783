package provider

import (
	"context"
	"io"
	"io/fs"
	"time"
)

// FileInfo is the metadata snapshot taken for an entry when it is discovered.
// It extends fs.FileInfo with the last access time so timestamps can be
// carried from a source entry to its mirror.
type FileInfo interface {
	fs.FileInfo
	AccessTime() time.Time
}

// Provider is the filesystem surface the mirror engine reads from and
// writes to.
type Provider interface {
	// Stat returns the FileInfo for path, following symbolic links.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Lstat returns the FileInfo for path without following a final link.
	Lstat(ctx context.Context, path string) (FileInfo, error)

	// List returns the entries of a directory in lexical order. Entries are
	// described as Lstat would describe them.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// OpenRead opens a file for streaming reads.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite creates or truncates a file for streaming writes. Missing
	// ancestor directories are created first. The permission bits of
	// metadata, when present, are applied to the file on Close.
	OpenWrite(ctx context.Context, path string, metadata FileInfo) (io.WriteCloser, error)

	// MkdirAll creates path and any missing ancestors. It succeeds if path
	// is already a directory.
	MkdirAll(ctx context.Context, path string) error

	// Times returns the last access and last modification times of path.
	Times(ctx context.Context, path string) (atime, mtime time.Time, err error)

	// SetTimes sets the last access and last modification times of path.
	SetTimes(ctx context.Context, path string, atime, mtime time.Time) error
}
