package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/franksops/pixmirror/provider"
)

// ErrLinkLoop is reported for a followed link that leads back to one of its
// own ancestor directories.
var ErrLinkLoop = errors.New("filesystem loop")

// Walker traverses a source tree iteratively, following symbolic links, and
// pushes one Task per entry to a TaskChannel.
// It avoids deep recursion to prevent stack overflows on very deep directory structures.
type Walker struct {
	SourceProvider provider.Provider
	Tasks          TaskChannel

	// OnError receives entries that could not be read. Their subtrees are
	// skipped. A nil OnError drops them.
	OnError func(error)

	emitted int64
}

// NewWalker creates a new iterative directory walker.
func NewWalker(src provider.Provider, tasks TaskChannel) *Walker {
	return &Walker{
		SourceProvider: src,
		Tasks:          tasks,
	}
}

// Emitted returns the number of tasks the last Walk sent.
func (w *Walker) Emitted() int64 { return w.emitted }

// Walk sends a Task for sourcePath and every entry below it, mapping each
// to the same relative path under destPath. Parents are sent before their
// children. Unreadable entries go to OnError and do not stop the walk.
//
// Walk does not close Tasks. It returns early with ctx.Err() when ctx is
// done, or with an error when sourcePath itself cannot be read.
func (w *Walker) Walk(ctx context.Context, sourcePath string, destPath string) error {
	w.emitted = 0
	return w.walk(ctx, sourcePath, destPath, w.OnError, func(task Task) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case w.Tasks <- task:
			w.emitted++
			return nil
		}
	})
}

// Count returns the number of tasks Walk would currently send for
// sourcePath. Unreadable entries are not counted and not reported.
func (w *Walker) Count(ctx context.Context, sourcePath string) (int64, error) {
	var n int64
	err := w.walk(ctx, sourcePath, "", nil, func(Task) error {
		n++
		return nil
	})
	return n, err
}

// walkItem is a directory whose children are still to be listed. parent
// links form the ancestor chain used for loop detection.
type walkItem struct {
	relPath string
	info    provider.FileInfo
	parent  *walkItem
}

func (w *Walker) walk(ctx context.Context, sourcePath, destPath string, onError func(error), emit func(Task) error) error {
	report := func(path string, err error) {
		if onError != nil {
			onError(&WalkError{Path: path, Err: err})
		}
	}

	rootInfo, rootKind, err := w.describe(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", sourcePath, err)
	}

	if err := emit(Task{
		SourcePath:      sourcePath,
		DestinationPath: destPath,
		Kind:            rootKind,
		Info:            rootInfo,
	}); err != nil {
		return err
	}

	// If the root itself is not a directory there is nothing to descend into.
	if !rootInfo.IsDir() {
		return nil
	}

	stack := []*walkItem{{info: rootInfo}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		currentSourcePath := filepath.Join(sourcePath, curr.relPath)

		entries, err := w.SourceProvider.List(ctx, currentSourcePath)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			report(currentSourcePath, err)
			continue
		}

		var subdirs []*walkItem
		for _, entry := range entries {
			entryRelPath := filepath.Join(curr.relPath, entry.Name())
			entrySourcePath := filepath.Join(sourcePath, entryRelPath)

			info, kind := entry, Classify(entry.Mode())
			if entry.Mode()&fs.ModeSymlink != 0 {
				info, kind, err = w.describe(ctx, entrySourcePath)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					report(entrySourcePath, err)
					continue
				}
				if info.IsDir() && inAncestry(curr, info) {
					report(entrySourcePath, ErrLinkLoop)
					continue
				}
			}

			if err := emit(Task{
				SourcePath:      entrySourcePath,
				DestinationPath: filepath.Join(destPath, entryRelPath),
				Kind:            kind,
				Info:            info,
			}); err != nil {
				return err
			}

			if info.IsDir() {
				subdirs = append(subdirs, &walkItem{relPath: entryRelPath, info: info, parent: curr})
			}
		}

		// Push in reverse so siblings are descended in lexical order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return nil
}

// describe stats path through links. A link resolving to a directory is
// classified as KindSymlink; a link to anything else takes its target's kind.
func (w *Walker) describe(ctx context.Context, path string) (provider.FileInfo, Kind, error) {
	linfo, err := w.SourceProvider.Lstat(ctx, path)
	if err != nil {
		return nil, KindOther, err
	}
	if linfo.Mode()&fs.ModeSymlink == 0 {
		return linfo, Classify(linfo.Mode()), nil
	}

	info, err := w.SourceProvider.Stat(ctx, path)
	if err != nil {
		return nil, KindOther, err
	}
	if info.IsDir() {
		return info, KindSymlink, nil
	}
	return info, Classify(info.Mode()), nil
}

func inAncestry(item *walkItem, info provider.FileInfo) bool {
	for a := item; a != nil; a = a.parent {
		if provider.SameFile(a.info, info) {
			return true
		}
	}
	return false
}
