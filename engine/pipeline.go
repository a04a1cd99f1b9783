package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/franksops/pixmirror/provider"
)

// Config describes one mirror run.
type Config struct {
	// Source is the tree to mirror. It may be a single file.
	Source string

	// Destination is where Source is mirrored to. It is created as needed.
	Destination string

	// Workers is the number of concurrent materializers. Defaults to
	// runtime.GOMAXPROCS(0).
	Workers int

	// QueueCapacity bounds the tasks waiting for a worker. Defaults to
	// DefaultQueueCapacity.
	QueueCapacity int

	// PreserveTimes carries source access and modification times over to
	// written files.
	PreserveTimes bool

	// Verify reads copied files back and checks them against the source
	// CRC64.
	Verify bool

	// Provider defaults to a LocalProvider acting on paths directly.
	Provider provider.Provider

	// Logger receives per-entry diagnostics. Defaults to discarding them.
	Logger *log.Logger

	// Progress is advanced once per task. Defaults to a private Progress.
	Progress *Progress
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.Provider == nil {
		c.Provider = provider.NewLocalProvider("")
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
	if c.Progress == nil {
		c.Progress = NewProgress()
	}
	return c
}

// Result summarizes a run.
type Result struct {
	// Counted is the entry count of the pre-pass walk.
	Counted int64
	// Enqueued is the number of tasks the main walk produced.
	Enqueued int64

	Directories int64
	Images      int64
	Copied      int64
	Skipped     int64
	Ignored     int64
	// Failed counts tasks whose materialization returned a fatal error.
	Failed int64
}

// Completed is the number of tasks that finished, whatever their outcome.
func (r Result) Completed() int64 {
	return r.Directories + r.Images + r.Copied + r.Skipped + r.Ignored + r.Failed
}

type outcomeCounters struct {
	dirs, images, copied, skipped, ignored, failed atomic.Int64
}

func (c *outcomeCounters) record(o Outcome, err error) {
	if err != nil {
		c.failed.Add(1)
		return
	}
	switch o {
	case OutcomeDirectory:
		c.dirs.Add(1)
	case OutcomeImage:
		c.images.Add(1)
	case OutcomeCopied:
		c.copied.Add(1)
	case OutcomeSkipped:
		c.skipped.Add(1)
	default:
		c.ignored.Add(1)
	}
}

// Run mirrors cfg.Source into cfg.Destination.
//
// A single walker feeds a bounded queue drained by cfg.Workers workers.
// Unreadable entries are logged and skipped. The first fatal error stops the
// walk and the pool; tasks already running finish, and Run returns that
// error.
func Run(ctx context.Context, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()

	var res Result

	counter := NewWalker(cfg.Provider, nil)
	total, err := counter.Count(ctx, cfg.Source)
	if err != nil {
		return res, err
	}
	res.Counted = total
	cfg.Progress.SetTotal(total)

	tasks := NewTaskChannel(cfg.QueueCapacity)

	walker := NewWalker(cfg.Provider, tasks)
	walker.OnError = func(err error) { cfg.Logger.Print(err) }

	materializer := NewMaterializer(cfg.Provider)
	materializer.Progress = cfg.Progress
	materializer.PreserveTimes = cfg.PreserveTimes
	materializer.Verify = cfg.Verify
	materializer.Logger = cfg.Logger

	var counts outcomeCounters

	g, gctx := errgroup.WithContext(ctx)
	walkCtx, stopWalk := context.WithCancel(gctx)
	defer stopWalk()

	// Workers are bound to ctx, not gctx, so a fatal error lets running
	// tasks finish.
	pool := NewWorkerPool(ctx, tasks, func(ctx context.Context, task Task) error {
		outcome, err := materializer.Materialize(ctx, task)
		counts.record(outcome, err)
		return err
	})
	pool.OnDone = func(Task) { cfg.Progress.Inc() }
	pool.OnFatal = func(error) { stopWalk() }

	g.Go(func() error {
		defer close(tasks)
		err := walker.Walk(walkCtx, cfg.Source, cfg.Destination)
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			// Stopped because the pool failed; the pool reports why.
			return nil
		}
		return err
	})

	pool.Start(cfg.Workers)
	g.Go(pool.Wait)

	err = g.Wait()

	res.Enqueued = walker.Emitted()
	res.Directories = counts.dirs.Load()
	res.Images = counts.images.Load()
	res.Copied = counts.copied.Load()
	res.Skipped = counts.skipped.Load()
	res.Ignored = counts.ignored.Load()
	res.Failed = counts.failed.Load()

	return res, err
}
