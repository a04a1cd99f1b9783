package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/franksops/pixmirror/engine"
	"github.com/franksops/pixmirror/ui"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("pixmirror", flag.ContinueOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintln(out, "Usage: pixmirror <source> <destination>")
		fmt.Fprintln(out, "\nMirrors source into destination, re-encoding every image and copying every other file.")
		fmt.Fprintln(out, "\nExamples:")
		fmt.Fprintln(out, "  pixmirror /photos/old /photos/new")
		if keepFileTimes {
			fmt.Fprintln(out, "\nAccess and modification times are preserved.")
		}
		if verifyCopies {
			fmt.Fprintln(out, "\nCopied files are read back and checked against the source CRC64.")
		}
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}
	source, dest := fs.Arg(0), fs.Arg(1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progress := engine.NewProgress()
	sink := ui.NewSink(os.Stderr)
	logger := log.New(sink, "pixmirror: ", 0)

	renderer := ui.NewRenderer(progress, sink, ui.DefaultRefreshInterval)
	renderer.Start()

	result, err := engine.Run(ctx, engine.Config{
		Source:        source,
		Destination:   dest,
		PreserveTimes: keepFileTimes,
		Verify:        verifyCopies,
		Logger:        logger,
		Progress:      progress,
	})
	renderer.Stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("pixmirror: "+err.Error()))
		return 1
	}

	fmt.Fprintf(os.Stderr, "Mirrored %d entries: %d images, %d copied, %d directories, %d skipped\n",
		result.Completed(), result.Images, result.Copied, result.Directories, result.Skipped)
	return 0
}
