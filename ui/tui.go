package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/franksops/pixmirror/engine"
)

// progressMsg carries a new snapshot into the TUI.
type progressMsg engine.ProgressSnapshot

// finishMsg renders the final snapshot and quits.
type finishMsg engine.ProgressSnapshot

// TUIModel implements the tea.Model interface.
type TUIModel struct {
	snap     engine.ProgressSnapshot
	spinner  spinner.Model
	progress progress.Model
	width    int
	done     bool

	infoStyle    lipgloss.Style
	successStyle lipgloss.Style
}

// NewTUIModel creates the progress model.
func NewTUIModel() TUIModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return TUIModel{
		spinner:      s,
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m TUIModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-48, 10)

	case progressMsg:
		m.snap = engine.ProgressSnapshot(msg)

	case finishMsg:
		m.snap = engine.ProgressSnapshot(msg)
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m TUIModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	lead := m.spinner.View()
	if m.done {
		lead = m.successStyle.Render("✓")
	}

	info := fmt.Sprintf("%s  %s  eta %s",
		formatCount(m.snap.Done, m.snap.Total),
		formatBytes(m.snap.Bytes),
		formatETA(m.snap))

	var sb strings.Builder
	sb.WriteString(lead + " " + m.progress.ViewAs(m.snap.Fraction()) + " " + m.infoStyle.Render(info))
	if m.done {
		sb.WriteString("\n")
	}
	return sb.String()
}

// TUISink renders progress with a bubbletea program. Diagnostics written to
// it are printed above the bar.
type TUISink struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

// NewTUISink starts a bubbletea program drawing to out. It never reads
// input, so signals reach the process unchanged.
func NewTUISink(out io.Writer) *TUISink {
	s := &TUISink{done: make(chan struct{})}
	s.program = tea.NewProgram(NewTUIModel(),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	go func() {
		defer close(s.done)
		// A failed program leaves Send as a no-op.
		_, _ = s.program.Run()
	}()
	return s
}

func (s *TUISink) Render(snap engine.ProgressSnapshot) {
	s.program.Send(progressMsg(snap))
}

func (s *TUISink) Finish(snap engine.ProgressSnapshot) {
	s.once.Do(func() {
		s.program.Send(finishMsg(snap))
		select {
		case <-s.done:
		case <-time.After(time.Second):
			s.program.Kill()
			<-s.done
		}
	})
}

// Write prints p above the progress bar, one call per line.
func (s *TUISink) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		s.program.Send(tea.Println(line)())
	}
	return len(p), nil
}

func formatCount(done, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%d/?", done)
	}
	return fmt.Sprintf("%d/%d", done, total)
}

func formatBytes(n int64) string {
	b := float64(n)
	switch {
	case b >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB", b/(1024*1024*1024))
	case b >= 1024*1024:
		return fmt.Sprintf("%.2f MB", b/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%.2f KB", b/1024)
	}
	return fmt.Sprintf("%d B", n)
}

func formatETA(snap engine.ProgressSnapshot) string {
	d, ok := snap.Remaining()
	if !ok {
		return "--"
	}
	if d.Hours() > 24 {
		return "> 1d"
	}
	return d.Round(time.Second).String()
}
