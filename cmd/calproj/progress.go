package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"calproj/pkg/imaging"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxRecentLines is how many per-file outcomes stay visible under
// the progress bar.
const maxRecentLines = 6

// resultMsg carries one finished file into the UI.
type resultMsg imaging.FileResult

// batchDoneMsg signals the batch finished (or failed to start).
type batchDoneMsg struct {
	report *imaging.Report
	err    error
}

// progressModel is the Bubble Tea model for batch processing.
type progressModel struct {
	source string
	total  int

	spin spinner.Model
	bar  progress.Model

	done    int
	failed  int
	recent  []string
	outcome batchDoneMsg
}

func newProgressModel(source string, total int) progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return progressModel{
		source: source,
		total:  total,
		spin:   sp,
		bar:    bar,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.done++
		line := fmt.Sprintf("%s %s", successStyle.Render("ok"), filepath.Base(msg.Path))
		if msg.Err != nil {
			m.failed++
			line = fmt.Sprintf("%s %s: %v", errorStyle.Render("failed"), filepath.Base(msg.Path), msg.Err)
		}
		m.recent = append(m.recent, line)
		if len(m.recent) > maxRecentLines {
			m.recent = m.recent[len(m.recent)-maxRecentLines:]
		}
		if m.total > 0 {
			return m, m.bar.SetPercent(float64(m.done) / float64(m.total))
		}
		return m, nil

	case batchDoneMsg:
		m.outcome = msg
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	default:
		return m, nil
	}
}

func (m progressModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s processing %s\n", m.spin.View(), titleStyle.Render(m.source))
	if m.total > 0 {
		fmt.Fprintf(&b, "%s %d/%d", m.bar.View(), m.done, m.total)
	} else {
		fmt.Fprintf(&b, "%d files done", m.done)
	}
	if m.failed > 0 {
		fmt.Fprintf(&b, "  %s", errorStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	b.WriteString("\n")
	for _, line := range m.recent {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}

// runProgressUI drives a batch behind the progress display. The
// batch runs in a goroutine and streams per-file results into the
// program; the final report comes back through batchDoneMsg.
func runProgressUI(ctx context.Context, w io.Writer, source string, total int,
	batch func(context.Context, imaging.ProgressFunc) (*imaging.Report, error),
) (*imaging.Report, error) {
	p := tea.NewProgram(newProgressModel(source, total), tea.WithOutput(w))

	go func() {
		rep, err := batch(ctx, func(res imaging.FileResult) {
			p.Send(resultMsg(res))
		})
		p.Send(batchDoneMsg{report: rep, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress display: %w", err)
	}

	outcome := final.(progressModel).outcome
	if outcome.err != nil {
		return nil, outcome.err
	}
	if outcome.report == nil {
		return nil, fmt.Errorf("processing interrupted")
	}
	return outcome.report, nil
}
