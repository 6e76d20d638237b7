package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// TUIModel implements the tea.Model interface
type TUIModel struct {
	state *TransferState

	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model

	width  int
	height int

	// Styles
	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	streamStyle  lipgloss.Style
	helpStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
}

// TUIUpdateMsg carries a fresh snapshot to the UI
type TUIUpdateMsg struct {
	State *TransferState
}

func NewTUIModel(initial *TransferState) TUIModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return TUIModel{
		state:        initial,
		spinner:      s,
		progress:     prog,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		streamStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m TUIModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
	)
}

func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

		headerHeight := 5
		footerHeight := 2
		m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)

	case TUIUpdateMsg:
		m.state = msg.State
		if m.state.Done || m.state.Failed {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m TUIModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder

	// Header
	route := m.state.Source + " → " + m.state.Destination
	header := fmt.Sprintf("%s Zap %s", m.spinner.View(), m.titleStyle.Render(route))
	sb.WriteString(header + "\n")

	// Overall progress
	var percent float64
	if m.state.TotalBytes > 0 {
		percent = float64(m.state.CompletedBytes) / float64(m.state.TotalBytes)
	} else if m.state.Done {
		percent = 1
	}

	info := fmt.Sprintf("ETA: %s | %s | Streams: %d/%d | Chunks: %d/%d | Retries: %d | %s / %s",
		formatETA(percent, m.state.ThroughputBPms, m.state.TotalBytes, m.state.CompletedBytes),
		formatSpeed(m.state.ThroughputBPms*1000),
		len(m.state.ActiveChunks), m.state.Streams,
		m.state.DoneChunks, m.state.TotalChunks,
		m.state.RetriesUsed,
		formatBytes(m.state.CompletedBytes), formatBytes(m.state.TotalBytes))

	sb.WriteString(m.infoStyle.Render(info) + "\n")
	sb.WriteString(m.progress.ViewAs(percent) + "\n\n")

	// Active streams
	sb.WriteString("Streams:\n")
	var streamContent strings.Builder

	switch {
	case m.state.Assembling:
		streamContent.WriteString(m.infoStyle.Render("Assembling final file..."))
	case len(m.state.ActiveChunks) == 0:
		streamContent.WriteString(m.infoStyle.Render("No active streams..."))
	default:
		for _, c := range m.state.ActiveChunks {
			bar := m.progress.ViewAs(c.Progress)
			attempt := ""
			if c.Attempt > 0 {
				attempt = fmt.Sprintf(" | retry %d", c.Attempt)
			}

			// Format: [===       ] | chunk 03 | 45 MiB / 256 MiB
			streamContent.WriteString(fmt.Sprintf("%s | chunk %02d%s | %s / %s\n",
				bar, c.Index, attempt,
				m.streamStyle.Render(formatBytes(c.Copied)), formatBytes(c.Length)))
		}
	}

	m.viewport.SetContent(streamContent.String())
	sb.WriteString(m.viewport.View())

	// Footer
	help := m.helpStyle.Render("q/ctrl+c: cancel")
	if m.state.Done {
		help = m.successStyle.Render("Transfer complete!")
	} else if m.state.Failed {
		help = m.errorStyle.Render("Transfer failed: " + m.state.Err)
	}
	sb.WriteString("\n" + help)

	return sb.String()
}

// NewProgram wraps the model in a bubbletea program fed from the monitor
// at a fixed refresh interval. The feeder goroutine stops on its own
// once the transfer reaches a terminal state.
func NewProgram(monitor *Monitor, interval time.Duration) *tea.Program {
	p := tea.NewProgram(NewTUIModel(monitor.Snapshot()))
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for range t.C {
			state := monitor.Snapshot()
			p.Send(TUIUpdateMsg{State: state})
			if state.Done || state.Failed {
				return
			}
		}
	}()
	return p
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatSpeed(bytesPerSec float64) string {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

func formatETA(progress float64, bytesPerMs float64, totalBytes, completedBytes int64) string {
	if progress == 0 || bytesPerMs <= 0 || totalBytes == 0 {
		return "Calculating..."
	}

	remainingBytes := totalBytes - completedBytes
	if remainingBytes <= 0 {
		return "0s"
	}

	remainingMs := float64(remainingBytes) / bytesPerMs
	d := time.Duration(remainingMs) * time.Millisecond

	if d.Hours() > 24 {
		return "> 1d"
	}

	return d.Round(time.Second).String()
}
