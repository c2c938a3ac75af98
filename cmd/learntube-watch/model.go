package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	pollInterval   = 2 * time.Second
	maxLogLines    = 8
	requestTimeout = 15 * time.Second
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	stageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	logStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
)

var stageLabels = map[string]string{
	"queued":                "Queued",
	"generating_script":     "Writing narration",
	"generating_manim_code": "Generating Manim scene",
	"rendering_video":       "Rendering video",
	"publishing":            "Publishing to YouTube",
	"completed":             "Completed",
	"failed":                "Failed",
}

type submittedMsg struct{ id string }

type pollMsg struct {
	status videoStatus
	events eventsPage
}

type tickMsg time.Time

type downloadedMsg struct {
	path string
	size int64
}

type errMsg struct{ err error }

// watchModel follows one task until it completes or fails.
type watchModel struct {
	client *apiClient
	topic  string
	id     string
	out    string

	spinner  spinner.Model
	progress progress.Model

	status     videoStatus
	since      int64
	logs       []string
	downloaded string
	err        error
	done       bool
}

func newWatchModel(client *apiClient, topic, id, out string) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = stageStyle

	return watchModel{
		client:   client,
		topic:    topic,
		id:       id,
		out:      out,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m watchModel) Init() tea.Cmd {
	if m.id == "" {
		return tea.Batch(m.spinner.Tick, m.submit())
	}
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case submittedMsg:
		m.id = msg.id
		m.appendLog("submitted as " + msg.id)
		return m, m.poll()

	case pollMsg:
		m.status = msg.status
		for _, e := range msg.events.Events {
			m.appendLog(formatEvent(e))
		}
		if msg.events.NextSince > m.since {
			m.since = msg.events.NextSince
		}
		if !m.status.finished() {
			return m, schedulePoll()
		}
		if m.status.Status == "completed" && m.out != "" {
			return m, m.download()
		}
		m.done = true
		return m, tea.Quit

	case tickMsg:
		return m, m.poll()

	case downloadedMsg:
		m.downloaded = fmt.Sprintf("%s (%.1f MB)", msg.path, float64(msg.size)/1024/1024)
		m.done = true
		return m, tea.Quit

	case errMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.progress.Width = clamp(msg.Width-10, 20, 60)
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	topic := m.topic
	if m.status.Topic != "" {
		topic = m.status.Topic
	}
	b.WriteString(titleStyle.Render("LearnTube") + "  " + topic + "\n")
	if m.id != "" {
		b.WriteString(hintStyle.Render("video "+m.id) + "\n")
	}
	b.WriteString("\n")

	label := stageLabels[m.status.Status]
	if label == "" {
		label = "Submitting"
	}
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("✗ "+m.err.Error()) + "\n")
	case m.status.Status == "failed":
		b.WriteString(errorStyle.Render("✗ Failed") + " at " + m.status.FailedStage + "\n")
		if m.status.Error != nil {
			b.WriteString(boxStyle.Render(*m.status.Error) + "\n")
		}
	case m.status.Status == "completed":
		b.WriteString(doneStyle.Render("✓ Completed") + "\n")
	default:
		b.WriteString(m.spinner.View() + " " + stageStyle.Render(label) + "\n")
	}
	b.WriteString(m.progress.ViewAs(float64(m.status.Progress)/100) + "\n")

	if len(m.logs) > 0 {
		b.WriteString("\n" + logStyle.Render(strings.Join(m.logs, "\n")) + "\n")
	}

	if m.status.VideoURL != nil {
		b.WriteString("\nvideo: " + m.client.baseURL + *m.status.VideoURL + "\n")
	}
	if m.status.YouTubeURL != "" {
		b.WriteString("youtube: " + m.status.YouTubeURL + "\n")
	}
	if m.downloaded != "" {
		b.WriteString(doneStyle.Render("saved ") + m.downloaded + "\n")
	}
	if !m.done {
		b.WriteString("\n" + hintStyle.Render("q to stop watching (the render keeps going)") + "\n")
	}
	return b.String()
}

func (m *watchModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

func (m watchModel) submit() tea.Cmd {
	client, topic := m.client, m.topic
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := client.submit(ctx, topic)
		if err != nil {
			return errMsg{err}
		}
		return submittedMsg{id}
	}
}

func (m watchModel) poll() tea.Cmd {
	client, id, since := m.client, m.id, m.since
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		st, err := client.status(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		events, err := client.events(ctx, id, since)
		if err != nil {
			return errMsg{err}
		}
		return pollMsg{status: st, events: events}
	}
}

func (m watchModel) download() tea.Cmd {
	client, id, out := m.client, m.id, m.out
	return func() tea.Msg {
		n, err := client.download(context.Background(), id, out)
		if err != nil {
			return errMsg{fmt.Errorf("download: %w", err)}
		}
		return downloadedMsg{path: out, size: n}
	}
}

func schedulePoll() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func formatEvent(e videoEvent) string {
	switch e.Type {
	case "status":
		label := stageLabels[e.Status]
		if label == "" {
			label = e.Status
		}
		return "→ " + label
	case "error":
		return "✗ " + e.Message
	case "result":
		return "✓ " + e.Message
	default:
		return "· " + e.Message
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
