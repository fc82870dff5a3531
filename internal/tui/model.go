// Package tui is the terminal conversation view.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
	"github.com/xiaot623/gogo/chatwidget/internal/render"
	"github.com/xiaot623/gogo/chatwidget/internal/service"
)

const (
	title  = "AI Assistant"
	banner = "This is the beginning of your conversation."

	headerHeight = 1
	inputHeight  = 3
	helpHeight   = 1
)

// Options configures the view.
type Options struct {
	Markdown     bool
	GlamourStyle string
}

// replyMsg carries the inbound message produced by a resolved turn.
type replyMsg struct {
	msg domain.Message
}

type Model struct {
	svc       *service.Service
	sessionID string
	opts      Options

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	md       *render.Terminal
	mdWidth  int

	width  int
	height int
	ready  bool
}

// NewModel creates the view for one session.
func NewModel(svc *service.Service, sessionID string, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "› "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	if opts.Markdown {
		// Resolved once; resizes only change the wrap width.
		opts.GlamourStyle = render.ResolveStyle(opts.GlamourStyle)
	}

	return Model{
		svc:       svc,
		sessionID: sessionID,
		opts:      opts,
		input:     ti,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		width:     80,
		height:    24,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.svc.Busy() {
			// Input is disabled until the outstanding call resolves.
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case replyMsg:
		m.refresh()
		return m, m.input.Focus()

	case spinner.TickMsg:
		if !m.svc.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.svc.Busy() {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	if strings.TrimSpace(value) == "/quit" {
		return m, tea.Quit
	}

	turn, err := m.svc.Begin(m.sessionID, value)
	if err != nil {
		if !errors.Is(err, service.ErrEmptyInput) && !errors.Is(err, service.ErrBusy) {
			log.Error().Err(err).Msg("failed to start dispatch")
		}
		return m, nil
	}

	m.input.Reset()
	m.input.Blur()
	m.refresh()

	resolve := func() tea.Msg {
		return replyMsg{msg: turn.Resolve(context.Background())}
	}
	return m, tea.Batch(resolve, m.spinner.Tick)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(10, width-8)
	m.viewport.Width = width
	m.viewport.Height = max(1, height-headerHeight-inputHeight-helpHeight)
	m.ready = true

	wrap := m.bubbleWidth() - 2
	if !m.opts.Markdown || (m.md != nil && m.mdWidth == wrap) {
		return
	}
	r, err := render.NewTerminal(m.opts.GlamourStyle, wrap)
	if err != nil {
		log.Warn().Err(err).Msg("markdown renderer unavailable, showing plain text")
		m.md = nil
		return
	}
	m.md = r
	m.mdWidth = wrap
}

func (m Model) bubbleWidth() int {
	return max(20, m.width*3/4)
}

// refresh re-renders the conversation and keeps it scrolled to the bottom.
func (m *Model) refresh() {
	var b strings.Builder
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, bannerStyle.Render(banner)))
	b.WriteString("\n")

	for _, msg := range m.svc.Store().Snapshot() {
		b.WriteString("\n")
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.svc.Busy() {
		b.WriteString("\n")
		b.WriteString(inboundStyle.Render(m.spinner.View() + " typing"))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) renderMessage(msg domain.Message) string {
	text := msg.Text
	if !msg.Outbound() && !msg.IsError() && m.md != nil {
		text = m.md.Render(text)
	}

	style := inboundStyle
	switch {
	case msg.Outbound():
		style = outboundStyle
	case msg.IsError():
		style = errorStyle
	}
	if lipgloss.Width(text) > m.bubbleWidth() {
		style = style.Width(m.bubbleWidth())
	}

	bubble := lipgloss.JoinVertical(lipgloss.Right, style.Render(text), timeStyle.Render(msg.TimestampDisplay))
	if msg.Outbound() {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble)
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, bubble)
}

func (m Model) View() string {
	if !m.ready {
		return "Starting...\n"
	}

	header := headerStyle.Width(m.width).Render(title)

	box := inputBoxStyle
	if m.svc.Busy() {
		box = disabledInputBoxStyle
	}
	input := box.Width(max(10, m.width-2)).Render(m.input.View())

	help := helpStyle.Render("enter send • pgup/pgdn scroll • esc quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), input, help)
}

// Run starts the terminal program and blocks until the user quits.
func Run(svc *service.Service, sessionID string, opts Options) error {
	p := tea.NewProgram(NewModel(svc, sessionID, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
