// Package tui is the interactive terminal front end for a chat session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Sender answers one message within a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID, message string) (string, error)
}

type exchange struct {
	user string
	bot  string
	err  error
	done bool
}

// replyMsg carries the result of the exchange at index back into Update.
type replyMsg struct {
	index    int
	response string
	err      error
}

// Model is the Bubble Tea model for a chat session.
type Model struct {
	ctx       context.Context
	sender    Sender
	chatID    string
	assetName string

	input     textinput.Model
	viewport  viewport.Model
	exchanges []exchange
	pending   bool
	status    string
	ready     bool
}

// New creates a chat model for chatID. title is shown in the header.
func New(ctx context.Context, sender Sender, chatID, title string) Model {
	ti := textinput.New()
	ti.Prompt = "you> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:       ctx,
		sender:    sender,
		chatID:    chatID,
		assetName: title,
		input:     ti,
		viewport:  viewport.New(0, 0),
		status:    "Ctrl+C to quit, PgUp/PgDn to scroll.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles keys, window resizes and replies.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header lines, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil
	case replyMsg:
		if msg.index < len(m.exchanges) {
			m.exchanges[msg.index].bot = msg.response
			m.exchanges[msg.index].err = msg.err
			m.exchanges[msg.index].done = true
		}
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%d exchanges", len(m.exchanges))
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.pending {
				return m, nil
			}
			m.exchanges = append(m.exchanges, exchange{user: question})
			m.pending = true
			m.status = "Thinking..."
			m.input.SetValue("")
			m.refresh()
			return m, m.send(len(m.exchanges)-1, question)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) send(index int, question string) tea.Cmd {
	ctx, sender, chatID := m.ctx, m.sender, m.chatID
	return func() tea.Msg {
		resp, err := sender.SendMessage(ctx, chatID, question)
		return replyMsg{index: index, response: resp, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// View renders the header, the scrollable history, the input box and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("kiku") + "  " + dimStyle.Render(m.assetName)
	sub := dimStyle.Render("chat " + m.chatID)
	history := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + sub + "\n" + history + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.exchanges) == 0 {
		return dimStyle.Render("No messages yet.")
	}
	width := m.viewport.Width
	var b strings.Builder
	for i, e := range m.exchanges {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(userStyle.Render("you: "))
		b.WriteString(wrap(e.user, width))
		b.WriteString("\n")
		switch {
		case !e.done:
			b.WriteString(dimStyle.Render("kiku is thinking..."))
		case e.err != nil:
			b.WriteString(errorStyle.Render("error: " + e.err.Error()))
		default:
			b.WriteString(botStyle.Render("kiku: "))
			b.WriteString(wrap(e.bot, width))
		}
	}
	return b.String()
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Run starts the full-screen chat and blocks until the user quits.
func Run(ctx context.Context, sender Sender, chatID, title string) error {
	_, err := tea.NewProgram(New(ctx, sender, chatID, title), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
