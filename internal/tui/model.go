// Package tui is an interactive terminal chat over the question-answering
// service.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anjanaaa29/rag-reader/internal/assistant"
)

// Asker is the TUI-facing subset of the assistant service.
type Asker interface {
	Ask(ctx context.Context, req assistant.AskRequest) (*assistant.AskResponse, error)
	ClearConversation(ctx context.Context, id string) error
}

type exchange struct {
	query    string
	response *assistant.AskResponse
	err      error
}

type answerMsg exchange

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx     context.Context
	asker   Asker
	title   string
	input   textinput.Model
	view    viewport.Model
	spinner spinner.Model

	conversationID string
	exchanges      []exchange
	waiting        bool
	ready          bool
	status         string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	queryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	citationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	excerptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// New creates a chat model. ctx bounds every ask made from the UI.
func New(ctx context.Context, asker Asker, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		asker:   asker,
		title:   title,
		input:   ti,
		view:    viewport.New(0, 0),
		spinner: sp,
		status:  "Ctrl+N starts a new conversation, Ctrl+C quits.",
	}
}

// ConversationID returns the conversation held by this session.
func (m Model) ConversationID() string { return m.conversationID }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // title, status, input, spacer
		m.view.Width = max(20, msg.Width-4)
		m.view.Height = max(3, msg.Height-reserved-ch)
		m.view.SetContent(m.render())
		m.view.GotoBottom()
		return m, nil

	case answerMsg:
		m.waiting = false
		if msg.err == nil {
			m.conversationID = msg.response.ConversationID
			m.status = fmt.Sprintf("Conversation %s", m.conversationID)
		} else {
			m.status = "The last question failed."
		}
		m.exchanges = append(m.exchanges, exchange(msg))
		m.view.SetContent(m.render())
		m.view.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlN:
			if m.conversationID != "" {
				_ = m.asker.ClearConversation(m.ctx, m.conversationID)
			}
			m.conversationID = ""
			m.exchanges = nil
			m.status = "Started a new conversation."
			m.view.SetContent(m.render())
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.status = "Thinking..."
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, asker, id := m.ctx, m.asker, m.conversationID
	return func() tea.Msg {
		resp, err := asker.Ask(ctx, assistant.AskRequest{Query: q, ConversationID: id})
		return answerMsg{query: q, response: resp, err: err}
	}
}

// View renders the chat.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	status := statusStyle.Render(m.status)
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	return titleStyle.Render(m.title) + "\n" +
		chatBoxStyle.Render(m.view.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		status
}

func (m Model) render() string {
	if len(m.exchanges) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, ex := range m.exchanges {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(queryStyle.Render("You: "+ex.query) + "\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Render(assistant.UserMessage(ex.err)) + "\n")
			continue
		}
		b.WriteString(ex.response.Answer + "\n")
		if len(ex.response.Citations) > 0 {
			b.WriteString("\nSources:\n")
			for j, c := range ex.response.Citations {
				b.WriteString(citationStyle.Render(fmt.Sprintf("  %d. %s", j+1, c)) + "\n")
			}
		}
		for _, e := range ex.response.Excerpts {
			b.WriteString(excerptStyle.Render("  \""+e+"\"") + "\n")
		}
	}
	return b.String()
}

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, asker Asker, title string) error {
	p := tea.NewProgram(New(ctx, asker, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
