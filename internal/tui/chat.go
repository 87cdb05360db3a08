package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"chatterapi/internal/instruct"
	"chatterapi/internal/notify"
	"chatterapi/internal/stream"
)

// waitForUpdate delivers the next reply text published by the chat buffer
func waitForUpdate(updates <-chan string) tea.Cmd {
	return func() tea.Msg {
		return StreamUpdateMsg{Text: <-updates}
	}
}

// waitForToast delivers the next notification
func waitForToast(deps Deps) tea.Cmd {
	if deps.Notifier == nil {
		return nil
	}
	toasts := deps.Notifier.Toasts()
	return func() tea.Msg {
		return ToastMsg{Toast: <-toasts}
	}
}

// waitForGeneration reports g once it has closed
func waitForGeneration(g *stream.Generation, text func() string) tea.Cmd {
	return func() tea.Msg {
		err := g.Wait()
		return GenerationDoneMsg{ID: g.ID, Text: text(), Reason: g.Reason(), Err: err}
	}
}

func (m *Model) applyToast(msg ToastMsg) {
	if msg.Toast.Level == notify.Error {
		m.errorMsg = msg.Toast.Message
		return
	}
	m.message = msg.Toast.Message
}

// openChat switches to the chat view
func (m Model) openChat() (tea.Model, tea.Cmd) {
	if m.deps.Service == nil {
		m.errorMsg = "Chat is not available"
		return m, nil
	}
	m.viewState = ViewChat
	m.resizeChat()
	m.refreshTranscript()
	return m, m.input.Focus()
}

// handleChatViewKeys handles keyboard input in chat view
func (m Model) handleChatViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.input.Blur()
		m.viewState = ViewMain
		return m, nil

	case "ctrl+x":
		if m.generating {
			m.chat.Abort()
		}
		return m, nil

	case "ctrl+l":
		if m.generating {
			m.errorMsg = "Stop the generation before clearing the chat"
			return m, nil
		}
		m.history.Clear()
		m.reply = ""
		m.clearMessages()
		m.refreshTranscript()
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd

	case "enter":
		return m.sendMessage()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sendMessage starts a generation for the typed message. The user turn is
// kept only once the request is underway.
func (m Model) sendMessage() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.generating {
		m.errorMsg = "A reply is still being generated"
		return m, nil
	}
	m.clearMessages()

	turns := append(m.history.Turns(), instruct.Turn{Role: instruct.RoleUser, Content: text})
	g, err := m.deps.Service.SendRequest(context.Background(), m.chat, turns)
	if err != nil {
		if m.deps.Notifier == nil {
			m.errorMsg = err.Error()
		}
		return m, nil
	}

	m.history.Append(instruct.RoleUser, text)
	m.input.Reset()
	m.generating = true
	m.generationID = g.ID
	m.reply = ""
	m.refreshTranscript()
	return m, waitForGeneration(g, m.chat.Buffer)
}

// handleGenerationDone stores the finished reply
func (m Model) handleGenerationDone(msg GenerationDoneMsg) Model {
	if msg.ID != m.generationID {
		return m
	}
	m.generating = false
	m.generationID = ""
	m.reply = ""

	if msg.Text != "" {
		m.history.Append(instruct.RoleAssistant, msg.Text)
	}

	switch msg.Reason {
	case stream.ReasonAborted, stream.ReasonCanceled:
		m.message = "Generation stopped"
	case stream.ReasonError:
		var te *stream.TransportError
		if m.deps.Notifier == nil && errors.As(msg.Err, &te) {
			m.errorMsg = te.UserMessage()
		} else if m.deps.Notifier == nil && msg.Err != nil {
			m.errorMsg = msg.Err.Error()
		}
	}

	m.refreshTranscript()
	return m
}

// resizeChat fits the transcript between the title and the input line
func (m *Model) resizeChat() {
	height := m.height - 7
	if height < 3 {
		height = 3
	}
	m.transcript.Width = m.width
	m.transcript.Height = height
	m.input.Width = m.width - 4
}

// refreshTranscript renders the history plus the reply in progress
func (m *Model) refreshTranscript() {
	m.transcript.SetContent(renderTranscript(m.history.Turns(), m.reply, m.generating, m.width))
	m.transcript.GotoBottom()
}
