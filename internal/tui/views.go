package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatterapi/config/models"
	"chatterapi/internal/instruct"
	"chatterapi/internal/utils"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	activeSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Background(lipgloss.Color("57")).
				Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// RenderMainView renders the connection list
func (m Model) RenderMainView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Connections"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.getEffectiveWidth(40))))
	b.WriteString("\n\n")

	if len(m.connections) == 0 {
		b.WriteString(dimStyle.Render("No connections yet, press 'a' to add one"))
		b.WriteString("\n")
	} else {
		start, end := visibleRange(m.scrollOffset, m.getVisibleListHeight(), len(m.connections))

		if start > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ %d more...", start)))
			b.WriteString("\n")
		}
		for i := start; i < end; i++ {
			b.WriteString(m.renderConnectionLine(i, m.connections[i]))
			b.WriteString("\n")
		}
		if end < len(m.connections) {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ %d more...", len(m.connections)-end)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.getEffectiveWidth(40))))
	b.WriteString("\n")
	b.WriteString(m.RenderStatusBar())

	return b.String()
}

func visibleRange(offset, visible, total int) (int, int) {
	end := offset + visible
	if end > total {
		end = total
	}
	return offset, end
}

// getEffectiveWidth returns the rendering width, capped for readability
func (m Model) getEffectiveWidth(defaultWidth int) int {
	if m.width <= 0 {
		return defaultWidth
	}
	maxWidth := 80
	if m.width < maxWidth {
		return m.width - 2
	}
	return maxWidth
}

// renderConnectionLine renders one row of the connection list
func (m Model) renderConnectionLine(index int, c models.Connection) string {
	isSelected := index == m.cursor
	isActive := index == m.activeIndex

	cursor := "  "
	if isSelected {
		cursor = "> "
	}
	marker := "  "
	if isActive {
		marker = "* "
	}

	modelInfo := ""
	if c.Model != "" {
		modelInfo = fmt.Sprintf(" [%s]", c.Model)
	}
	hostInfo := ""
	if host := utils.ExtractHost(c.Endpoint); host != "" {
		hostInfo = fmt.Sprintf(" (%s)", utils.Truncate(host, 30))
	}

	content := fmt.Sprintf("%s%s%d. %s · %s%s%s", cursor, marker, index+1, c.FriendlyName, c.ConfigName, modelInfo, hostInfo)

	switch {
	case isSelected && isActive:
		return activeSelectedStyle.Render(content)
	case isSelected:
		return selectedStyle.Render(content)
	case isActive:
		return activeStyle.Render(content)
	}
	return normalStyle.Render(content)
}

// Detail view styles
var (
	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	detailActiveTagStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Background(lipgloss.Color("22")).
				Bold(true).
				Padding(0, 1)

	detailSectionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	detailMaskedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))
)

func (m Model) writeDetail(b *strings.Builder, label, value, empty string, width int) {
	b.WriteString(detailLabelStyle.Render(label))
	if value != "" {
		b.WriteString(detailValueStyle.Render(m.truncateText(value, width-18)))
	} else {
		b.WriteString(dimStyle.Render(empty))
	}
	b.WriteString("\n")
}

// RenderDetailView renders the details of the selected connection
func (m Model) RenderDetailView() string {
	var b strings.Builder

	if m.selected < 0 || m.selected >= len(m.connections) {
		return dimStyle.Render("No connection selected, press Enter on one to see its details")
	}

	c := m.connections[m.selected]
	width := m.getEffectiveWidth(40)

	b.WriteString(titleStyle.Render(c.FriendlyName))
	if m.selected == m.activeIndex {
		b.WriteString("  ")
		b.WriteString(detailActiveTagStyle.Render("★ active"))
	}
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	b.WriteString(detailSectionStyle.Render("Connection"))
	b.WriteString("\n")
	m.writeDetail(&b, "Template:", c.ConfigName, "(none)", width)
	if m.deps.Registry != nil {
		if _, ok := m.deps.Registry.Get(c.ConfigName); !ok {
			b.WriteString(detailLabelStyle.Render(""))
			b.WriteString(errorStyle.Render("template not found"))
			b.WriteString("\n")
		}
	}
	m.writeDetail(&b, "Endpoint:", c.Endpoint, "(not set)", width)
	m.writeDetail(&b, "Model endpoint:", c.ModelEndpoint, "(not set)", width)
	b.WriteString("\n")

	b.WriteString(detailSectionStyle.Render("Model"))
	b.WriteString("\n")
	m.writeDetail(&b, "Current:", c.Model, "(not set)", width)
	m.writeDetail(&b, "Selection:", strings.Join(c.Models, ", "), "(none)", width)
	b.WriteString("\n")

	b.WriteString(detailSectionStyle.Render("Conversation"))
	b.WriteString("\n")
	m.writeDetail(&b, "Prefill:", c.Prefill, "(none)", width)
	m.writeDetail(&b, "First message:", c.FirstMessage, "(none)", width)
	b.WriteString("\n")

	b.WriteString(detailSectionStyle.Render("Authentication"))
	b.WriteString("\n")
	b.WriteString(detailLabelStyle.Render("API Key:"))
	if c.Key != "" {
		b.WriteString(detailMaskedStyle.Render(maskString(c.Key)))
	} else {
		b.WriteString(dimStyle.Render("(not set)"))
	}
	b.WriteString("\n")

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s: make active │ e: edit │ d: delete │ m: models │ Esc: back"))

	return b.String()
}

// truncateText shortens text to maxWidth runes
func (m Model) truncateText(text string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	return utils.Truncate(text, maxWidth)
}

// RenderDeleteConfirm renders the delete confirmation dialog
func (m Model) RenderDeleteConfirm() string {
	var b strings.Builder
	width := m.getEffectiveWidth(40)

	b.WriteString(titleStyle.Render("Delete connection"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	if m.validCursor() {
		c := m.connections[m.cursor]

		b.WriteString(errorStyle.Render("⚠ This cannot be undone"))
		b.WriteString("\n\n")
		b.WriteString(normalStyle.Render("About to delete: "))
		b.WriteString(selectedStyle.Render(c.FriendlyName))
		b.WriteString("\n\n")

		if m.cursor == m.activeIndex {
			b.WriteString(errorStyle.Render("This is the active connection"))
			b.WriteString("\n\n")
		}
		if c.Endpoint != "" {
			b.WriteString(dimStyle.Render("Endpoint: " + m.truncateText(c.Endpoint, width-12)))
			b.WriteString("\n")
		}
		if c.Model != "" {
			b.WriteString(dimStyle.Render("Model: " + m.truncateText(c.Model, width-8)))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(errorStyle.Render("No connection selected"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("y: delete │ n/Esc: cancel"))

	return b.String()
}

// RenderHelpView renders the key bindings
func (m Model) RenderHelpView() string {
	var b strings.Builder
	width := m.getEffectiveWidth(50)

	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	h := m.help
	h.Width = width
	h.ShowAll = true
	b.WriteString(h.View(m.keys))
	b.WriteString("\n\n")

	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q/Esc: back"))

	return b.String()
}

// RenderStatusBar renders the bottom status bar
func (m Model) RenderStatusBar() string {
	var b strings.Builder

	if m.errorMsg != "" {
		b.WriteString(errorStyle.Render("✗ " + m.errorMsg))
		b.WriteString("\n")
	}
	if m.message != "" {
		b.WriteString(messageStyle.Render("✓ " + m.message))
		b.WriteString("\n")
	}
	if m.errorMsg != "" || m.message != "" {
		b.WriteString("\n")
	}

	shortHelp := m.keys.ShortHelp()
	hints := make([]string, 0, len(shortHelp))
	for _, k := range shortHelp {
		hints = append(hints, helpKeyStyle.Render(k.Help().Key)+" "+helpStyle.Render(k.Help().Desc))
	}
	b.WriteString(strings.Join(hints, helpStyle.Render(" │ ")))

	return b.String()
}

// maskString hides all but the edges of a secret
func maskString(s string) string {
	return utils.MaskAPIKey(s)
}

// RenderModelSelectView renders the model selection list
func (m Model) RenderModelSelectView() string {
	var b strings.Builder
	width := m.getEffectiveWidth(40)

	b.WriteString(titleStyle.Render("Select model"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	var current string
	if m.modelTarget >= 0 && m.modelTarget < len(m.connections) {
		c := m.connections[m.modelTarget]
		current = c.Model
		b.WriteString(dimStyle.Render("Connection: " + c.FriendlyName))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Current model: " + c.Model))
		b.WriteString("\n\n")
	}

	if len(m.modelList) == 0 {
		b.WriteString(dimStyle.Render("No models available"))
		b.WriteString("\n")
	} else {
		start, end := visibleRange(m.modelScrollOffset, m.getVisibleModelListHeight(), len(m.modelList))
		if start > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ %d more...", start)))
			b.WriteString("\n")
		}
		for i := start; i < end; i++ {
			b.WriteString(m.renderModelLine(i, m.modelList[i], current))
			b.WriteString("\n")
		}
		if end < len(m.modelList) {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ %d more...", len(m.modelList)-end)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k: move │ Enter: select │ Esc: cancel"))

	return b.String()
}

// renderModelLine renders one row of the model list
func (m Model) renderModelLine(index int, model string, current string) string {
	isSelected := index == m.modelCursor
	isActive := model == current

	cursor := "  "
	if isSelected {
		cursor = "> "
	}
	marker := "  "
	if isActive {
		marker = "* "
	}
	content := cursor + marker + model

	switch {
	case isSelected && isActive:
		return activeSelectedStyle.Render(content)
	case isSelected:
		return selectedStyle.Render(content)
	case isActive:
		return activeStyle.Render(content)
	}
	return normalStyle.Render(content)
}

// RenderChatView renders the transcript above the message input
func (m Model) RenderChatView() string {
	var b strings.Builder
	width := m.getEffectiveWidth(40)

	title := "Chat"
	if m.activeIndex >= 0 && m.activeIndex < len(m.connections) {
		c := m.connections[m.activeIndex]
		title = "Chat · " + c.FriendlyName
		if c.Model != "" {
			title += " [" + c.Model + "]"
		}
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")

	b.WriteString(m.transcript.View())
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case m.errorMsg != "":
		b.WriteString(errorStyle.Render("✗ " + m.errorMsg))
	case m.generating:
		b.WriteString(dimStyle.Render("Generating... ctrl+x: stop"))
	case m.message != "":
		b.WriteString(messageStyle.Render("✓ " + m.message))
	default:
		b.WriteString(helpStyle.Render("Enter: send │ ctrl+l: clear │ PgUp/PgDn: scroll │ Esc: back"))
	}

	return b.String()
}

// renderTranscript lays out the history with the reply in progress last
func renderTranscript(turns []instruct.Turn, reply string, generating bool, width int) string {
	if len(turns) == 0 && !generating {
		return dimStyle.Render("Say something to start the conversation")
	}

	wrap := lipgloss.NewStyle()
	if width > 0 {
		wrap = wrap.Width(width)
	}

	var b strings.Builder
	for _, t := range turns {
		b.WriteString(roleLabel(t.Role))
		b.WriteString("\n")
		b.WriteString(wrap.Render(t.Content))
		b.WriteString("\n\n")
	}
	if generating {
		b.WriteString(roleLabel(instruct.RoleAssistant))
		b.WriteString("\n")
		b.WriteString(wrap.Render(reply + "▍"))
		b.WriteString("\n")
	}
	return b.String()
}

func roleLabel(r instruct.Role) string {
	switch r {
	case instruct.RoleUser:
		return userStyle.Render("You")
	case instruct.RoleAssistant:
		return assistantStyle.Render("Assistant")
	}
	return dimStyle.Render(string(r))
}
