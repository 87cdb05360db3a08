package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chatterapi/config/models"
	"chatterapi/internal/chat"
	"chatterapi/internal/modellist"
	"chatterapi/internal/templates"
)

// ViewState represents the current view state
type ViewState int

const (
	ViewMain        ViewState = iota // Connection list
	ViewDetail                       // Connection details
	ViewAdd                          // Add connection form
	ViewEdit                         // Edit connection form
	ViewDelete                       // Delete confirmation dialog
	ViewHelp                         // Help panel
	ViewModelSelect                  // Model selection list
	ViewChat                         // Chat with the active connection
)

// Model is the core state model for TUI
type Model struct {
	deps Deps
	keys KeyMap
	help help.Model

	connections []models.Connection
	activeIndex int
	cursor      int
	selected    int
	viewState   ViewState

	formInputs []textinput.Model
	formFocus  int

	message  string
	errorMsg string

	width  int
	height int

	scrollOffset      int
	modelScrollOffset int

	modelCursor int
	modelList   []string
	modelTarget int // connection index the model list belongs to
	fetching    bool

	chat         *chat.Buffer
	history      *chat.History
	updates      chan string
	input        textinput.Model
	transcript   viewport.Model
	reply        string
	generating   bool
	generationID string
}

// NewModel creates a new TUI model
func NewModel(deps Deps) Model {
	if deps.Fetcher == nil {
		deps.Fetcher = modellist.NewFetcher(nil, deps.Logger)
	}

	input := textinput.New()
	input.Placeholder = "Type a message"
	input.Prompt = "› "
	input.CharLimit = 0

	m := Model{
		deps:        deps,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		activeIndex: -1,
		selected:    -1,
		viewState:   ViewMain,
		width:       80,
		height:      24,
		chat:        chat.NewBuffer(),
		history:     &chat.History{},
		updates:     make(chan string, 1),
		input:       input,
		transcript:  viewport.New(80, 16),
	}
	updates := m.updates
	m.chat.OnUpdate(func(text string) { publishLatest(updates, text) })
	return m
}

// publishLatest hands text to the UI, replacing an unread older value
func publishLatest(ch chan string, text string) {
	for {
		select {
		case ch <- text:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadConnections(m.deps),
		waitForUpdate(m.updates),
		waitForToast(m.deps),
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.adjustScrollOffset()
		m.resizeChat()
		return m, nil

	case ConnectionsLoadedMsg:
		m.connections = msg.Connections
		m.activeIndex = msg.ActiveIndex
		if len(m.connections) > 0 && m.cursor >= len(m.connections) {
			m.cursor = len(m.connections) - 1
		}
		if m.selected >= len(m.connections) {
			m.selected = -1
		}
		m.adjustScrollOffset()
		return m, nil

	case ConnectionSwitchedMsg:
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.activeIndex = msg.Index
		m.message = "Active connection: " + msg.Name
		return m, nil

	case ConnectionAddedMsg:
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "Connection added: " + msg.Connection.FriendlyName
		m.closeForm()
		return m, loadConnections(m.deps)

	case ConnectionUpdatedMsg:
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "Connection updated: " + msg.Name
		m.closeForm()
		return m, loadConnections(m.deps)

	case ConnectionDeletedMsg:
		m.viewState = ViewMain
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "Connection deleted: " + msg.Name
		return m, loadConnections(m.deps)

	case ModelsFetchedMsg:
		return m.handleModelsFetched(msg)

	case ModelSwitchedMsg:
		m.viewState = ViewMain
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "Model switched to: " + msg.Model
		return m, loadConnections(m.deps)

	case StreamUpdateMsg:
		if m.generating {
			m.reply = msg.Text
			m.refreshTranscript()
		}
		return m, waitForUpdate(m.updates)

	case GenerationDoneMsg:
		return m.handleGenerationDone(msg), nil

	case ToastMsg:
		m.applyToast(msg)
		return m, waitForToast(m.deps)

	case errMsg:
		m.errorMsg = string(msg)
		return m, nil
	}

	if m.viewState == ViewChat {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewState {
	case ViewMain:
		return m.handleMainViewKeys(msg)
	case ViewDetail:
		return m.handleDetailViewKeys(msg)
	case ViewAdd, ViewEdit:
		return m.handleFormViewKeys(msg)
	case ViewDelete:
		return m.handleDeleteViewKeys(msg)
	case ViewHelp:
		return m.handleHelpViewKeys(msg)
	case ViewModelSelect:
		return m.handleModelSelectViewKeys(msg)
	case ViewChat:
		return m.handleChatViewKeys(msg)
	default:
		return m, nil
	}
}

func (m *Model) clearMessages() {
	m.message = ""
	m.errorMsg = ""
}

func (m Model) validCursor() bool {
	return m.cursor >= 0 && m.cursor < len(m.connections)
}

// handleMainViewKeys handles keyboard input in main view
func (m Model) handleMainViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.moveDown()
		m.clearMessages()
	case "k", "up":
		m.moveUp()
		m.clearMessages()
	case "g":
		m.moveToTop()
		m.clearMessages()
	case "G":
		m.moveToBottom()
		m.clearMessages()

	case "enter":
		if m.validCursor() {
			m.selected = m.cursor
			m.viewState = ViewDetail
		}

	case "s":
		if m.validCursor() {
			m.clearMessages()
			return m, switchConnection(m.deps, m.cursor, m.connections[m.cursor].FriendlyName)
		}

	case "c":
		m.clearMessages()
		return m.openChat()

	case "a":
		m.initAddForm()
	case "e":
		if m.validCursor() {
			m.initEditForm()
		}
	case "d":
		if m.validCursor() {
			m.viewState = ViewDelete
			m.clearMessages()
		}

	case "m":
		if m.validCursor() {
			return m.startModelFetch(m.cursor)
		}

	case "?":
		m.viewState = ViewHelp
	}
	return m, nil
}

// handleDetailViewKeys handles keyboard input in detail view
func (m Model) handleDetailViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.selected < 0 || m.selected >= len(m.connections) {
		m.viewState = ViewMain
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.viewState = ViewMain
	case "s":
		m.clearMessages()
		return m, switchConnection(m.deps, m.selected, m.connections[m.selected].FriendlyName)
	case "e":
		m.cursor = m.selected
		m.initEditForm()
	case "d":
		m.cursor = m.selected
		m.viewState = ViewDelete
		m.clearMessages()
	case "m":
		m.cursor = m.selected
		return m.startModelFetch(m.selected)
	case "?":
		m.viewState = ViewHelp
	}
	return m, nil
}

// moveUp moves cursor up
func (m *Model) moveUp() {
	if m.cursor > 0 {
		m.cursor--
		m.adjustScrollOffset()
	}
}

// moveDown moves cursor down
func (m *Model) moveDown() {
	if len(m.connections) > 0 && m.cursor < len(m.connections)-1 {
		m.cursor++
		m.adjustScrollOffset()
	}
}

// moveToTop moves cursor to top
func (m *Model) moveToTop() {
	m.cursor = 0
	m.scrollOffset = 0
}

// moveToBottom moves cursor to bottom
func (m *Model) moveToBottom() {
	if len(m.connections) > 0 {
		m.cursor = len(m.connections) - 1
		m.adjustScrollOffset()
	}
}

// getVisibleListHeight returns the number of lines available for the list:
// title, separator and blank line above, blank line, separator and status
// bar below
func (m *Model) getVisibleListHeight() int {
	available := m.height - 3 - 4
	if available < 1 {
		available = 1
	}
	return available
}

// adjustScrollOffset keeps the cursor visible
func (m *Model) adjustScrollOffset() {
	m.scrollOffset = clampScroll(m.cursor, m.scrollOffset, m.getVisibleListHeight(), len(m.connections))
}

// clampScroll returns the offset that keeps cursor inside a window of
// visible rows over total rows
func clampScroll(cursor, offset, visible, total int) int {
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+visible {
		offset = cursor - visible + 1
	}
	maxOffset := total - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// View renders the UI
func (m Model) View() string {
	switch m.viewState {
	case ViewHelp:
		return m.RenderHelpView()
	case ViewDetail:
		return m.RenderDetailView()
	case ViewAdd, ViewEdit:
		return m.RenderFormViewFull()
	case ViewDelete:
		return m.RenderDeleteConfirm()
	case ViewModelSelect:
		return m.RenderModelSelectView()
	case ViewChat:
		return m.RenderChatView()
	default:
		return m.RenderMainView()
	}
}

// loadConnections creates a command to load connections
func loadConnections(deps Deps) tea.Cmd {
	return func() tea.Msg {
		values, err := deps.Manager.Values()
		if err != nil {
			return errMsg(err.Error())
		}
		active, err := deps.Manager.ActiveIndex()
		if err != nil {
			return errMsg(err.Error())
		}
		return ConnectionsLoadedMsg{Connections: values, ActiveIndex: active}
	}
}

// switchConnection creates a command to make the connection at index active
func switchConnection(deps Deps, index int, name string) tea.Cmd {
	return func() tea.Msg {
		err := deps.Manager.SetActiveIndex(index)
		return ConnectionSwitchedMsg{Index: index, Name: name, Err: err}
	}
}

// handleFormViewKeys handles keyboard input in form view (add/edit)
func (m Model) handleFormViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.closeForm()
		m.errorMsg = ""
		return m, nil

	case "tab", "down":
		m.formFocus = NextFormField(m.formInputs, m.formFocus)
		return m, nil

	case "shift+tab", "up":
		m.formFocus = PrevFormField(m.formInputs, m.formFocus)
		return m, nil

	case "enter":
		data := GetFormData(m.formInputs)
		if err := data.Validate(); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		m.errorMsg = ""
		if m.viewState == ViewAdd {
			return m, m.submitAddForm(data)
		}
		return m, m.submitEditForm(data)
	}

	if m.formFocus >= 0 && m.formFocus < len(m.formInputs) {
		var cmd tea.Cmd
		m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) closeForm() {
	m.viewState = ViewMain
	m.formInputs = []textinput.Model{}
	m.formFocus = 0
}

// initAddForm opens the add form seeded from the template under the cursor,
// or the first template
func (m *Model) initAddForm() {
	m.formInputs = FormInputs()
	m.formFocus = FormFieldTemplate

	var seed templates.Template
	found := false
	if m.deps.Registry != nil {
		if m.validCursor() {
			seed, found = m.deps.Registry.Get(m.connections[m.cursor].ConfigName)
		}
		if !found {
			if all := m.deps.Registry.Templates(); len(all) > 0 {
				seed, found = all[0], true
			}
		}
	}
	if found {
		SetFormData(m.formInputs, FormDataFromTemplate(seed))
	}

	m.viewState = ViewAdd
	m.clearMessages()
}

// initEditForm opens the edit form for the connection under the cursor
func (m *Model) initEditForm() {
	if !m.validCursor() {
		return
	}
	m.formInputs = FormInputs()
	m.formFocus = FormFieldTemplate
	SetFormData(m.formInputs, FormDataFrom(m.connections[m.cursor]))
	m.viewState = ViewEdit
	m.clearMessages()
}

// submitAddForm creates a command to add a connection
func (m *Model) submitAddForm(data FormData) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		c := data.Apply(models.Connection{})
		_, err := deps.Manager.AddValue(c)
		return ConnectionAddedMsg{Connection: c, Err: err}
	}
}

// submitEditForm creates a command to update the connection under the cursor
func (m *Model) submitEditForm(data FormData) tea.Cmd {
	if !m.validCursor() {
		return nil
	}
	deps := m.deps
	index := m.cursor
	c := data.Apply(m.connections[index])
	return func() tea.Msg {
		err := deps.Manager.EditValue(c, index)
		return ConnectionUpdatedMsg{Name: c.FriendlyName, Err: err}
	}
}

// RenderFormViewFull renders the complete form view
func (m Model) RenderFormViewFull() string {
	title := "Add connection"
	if m.viewState == ViewEdit {
		title = "Edit connection"
	}
	return RenderForm(m.formInputs, m.formFocus, title, m.errorMsg)
}

// handleDeleteViewKeys handles keyboard input in delete confirmation view
func (m Model) handleDeleteViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "y", "Y":
		if m.validCursor() {
			return m, deleteConnection(m.deps, m.cursor, m.connections[m.cursor].FriendlyName)
		}
		m.viewState = ViewMain

	case "n", "N", "esc":
		m.viewState = ViewMain
		m.clearMessages()
	}
	return m, nil
}

// deleteConnection creates a command to delete the connection at index
func deleteConnection(deps Deps, index int, name string) tea.Cmd {
	return func() tea.Msg {
		err := deps.Manager.RemoveValue(index)
		return ConnectionDeletedMsg{Name: name, Err: err}
	}
}

// handleHelpViewKeys handles keyboard input in help view
func (m Model) handleHelpViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "q", "?":
		m.viewState = ViewMain
	}
	return m, nil
}

// startModelFetch requests the model list of the connection at index
func (m Model) startModelFetch(index int) (tea.Model, tea.Cmd) {
	c := m.connections[index]
	t, ok := m.deps.Registry.Get(c.ConfigName)
	if !ok {
		m.errorMsg = fmt.Sprintf("Template %s not found", c.ConfigName)
		return m, nil
	}
	m.clearMessages()
	m.fetching = true
	m.message = "Fetching models..."
	return m, fetchModels(m.deps.Fetcher, t, c, index)
}

// fetchModels creates a command running a model list fetch
func fetchModels(f *modellist.Fetcher, t templates.Template, c models.Connection, index int) tea.Cmd {
	return func() tea.Msg {
		return ModelsFetchedMsg{Index: index, Result: f.Fetch(context.Background(), t, c)}
	}
}

// handleModelsFetched opens the model list. A failed fetch falls back to the
// connection's stored selection.
func (m Model) handleModelsFetched(msg ModelsFetchedMsg) (tea.Model, tea.Cmd) {
	m.fetching = false
	m.message = ""
	if msg.Index < 0 || msg.Index >= len(m.connections) {
		return m, nil
	}
	c := m.connections[msg.Index]

	list := msg.Result.Apply(c.Models)
	if !msg.Result.OK() {
		if msg.Result.Status == modellist.StatusUnsupported {
			m.errorMsg = "This template has no model list"
		} else {
			m.errorMsg = fmt.Sprintf("Model list unavailable (%s)", msg.Result.Status)
		}
	}
	if len(list) == 0 {
		if m.errorMsg == "" {
			m.errorMsg = "No models available"
		}
		return m, nil
	}

	m.modelList = list
	m.modelTarget = msg.Index
	m.modelCursor = 0
	for i, name := range list {
		if name == c.Model {
			m.modelCursor = i
			break
		}
	}
	m.modelScrollOffset = clampScroll(m.modelCursor, 0, m.getVisibleModelListHeight(), len(list))
	m.viewState = ViewModelSelect
	return m, nil
}

// handleModelSelectViewKeys handles keyboard input in model selection view
func (m Model) handleModelSelectViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "q":
		m.viewState = ViewMain
		m.modelList = nil
	case "j", "down":
		if m.modelCursor < len(m.modelList)-1 {
			m.modelCursor++
		}
	case "k", "up":
		if m.modelCursor > 0 {
			m.modelCursor--
		}
	case "g":
		m.modelCursor = 0
	case "G":
		if len(m.modelList) > 0 {
			m.modelCursor = len(m.modelList) - 1
		}
	case "enter":
		if m.modelCursor >= 0 && m.modelCursor < len(m.modelList) &&
			m.modelTarget >= 0 && m.modelTarget < len(m.connections) {
			return m, switchModel(m.deps, m.modelTarget, m.connections[m.modelTarget], m.modelList[m.modelCursor])
		}
	}
	m.modelScrollOffset = clampScroll(m.modelCursor, m.modelScrollOffset, m.getVisibleModelListHeight(), len(m.modelList))
	return m, nil
}

// getVisibleModelListHeight returns the rows available for the model list
func (m *Model) getVisibleModelListHeight() int {
	available := m.height - 4 - 3
	if available < 1 {
		available = 1
	}
	return available
}

// switchModel creates a command storing model on the connection at index
func switchModel(deps Deps, index int, c models.Connection, model string) tea.Cmd {
	return func() tea.Msg {
		c.Model = model
		err := deps.Manager.EditValue(c, index)
		return ModelSwitchedMsg{Name: c.FriendlyName, Model: model, Err: err}
	}
}
