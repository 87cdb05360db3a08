package tui

import (
	"chatterapi/config/models"
	"chatterapi/internal/modellist"
	"chatterapi/internal/notify"
	"chatterapi/internal/stream"
)

// ConnectionsLoadedMsg is sent when connections are loaded
type ConnectionsLoadedMsg struct {
	Connections []models.Connection
	ActiveIndex int
}

// ConnectionSwitchedMsg is sent when the active connection changes
type ConnectionSwitchedMsg struct {
	Index int
	Name  string
	Err   error
}

// ConnectionAddedMsg is sent when a connection is added
type ConnectionAddedMsg struct {
	Connection models.Connection
	Err        error
}

// ConnectionUpdatedMsg is sent when a connection is updated
type ConnectionUpdatedMsg struct {
	Name string
	Err  error
}

// ConnectionDeletedMsg is sent when a connection is deleted
type ConnectionDeletedMsg struct {
	Name string
	Err  error
}

// ModelsFetchedMsg carries a model list fetch for the connection at Index
type ModelsFetchedMsg struct {
	Index  int
	Result modellist.Result
}

// ModelSwitchedMsg is sent when the model of a connection changes
type ModelSwitchedMsg struct {
	Name  string
	Model string
	Err   error
}

// StreamUpdateMsg carries the current reply text
type StreamUpdateMsg struct {
	Text string
}

// GenerationDoneMsg is sent once a generation has closed
type GenerationDoneMsg struct {
	ID     string
	Text   string
	Reason stream.Reason
	Err    error
}

// ToastMsg wraps a notification
type ToastMsg struct {
	Toast notify.Toast
}

// errMsg is an error message type
type errMsg string
