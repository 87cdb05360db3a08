// Package chat holds the shared chat state a generation streams into.
package chat

import (
	"sync"

	"chatterapi/internal/instruct"
)

// Buffer is the text of the reply being generated plus the generating flag
// and the abort hook of the in-flight generation. It is safe for concurrent use.
type Buffer struct {
	mu         sync.Mutex
	text       string
	generating bool
	abort      func()
	onUpdate   func(text string)
	onStop     func(text string)
}

// NewBuffer creates an empty Buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// OnUpdate registers fn to receive every published buffer
func (b *Buffer) OnUpdate(fn func(text string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onUpdate = fn
}

// OnStop registers fn to run when generation ends, with the final text
func (b *Buffer) OnStop(fn func(text string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStop = fn
}

// Buffer returns the current text
func (b *Buffer) Buffer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// SetBuffer replaces the text and notifies the update hook
func (b *Buffer) SetBuffer(text string) {
	b.mu.Lock()
	b.text = text
	fn := b.onUpdate
	b.mu.Unlock()

	if fn != nil {
		fn(text)
	}
}

// StartGenerating clears the text and marks a generation in progress. It
// returns false when one is already running.
func (b *Buffer) StartGenerating() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generating {
		return false
	}
	b.generating = true
	b.text = ""
	b.abort = nil
	return true
}

// Generating reports whether a generation is in progress
func (b *Buffer) Generating() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generating
}

// StopGenerating marks the generation finished and drops the abort hook.
// Calls after the first are no-ops.
func (b *Buffer) StopGenerating() {
	b.mu.Lock()
	if !b.generating {
		b.mu.Unlock()
		return
	}
	b.generating = false
	b.abort = nil
	text := b.text
	fn := b.onStop
	b.mu.Unlock()

	if fn != nil {
		fn(text)
	}
}

// SetAbort registers the hook Abort invokes
func (b *Buffer) SetAbort(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.abort = fn
}

// Abort invokes the registered abort hook, if any
func (b *Buffer) Abort() {
	b.mu.Lock()
	fn := b.abort
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// History is the ordered list of chat turns. It is safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	turns []instruct.Turn
}

// Append adds a turn at the end
func (h *History) Append(role instruct.Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, instruct.Turn{Role: role, Content: content})
}

// Turns returns a copy of the history
func (h *History) Turns() []instruct.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]instruct.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Clear removes every turn
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
