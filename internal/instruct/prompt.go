package instruct

import "strings"

// Role of a chat turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the chat history
type Turn struct {
	Role    Role
	Content string
}

// Prompt is the opaque text handed to the request builder
type Prompt struct {
	System string // resolved system prompt
	Turns  []Turn // chat history, oldest first
	Text   string // fully formatted text completion prompt
}

// BuildPrompt formats history for both completion styles. inst must already
// be resolved.
func BuildPrompt(inst Instruct, id Identity, history []Turn) Prompt {
	var sb strings.Builder
	if inst.SystemPrompt != "" {
		sb.WriteString(inst.SystemPrefix)
		sb.WriteString(inst.SystemPrompt)
		sb.WriteString(inst.SystemSuffix)
	}
	for _, turn := range history {
		switch turn.Role {
		case RoleUser:
			sb.WriteString(inst.InputPrefix)
			if inst.Names {
				sb.WriteString(id.User + ": ")
			}
			sb.WriteString(turn.Content)
			sb.WriteString(inst.InputSuffix)
		case RoleAssistant:
			sb.WriteString(inst.OutputPrefix)
			if inst.Names {
				sb.WriteString(id.Char + ": ")
			}
			sb.WriteString(turn.Content)
			sb.WriteString(inst.OutputSuffix)
		case RoleSystem:
			sb.WriteString(inst.SystemPrefix)
			sb.WriteString(turn.Content)
			sb.WriteString(inst.SystemSuffix)
		}
	}
	sb.WriteString(inst.OutputPrefix)
	if inst.Names {
		sb.WriteString(id.Char + ":")
	}

	turns := make([]Turn, len(history))
	copy(turns, history)
	return Prompt{
		System: inst.SystemPrompt,
		Turns:  turns,
		Text:   sb.String(),
	}
}
