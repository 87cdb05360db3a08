// Package request turns a template, a connection and the current sampler and
// prompt state into a wire ready request. Building is pure: nothing here
// touches the network or mutates its inputs.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/sjson"

	"chatterapi/config/models"
	"chatterapi/internal/instruct"
	"chatterapi/internal/samplers"
	"chatterapi/internal/templates"
)

// ErrBuildFailed is returned when a request cannot be built from the
// connection values
var ErrBuildFailed = errors.New("request build failed")

// Input is everything a request is built from
type Input struct {
	Template   templates.Template
	Connection models.Connection
	Samplers   samplers.Preset
	Prompt     instruct.Prompt
	Stops      []string
}

// Body is a built request
type Body struct {
	Endpoint        string
	Header          http.Header
	Payload         []byte
	WithCredentials bool // an auth header is attached
}

// NewHTTPRequest creates the POST request for b
func (b *Body) NewHTTPRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(b.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = b.Header.Clone()
	return req, nil
}

// Headers returns the request headers for connection c and whether
// credentials are attached
func Headers(t templates.Template, c models.Connection) (http.Header, bool) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	for k, v := range t.Request.Headers {
		h.Set(k, v)
	}
	withCredentials := false
	if t.Request.AuthHeader != "" && c.Key != "" {
		h.Set(t.Request.AuthHeader, t.Request.AuthPrefix+c.Key)
		withCredentials = true
	}
	return h, withCredentials
}

// checkRequired verifies every value key the template marks as required
func checkRequired(t templates.Template, c models.Connection) error {
	for _, key := range t.Request.Required {
		var missing bool
		switch key {
		case templates.RequireEndpoint:
			missing = c.Endpoint == ""
		case templates.RequireModelEndpoint:
			missing = c.ModelEndpoint == ""
		case templates.RequireKey:
			missing = c.Key == ""
		case templates.RequireModel:
			missing = c.Model == "" && len(c.Models) == 0
		default:
			return fmt.Errorf("%w: template %s requires unknown field %q", ErrBuildFailed, t.Name, key)
		}
		if missing {
			return fmt.Errorf("%w: %s is required by template %s", ErrBuildFailed, key, t.Name)
		}
	}
	if c.Endpoint == "" {
		return fmt.Errorf("%w: connection has no endpoint", ErrBuildFailed)
	}
	return nil
}

// Build produces the request for in. Configuration problems are reported as
// ErrBuildFailed.
func Build(in Input) (*Body, error) {
	t := in.Template
	if err := checkRequired(t, in.Connection); err != nil {
		return nil, err
	}

	var payload []byte
	var err error
	switch t.Payload.BodyType() {
	case templates.PayloadJSON:
		payload, err = buildJSON(in)
	case templates.PayloadString:
		payload, err = buildString(in)
	default:
		err = fmt.Errorf("unknown payload type %q", t.Payload.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}

	header, withCredentials := Headers(t, in.Connection)
	return &Body{
		Endpoint:        in.Connection.Endpoint,
		Header:          header,
		Payload:         payload,
		WithCredentials: withCredentials,
	}, nil
}

// escapeKey escapes sjson path syntax inside a single key
func escapeKey(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return escapeKey(key)
	}
	return prefix + "." + escapeKey(key)
}

// samplerValues projects the preset through the template's samplerFields,
// keyed by internalID, in declaration order
func samplerValues(in Input) ([]string, map[string]any) {
	var order []string
	values := make(map[string]any, len(in.Template.SamplerFields))
	for _, sf := range in.Template.SamplerFields {
		v, ok := in.Samplers.Value(sf.SamplerID)
		if !ok {
			continue
		}
		if sf.SamplerID == samplers.Seed && in.Template.Request.RemoveSeedIfNegative {
			if n, isNum := toFloat(v); isNum && n < 0 {
				continue
			}
		}
		if _, seen := values[sf.InternalID]; !seen {
			order = append(order, sf.InternalID)
		}
		values[sf.InternalID] = v
	}
	return order, values
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// modelValue is the model to send, nil when none is selected
func modelValue(t templates.Template, c models.Connection) any {
	if t.Features.MultipleModels && len(c.Models) > 0 {
		return c.Models
	}
	if c.Model != "" {
		return c.Model
	}
	return nil
}

func buildJSON(in Input) ([]byte, error) {
	t := in.Template
	body := []byte(`{}`)
	var err error

	order, values := samplerValues(in)
	for _, id := range order {
		if body, err = sjson.SetBytes(body, joinPath(t.Request.SamplerPath, id), values[id]); err != nil {
			return nil, fmt.Errorf("sampler %s: %w", id, err)
		}
	}

	for _, f := range t.Request.Fields {
		if body, err = sjson.SetBytes(body, f.Path, f.Value); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Path, err)
		}
	}

	if t.Request.ModelKey != "" {
		if m := modelValue(t, in.Connection); m != nil {
			if body, err = sjson.SetBytes(body, t.Request.ModelKey, m); err != nil {
				return nil, fmt.Errorf("model: %w", err)
			}
		}
	}

	if t.Request.UseStop && t.Request.StopKey != "" && len(in.Stops) > 0 {
		if body, err = sjson.SetBytes(body, t.Request.StopKey, in.Stops); err != nil {
			return nil, fmt.Errorf("stop: %w", err)
		}
	}

	switch t.Request.Completion() {
	case templates.CompletionChat:
		if t.Request.SystemKey != "" && in.Prompt.System != "" {
			if body, err = sjson.SetBytes(body, t.Request.SystemKey, in.Prompt.System); err != nil {
				return nil, fmt.Errorf("system: %w", err)
			}
		}
		messages, err := buildMessages(in)
		if err != nil {
			return nil, err
		}
		if body, err = sjson.SetRawBytes(body, messagesKey(t), messages); err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
	default:
		promptKey := t.Request.PromptKey
		if promptKey == "" {
			promptKey = "prompt"
		}
		if body, err = sjson.SetBytes(body, promptKey, in.Prompt.Text); err != nil {
			return nil, fmt.Errorf("prompt: %w", err)
		}
	}
	return body, nil
}

func messagesKey(t templates.Template) string {
	if t.Request.MessagesKey == "" {
		return "messages"
	}
	return t.Request.MessagesKey
}

// buildMessages renders the chat history as a JSON array: optional system
// message, optional first message, the history, optional assistant prefill
func buildMessages(in Input) ([]byte, error) {
	t := in.Template
	r := t.Request
	contentKey := r.ContentKey
	if contentKey == "" {
		contentKey = "content"
	}
	userRole := orDefault(r.UserRole, "user")
	assistantRole := orDefault(r.AssistantRole, "assistant")

	messages := []byte(`[]`)
	add := func(role, content string) error {
		msg, err := sjson.SetBytes([]byte(`{}`), "role", role)
		if err != nil {
			return err
		}
		if msg, err = sjson.SetBytes(msg, escapeKey(contentKey), content); err != nil {
			return err
		}
		messages, err = sjson.SetRawBytes(messages, "-1", msg)
		return err
	}

	if r.SystemKey == "" && r.SystemRole != "" && in.Prompt.System != "" {
		if err := add(r.SystemRole, in.Prompt.System); err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
	}
	if t.Features.UseFirstMessage && in.Connection.FirstMessage != "" {
		if err := add(userRole, in.Connection.FirstMessage); err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
	}
	for _, turn := range in.Prompt.Turns {
		role := userRole
		switch turn.Role {
		case instruct.RoleAssistant:
			role = assistantRole
		case instruct.RoleSystem:
			if r.SystemRole != "" {
				role = r.SystemRole
			}
		}
		if err := add(role, turn.Content); err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
	}
	if t.Features.UsePrefill && in.Connection.Prefill != "" {
		if err := add(assistantRole, in.Connection.Prefill); err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
	}
	return messages, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var placeholder = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// buildString expands the raw payload template. Each placeholder becomes the
// JSON encoding of its value; unknown placeholders are left untouched.
func buildString(in Input) ([]byte, error) {
	_, values := samplerValues(in)
	byID := make(map[string]any, len(values))
	for _, sf := range in.Template.SamplerFields {
		// a dropped sampler (negative seed) renders as null
		byID[sf.SamplerID] = values[sf.InternalID]
	}

	messages, err := buildMessages(in)
	if err != nil {
		return nil, err
	}
	stops := in.Stops
	if stops == nil {
		stops = []string{}
	}
	named := map[string]any{
		"prompt":   in.Prompt.Text,
		"system":   in.Prompt.System,
		"model":    modelValue(in.Template, in.Connection),
		"stop":     stops,
		"messages": json.RawMessage(messages),
	}

	var firstErr error
	out := placeholder.ReplaceAllStringFunc(in.Template.Payload.Template, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := named[name]
		if !ok {
			if v, ok = byID[name]; !ok {
				return m
			}
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("placeholder %s: %w", name, err)
			}
			return m
		}
		return string(encoded)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return []byte(out), nil
}
