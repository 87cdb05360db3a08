// Package templates describes provider APIs declaratively. A Template is plain
// data: it can be imported from JSON, and every behavioural difference between
// providers is expressed by its fields.
package templates

// Version is the template schema version
const Version = 1

// Template describes one provider family
type Template struct {
	Version       int            `json:"version"`
	Name          string         `json:"name"`
	DefaultValues Values         `json:"defaultValues"`
	Features      Features       `json:"features"`
	UI            UI             `json:"ui"`
	Request       Request        `json:"request"`
	Payload       Payload        `json:"payload"`
	Model         ModelParsing   `json:"model"`
	SamplerFields []SamplerField `json:"samplerFields"`
}

// Values seeds a new connection
type Values struct {
	Endpoint      string `json:"endpoint"`
	ModelEndpoint string `json:"modelEndpoint"`
	Key           string `json:"key"`
	Model         string `json:"model"`
	Prefill       string `json:"prefill"`
	FirstMessage  string `json:"firstMessage"`
}

// Features gates which connection fields matter
type Features struct {
	UseKey          bool `json:"useKey"`
	UseModel        bool `json:"useModel"`
	MultipleModels  bool `json:"multipleModels"`
	UseFirstMessage bool `json:"useFirstMessage"`
	UsePrefill      bool `json:"usePrefill"`
}

// UI lists user editable fields
type UI struct {
	EditableCompletionPath bool `json:"editableCompletionPath"`
	EditableModelPath      bool `json:"editableModelPath"`
	SelectableModel        bool `json:"selectableModel"`
}

// CompletionType selects how the prompt is placed in the body
type CompletionType string

const (
	CompletionChat CompletionType = "chat"
	CompletionText CompletionType = "text"
)

// StreamFormat selects how the response is framed
type StreamFormat string

const (
	StreamSSE    StreamFormat = "sse"
	StreamNDJSON StreamFormat = "ndjson"
	StreamNone   StreamFormat = "none"
)

// PayloadType selects the body encoding
type PayloadType string

const (
	PayloadJSON   PayloadType = "json"
	PayloadString PayloadType = "string"
)

// Required value keys
const (
	RequireEndpoint      = "endpoint"
	RequireModelEndpoint = "modelEndpoint"
	RequireKey           = "key"
	RequireModel         = "model"
)

// Request is the wire contract of a provider
type Request struct {
	AuthHeader           string            `json:"authHeader"`
	AuthPrefix           string            `json:"authPrefix"`
	Headers              map[string]string `json:"headers,omitempty"`
	ResponseParsePattern string            `json:"responseParsePattern"`
	StreamFormat         StreamFormat      `json:"streamFormat,omitempty"`
	DoneSentinel         string            `json:"doneSentinel,omitempty"`
	CompletionType       CompletionType    `json:"completionType"`
	MessagesKey          string            `json:"messagesKey,omitempty"`
	ContentKey           string            `json:"contentKey,omitempty"`
	UserRole             string            `json:"userRole,omitempty"`
	AssistantRole        string            `json:"assistantRole,omitempty"`
	SystemRole           string            `json:"systemRole,omitempty"`
	SystemKey            string            `json:"systemKey,omitempty"` // top level system prompt (Claude)
	PromptKey            string            `json:"promptKey,omitempty"`
	ModelKey             string            `json:"modelKey,omitempty"`
	SamplerPath          string            `json:"samplerPath,omitempty"`
	UseStop              bool              `json:"useStop"`
	StopKey              string            `json:"stopKey,omitempty"`
	RemoveSeedIfNegative bool              `json:"removeSeedIfNegative,omitempty"`
	Required             []string          `json:"required,omitempty"`
	Fields               []Field           `json:"fields,omitempty"`
}

// Field is a fixed body field set at Path
type Field struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Payload selects between a JSON body and a raw string body
type Payload struct {
	Type     PayloadType `json:"type"`
	Template string      `json:"template,omitempty"`
}

// ModelParsing locates models in a model-list response
type ModelParsing struct {
	ModelListParser   string `json:"modelListParser"`
	NameParser        string `json:"nameParser"`
	ContextSizeParser string `json:"contextSizeParser,omitempty"`
}

// SamplerField maps a generic sampler to the provider's field name
type SamplerField struct {
	SamplerID  string `json:"samplerID"`
	InternalID string `json:"internalID"`
}

// Stream returns the stream format, defaulting to SSE
func (r Request) Stream() StreamFormat {
	if r.StreamFormat == "" {
		return StreamSSE
	}
	return r.StreamFormat
}

// Sentinel returns the end of stream marker, defaulting to [DONE]
func (r Request) Sentinel() string {
	if r.DoneSentinel == "" {
		return "[DONE]"
	}
	return r.DoneSentinel
}

// Completion returns the completion type, defaulting to text
func (r Request) Completion() CompletionType {
	if r.CompletionType == "" {
		return CompletionText
	}
	return r.CompletionType
}

// BodyType returns the payload type, defaulting to JSON
func (p Payload) BodyType() PayloadType {
	if p.Type == "" {
		return PayloadJSON
	}
	return p.Type
}
