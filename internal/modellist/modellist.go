// Package modellist fetches the models a connection offers. Fetching never
// fails with a Go error: every outcome is a Result with a Status.
package modellist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"chatterapi/config/models"
	"chatterapi/internal/jsonpath"
	"chatterapi/internal/logging"
	"chatterapi/internal/request"
	"chatterapi/internal/templates"
)

// DefaultTimeout bounds a model-list request
const DefaultTimeout = time.Second

// maxBody bounds the response size read
const maxBody = 8 << 20

// Status classifies a fetch
type Status int

const (
	StatusOK Status = iota
	// StatusMissing means modelListParser resolved to nothing
	StatusMissing
	// StatusNotArray means modelListParser resolved to a non-array value
	StatusNotArray
	// StatusInvalid means the response is not JSON
	StatusInvalid
	// StatusTransport covers connect failures, timeouts and non-200 responses
	StatusTransport
	// StatusUnsupported means the template has no model selection
	StatusUnsupported
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMissing:
		return "missing"
	case StatusNotArray:
		return "not_array"
	case StatusInvalid:
		return "invalid"
	case StatusTransport:
		return "transport"
	case StatusUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Model is one entry of a model list
type Model struct {
	Name        string
	ContextSize int64 // 0 when unknown
}

// Result of a fetch
type Result struct {
	Status     Status
	Models     []Model
	StatusCode int
	Err        error
}

// OK reports whether Models is usable
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Names returns the model names of r
func (r Result) Names() []string {
	names := make([]string, len(r.Models))
	for i, m := range r.Models {
		names[i] = m.Name
	}
	return names
}

// Apply returns the list a UI should show: the fetched names when r is OK,
// otherwise current unchanged
func (r Result) Apply(current []string) []string {
	if !r.OK() {
		return current
	}
	return r.Names()
}

// Fetcher retrieves model lists
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFetcher creates a Fetcher with DefaultTimeout. A nil client uses
// http.DefaultClient.
func NewFetcher(client *http.Client, logger zerolog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:  client,
		timeout: DefaultTimeout,
		logger:  logging.Component(logger, "modellist"),
	}
}

// WithTimeout returns a copy of f using timeout
func (f *Fetcher) WithTimeout(timeout time.Duration) *Fetcher {
	c := *f
	c.timeout = timeout
	return &c
}

// Fetch requests the model list of connection c
func (f *Fetcher) Fetch(ctx context.Context, t templates.Template, c models.Connection) Result {
	if !t.UI.SelectableModel || c.ModelEndpoint == "" {
		return Result{Status: StatusUnsupported}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ModelEndpoint, nil)
	if err != nil {
		f.logger.Error().Err(err).Str("endpoint", c.ModelEndpoint).Msg("Invalid model endpoint")
		return Result{Status: StatusTransport, Err: err}
	}
	header, _ := request.Headers(t, c)
	header.Del("Content-Type")
	req.Header = header

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error().Err(err).Str("endpoint", c.ModelEndpoint).Msg("Model list request failed")
		return Result{Status: StatusTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to read model list")
		return Result{Status: StatusTransport, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("model list request returned status %d", resp.StatusCode)
		f.logger.Error().Int("status", resp.StatusCode).Str("endpoint", c.ModelEndpoint).Msg("Model list request rejected")
		return Result{Status: StatusTransport, StatusCode: resp.StatusCode, Err: err}
	}

	res := Parse(t.Model, body)
	res.StatusCode = resp.StatusCode
	switch res.Status {
	case StatusMissing:
		f.logger.Error().Str("path", t.Model.ModelListParser).Msg("Model list is undefined: parser path not found in response")
	case StatusNotArray:
		f.logger.Error().Str("path", t.Model.ModelListParser).Msg("Model list is not an array")
	case StatusInvalid:
		f.logger.Error().Msg("Model list response is not valid JSON")
	default:
		f.logger.Debug().Int("count", len(res.Models)).Msg("Fetched model list")
	}
	return res
}

// Parse extracts the models from a model-list response body
func Parse(p templates.ModelParsing, body []byte) Result {
	list, outcome := jsonpath.Lookup(string(body), p.ModelListParser)
	switch outcome {
	case jsonpath.Invalid:
		return Result{Status: StatusInvalid, Err: fmt.Errorf("model list response is not valid JSON")}
	case jsonpath.Missing:
		return Result{Status: StatusMissing, Err: fmt.Errorf("nothing at %q", p.ModelListParser)}
	}
	if !list.IsArray() {
		return Result{Status: StatusNotArray, Err: fmt.Errorf("value at %q is %s, not an array", p.ModelListParser, list.Type)}
	}

	out := []Model{}
	list.ForEach(func(_, elem gjson.Result) bool {
		nameRes, outcome := jsonpath.LookupResult(elem, p.NameParser)
		if outcome != jsonpath.Found {
			return true
		}
		name := jsonpath.Scalar(nameRes)
		if name == "" {
			return true
		}
		m := Model{Name: name}
		if p.ContextSizeParser != "" {
			m.ContextSize = elem.Get(p.ContextSizeParser).Int()
		}
		out = append(out, m)
		return true
	})
	return Result{Status: StatusOK, Models: out}
}
