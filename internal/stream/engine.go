// Package stream runs one generation: it posts a built request, decodes the
// provider's event stream and publishes the growing reply to the chat state.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatterapi/internal/instruct"
	"chatterapi/internal/jsonpath"
	"chatterapi/internal/logging"
	"chatterapi/internal/request"
	"chatterapi/internal/templates"
)

// ChatState is the shared chat buffer a generation writes into
type ChatState interface {
	Buffer() string
	SetBuffer(text string)
	StopGenerating()
	SetAbort(fn func())
}

// State of a generation
type State int

const (
	Idle State = iota
	Connecting
	Streaming
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reason a generation closed
type Reason string

const (
	ReasonDone     Reason = "done"     // end of stream sentinel
	ReasonEOF      Reason = "eof"      // body ended without a sentinel
	ReasonError    Reason = "error"    // transport or stream error
	ReasonAborted  Reason = "aborted"  // Abort was called
	ReasonCanceled Reason = "canceled" // the caller's context ended
)

// maxErrorBody bounds how much of a failed response is kept for the message
const maxErrorBody = 4096

// Request describes one generation
type Request struct {
	Body         *request.Body
	Format       templates.StreamFormat
	Sentinel     string
	ParsePattern string
	Stop         *regexp.Regexp // stop and name strings, nil for none
}

// NewRequest derives the stream settings of a built body from its template
func NewRequest(t templates.Template, body *request.Body, stop *regexp.Regexp) Request {
	return Request{
		Body:         body,
		Format:       t.Request.Stream(),
		Sentinel:     t.Request.Sentinel(),
		ParsePattern: t.Request.ResponseParsePattern,
		Stop:         stop,
	}
}

// Engine starts generations over an HTTP client
type Engine struct {
	client *http.Client
	logger zerolog.Logger
}

// NewEngine creates an Engine. A nil client uses http.DefaultClient; no
// timeout is imposed on the stream.
func NewEngine(client *http.Client, logger zerolog.Logger) *Engine {
	if client == nil {
		client = http.DefaultClient
	}
	return &Engine{
		client: client,
		logger: logging.Component(logger, "stream"),
	}
}

// Generation owns the response stream of one request. It is closed exactly
// once, whichever of sentinel, error, end of body, Abort or context
// cancellation comes first.
type Generation struct {
	ID string

	chat   ChatState
	req    Request
	logger zerolog.Logger
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	buffer string
	body   io.Closer
	reason Reason
	err    error

	// publishing is set while SetBuffer runs; a close arriving then leaves
	// StopGenerating to the publisher so no update lands after it
	publishing  bool
	stopPending bool

	once sync.Once
	done chan struct{}
}

// Start registers the abort hook on chat, then sends the request and streams
// the response in the background. An error is returned only when the request
// cannot be created; the generation is already closed in that case.
func (e *Engine) Start(ctx context.Context, req Request, chat ChatState) (*Generation, error) {
	gctx, cancel := context.WithCancel(ctx)
	g := &Generation{
		ID:     uuid.NewString(),
		chat:   chat,
		req:    req,
		parent: ctx,
		ctx:    gctx,
		cancel: cancel,
		state:  Idle,
		buffer: chat.Buffer(),
		done:   make(chan struct{}),
	}
	g.logger = e.logger.With().Str("generation", g.ID).Logger()

	chat.SetAbort(g.Abort)

	if req.Body == nil {
		err := fmt.Errorf("generation has no request body")
		g.close(ReasonError, err)
		return g, err
	}
	if err := checkFormat(req.Format); err != nil {
		g.close(ReasonError, err)
		return g, err
	}

	httpReq, err := req.Body.NewHTTPRequest(gctx)
	if err != nil {
		g.close(ReasonError, err)
		return g, err
	}

	g.setState(Connecting)
	g.logger.Debug().Str("endpoint", req.Body.Endpoint).Str("format", string(req.Format)).Msg("Sending request")

	go g.run(e.client, httpReq)
	return g, nil
}

func (g *Generation) setState(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Closed {
		g.state = s
	}
}

// State returns the current state
func (g *Generation) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Reason returns why the generation closed, empty while it runs
func (g *Generation) Reason() Reason {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reason
}

// Err returns the terminal error, nil for a clean close or an abort
func (g *Generation) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Done is closed once the generation has closed
func (g *Generation) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the generation closes and returns its terminal error
func (g *Generation) Wait() error {
	<-g.done
	return g.Err()
}

// Abort stops the generation immediately
func (g *Generation) Abort() {
	g.close(ReasonAborted, nil)
}

// close tears the generation down. Only the first call has any effect.
func (g *Generation) close(reason Reason, err error) {
	g.once.Do(func() {
		g.mu.Lock()
		g.state = Closed
		g.reason = reason
		g.err = err
		body := g.body
		g.body = nil
		deferred := g.publishing
		g.stopPending = deferred
		g.mu.Unlock()

		g.cancel()
		if body != nil {
			body.Close()
		}
		if !deferred {
			g.finish()
		}
	})
}

// finish stops the chat and releases Wait. It runs once, after the last
// SetBuffer has returned.
func (g *Generation) finish() {
	g.chat.StopGenerating()

	g.mu.Lock()
	reason, err := g.reason, g.err
	g.mu.Unlock()

	ev := g.logger.Debug()
	if err != nil {
		ev = g.logger.Error().Err(err)
		var te *TransportError
		if errors.As(err, &te) {
			ev = ev.Str("category", te.Category).Int("status", te.StatusCode)
		}
	}
	ev.Str("reason", string(reason)).Msg("Generation closed")

	close(g.done)
}

// failure picks the close reason for an error raised while sending or
// reading, distinguishing deliberate cancellation from a real failure
func (g *Generation) failure(err error) {
	switch {
	case g.parent.Err() != nil:
		g.close(ReasonCanceled, nil)
	case g.ctx.Err() != nil:
		// Abort already closed the generation
		g.close(ReasonAborted, nil)
	default:
		g.close(ReasonError, networkError(err))
	}
}

func (g *Generation) run(client *http.Client, httpReq *http.Request) {
	resp, err := client.Do(httpReq)
	if err != nil {
		g.failure(err)
		return
	}

	g.mu.Lock()
	if g.state == Closed {
		g.mu.Unlock()
		resp.Body.Close()
		return
	}
	g.body = resp.Body
	g.mu.Unlock()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		g.close(ReasonError, statusError(resp.StatusCode, data))
		return
	}

	dec, err := newDecoder(g.req.Format, resp.Body)
	if err != nil {
		g.close(ReasonError, err)
		return
	}

	for {
		ev, err := dec.Next()
		if err == io.EOF {
			g.close(ReasonEOF, nil)
			return
		}
		if err != nil {
			g.failure(err)
			return
		}
		if !g.handle(ev) {
			return
		}
	}
}

// handle applies one event and reports whether streaming continues
func (g *Generation) handle(ev Event) bool {
	g.setState(Streaming)

	data := strings.TrimSpace(ev.Data)
	if data == g.req.Sentinel {
		g.close(ReasonDone, nil)
		return false
	}
	if ev.Type == "error" {
		g.close(ReasonError, &TransportError{Category: CategoryStream, Message: data})
		return false
	}

	res, outcome := jsonpath.Lookup(data, g.req.ParsePattern)
	if outcome != jsonpath.Found {
		g.logger.Debug().
			Str("outcome", outcome.String()).
			Str("path", g.req.ParsePattern).
			Msg("Chunk contributed no text")
		return true
	}
	text := jsonpath.Scalar(res)
	if text == "" {
		return true
	}

	g.mu.Lock()
	if g.state == Closed {
		g.mu.Unlock()
		return false
	}
	g.buffer = instruct.Strip(g.buffer+text, g.req.Stop)
	buffer := g.buffer
	g.publishing = true
	g.mu.Unlock()

	g.chat.SetBuffer(buffer)

	g.mu.Lock()
	g.publishing = false
	stop := g.stopPending
	g.stopPending = false
	g.mu.Unlock()

	if stop {
		g.finish()
		return false
	}
	return true
}
