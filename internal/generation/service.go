// Package generation wires the connection store, template registry, instruct
// resolver and sampler store into a single send operation that streams one
// reply into the chat state.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatterapi/config/models"
	"chatterapi/internal/instruct"
	"chatterapi/internal/logging"
	"chatterapi/internal/notify"
	"chatterapi/internal/request"
	"chatterapi/internal/samplers"
	"chatterapi/internal/stream"
	"chatterapi/internal/templates"
)

// ErrBusy is returned when a send arrives while a generation is running
var ErrBusy = errors.New("a generation is already running")

// Connections provides the active connection
type Connections interface {
	GetActive() (models.Connection, int, error)
}

// Templates looks templates up by name
type Templates interface {
	Get(name string) (templates.Template, bool)
}

// Samplers provides the active sampler preset
type Samplers interface {
	Active() (string, samplers.Preset, error)
}

// ChatState is the chat buffer a send streams into
type ChatState interface {
	stream.ChatState
	StartGenerating() bool
}

// Options configures a Service
type Options struct {
	Connections Connections
	Templates   Templates
	Samplers    Samplers
	// Instruct is read on every send
	Instruct func() (instruct.Instruct, error)
	// Identity is read on every send
	Identity func() instruct.Identity
	Engine   *stream.Engine
	Notifier *notify.Notifier
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Service sends chat requests. One generation runs at a time.
type Service struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	current *stream.Generation
}

// NewService creates a Service. Missing optional collaborators fall back to
// the default instruct settings, a fixed identity and time.Now.
func NewService(opts Options) *Service {
	if opts.Instruct == nil {
		opts.Instruct = func() (instruct.Instruct, error) { return instruct.Default(), nil }
	}
	if opts.Identity == nil {
		opts.Identity = func() instruct.Identity { return instruct.Identity{User: "User", Char: "Assistant"} }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Engine == nil {
		opts.Engine = stream.NewEngine(nil, opts.Logger)
	}
	return &Service{
		opts:   opts,
		logger: logging.Component(opts.Logger, "generation"),
	}
}

// Current returns the running generation, nil when idle
func (s *Service) Current() *stream.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.State() == stream.Closed {
		return nil
	}
	return s.current
}

// SendRequest builds a request for history against the active connection and
// starts streaming the reply into chat. history must already contain the
// user's latest message.
//
// Configuration problems are notified, end the generating state and are
// returned wrapped; transport failures surface later through the returned
// generation and the notifier.
func (s *Service) SendRequest(ctx context.Context, chat ChatState, history []instruct.Turn) (*stream.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.State() != stream.Closed {
		return nil, ErrBusy
	}
	if !chat.StartGenerating() {
		return nil, ErrBusy
	}

	req, err := s.prepare(history)
	if err != nil {
		return nil, s.fail(chat, err)
	}

	g, err := s.opts.Engine.Start(ctx, req, chat)
	if err != nil {
		// Start already closed the generation and stopped the chat
		s.notifyError("Generation failed: %v", err)
		return nil, fmt.Errorf("failed to start generation: %w", err)
	}
	s.current = g
	s.logger.Info().
		Str("generation", g.ID).
		Str("endpoint", req.Body.Endpoint).
		Int("turns", len(history)).
		Msg("Generation started")

	go s.watch(g)
	return g, nil
}

// prepare resolves everything the request needs
func (s *Service) prepare(history []instruct.Turn) (stream.Request, error) {
	conn, _, err := s.opts.Connections.GetActive()
	if err != nil {
		return stream.Request{}, fmt.Errorf("no configuration found: %w", err)
	}

	tmpl, ok := s.opts.Templates.Get(conn.ConfigName)
	if !ok {
		return stream.Request{}, fmt.Errorf("connection %q: %w: %s", conn.FriendlyName, templates.ErrTemplateNotFound, conn.ConfigName)
	}

	inst, err := s.opts.Instruct()
	if err != nil {
		return stream.Request{}, fmt.Errorf("failed to load instruct settings: %w", err)
	}
	id := s.opts.Identity()
	inst = instruct.Resolve(inst, id, s.opts.Now())

	var preset samplers.Preset
	if s.opts.Samplers != nil {
		if _, preset, err = s.opts.Samplers.Active(); err != nil {
			return stream.Request{}, fmt.Errorf("failed to load samplers: %w", err)
		}
	} else {
		preset = samplers.DefaultPreset()
	}

	body, err := request.Build(request.Input{
		Template:   tmpl,
		Connection: conn,
		Samplers:   preset,
		Prompt:     instruct.BuildPrompt(inst, id, history),
		Stops:      instruct.ConstructStopSequence(inst),
	})
	if err != nil {
		return stream.Request{}, err
	}

	stop := instruct.CompileStopPattern(instruct.ConstructReplaceStrings(inst, id))
	return stream.NewRequest(tmpl, body, stop), nil
}

func (s *Service) fail(chat ChatState, err error) error {
	chat.StopGenerating()
	s.notifyError("%v", err)
	return err
}

func (s *Service) notifyError(format string, args ...any) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Errorf(format, args...)
		return
	}
	s.logger.Error().Msgf(format, args...)
}

// watch reports how a generation ended
func (s *Service) watch(g *stream.Generation) {
	err := g.Wait()
	if err == nil {
		s.logger.Debug().Str("generation", g.ID).Str("reason", string(g.Reason())).Msg("Generation finished")
		return
	}
	var te *stream.TransportError
	if errors.As(err, &te) {
		s.notifyError("%s", te.UserMessage())
		return
	}
	s.notifyError("Generation failed: %v", err)
}
