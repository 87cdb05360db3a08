package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"chatterapi/config"
	"chatterapi/config/models"
	"chatterapi/internal/chat"
	"chatterapi/internal/crypto"
	"chatterapi/internal/instruct"
	"chatterapi/internal/notify"
	"chatterapi/internal/request"
	"chatterapi/internal/samplers"
	"chatterapi/internal/stream"
	"chatterapi/internal/templates"
)

type fixture struct {
	manager  *config.Manager
	registry *templates.Registry
	notifier *notify.Notifier
	chat     *chat.Buffer
	service  *Service
}

func newFixture(t *testing.T, client *http.Client, inst instruct.Instruct) *fixture {
	t.Helper()
	dir := t.TempDir()

	manager, err := config.NewManager(dir, crypto.NewKeyManagerFromSecret("test"), zerolog.Nop())
	require.NoError(t, err)
	registry, err := templates.NewRegistry(filepath.Join(dir, config.TemplatesFile))
	require.NoError(t, err)
	notifier := notify.New(zerolog.Nop(), notify.DefaultBuffer)

	f := &fixture{
		manager:  manager,
		registry: registry,
		notifier: notifier,
		chat:     chat.NewBuffer(),
	}
	f.service = NewService(Options{
		Connections: manager,
		Templates:   registry,
		Samplers:    samplers.NewStore(filepath.Join(dir, config.SamplersFile)),
		Instruct:    func() (instruct.Instruct, error) { return inst, nil },
		Identity:    func() instruct.Identity { return instruct.Identity{User: "Alice", Char: "Bob"} },
		Engine:      stream.NewEngine(client, zerolog.Nop()),
		Notifier:    notifier,
		Logger:      zerolog.Nop(),
		Now:         func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) },
	})
	return f
}

func (f *fixture) addConnection(t *testing.T, templateName, endpoint string) {
	t.Helper()
	_, err := f.manager.AddValue(models.Connection{
		ConfigName:   templateName,
		FriendlyName: "test",
		Endpoint:     endpoint,
		Key:          "sk-test",
		Model:        "gpt-4o",
	})
	require.NoError(t, err)
}

func waitToast(t *testing.T, n *notify.Notifier) notify.Toast {
	t.Helper()
	select {
	case toast := <-n.Toasts():
		return toast
	case <-time.After(2 * time.Second):
		t.Fatal("no toast received")
		return notify.Toast{}
	}
}

var history = []instruct.Turn{{Role: instruct.RoleUser, Content: "Hi"}}

func TestSendRequestStreamsReply(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies <- data
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Hi there", "\\nBob :", " again###"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%s\"}}]}\n\n", chunk)
			w.(http.Flusher).Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	inst := instruct.Default()
	inst.StopSequence = "###"
	inst.Names = true
	inst.SystemPrompt = "You are {{char}} talking to {{user}}."
	f := newFixture(t, srv.Client(), inst)
	f.addConnection(t, "OpenAI", srv.URL)

	g, err := f.service.SendRequest(context.Background(), f.chat, history)
	require.NoError(t, err)
	require.NoError(t, g.Wait())

	assert.Equal(t, stream.ReasonDone, g.Reason())
	assert.Equal(t, "Hi there\n again", f.chat.Buffer())
	assert.False(t, f.chat.Generating())
	assert.Nil(t, f.service.Current())

	body := gjson.ParseBytes(<-bodies)
	assert.Equal(t, "gpt-4o", body.Get("model").String())
	assert.Equal(t, `["###"]`, body.Get("stop").Raw)
	assert.Equal(t, "system", body.Get("messages.0.role").String())
	assert.Equal(t, "You are Bob talking to Alice.", body.Get("messages.0.content").String())
	assert.Equal(t, "Hi", body.Get("messages.1.content").String())
	assert.True(t, body.Get("stream").Bool())
}

func TestSendRequestWithoutConnection(t *testing.T) {
	f := newFixture(t, nil, instruct.Default())
	f.addConnection(t, "OpenAI", "https://api.openai.com/v1/chat/completions")
	require.NoError(t, f.manager.RemoveValue(0))

	var g *stream.Generation
	var err error
	assert.NotPanics(t, func() {
		g, err = f.service.SendRequest(context.Background(), f.chat, history)
	})
	require.Error(t, err)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, config.ErrNoActiveConnection)
	assert.Contains(t, err.Error(), "no configuration found")
	assert.False(t, f.chat.Generating())

	toast := waitToast(t, f.notifier)
	assert.Equal(t, notify.Error, toast.Level)
	assert.Contains(t, toast.Message, "no configuration found")
}

func TestSendRequestUnknownTemplate(t *testing.T) {
	f := newFixture(t, nil, instruct.Default())
	f.addConnection(t, "Removed Provider", "https://example.com/v1/chat")

	_, err := f.service.SendRequest(context.Background(), f.chat, history)
	assert.ErrorIs(t, err, templates.ErrTemplateNotFound)
	assert.False(t, f.chat.Generating())
	assert.Equal(t, notify.Error, waitToast(t, f.notifier).Level)
}

func TestSendRequestBuildFailure(t *testing.T) {
	f := newFixture(t, nil, instruct.Default())
	_, err := f.manager.AddValue(models.Connection{
		ConfigName:   "OpenAI",
		FriendlyName: "no key",
		Endpoint:     "https://api.openai.com/v1/chat/completions",
		Model:        "gpt-4o",
	})
	require.NoError(t, err)

	_, err = f.service.SendRequest(context.Background(), f.chat, history)
	assert.ErrorIs(t, err, request.ErrBuildFailed)
	assert.False(t, f.chat.Generating())
}

func TestSendRequestBusy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := newFixture(t, srv.Client(), instruct.Default())
	f.addConnection(t, "OpenAI", srv.URL)

	first, err := f.service.SendRequest(context.Background(), f.chat, history)
	require.NoError(t, err)
	assert.Same(t, first, f.service.Current())

	_, err = f.service.SendRequest(context.Background(), f.chat, history)
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, f.chat.Generating(), "a refused send leaves the running generation alone")

	f.chat.Abort()
	require.NoError(t, first.Wait())
	assert.Equal(t, stream.ReasonAborted, first.Reason())
	assert.False(t, f.chat.Generating())

	second, err := f.service.SendRequest(context.Background(), f.chat, history)
	require.NoError(t, err)
	second.Abort()
	require.NoError(t, second.Wait())
}

func TestSendRequestNotifiesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid api key"}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.Client(), instruct.Default())
	f.addConnection(t, "OpenAI", srv.URL)

	g, err := f.service.SendRequest(context.Background(), f.chat, history)
	require.NoError(t, err)

	var te *stream.TransportError
	require.True(t, errors.As(g.Wait(), &te))
	assert.Equal(t, stream.CategoryAuth, te.Category)

	toast := waitToast(t, f.notifier)
	assert.Equal(t, notify.Error, toast.Level)
	assert.True(t, strings.HasPrefix(toast.Message, "Authentication failed"), toast.Message)
}

func TestNewServiceDefaults(t *testing.T) {
	s := NewService(Options{Logger: zerolog.Nop()})

	inst, err := s.opts.Instruct()
	require.NoError(t, err)
	assert.Equal(t, instruct.Default(), inst)
	assert.Equal(t, "User", s.opts.Identity().User)
	assert.NotNil(t, s.opts.Engine)
	assert.Nil(t, s.Current())
}
