package modellist

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterapi/config/models"
	"chatterapi/internal/templates"
)

func selectable(parsing templates.ModelParsing) templates.Template {
	return templates.Template{
		Name:    "test",
		UI:      templates.UI{SelectableModel: true},
		Request: templates.Request{AuthHeader: "Authorization", AuthPrefix: "Bearer "},
		Model:   parsing,
	}
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNonArrayLeavesListUnchanged(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"data":{"models":"not-an-array"}}`)
	var logs bytes.Buffer
	f := NewFetcher(srv.Client(), zerolog.New(&logs))

	tmpl := selectable(templates.ModelParsing{ModelListParser: "data.models", NameParser: "id"})
	res := f.Fetch(context.Background(), tmpl, models.Connection{ModelEndpoint: srv.URL})

	assert.Equal(t, StatusNotArray, res.Status)
	assert.Error(t, res.Err)
	assert.Contains(t, logs.String(), "Model list is not an array")

	current := []string{"gpt-4o", "gpt-4o-mini"}
	assert.Equal(t, current, res.Apply(current))
}

func TestMissingPathLoggedDistinctly(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"object":"list"}`)
	var logs bytes.Buffer
	f := NewFetcher(srv.Client(), zerolog.New(&logs))

	tmpl := selectable(templates.ModelParsing{ModelListParser: "data", NameParser: "id"})
	res := f.Fetch(context.Background(), tmpl, models.Connection{ModelEndpoint: srv.URL})

	assert.Equal(t, StatusMissing, res.Status)
	assert.Contains(t, logs.String(), "Model list is undefined")
	assert.NotContains(t, logs.String(), "not an array")
	assert.Equal(t, []string{"keep"}, res.Apply([]string{"keep"}))
}

func TestFetchOpenAIList(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodGet, r.Method)
		fmt.Fprint(w, `{"data":[{"id":"gpt-4o","context_length":128000},{"id":"gpt-4o-mini"},{"object":"no id"}]}`)
	}))
	defer srv.Close()

	tmpl := selectable(templates.ModelParsing{ModelListParser: "data", NameParser: "id", ContextSizeParser: "context_length"})
	res := NewFetcher(srv.Client(), zerolog.Nop()).
		Fetch(context.Background(), tmpl, models.Connection{ModelEndpoint: srv.URL, Key: "k"})

	require.True(t, res.OK(), "status %s: %v", res.Status, res.Err)
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, res.Names())
	assert.Equal(t, int64(128000), res.Models[0].ContextSize)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, res.Apply([]string{"old"}))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		parsing templates.ModelParsing
		body    string
		status  Status
		names   []string
	}{
		{"root array of strings", templates.ModelParsing{}, `["a","b"]`, StatusOK, []string{"a", "b"}},
		{"text-generation-webui", templates.ModelParsing{ModelListParser: "model_names"}, `{"model_names":["m1"]}`, StatusOK, []string{"m1"}},
		{"ollama tags", templates.ModelParsing{ModelListParser: "models", NameParser: "name"}, `{"models":[{"name":"llama3:8b"}]}`, StatusOK, []string{"llama3:8b"}},
		{"empty array", templates.ModelParsing{ModelListParser: "data", NameParser: "id"}, `{"data":[]}`, StatusOK, []string{}},
		{"object at root", templates.ModelParsing{NameParser: "result"}, `{"result":"koboldcpp/x"}`, StatusNotArray, nil},
		{"invalid json", templates.ModelParsing{ModelListParser: "data"}, `<html>`, StatusInvalid, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.parsing, []byte(tt.body))
			assert.Equal(t, tt.status, res.Status)
			if tt.status == StatusOK {
				assert.Equal(t, tt.names, res.Names())
			}
		})
	}
}

func TestFetchTransportFailures(t *testing.T) {
	tmpl := selectable(templates.ModelParsing{ModelListParser: "data", NameParser: "id"})

	t.Run("non-200", func(t *testing.T) {
		srv := serve(t, http.StatusUnauthorized, `{"error":"bad key"}`)
		res := NewFetcher(srv.Client(), zerolog.Nop()).Fetch(context.Background(), tmpl, models.Connection{ModelEndpoint: srv.URL})
		assert.Equal(t, StatusTransport, res.Status)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		start := time.Now()
		res := NewFetcher(srv.Client(), zerolog.Nop()).WithTimeout(50*time.Millisecond).
			Fetch(context.Background(), tmpl, models.Connection{ModelEndpoint: srv.URL})
		assert.Equal(t, StatusTransport, res.Status)
		assert.Error(t, res.Err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("unsupported", func(t *testing.T) {
		res := NewFetcher(nil, zerolog.Nop()).Fetch(context.Background(), templates.Template{}, models.Connection{ModelEndpoint: "http://x"})
		assert.Equal(t, StatusUnsupported, res.Status)
		res = NewFetcher(nil, zerolog.Nop()).Fetch(context.Background(), tmpl, models.Connection{})
		assert.Equal(t, StatusUnsupported, res.Status)
	})
}

func TestDefaultTimeout(t *testing.T) {
	assert.Equal(t, time.Second, NewFetcher(nil, zerolog.Nop()).timeout)
}
