package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatterapi/config/models"
	"chatterapi/internal/modellist"
)

func TestShouldPrompt(t *testing.T) {
	multi := models.Connection{Model: "model-1", Models: []string{"model-1", "model-2", "model-3"}}
	single := models.Connection{Model: "model-1", Models: []string{"model-1"}}

	tests := []struct {
		name      string
		c         models.Connection
		modelFlag string
		noPrompt  bool
	}{
		{"single model", single, "", false},
		{"model flag given", multi, "model-2", false},
		{"prompt disabled", multi, "", true},
		{"no selection", models.Connection{Model: "x"}, "", false},
	}

	ms := NewModelSelector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ms.ShouldPrompt(tt.c, tt.modelFlag, tt.noPrompt) {
				t.Error("ShouldPrompt() = true, want false")
			}
		})
	}

	t.Run("CI environment", func(t *testing.T) {
		t.Setenv("CI", "true")
		if ms.ShouldPrompt(multi, "", false) {
			t.Error("ShouldPrompt() should be false in CI")
		}
	})
}

func TestPromptSimple(t *testing.T) {
	list := []string{"model-1", "model-2", "model-3"}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{"valid selection", "2\n", "model-2", ""},
		{"last entry without newline", "3", "model-3", ""},
		{"enter keeps current", "\n", "model-1", ""},
		{"out of range", "4\n", "", "invalid selection"},
		{"zero", "0\n", "", "invalid selection"},
		{"not a number", "abc\n", "", "invalid input"},
	}

	ms := NewModelSelector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ms.PromptSimple(strings.NewReader(tt.input), list, "model-1")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PromptSimple() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PromptSimple() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateModelInList(t *testing.T) {
	ms := NewModelSelector()
	list := []string{"gpt-4o", "gpt-4o-mini"}

	if err := ms.ValidateModelInList("gpt-4o-mini", list); err != nil {
		t.Errorf("valid model rejected: %v", err)
	}
	if err := ms.ValidateModelInList("gpt-5", list); err == nil {
		t.Error("model outside the list should be rejected")
	}
}

func TestPrintModels(t *testing.T) {
	var buf bytes.Buffer
	printModels(&buf, []modellist.Model{{Name: "llama3", ContextSize: 8192}, {Name: "mistral"}}, "mistral")
	out := buf.String()

	for _, want := range []string{"2 models", "llama3", "[8192 ctx]", "➤ mistral (current)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestModelsSelect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"}]}`)
	}))
	defer srv.Close()

	useConfigDir(t)
	err := runCLI(t, "connection", "add", "OpenAI", "--name", "work", "--key", "sk-test", "--model", "gpt-4o", "--model-url", srv.URL)
	if err != nil {
		t.Fatalf("add error: %v", err)
	}

	if err := runCLI(t, "connection", "models"); err != nil {
		t.Fatalf("models error: %v", err)
	}
	if err := runCLI(t, "connection", "models", "work", "--select", "gpt-5"); err == nil {
		t.Error("selecting a model outside the fetched list should fail")
	}
	if err := runCLI(t, "connection", "models", "work", "--select", "gpt-4o-mini"); err != nil {
		t.Fatalf("models --select error: %v", err)
	}

	c, _ := openTestEnv(t).manager.Get(0)
	if c.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", c.Model)
	}
}

func TestModelsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	useConfigDir(t)
	if err := runCLI(t, "connection", "add", "OpenAI", "--name", "work", "--model-url", srv.URL); err != nil {
		t.Fatalf("add error: %v", err)
	}

	err := runCLI(t, "connection", "models")
	if err == nil || !strings.Contains(err.Error(), "transport") {
		t.Errorf("err = %v, want a transport failure", err)
	}
}
