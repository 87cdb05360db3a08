package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"chatterapi/config/models"
	"chatterapi/internal/templates"
)

func TestAddCmd(t *testing.T) {
	t.Run("Command definition", func(t *testing.T) {
		if addCmd.Use != "add <template>" {
			t.Errorf("addCmd.Use = %q", addCmd.Use)
		}
		if addCmd.RunE == nil {
			t.Error("addCmd.RunE should not be nil")
		}
	})

	t.Run("Flags", func(t *testing.T) {
		for _, name := range []string{"name", "url", "model-url", "key", "model", "prefill", "first-message"} {
			if addCmd.Flags().Lookup(name) == nil {
				t.Errorf("flag --%s not registered", name)
			}
		}
		for name, short := range map[string]string{"name": "n", "url": "u", "key": "k", "model": "m"} {
			if f := addCmd.Flags().Lookup(name); f != nil && f.Shorthand != short {
				t.Errorf("--%s shorthand = %q, want %q", name, f.Shorthand, short)
			}
		}
	})
}

func TestNewConnection(t *testing.T) {
	tmpl := templates.Template{
		Name: "KoboldCpp",
		DefaultValues: templates.Values{
			Endpoint:      "http://127.0.0.1:5001/api/extra/generate/stream",
			ModelEndpoint: "http://127.0.0.1:5001/api/v1/model",
			Prefill:       "Sure,",
		},
	}

	tests := []struct {
		name     string
		given    string
		wantName string
	}{
		{"template name by default", "", "KoboldCpp"},
		{"explicit name", "kobold", "kobold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConnection(tmpl, tt.given)
			if c.FriendlyName != tt.wantName {
				t.Errorf("FriendlyName = %q, want %q", c.FriendlyName, tt.wantName)
			}
			if c.ConfigName != "KoboldCpp" || !c.Active {
				t.Errorf("ConfigName = %q, Active = %v", c.ConfigName, c.Active)
			}
			if c.Endpoint != tmpl.DefaultValues.Endpoint || c.ModelEndpoint != tmpl.DefaultValues.ModelEndpoint {
				t.Errorf("endpoints not seeded: %+v", c)
			}
			if c.Prefill != "Sure," {
				t.Errorf("Prefill = %q", c.Prefill)
			}
		})
	}
}

func TestConnectionFlagsApply(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantChanged int
		check       func(t *testing.T, c models.Connection)
	}{
		{
			name:        "no flags",
			args:        nil,
			wantChanged: 0,
			check: func(t *testing.T, c models.Connection) {
				if c.Key != "old-key" || c.Model != "old-model" {
					t.Errorf("unset flags changed the connection: %+v", c)
				}
			},
		},
		{
			name:        "key and model",
			args:        []string{"-k", "sk-new", "--model", "gpt-4o"},
			wantChanged: 2,
			check: func(t *testing.T, c models.Connection) {
				if c.Key != "sk-new" || c.Model != "gpt-4o" || c.FriendlyName != "old" {
					t.Errorf("unexpected connection: %+v", c)
				}
			},
		},
		{
			name:        "explicit empty value clears",
			args:        []string{"--prefill", ""},
			wantChanged: 1,
			check: func(t *testing.T, c models.Connection) {
				if c.Prefill != "" {
					t.Errorf("Prefill = %q, want cleared", c.Prefill)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags connectionFlags
			cmd := &cobra.Command{Use: "test"}
			flags.register(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error: %v", err)
			}

			c := models.Connection{FriendlyName: "old", Key: "old-key", Model: "old-model", Prefill: "Sure,"}
			if got := flags.apply(cmd, &c); got != tt.wantChanged {
				t.Errorf("apply() = %d, want %d", got, tt.wantChanged)
			}
			tt.check(t, c)
		})
	}
}

func TestPromptMissing(t *testing.T) {
	withKey := templates.Template{Name: "OpenAI", Features: templates.Features{UseKey: true}}
	noKey := templates.Template{Name: "KoboldCpp"}

	tests := []struct {
		name     string
		tmpl     templates.Template
		input    string
		askName  bool
		askKey   bool
		wantName string
		wantKey  string
		prompts  int
	}{
		{"name and key", withKey, "work\nsk-1\n", true, true, "work", "sk-1", 2},
		{"empty name keeps default", withKey, "\nsk-1\n", true, true, "OpenAI", "sk-1", 2},
		{"template without key", noKey, "local\n", true, true, "local", "", 1},
		{"nothing to ask", withKey, "", false, false, "OpenAI", "", 0},
		{"input ends early", withKey, "work", true, true, "work", "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConnection(tt.tmpl, "")
			var out bytes.Buffer

			err := promptMissing(strings.NewReader(tt.input), &out, tt.tmpl, &c, tt.askName, tt.askKey)
			if err != nil {
				t.Fatalf("promptMissing() error: %v", err)
			}
			if c.FriendlyName != tt.wantName || c.Key != tt.wantKey {
				t.Errorf("got name=%q key=%q, want name=%q key=%q", c.FriendlyName, c.Key, tt.wantName, tt.wantKey)
			}
			if got := strings.Count(out.String(), ": "); got != tt.prompts {
				t.Errorf("prompts = %d, want %d (%q)", got, tt.prompts, out.String())
			}
		})
	}
}
