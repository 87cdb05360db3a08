package cmd

import (
	"bytes"
	"strings"
	"testing"

	"chatterapi/config/models"
)

func TestListCmd(t *testing.T) {
	if listCmd.Use != "list" {
		t.Errorf("listCmd.Use = %q, want %q", listCmd.Use, "list")
	}
	if len(listCmd.Aliases) == 0 || listCmd.Aliases[0] != "ls" {
		t.Errorf("listCmd.Aliases = %v", listCmd.Aliases)
	}
	if listCmd.RunE == nil {
		t.Error("listCmd.RunE should not be nil")
	}
}

func TestPrintConnections(t *testing.T) {
	values := []models.Connection{
		{FriendlyName: "work", ConfigName: "OpenAI", Endpoint: "https://api.openai.com/v1/chat/completions", Key: "sk-1234567890", Model: "gpt-4o"},
		{FriendlyName: "router", ConfigName: "OpenRouter", Endpoint: "https://openrouter.ai/api/v1/chat/completions", Models: []string{"a", "b", "c"}},
	}

	tests := []struct {
		name       string
		active     int
		wantMarked string
	}{
		{"first active", 0, "*  1. work [OpenAI]"},
		{"second active", 1, "*  2. router [OpenRouter]"},
		{"none active", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printConnections(&buf, values, tt.active)
			out := buf.String()

			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != 2 {
				t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
			}
			if tt.wantMarked != "" && !strings.Contains(out, tt.wantMarked) {
				t.Errorf("output missing %q:\n%s", tt.wantMarked, out)
			}
			marked := 0
			for _, line := range strings.Split(out, "\n") {
				if strings.HasPrefix(line, "*") {
					marked++
				}
			}
			want := 1
			if tt.active < 0 {
				want = 0
			}
			if marked != want {
				t.Errorf("%d lines marked active, want %d:\n%s", marked, want, out)
			}
			if strings.Contains(out, "sk-1234567890") {
				t.Error("key should be masked")
			}
			for _, want := range []string{"sk-1****7890", "model: gpt-4o", "3 models"} {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q", want)
				}
			}
		})
	}
}
