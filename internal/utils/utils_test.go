package utils

import (
	"strings"
	"testing"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"Empty key", "", "****"},
		{"Short key (8 chars)", "12345678", "****"},
		{"Normal key (12 chars)", "123456789012", "1234****9012"},
		{"Long API key", "test-key-abcdefghijklmnopqrstuvwxyz", "test****wxyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.expected {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}

	t.Run("Middle characters are hidden", func(t *testing.T) {
		masked := MaskAPIKey("test-key-supersecretkey123")
		if strings.Contains(masked, "supersecret") {
			t.Errorf("Masked key contains sensitive middle part: %q", masked)
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 6, "hello…"},
		{"héllo", 2, "h…"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://api.openai.com/v1/chat/completions", true},
		{"http://127.0.0.1:5001/api/extra/generate/stream", true},
		{"", false},
		{"ftp://example.com", false},
		{"api.openai.com", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := ValidateURL(tt.url); got != tt.want {
			t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestExtractHost(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://api.anthropic.com/v1/messages", "api.anthropic.com"},
		{"http://localhost:11434/api/generate", "localhost:11434"},
		{"not a url", ""},
	}
	for _, tt := range tests {
		if got := ExtractHost(tt.url); got != tt.want {
			t.Errorf("ExtractHost(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
