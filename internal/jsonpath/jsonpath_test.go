package jsonpath

import (
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		path    string
		want    string
		outcome Outcome
	}{
		{"nested object", `{"data":{"text":"hi"}}`, "data.text", "hi", Found},
		{"array index", `{"choices":[{"text":"a"},{"text":"b"}]}`, "choices.1.text", "b", Found},
		{"missing field", `{"choices":[]}`, "choices.0.text", "", Missing},
		{"root", `[1,2]`, "", "[1,2]", Found},
		{"invalid json", `{"text":`, "text", "", Invalid},
		{"null value", `{"text":null}`, "text", "", Found},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := Lookup(tt.doc, tt.path)
			if outcome != tt.outcome {
				t.Fatalf("Lookup(%q, %q) outcome = %v, want %v", tt.doc, tt.path, outcome, tt.outcome)
			}
			if outcome == Found && tt.path != "" && got.String() != tt.want {
				t.Errorf("Lookup(%q, %q) = %q, want %q", tt.doc, tt.path, got.String(), tt.want)
			}
			if tt.path == "" && got.Raw != tt.want {
				t.Errorf("root lookup = %q, want %q", got.Raw, tt.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
		want string
	}{
		{"string token", `{"token":"Hel"}`, "token", "Hel"},
		{"number token", `{"n":3}`, "n", "3"},
		{"object is not text", `{"delta":{"text":"x"}}`, "delta", ""},
		{"malformed chunk", `{"token":"Hel`, "token", ""},
		{"missing path", `{"type":"message_start"}`, "delta.text", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.doc, tt.path); got != tt.want {
				t.Errorf("Text(%q, %q) = %q, want %q", tt.doc, tt.path, got, tt.want)
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	if Found.String() != "found" || Missing.String() != "missing" || Invalid.String() != "invalid" {
		t.Errorf("unexpected outcome names")
	}
}
