package instruct

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestConstructStopSequence(t *testing.T) {
	tests := []struct {
		name     string
		sequence string
		expected []string
	}{
		{"two entries", "STOP,END", []string{"STOP", "END"}},
		{"empty segments dropped", ",STOP,,END,", []string{"STOP", "END"}},
		{"duplicates kept", "A,A", []string{"A", "A"}},
		{"empty", "", []string{}},
		{"spaces preserved", " x ,y", []string{" x ", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConstructStopSequence(Instruct{StopSequence: tt.sequence})
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ConstructStopSequence(%q) = %q, want %q", tt.sequence, got, tt.expected)
			}
		})
	}
}

func TestConstructReplaceStrings(t *testing.T) {
	inst := Instruct{StopSequence: "STOP,END", Names: true}
	got := ConstructReplaceStrings(inst, Identity{User: "Alice", Char: "Bob"})
	want := []string{"STOP", "END", "Alice :", "Bob :"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConstructReplaceStrings() = %q, want %q", got, want)
	}

	inst.Names = false
	got = ConstructReplaceStrings(inst, Identity{User: "Alice", Char: "Bob"})
	if !reflect.DeepEqual(got, []string{"STOP", "END"}) {
		t.Errorf("names disabled should not add name tokens, got %q", got)
	}
}

func TestConstructReplaceStringsReadsIdentityPerCall(t *testing.T) {
	inst := Instruct{Names: true}
	first := ConstructReplaceStrings(inst, Identity{User: "Alice", Char: "Bob"})
	second := ConstructReplaceStrings(inst, Identity{User: "Carol", Char: "Dan"})
	if first[0] != "Alice :" || second[0] != "Carol :" || second[1] != "Dan :" {
		t.Errorf("identity change not reflected: %q then %q", first, second)
	}
}

func TestCompileStopPattern(t *testing.T) {
	t.Run("nil for nothing", func(t *testing.T) {
		if CompileStopPattern(nil) != nil || CompileStopPattern([]string{""}) != nil {
			t.Error("expected nil pattern")
		}
	})

	t.Run("metacharacters escaped", func(t *testing.T) {
		re := CompileStopPattern([]string{"<|im_end|>", "a.b", "(x)"})
		got := Strip("hi<|im_end|> aXb a.b (x)", re)
		if got != "hi aXb  " {
			t.Errorf("Strip() = %q", got)
		}
	})

	t.Run("case sensitive", func(t *testing.T) {
		re := CompileStopPattern([]string{"STOP"})
		if got := Strip("stop STOP", re); got != "stop " {
			t.Errorf("Strip() = %q, want %q", got, "stop ")
		}
	})

	t.Run("overlapping stops removed whole", func(t *testing.T) {
		tests := []struct {
			stops []string
			in    string
			want  string
		}{
			{[]string{"ST", "STOP"}, "goSTOP", "go"},
			{[]string{"STOP", "ST"}, "goSTOP", "go"},
			{[]string{"ST", "STOP"}, "a ST b", "a  b"},
			{[]string{"\nUser", "\nUser:"}, "hi\nUser: x", "hi x"},
		}
		for _, tt := range tests {
			if got := Strip(tt.in, CompileStopPattern(tt.stops)); got != tt.want {
				t.Errorf("Strip(%q) with %q = %q, want %q", tt.in, tt.stops, got, tt.want)
			}
		}
	})
}

// For any stop sequence split across two chunks, stripping the accumulated
// buffer removes it.
func TestPropertyStripAcrossChunks(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	nonEmpty := gen.AlphaString().Map(func(s string) string {
		if s == "" {
			return "STOP"
		}
		return s
	})

	properties.Property("split stop sequence is removed", prop.ForAll(
		func(prefix, stop, suffix string, cut int) bool {
			// Keep the surrounding text free of the stop itself
			prefix = strings.ReplaceAll(prefix, stop, "")
			suffix = strings.ReplaceAll(suffix, stop, "")
			full := prefix + stop + suffix
			split := len(prefix) + cut%(len(stop)+1)

			re := CompileStopPattern([]string{stop})
			buffer := ""
			for _, chunk := range []string{full[:split], full[split:]} {
				buffer = Strip(buffer+chunk, re)
			}
			return !strings.Contains(buffer, stop)
		},
		gen.NumString(),
		nonEmpty,
		gen.NumString(),
		gen.IntRange(0, 64),
	))

	properties.TestingRun(t)
}

func TestReplaceMacros(t *testing.T) {
	now := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)
	id := Identity{User: "Alice", Char: "Bob"}
	got := ReplaceMacros("{{char}} talks to {{USER}} at {{time}} on {{date}} {{other}}", id, now)
	want := "Bob talks to Alice at 2:07 PM on March 5, 2024 {{other}}"
	if got != want {
		t.Errorf("ReplaceMacros() = %q, want %q", got, want)
	}
}

func TestBuildPrompt(t *testing.T) {
	inst := Resolve(Default(), Identity{User: "Alice", Char: "Bob"}, time.Now())
	history := []Turn{
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello"},
		{Role: RoleUser, Content: "How are you?"},
	}
	p := BuildPrompt(inst, Identity{User: "Alice", Char: "Bob"}, history)

	if !strings.HasPrefix(p.Text, "<|im_start|>system\nWrite Bob's next reply") {
		t.Errorf("unexpected prompt start: %q", p.Text)
	}
	if !strings.HasSuffix(p.Text, "<|im_start|>assistant\n") {
		t.Errorf("prompt should end with output prefix: %q", p.Text)
	}
	if len(p.Turns) != 3 || p.System == "" {
		t.Errorf("unexpected prompt: %+v", p)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	inst, err := Load(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("Load(missing) error: %v", err)
	}
	if inst.Name != "ChatML" {
		t.Errorf("expected default instruct, got %q", inst.Name)
	}

	path := filepath.Join(dir, "instruct.json")
	if err := os.WriteFile(path, []byte(`{"stop_sequence":"STOP,END","names":true}`), 0600); err != nil {
		t.Fatal(err)
	}
	inst, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if inst.StopSequence != "STOP,END" || !inst.Names || inst.InputPrefix == "" {
		t.Errorf("unexpected instruct: %+v", inst)
	}

	if err := os.WriteFile(path, []byte(`{`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
