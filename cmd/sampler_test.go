package cmd

import (
	"testing"

	"chatterapi/internal/samplers"
)

func TestParseSamplerValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"-1", int64(-1)},
		{"0.85", 0.85},
		{"1e3", 1000.0},
		{"mirostat", "mirostat"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := parseSamplerValue(tt.raw); got != tt.want {
				t.Errorf("parseSamplerValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSamplerCommands(t *testing.T) {
	useConfigDir(t)

	if err := runCLI(t, "sampler", "show"); err != nil {
		t.Fatalf("show error: %v", err)
	}
	if err := runCLI(t, "sampler", "set", "temp", "1.2"); err != nil {
		t.Fatalf("set error: %v", err)
	}
	if err := runCLI(t, "sampler", "set", "seed", "7", "--preset", "Creative"); err != nil {
		t.Fatalf("set on new preset error: %v", err)
	}
	if err := runCLI(t, "sampler", "use", "Creative"); err != nil {
		t.Fatalf("use error: %v", err)
	}

	name, preset, err := openTestEnv(t).samplers.Active()
	if err != nil {
		t.Fatalf("Active() error: %v", err)
	}
	if name != "Creative" {
		t.Errorf("active preset = %q, want Creative", name)
	}
	if v, _ := preset[samplers.Seed].(float64); v != 7 {
		t.Errorf("seed = %#v, want 7", preset[samplers.Seed])
	}
}

func TestSamplerErrors(t *testing.T) {
	useConfigDir(t)

	if err := runCLI(t, "sampler", "set", "warmth", "1"); err == nil {
		t.Error("unknown sampler should be rejected")
	}
	if err := runCLI(t, "sampler", "use", "Missing"); err == nil {
		t.Error("unknown preset should be rejected")
	}
}
