// Package instruct resolves instruct settings and character identities into
// the stop sequences, name tokens and prompt text a generation needs.
package instruct

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Instruct holds the instruct formatting settings
type Instruct struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	SystemPrefix string `json:"system_prefix"`
	SystemSuffix string `json:"system_suffix"`
	InputPrefix  string `json:"input_prefix"`
	InputSuffix  string `json:"input_suffix"`
	OutputPrefix string `json:"output_prefix"`
	OutputSuffix string `json:"output_suffix"`
	StopSequence string `json:"stop_sequence"` // comma separated
	Names        bool   `json:"names"`         // also stop on "<name> :"
}

// Identity carries the display names of the current user and character
type Identity struct {
	User string
	Char string
}

// Default returns a ChatML-style instruct configuration
func Default() Instruct {
	return Instruct{
		Name:         "ChatML",
		SystemPrompt: "Write {{char}}'s next reply in a fictional chat between {{char}} and {{user}}.",
		SystemPrefix: "<|im_start|>system\n",
		SystemSuffix: "<|im_end|>\n",
		InputPrefix:  "<|im_start|>user\n",
		InputSuffix:  "<|im_end|>\n",
		OutputPrefix: "<|im_start|>assistant\n",
		OutputSuffix: "<|im_end|>\n",
		StopSequence: "<|im_end|>",
		Names:        false,
	}
}

// Load reads an instruct file. A missing file yields Default().
func Load(path string) (Instruct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Instruct{}, fmt.Errorf("failed to read instruct file: %w", err)
	}
	inst := Default()
	if err := json.Unmarshal(data, &inst); err != nil {
		return Instruct{}, fmt.Errorf("failed to parse instruct file: %w", err)
	}
	return inst, nil
}

// ConstructStopSequence splits the comma separated stop_sequence, dropping
// empty segments. Order and duplicates are preserved.
func ConstructStopSequence(inst Instruct) []string {
	stops := []string{}
	for _, s := range strings.Split(inst.StopSequence, ",") {
		if s == "" {
			continue
		}
		stops = append(stops, s)
	}
	return stops
}

// ConstructReplaceStrings returns the stop sequences followed by the
// "<user> :" and "<char> :" tokens when names are enabled. id is read on every
// call, never cached.
func ConstructReplaceStrings(inst Instruct, id Identity) []string {
	out := ConstructStopSequence(inst)
	if inst.Names {
		out = append(out, id.User+" :", id.Char+" :")
	}
	return out
}

// CompileStopPattern builds one case-sensitive alternation over strs with
// regex metacharacters escaped. Longer strings are tried first, so "STOP" is
// removed whole even when "ST" is also a stop. It returns nil when there is
// nothing to match.
func CompileStopPattern(strs []string) *regexp.Regexp {
	sorted := make([]string, 0, len(strs))
	for _, s := range strs {
		if s != "" {
			sorted = append(sorted, s)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = regexp.QuoteMeta(s)
	}
	return regexp.MustCompile(strings.Join(parts, "|"))
}

// Strip removes every match of re from text
func Strip(text string, re *regexp.Regexp) string {
	if re == nil {
		return text
	}
	return re.ReplaceAllLiteralString(text, "")
}

var macroPattern = regexp.MustCompile(`(?i)\{\{(user|char|time|date)\}\}`)

// ReplaceMacros substitutes {{user}}, {{char}}, {{time}} and {{date}}
func ReplaceMacros(text string, id Identity, now time.Time) string {
	return macroPattern.ReplaceAllStringFunc(text, func(m string) string {
		switch strings.ToLower(m[2 : len(m)-2]) {
		case "user":
			return id.User
		case "char":
			return id.Char
		case "time":
			return now.Format("3:04 PM")
		case "date":
			return now.Format("January 2, 2006")
		}
		return m
	})
}

// Resolve returns inst with macros substituted in every text field
func Resolve(inst Instruct, id Identity, now time.Time) Instruct {
	r := func(s string) string { return ReplaceMacros(s, id, now) }
	inst.SystemPrompt = r(inst.SystemPrompt)
	inst.SystemPrefix = r(inst.SystemPrefix)
	inst.SystemSuffix = r(inst.SystemSuffix)
	inst.InputPrefix = r(inst.InputPrefix)
	inst.InputSuffix = r(inst.InputSuffix)
	inst.OutputPrefix = r(inst.OutputPrefix)
	inst.OutputSuffix = r(inst.OutputSuffix)
	inst.StopSequence = r(inst.StopSequence)
	return inst
}
