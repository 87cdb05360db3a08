// Package samplers declares the provider independent sampler parameters and
// persists named presets of their values.
package samplers

import "sort"

// ID identifies a generic sampler parameter
type ID = string

const (
	Temperature       ID = "temp"
	MaxLength         ID = "max_length"
	GenerateAmount    ID = "genamt"
	TopP              ID = "top_p"
	TopK              ID = "top_k"
	MinP              ID = "min_p"
	Typical           ID = "typical"
	RepetitionPenalty ID = "rep_pen"
	RepetitionRange   ID = "rep_pen_range"
	FrequencyPenalty  ID = "freq_pen"
	PresencePenalty   ID = "presence_pen"
	Seed              ID = "seed"
	MirostatMode      ID = "mirostat_mode"
	MirostatTau       ID = "mirostat_tau"
	MirostatEta       ID = "mirostat_eta"
	Streaming         ID = "stream"
	BanEOSToken       ID = "ban_eos_token"
)

// Definition describes a sampler and its default value
type Definition struct {
	ID      ID
	Label   string
	Default any
}

// Definitions lists every known sampler
var Definitions = map[ID]Definition{
	Temperature:       {Temperature, "Temperature", 0.7},
	MaxLength:         {MaxLength, "Max Context Length", 4096},
	GenerateAmount:    {GenerateAmount, "Generated Length", 256},
	TopP:              {TopP, "Top P", 1.0},
	TopK:              {TopK, "Top K", 0},
	MinP:              {MinP, "Min P", 0.05},
	Typical:           {Typical, "Typical P", 1.0},
	RepetitionPenalty: {RepetitionPenalty, "Repetition Penalty", 1.05},
	RepetitionRange:   {RepetitionRange, "Repetition Penalty Range", 256},
	FrequencyPenalty:  {FrequencyPenalty, "Frequency Penalty", 0.0},
	PresencePenalty:   {PresencePenalty, "Presence Penalty", 0.0},
	Seed:              {Seed, "Seed", -1},
	MirostatMode:      {MirostatMode, "Mirostat Mode", 0},
	MirostatTau:       {MirostatTau, "Mirostat Tau", 5.0},
	MirostatEta:       {MirostatEta, "Mirostat Eta", 0.1},
	Streaming:         {Streaming, "Stream", true},
	BanEOSToken:       {BanEOSToken, "Ban EOS Token", false},
}

// Preset maps sampler IDs to values (number, bool or string)
type Preset map[ID]any

// DefaultPreset returns a preset holding every default
func DefaultPreset() Preset {
	p := make(Preset, len(Definitions))
	for id, def := range Definitions {
		p[id] = def.Default
	}
	return p
}

// Value returns the preset value for id, falling back to the definition
// default. ok is false when neither exists.
func (p Preset) Value(id ID) (any, bool) {
	if v, ok := p[id]; ok && v != nil {
		return v, true
	}
	if def, ok := Definitions[id]; ok {
		return def.Default, true
	}
	return nil, false
}

// Clone returns a shallow copy
func (p Preset) Clone() Preset {
	c := make(Preset, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// SortedIDs returns the preset keys in a stable order
func (p Preset) SortedIDs() []ID {
	ids := make([]ID, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
