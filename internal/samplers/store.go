package samplers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"chatterapi/config/storage"

	"github.com/tidwall/gjson"
)

// CurrentVersion is the schema version written by Store
const CurrentVersion = 2

// DefaultPresetName names the preset created on first use
const DefaultPresetName = "Default"

// ErrPresetNotFound is returned for an unknown preset name
var ErrPresetNotFound = errors.New("sampler preset not found")

// File is the persisted sampler state
type File struct {
	Version int               `json:"version"`
	Active  string            `json:"active"`
	Presets map[string]Preset `json:"presets"`
}

// migration upgrades raw file content from one version to the next
type migration func(raw []byte) ([]byte, error)

// migrations[v] upgrades version v to v+1
var migrations = map[int]migration{
	0: migrateV0,
	1: migrateV1,
}

// migrateV0 wraps a bare preset object into the preset file layout
func migrateV0(raw []byte) ([]byte, error) {
	var p Preset
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse legacy sampler preset: %w", err)
	}
	return json.Marshal(File{
		Version: 1,
		Active:  DefaultPresetName,
		Presets: map[string]Preset{DefaultPresetName: p},
	})
}

// migrateV1 renames max_tokens to genamt and fills samplers added since
func migrateV1(raw []byte) ([]byte, error) {
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sampler file: %w", err)
	}
	for name, p := range f.Presets {
		if p == nil {
			p = Preset{}
		}
		if v, ok := p["max_tokens"]; ok {
			if _, exists := p[GenerateAmount]; !exists {
				p[GenerateAmount] = v
			}
			delete(p, "max_tokens")
		}
		for id, def := range Definitions {
			if _, ok := p[id]; !ok {
				p[id] = def.Default
			}
		}
		f.Presets[name] = p
	}
	f.Version = 2
	return json.Marshal(f)
}

// detectVersion reads the schema version of raw content
func detectVersion(raw []byte) int {
	doc := gjson.ParseBytes(raw)
	if v := doc.Get("version"); v.Exists() {
		return int(v.Int())
	}
	if doc.Get("presets").Exists() {
		return 1
	}
	return 0
}

// Migrate upgrades raw content to CurrentVersion
func Migrate(raw []byte) (*File, error) {
	version := detectVersion(raw)
	if version > CurrentVersion {
		return nil, fmt.Errorf("sampler file version %d is newer than supported version %d", version, CurrentVersion)
	}
	for version < CurrentVersion {
		step, ok := migrations[version]
		if !ok {
			return nil, fmt.Errorf("no sampler migration from version %d", version)
		}
		next, err := step(raw)
		if err != nil {
			return nil, err
		}
		raw = next
		version++
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sampler file: %w", err)
	}
	return &f, nil
}

// Store persists sampler presets
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by path
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{
				Version: CurrentVersion,
				Active:  DefaultPresetName,
				Presets: map[string]Preset{DefaultPresetName: DefaultPreset()},
			}, nil
		}
		return nil, fmt.Errorf("failed to read sampler file: %w", err)
	}
	migrated := detectVersion(data) != CurrentVersion
	f, err := Migrate(data)
	if err != nil {
		return nil, err
	}
	if f.Presets == nil {
		f.Presets = map[string]Preset{}
	}
	if len(f.Presets) == 0 {
		f.Presets[DefaultPresetName] = DefaultPreset()
		f.Active = DefaultPresetName
	}
	if migrated {
		if err := s.save(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (s *Store) save(f *File) error {
	f.Version = CurrentVersion
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize samplers: %w", err)
	}
	return storage.AtomicFileUpdate(s.path, string(data), false)
}

// Active returns the active preset
func (s *Store) Active() (string, Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return "", nil, err
	}
	p, ok := f.Presets[f.Active]
	if !ok {
		return f.Active, DefaultPreset(), nil
	}
	return f.Active, p.Clone(), nil
}

// Names lists preset names
func (s *Store) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Presets))
	for name := range f.Presets {
		names = append(names, name)
	}
	return names, nil
}

// SetValue sets a sampler value on the named preset, creating it from the
// defaults when missing
func (s *Store) SetValue(preset string, id ID, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	p, ok := f.Presets[preset]
	if !ok {
		p = DefaultPreset()
	}
	p[id] = value
	f.Presets[preset] = p
	return s.save(f)
}

// SetActive selects the active preset
func (s *Store) SetActive(preset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Presets[preset]; !ok {
		return fmt.Errorf("%w: %s", ErrPresetNotFound, preset)
	}
	f.Active = preset
	return s.save(f)
}
