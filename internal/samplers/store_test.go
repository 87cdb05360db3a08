package samplers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samplers.json")
	return NewStore(path), path
}

func TestStoreDefaults(t *testing.T) {
	store, _ := setupTestStore(t)

	name, preset, err := store.Active()
	if err != nil {
		t.Fatalf("Active() error: %v", err)
	}
	if name != DefaultPresetName {
		t.Errorf("Active() name = %q, want %q", name, DefaultPresetName)
	}
	if len(preset) != len(Definitions) {
		t.Errorf("default preset has %d entries, want %d", len(preset), len(Definitions))
	}
}

func TestStoreSetValuePersists(t *testing.T) {
	store, path := setupTestStore(t)

	if err := store.SetValue(DefaultPresetName, Temperature, 1.3); err != nil {
		t.Fatalf("SetValue() error: %v", err)
	}

	reopened := NewStore(path)
	_, preset, err := reopened.Active()
	if err != nil {
		t.Fatalf("Active() error: %v", err)
	}
	if preset[Temperature] != 1.3 {
		t.Errorf("temp = %v, want 1.3", preset[Temperature])
	}
}

func TestStoreSetActive(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SetActive("missing"); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("SetActive(missing) error = %v, want ErrPresetNotFound", err)
	}
	if err := store.SetValue("Creative", Temperature, 1.5); err != nil {
		t.Fatal(err)
	}
	if err := store.SetActive("Creative"); err != nil {
		t.Fatalf("SetActive() error: %v", err)
	}
	name, preset, _ := store.Active()
	if name != "Creative" || preset[Temperature] != 1.5 {
		t.Errorf("Active() = %q %v", name, preset[Temperature])
	}
}

func TestMigrateLegacyPreset(t *testing.T) {
	store, path := setupTestStore(t)
	legacy := `{"temp": 0.9, "max_tokens": 300}`
	if err := os.WriteFile(path, []byte(legacy), 0600); err != nil {
		t.Fatal(err)
	}

	name, preset, err := store.Active()
	if err != nil {
		t.Fatalf("Active() error: %v", err)
	}
	if name != DefaultPresetName {
		t.Errorf("name = %q", name)
	}
	if preset[Temperature] != 0.9 {
		t.Errorf("temp = %v, want 0.9", preset[Temperature])
	}
	if preset[GenerateAmount] != float64(300) {
		t.Errorf("genamt = %v, want 300", preset[GenerateAmount])
	}
	if _, ok := preset["max_tokens"]; ok {
		t.Error("max_tokens should be renamed")
	}
	if _, ok := preset[MinP]; !ok {
		t.Error("missing samplers should be filled with defaults")
	}

	// Migration is written back once
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	if f.Version != CurrentVersion {
		t.Errorf("persisted version = %d, want %d", f.Version, CurrentVersion)
	}
}

func TestMigrateRejectsNewerVersion(t *testing.T) {
	if _, err := Migrate([]byte(`{"version": 99}`)); err == nil {
		t.Error("expected error for newer schema version")
	}
}

func TestPresetValueFallsBackToDefault(t *testing.T) {
	p := Preset{Temperature: 1.1}
	if v, ok := p.Value(Temperature); !ok || v != 1.1 {
		t.Errorf("Value(temp) = %v, %v", v, ok)
	}
	if v, ok := p.Value(TopK); !ok || v != 0 {
		t.Errorf("Value(top_k) = %v, %v", v, ok)
	}
	if _, ok := p.Value("unknown"); ok {
		t.Error("unknown sampler should not resolve")
	}
}
